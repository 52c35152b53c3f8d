// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package cmd implements the couchstore command tree.
package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jotun-server/couchstore"
	"github.com/jotun-server/couchstore/cmd/couchstore/config"
	"github.com/jotun-server/couchstore/cmd/couchstore/errors"
	"github.com/jotun-server/couchstore/log"
)

type root struct {
	confFile  string
	debug     bool
	logFormat string
	output    string
	log       log.Logger
	conf      *config.Config
	cmd       *cobra.Command

	requestTimeout       string
	parsedRequestTimeout time.Duration
	connectTimeout       string
	parsedConnectTimeout time.Duration

	// resolveHome is used to resolve ~ in the default config file path
	resolveHome func(string) string
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// The return value is the process exit status.
func Execute(ctx context.Context) int {
	lg := log.New()
	root := rootCmd(lg)
	return root.execute(ctx)
}

func (r *root) execute(ctx context.Context) int {
	err := r.cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	return extractExitCode(err)
}

func extractExitCode(err error) int {
	if code := errors.InspectErrorCode(err); code != 0 {
		return code
	}

	// Any unhandled errors are assumed to be from Cobra, so return a "failed
	// to initialize" error
	return errors.ErrUsage
}

func resolveHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	usr, _ := user.Current()
	return filepath.Join(usr.HomeDir, path[2:])
}

func rootCmd(lg log.Logger) *root {
	r := &root{
		log:         lg,
		conf:        config.New(),
		resolveHome: resolveHome,
	}
	r.cmd = &cobra.Command{
		Use:   "couchstore",
		Short: "couchstore ensures CouchDB databases and design documents exist",
		Long: `couchstore creates each configured database if it is missing, then ` +
			`installs or replaces its design document.`,
		PersistentPreRunE: r.init,
	}

	pf := r.cmd.PersistentFlags()

	pf.StringVar(&r.confFile, "config", "~/.couchstore/config", "Path to config file")
	pf.String("context", "", "Context to use, overriding current-context and COUCHSTORE_CONTEXT")
	pf.BoolVar(&r.debug, "debug", false, "Enable debug output")
	pf.StringVar(&r.logFormat, "log-format", "text", "Log format, one of: text, json")
	pf.StringVarP(&r.output, "output", "o", "", "Output format, one of: json, yaml")
	pf.StringVar(&r.requestTimeout, "request-timeout", "", "The time limit for each request.")
	pf.StringVar(&r.connectTimeout, "connect-timeout", "", "Limits the time spent establishing a TCP connection.")
	_ = r.conf.BindContextFlag(pf.Lookup("context"))

	r.cmd.AddCommand(bootstrapCmd(r))
	r.cmd.AddCommand(designCmd(r))
	r.cmd.AddCommand(versionCmd(r))

	return r
}

func parseDuration(val string) (time.Duration, error) {
	if val == "" {
		return 0, nil
	}
	if d, err := strconv.ParseFloat(val, 64); err == nil {
		if d < 0 {
			return 0, errors.Code(errors.ErrUsage, "negative timeout not permitted")
		}
		return time.Duration(d * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.Code(errors.ErrUsage, err)
	}
	if d < 0 {
		return 0, errors.Code(errors.ErrUsage, "negative timeout not permitted")
	}
	return d, nil
}

func (r *root) init(cmd *cobra.Command, _ []string) error {
	switch r.logFormat {
	case "text":
		r.log.SetOut(cmd.OutOrStdout())
		r.log.SetErr(cmd.ErrOrStderr())
	case "json":
		// Structured logs share stderr, leaving stdout for command output.
		r.log = log.NewZap(cmd.ErrOrStderr())
	default:
		return errors.Codef(errors.ErrUsage, "unsupported log format: %s", r.logFormat)
	}
	switch r.output {
	case "", "json", "yaml":
	default:
		return errors.Codef(errors.ErrUsage, "unsupported output format: %s", r.output)
	}
	r.log.SetDebug(r.debug)

	r.log.Debug("Debug mode enabled")

	var err error
	r.parsedRequestTimeout, err = parseDuration(r.requestTimeout)
	if err != nil {
		return err
	}
	r.parsedConnectTimeout, err = parseDuration(r.connectTimeout)
	if err != nil {
		return err
	}

	if err := r.conf.Read(r.resolveHome(r.confFile), r.log); err != nil {
		return err
	}

	// Flags parsed cleanly; any later failure is not a usage problem.
	cmd.SilenceUsage = true
	return nil
}

// params returns the bootstrap parameters for the named store, with the
// command line timeouts applied.
func (r *root) params(store string) (couchstore.Parameters, error) {
	params, err := r.conf.Params(store)
	if err != nil {
		return couchstore.Parameters{}, err
	}
	if r.parsedConnectTimeout > 0 {
		params.Connection.ConnectTimeout = r.parsedConnectTimeout
	}
	if r.parsedRequestTimeout > 0 {
		params.Connection.RequestTimeout = r.parsedRequestTimeout
	}
	return params, nil
}

// write renders data in the selected output format. An empty format uses
// text, when provided, and JSON otherwise.
func (r *root) write(w io.Writer, data any, text string) error {
	switch {
	case r.output == "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case r.output == "" && text != "":
		_, err := io.WriteString(w, text+"\n")
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(data)
}
