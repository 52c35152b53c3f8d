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

package cmd

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jotun-server/couchstore"
	"github.com/jotun-server/couchstore/cmd/couchstore/errors"
)

type bootstrap struct {
	*root
	metricsFile string
}

func bootstrapCmd(r *root) *cobra.Command {
	c := &bootstrap{
		root: r,
	}
	cmd := &cobra.Command{
		Use:   "bootstrap [store...]",
		Short: "Create databases and install design documents",
		Long: `Ensure each named store's database exists, creating it if necessary, ` +
			`then install or replace its design document. With no arguments, every ` +
			`configured store is bootstrapped. Stores are bootstrapped concurrently; ` +
			`the first failure cancels the rest.`,
		RunE: c.RunE,
	}
	cmd.Flags().StringVar(&c.metricsFile, "metrics-file", "", "Write Prometheus metrics, in text format, to this file on completion")
	return cmd
}

func (c *bootstrap) RunE(cmd *cobra.Command, args []string) error {
	stores := args
	if len(stores) == 0 {
		stores = c.conf.StoreNames()
	}
	if len(stores) == 0 {
		return errors.Code(errors.ErrUsage, "no stores configured")
	}
	params := make([]couchstore.Parameters, len(stores))
	for i, name := range stores {
		var err error
		if params[i], err = c.params(name); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	g, ctx := errgroup.WithContext(cmd.Context())
	for i, name := range stores {
		name, p := name, params[i]
		g.Go(func() error {
			m := couchstore.New(p,
				couchstore.WithLogger(c.log),
				couchstore.WithContext(ctx),
				couchstore.WithRegisterer(reg),
				// Failures are returned from Wait, and were logged by the run.
				couchstore.WithFatalHandler(func(error) {}),
			)
			if err := m.Wait(ctx); err != nil {
				return fmt.Errorf("store %s: %w", name, err)
			}
			c.log.Debugf("store %s bootstrapped", name)
			return nil
		})
	}
	err := g.Wait()
	if c.metricsFile != "" {
		if werr := prometheus.WriteToTextfile(c.metricsFile, reg); werr != nil && err == nil {
			err = errors.Code(errors.ErrCantCreate, werr)
		}
	}
	return err
}
