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
	"runtime"

	"github.com/spf13/cobra"

	v "github.com/jotun-server/couchstore/cmd/couchstore/version"
)

type version struct {
	*root
}

func versionCmd(r *root) *cobra.Command {
	c := &version{
		root: r,
	}
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"ver"},
		Short:   "Print version information",
		RunE:    c.RunE,
	}
}

func (c *version) RunE(cmd *cobra.Command, _ []string) error {
	data := struct {
		Version   string `json:"version" yaml:"version"`
		GoVersion string `json:"goVersion" yaml:"goVersion"`
		GOARCH    string `json:"GOARCH" yaml:"GOARCH"`
		GOOS      string `json:"GOOS" yaml:"GOOS"`
	}{
		Version:   v.Version,
		GoVersion: runtime.Version(),
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
	}

	text := fmt.Sprintf("couchstore version %s %s %s/%s", data.Version, data.GoVersion, data.GOOS, data.GOARCH)
	return c.write(cmd.OutOrStdout(), data, text)
}
