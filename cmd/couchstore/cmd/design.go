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
	"github.com/spf13/cobra"
)

type design struct {
	*root
}

func designCmd(r *root) *cobra.Command {
	c := &design{
		root: r,
	}
	return &cobra.Command{
		Use:   "design [store]",
		Short: "Print the design document for a store",
		Long: `Print the design document that bootstrap would install for the named ` +
			`store. The store may be omitted when only one is configured. No ` +
			`connection to the server is made.`,
		Args: cobra.MaximumNArgs(1),
		RunE: c.RunE,
	}
}

func (c *design) RunE(cmd *cobra.Command, args []string) error {
	var store string
	if len(args) > 0 {
		store = args[0]
	}
	params, err := c.conf.Design(store)
	if err != nil {
		return err
	}
	if err := params.ValidateDesign(); err != nil {
		return err
	}
	return c.write(cmd.OutOrStdout(), params.DesignDoc(), "")
}
