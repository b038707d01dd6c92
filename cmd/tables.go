// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the user tables in the configured namespace",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		d, err := NewDatabase(ctx)
		if err != nil {
			return err
		}
		defer d.Close(ctx)

		tables, err := d.Tables(ctx)
		if err != nil {
			return err
		}

		for _, t := range tables {
			fmt.Println(t)
		}
		return nil
	},
}
