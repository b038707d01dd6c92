// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copperline/shadowtable/pkg/migrate"
	"github.com/copperline/shadowtable/pkg/table"
)

type statusLine struct {
	Table       string
	SourceRows  int64
	ShadowRows  int64
	ShadowReady bool
	Triggers    []string
}

var statusCmd = &cobra.Command{
	Use:   "status <table>",
	Short: "Show the migration status of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		d, err := NewDatabase(ctx)
		if err != nil {
			return err
		}
		defer d.Close(ctx)

		source := table.New(d, args[0])
		m := migrate.New(d, source)

		line := statusLine{Table: source.Name}

		line.SourceRows, err = source.Count(ctx)
		if err != nil {
			return err
		}

		line.ShadowReady, err = d.TableExists(ctx, m.Name)
		if err != nil {
			return err
		}
		if line.ShadowReady {
			line.ShadowRows, err = m.Count(ctx)
			if err != nil {
				return err
			}
		}

		line.Triggers, err = m.SourceTriggers(ctx)
		if err != nil {
			return err
		}

		statusJSON, err := json.MarshalIndent(line, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(statusJSON))
		return nil
	},
}
