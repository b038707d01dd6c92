// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/copperline/shadowtable/pkg/db"
	"github.com/copperline/shadowtable/pkg/migrate"
	"github.com/copperline/shadowtable/pkg/plan"
	"github.com/copperline/shadowtable/pkg/table"
)

func migrateCmd() *cobra.Command {
	var noSwap bool

	migrateCmd := &cobra.Command{
		Use:       "migrate <file>",
		Short:     "Run the online migration described by a plan file",
		Example:   "migrate ./plans/users.yaml",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"file"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := readPlan(args[0])
			if err != nil {
				return err
			}

			d, err := NewDatabase(ctx)
			if err != nil {
				return err
			}
			defer d.Close(ctx)

			return runPlan(ctx, d, p, noSwap)
		},
	}

	migrateCmd.Flags().BoolVar(&noSwap, "no-swap", false, "Stop after the backfill, leaving the shadow table in place")

	return migrateCmd
}

func readPlan(fileName string) (*plan.Plan, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("opening plan file: %w", err)
	}
	defer file.Close()

	p, err := plan.ReadPlan(file)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	return p, nil
}

func runPlan(ctx context.Context, d *db.Database, p *plan.Plan, noSwap bool) error {
	source := table.NewWithPrimaryKey(d, p.Table, p.PrimaryKey)
	m := migrate.New(d, source)

	sp, _ := pterm.DefaultSpinner.WithText(fmt.Sprintf("Scaffolding shadow table for %q...", p.Table)).Start()

	if err := m.CreateFromSource(ctx); err != nil {
		sp.Fail(fmt.Sprintf("Failed to scaffold shadow table: %s", err))
		return err
	}

	for _, statement := range p.Statements {
		if err := d.Exec(ctx, statement); err != nil {
			sp.Fail(fmt.Sprintf("Failed to apply plan statement: %s", err))
			return err
		}
	}
	if err := d.Commit(ctx); err != nil {
		return err
	}

	for _, r := range p.Renames {
		if err := m.RenameColumn(ctx, r.From, r.To); err != nil {
			sp.Fail(fmt.Sprintf("Failed to rename column %q: %s", r.From, err))
			return err
		}
	}

	throttle, err := p.ThrottleDuration()
	if err != nil {
		return fmt.Errorf("invalid throttle in plan: %w", err)
	}

	opts := []migrate.CopyOption{
		migrate.WithCallbacks(func(progress migrate.Progress) {
			sp.UpdateText(progress.String())
		}),
	}
	if p.ChunkSize > 0 {
		opts = append(opts, migrate.WithChunkSize(p.ChunkSize))
	}
	if throttle > 0 {
		opts = append(opts, migrate.WithThrottle(throttle))
	}

	sp.UpdateText("Copying rows...")
	if err := m.CopyInChunks(ctx, opts...); err != nil {
		sp.Fail(fmt.Sprintf("Failed to copy rows: %s", err))
		return err
	}

	if noSwap {
		sp.Success(fmt.Sprintf("Backfill complete; shadow table %q left in place", m.Name))
		return nil
	}

	start := time.Now()
	newSource, archive, err := m.RenameTables(ctx)
	if err != nil {
		sp.Fail(fmt.Sprintf("Failed to swap tables: %s", err))
		return err
	}

	sp.Success(fmt.Sprintf("Migration of %q complete in %s; archive is %q",
		newSource.Name, time.Since(start).Round(time.Millisecond), archive.Name))
	return nil
}
