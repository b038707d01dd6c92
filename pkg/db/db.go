// SPDX-License-Identifier: Apache-2.0

// Package db provides the dialect-bound database handle the migration
// engine acts through: a single session, statement execution with lock
// retry, and the introspection entry points.
package db

import (
	"context"
	"fmt"

	"github.com/copperline/shadowtable/pkg/sqlgen"
)

// Database is a handle on one database session bound to one dialect.
type Database struct {
	conn     Conn
	commands sqlgen.Commands
	cfg      *Config

	lastInsertID int64
}

// New is the factory: it binds a connection to the dialect named in the
// config and returns the Database handle. An unknown dialect fails before
// any database work. On postgres the show_create_table helper function is
// installed; Close removes it.
func New(ctx context.Context, conn Conn, cfg *Config) (*Database, error) {
	commands, err := sqlgen.For(cfg.Dialect)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, cfg.Dialect)
	}
	cfg.applyDefaults()

	d := &Database{
		conn:     conn,
		commands: commands,
		cfg:      cfg,
	}

	if cfg.Dialect == sqlgen.Postgres {
		if err := d.Exec(ctx, sqlgen.PGShowCreateTableFunction); err != nil {
			return nil, fmt.Errorf("installing show_create_table: %w", err)
		}
	}

	return d, nil
}

// Commands returns the dialect statement producers.
func (d *Database) Commands() sqlgen.Commands { return d.commands }

// Config returns the session configuration.
func (d *Database) Config() *Config { return d.cfg }

// Schema returns the namespace used for introspection filters.
func (d *Database) Schema() string { return d.cfg.Schema }

// Name returns the catalog name.
func (d *Database) Name() string { return d.cfg.Database }

// Exec runs a single statement and records the last inserted row id when
// the driver reports one.
func (d *Database) Exec(ctx context.Context, query string) error {
	id, err := d.conn.Exec(ctx, query)
	if err != nil {
		return err
	}
	d.lastInsertID = id
	return nil
}

// Query runs a statement and fetches all result rows.
func (d *Database) Query(ctx context.Context, query string) ([][]any, error) {
	return d.conn.Query(ctx, query)
}

// QueryValue runs a statement expected to yield a single value. A missing
// row or NULL yields (nil, nil).
func (d *Database) QueryValue(ctx context.Context, query string) (any, error) {
	rows, err := d.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil
	}
	return rows[0][0], nil
}

// BatchExec runs a list of statements in order, stopping at the first
// failure.
func (d *Database) BatchExec(ctx context.Context, queries []string) error {
	for _, q := range queries {
		if err := d.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Commit makes prior statements durable.
func (d *Database) Commit(ctx context.Context) error {
	return d.conn.Commit(ctx)
}

// LastInsertID returns the id recorded by the most recent Exec.
func (d *Database) LastInsertID() int64 { return d.lastInsertID }

// Tables lists the user tables in the session's namespace.
func (d *Database) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.Query(ctx, d.commands.Tables(d.cfg.Schema))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if s, ok := row[0].(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// TableExists reports whether the named table exists in the namespace.
func (d *Database) TableExists(ctx context.Context, name string) (bool, error) {
	tables, err := d.Tables(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if t == name {
			return true, nil
		}
	}
	return false, nil
}

// Sequences lists the sequences in the catalog. Dialects without sequence
// support return an empty list.
func (d *Database) Sequences(ctx context.Context) ([]string, error) {
	sc, ok := d.commands.(sqlgen.SequenceCommands)
	if !ok {
		return nil, nil
	}

	rows, err := d.Query(ctx, sc.DatabaseSequences(d.cfg.Database))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if s, ok := row[0].(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// AddSequence creates the sequence if it is not already present.
func (d *Database) AddSequence(ctx context.Context, name string) error {
	sc, ok := d.commands.(sqlgen.SequenceCommands)
	if !ok {
		return nil
	}

	existing, err := d.Sequences(ctx)
	if err != nil {
		return err
	}
	for _, s := range existing {
		if s == name {
			return nil
		}
	}
	return d.Exec(ctx, sc.CreateSequence(name))
}

// SetForeignKeyChecks toggles per-session foreign key enforcement where
// the dialect supports it.
func (d *Database) SetForeignKeyChecks(ctx context.Context, on bool) error {
	fc, ok := d.commands.(sqlgen.ForeignKeyCheckCommands)
	if !ok {
		return nil
	}
	return d.Exec(ctx, fc.SetForeignKeyChecks(on))
}

// Close tears down the session, removing the postgres helper function
// first.
func (d *Database) Close(ctx context.Context) error {
	if d.cfg.Dialect == sqlgen.Postgres {
		// Best effort; the session may already be gone.
		_ = d.Exec(ctx, sqlgen.PGDropShowCreateTableFunction)
	}
	return d.conn.Close()
}
