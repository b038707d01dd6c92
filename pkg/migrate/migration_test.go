// SPDX-License-Identifier: Apache-2.0

package migrate_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperline/shadowtable/pkg/db"
	"github.com/copperline/shadowtable/pkg/migrate"
	"github.com/copperline/shadowtable/pkg/sqlgen"
	"github.com/copperline/shadowtable/pkg/table"
)

func fakeDatabase(t *testing.T, dialect sqlgen.Dialect, conn *db.FakeConn, mutate func(*db.Config)) *db.Database {
	t.Helper()

	cfg := db.NewConfig(dialect, "testdb")
	if mutate != nil {
		mutate(cfg)
	}

	d, err := db.New(context.Background(), conn, cfg)
	require.NoError(t, err)
	return d
}

// scriptQueries answers the introspection queries the engine issues
// during a copy: trigger listings, counts, foreign key listings (none),
// column listings, pk bounds and pointer advancement.
func scriptQueries(triggers [][]any, shadowCount, sourceCount int64) func(string) ([][]any, error) {
	return func(query string) ([][]any, error) {
		switch {
		case strings.Contains(query, "information_schema.triggers"):
			return triggers, nil
		case strings.Contains(query, "COUNT(1) FROM migrate_users"):
			return [][]any{{shadowCount}}, nil
		case strings.Contains(query, "COUNT(1) FROM users"):
			return [][]any{{sourceCount}}, nil
		case strings.Contains(query, "constraint_type = 'FOREIGN KEY'"):
			return nil, nil
		case strings.Contains(query, "table_name = 'migrate_users'"),
			strings.Contains(query, "table_name = 'users'"):
			return [][]any{{"id"}, {"name"}}, nil
		case strings.Contains(query, "SELECT MIN(id) FROM users"):
			return [][]any{{int64(1)}}, nil
		case strings.Contains(query, "SELECT MAX(id) FROM users"):
			return [][]any{{sourceCount}}, nil
		case strings.Contains(query, "SELECT MAX(T1.id)"):
			// Pointer advancement: the next chunk beyond pk 1 ends at 2.
			return [][]any{{int64(2)}}, nil
		default:
			return nil, nil
		}
	}
}

func statementsContaining(conn *db.FakeConn, substr string) []string {
	matched := make([]string, 0)
	for _, s := range conn.Statements {
		if strings.Contains(s, substr) {
			matched = append(matched, s)
		}
	}
	return matched
}

func TestTriggerNamesTruncated(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{}
	d := fakeDatabase(t, sqlgen.Postgres, conn, nil)

	source := table.New(d, strings.Repeat("a", 80))
	m := migrate.New(d, source)

	names := m.TriggerNames()
	require.Len(t, names, 3)
	for verb, name := range names {
		assert.LessOrEqual(t, len(name), db.DefaultMaxNameLength)
		assert.True(t, strings.HasPrefix(name, "migration_trigger_"+string(verb)+"_"))
	}
}

func TestCreateTriggersIdempotent(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{
		QueryFunc: scriptQueries([][]any{
			{"migration_trigger_insert_users"},
			{"migration_trigger_update_users"},
			{"migration_trigger_delete_users"},
		}, 0, 0),
	}
	d := fakeDatabase(t, sqlgen.Postgres, conn, nil)
	m := migrate.New(d, table.New(d, "users"))

	require.NoError(t, m.CreateTriggers(context.Background()))
	assert.Empty(t, statementsContaining(conn, "CREATE TRIGGER"))
}

func TestCreateTriggersInstallsAllThree(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{QueryFunc: scriptQueries(nil, 0, 0)}
	d := fakeDatabase(t, sqlgen.Postgres, conn, nil)
	m := migrate.New(d, table.New(d, "users"))

	require.NoError(t, m.CreateTriggers(context.Background()))

	assert.Len(t, statementsContaining(conn, "CREATE TRIGGER"), 3)
	assert.Len(t, statementsContaining(conn, "CREATE OR REPLACE FUNCTION insert_migrate_users"), 1)
	assert.Len(t, statementsContaining(conn, "CREATE OR REPLACE FUNCTION update_migrate_users"), 1)
	assert.Len(t, statementsContaining(conn, "CREATE OR REPLACE FUNCTION delete_migrate_users"), 1)
}

func TestCopyInChunksSkipsWhenAlreadyCopied(t *testing.T) {
	t.Parallel()

	triggers := [][]any{{"migration_trigger_insert_users"}}
	conn := &db.FakeConn{QueryFunc: scriptQueries(triggers, 2, 2)}
	d := fakeDatabase(t, sqlgen.Postgres, conn, nil)
	m := migrate.New(d, table.New(d, "users"))

	require.NoError(t, m.CopyInChunks(context.Background()))
	assert.Empty(t, statementsContaining(conn, "INSERT INTO migrate_users"))
}

func TestCopyInChunksCopiesChunksAndBoundary(t *testing.T) {
	t.Parallel()

	triggers := [][]any{{"migration_trigger_insert_users"}}
	conn := &db.FakeConn{QueryFunc: scriptQueries(triggers, 0, 2)}
	d := fakeDatabase(t, sqlgen.Postgres, conn, nil)
	m := migrate.New(d, table.New(d, "users"))

	var reports []migrate.Progress
	err := m.CopyInChunks(context.Background(),
		migrate.WithChunkSize(1),
		migrate.WithThrottle(time.Millisecond),
		migrate.WithCallbacks(func(p migrate.Progress) {
			reports = append(reports, p)
		}),
	)
	require.NoError(t, err)

	// One chunk from pk 1, then the boundary chunk at pk 2.
	chunks := statementsContaining(conn, "INSERT INTO migrate_users")
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0], "users.id >= 1")
	assert.Contains(t, chunks[1], "users.id >= 2")

	require.Len(t, reports, 2)
	assert.Equal(t, int64(2), reports[0].Pointer)
	assert.InDelta(t, 100.0, reports[1].Percent(), 0.001)
}

func TestRenameTablesPostgres(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{QueryFunc: scriptQueries(nil, 0, 0)}
	d := fakeDatabase(t, sqlgen.Postgres, conn, nil)
	m := migrate.New(d, table.New(d, "users"))

	newSource, archive, err := m.RenameTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "users", newSource.Name)
	assert.Equal(t, "archive_users", archive.Name)

	// The two renames run inside one explicit transaction.
	var swap []string
	for _, s := range conn.Statements {
		switch s {
		case "BEGIN",
			"ALTER TABLE users RENAME TO archive_users",
			"ALTER TABLE migrate_users RENAME TO users",
			"COMMIT":
			swap = append(swap, s)
		}
	}
	assert.Equal(t, []string{
		"BEGIN",
		"ALTER TABLE users RENAME TO archive_users",
		"ALTER TABLE migrate_users RENAME TO users",
		"COMMIT",
	}, swap)
}

func TestRenameTablesPostgresFailureIsLoud(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{QueryFunc: scriptQueries(nil, 0, 0)}
	conn.ExecFunc = func(query string) (int64, error) {
		if strings.Contains(query, "RENAME TO") {
			return 0, errors.New("deadlock detected")
		}
		return 0, nil
	}
	d := fakeDatabase(t, sqlgen.Postgres, conn, nil)
	m := migrate.New(d, table.New(d, "users"))

	_, _, err := m.RenameTables(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "triggers are dropped")
	assert.NotEmpty(t, statementsContaining(conn, "ROLLBACK"))
}

func TestRenameTablesMySQLRetriesThenReinstallsTriggers(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{QueryFunc: scriptQueries(nil, 0, 0)}
	conn.ExecFunc = func(query string) (int64, error) {
		if strings.Contains(query, "RENAME TABLE") {
			return 0, &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
		}
		return 0, nil
	}
	d := fakeDatabase(t, sqlgen.MySQL, conn, func(cfg *db.Config) {
		cfg.MaxRenameRetries = 2
		cfg.RetrySleep = time.Millisecond
	})
	m := migrate.New(d, table.New(d, "users"))

	_, _, err := m.RenameTables(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "triggers reinstalled")

	// Initial attempt plus the configured retries.
	assert.Len(t, statementsContaining(conn, "RENAME TABLE"), 3)
	// The mirror triggers are back so the copy can resume later.
	assert.Len(t, statementsContaining(conn, "CREATE TRIGGER"), 3)
}

func TestRenameColumnAppendsRenames(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{QueryFunc: scriptQueries(nil, 0, 0)}
	d := fakeDatabase(t, sqlgen.Postgres, conn, nil)
	m := migrate.New(d, table.New(d, "users"))

	require.NoError(t, m.RenameColumn(context.Background(), "zip", "zipcode"))
	require.NoError(t, m.RenameColumn(context.Background(), "addr", "address"))

	assert.Equal(t, []migrate.Rename{
		{Old: "zip", New: "zipcode"},
		{Old: "addr", New: "address"},
	}, m.Renames())

	// zipcode is not on the scripted shadow columns, so the rename is
	// applied physically.
	assert.NotEmpty(t, statementsContaining(conn, "ALTER TABLE migrate_users RENAME COLUMN zip TO zipcode"))
}
