// SPDX-License-Identifier: Apache-2.0

package table_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperline/shadowtable/pkg/db"
	"github.com/copperline/shadowtable/pkg/schema"
	"github.com/copperline/shadowtable/pkg/sqlgen"
	"github.com/copperline/shadowtable/pkg/table"
)

func fakeTable(t *testing.T, dialect sqlgen.Dialect, conn *db.FakeConn, name string) *table.Table {
	t.Helper()

	d, err := db.New(context.Background(), conn, db.NewConfig(dialect, "testdb"))
	require.NoError(t, err)
	return table.New(d, name)
}

func TestInsertRowFormatsValues(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{
		QueryFunc: func(query string) ([][]any, error) {
			if query == "SELECT LASTVAL()" {
				return [][]any{{int64(3)}}, nil
			}
			return nil, nil
		},
	}
	users := fakeTable(t, sqlgen.Postgres, conn, "users")

	pk, err := users.InsertRow(context.Background(), map[string]any{
		"name": "Bob O'Ross",
		"zip":  90403,
		"rate": 7.5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), pk)

	// Columns render in sorted key order, strings quoted with embedded
	// quotes doubled.
	assert.Contains(t, conn.Statements,
		"INSERT INTO users (name, rate, zip) VALUES ('Bob O''Ross', 7.5, 90403)")
}

func TestInsertRowRejectsUnsupportedValues(t *testing.T) {
	t.Parallel()

	users := fakeTable(t, sqlgen.Postgres, &db.FakeConn{}, "users")

	_, err := users.InsertRow(context.Background(), map[string]any{"active": true})
	require.Error(t, err)
	assert.ErrorAs(t, err, &db.ValueError{})
}

func TestInsertRowsBatchesTuples(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{}
	users := fakeTable(t, sqlgen.Postgres, conn, "users")

	err := users.InsertRows(context.Background(),
		[]string{"name", "zip"},
		[][]any{{"Beyonce Knowles", 77001}, {"Jeff Bridges", 90049}})
	require.NoError(t, err)

	assert.Contains(t, conn.Statements,
		"INSERT INTO users (name, zip) VALUES ('Beyonce Knowles', 77001), ('Jeff Bridges', 90049)")

	err = users.InsertRows(context.Background(), []string{"name"}, [][]any{{"x", "extra"}})
	assert.Error(t, err)
}

func TestUpdateRowFormatsAssignments(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{}
	users := fakeTable(t, sqlgen.Postgres, conn, "users")

	err := users.UpdateRow(context.Background(), 2, map[string]any{
		"city": "Los Angeles",
		"zip":  90049,
	})
	require.NoError(t, err)

	assert.Contains(t, conn.Statements,
		"UPDATE users SET city='Los Angeles', zip=90049 WHERE id=2")
}

func TestGetRow(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{
		QueryFunc: func(query string) ([][]any, error) {
			if strings.Contains(query, "information_schema.columns") {
				return [][]any{{"id"}, {"name"}}, nil
			}
			if strings.Contains(query, "WHERE id=3") {
				return [][]any{{int64(3), "Bob Ross"}}, nil
			}
			return nil, nil
		},
	}
	users := fakeTable(t, sqlgen.Postgres, conn, "users")

	row, err := users.GetRow(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(3), "name": "Bob Ross"}, row)

	missing, err := users.GetRow(context.Background(), 4)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAddConstraintRewritesCheckClauses(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{}
	users := fakeTable(t, sqlgen.Postgres, conn, "users")
	ctx := context.Background()

	// NOT NULL checks become a column constraint on the named column.
	require.NoError(t, users.AddConstraint(ctx, schema.ConstraintCheck, "zip", "zip IS NOT NULL"))
	assert.Contains(t, conn.Statements, "ALTER TABLE users ALTER COLUMN zip SET NOT NULL")

	// The VALUE placeholder is substituted with the column name.
	require.NoError(t, users.AddConstraint(ctx, schema.ConstraintCheck, "zip", "VALUE > 0"))
	assert.Contains(t, conn.Statements, "ALTER TABLE users ADD CHECK (zip > 0)")

	// Unknown types are rejected outright.
	err := users.AddConstraint(ctx, schema.ConstraintType("EXCLUSION"), "zip", "")
	assert.Error(t, err)
}

func TestAddIndexesSkipsUnique(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{}
	users := fakeTable(t, sqlgen.Postgres, conn, "migrate_users")

	err := users.AddIndexes(context.Background(), []schema.Index{
		{Table: "users", Name: "users_pkey", Unique: true, Column: "id"},
		{Table: "users", Name: "users_created_at_ix", Unique: false, Column: "created_at"},
	})
	require.NoError(t, err)

	created := make([]string, 0)
	for _, s := range conn.Statements {
		if strings.Contains(s, "CREATE INDEX") {
			created = append(created, s)
		}
	}
	require.Len(t, created, 1)
	assert.Contains(t, created[0], "(created_at)")
}

func TestAddForeignKeysRemapsSides(t *testing.T) {
	t.Parallel()

	conn := &db.FakeConn{}
	users := fakeTable(t, sqlgen.Postgres, conn, "migrate_users")
	ctx := context.Background()

	keys := []schema.ForeignKey{
		// Outgoing: owned by users, points at org.
		{Name: "fk1", TableName: "users", Column: "org_id", FKTable: "org", FKColumn: "id"},
		// Incoming: owned by address, points at users.
		{Name: "fk2", TableName: "address", Column: "user_id", FKTable: "users", FKColumn: "id", Referenced: true},
		// Self-referential.
		{Name: "fk3", TableName: "users", Column: "friend_id", FKTable: "users", FKColumn: "id", Referenced: true},
	}

	require.NoError(t, users.AddForeignKeys(ctx, keys, "migrate_users"))

	adds := make([]string, 0)
	for _, s := range conn.Statements {
		if strings.Contains(s, "ADD CONSTRAINT") {
			adds = append(adds, s)
		}
	}
	require.Len(t, adds, 3)

	// Outgoing keys are owned by the shadow, target unchanged.
	assert.Contains(t, adds[0], "ALTER TABLE migrate_users ADD CONSTRAINT")
	assert.Contains(t, adds[0], "FOREIGN KEY (org_id) REFERENCES org (id)")

	// Incoming keys keep their owner and point at the shadow.
	assert.Contains(t, adds[1], "ALTER TABLE address ADD CONSTRAINT")
	assert.Contains(t, adds[1], "REFERENCES migrate_users (id)")

	// Self-referential keys remap both sides.
	assert.Contains(t, adds[2], "ALTER TABLE migrate_users ADD CONSTRAINT")
	assert.Contains(t, adds[2], "FOREIGN KEY (friend_id) REFERENCES migrate_users (id)")
}

func TestNamingPolicy(t *testing.T) {
	t.Parallel()

	shadow := fakeTable(t, sqlgen.Postgres, &db.FakeConn{},
		"migrate_a_very_long_table_name_that_keeps_going_and_going")

	fkName := shadow.NewFKIndexName("org_id", "id")
	assert.True(t, strings.HasPrefix(fkName, "org_id_refs_id_"))
	assert.Len(t, fkName, len("org_id_refs_id_")+8)

	uniq, err := shadow.NewConstraintName("a_column_name_longer_than_fifteen", schema.ConstraintUnique)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(uniq, "_uniq"))
	assert.LessOrEqual(t, len(uniq), db.DefaultMaxNameLength)
	// The shadow prefix is stripped so post-swap names read naturally.
	assert.True(t, strings.HasPrefix(uniq, "a_very_long_table_name_that_ke"))

	pkey, err := shadow.NewConstraintName("id", schema.ConstraintPrimaryKey)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(pkey, "_pkey"))
	assert.LessOrEqual(t, len(pkey), db.DefaultMaxNameLength)

	_, err = shadow.NewConstraintName("id", schema.ConstraintCheck)
	assert.Error(t, err)

	ixName := shadow.NewIndexName("id, name", true)
	assert.Contains(t, ixName, "idname")
	assert.True(t, strings.HasSuffix(ixName, "_unique"))
}

func TestMigrateAndArchiveNames(t *testing.T) {
	t.Parallel()

	users := fakeTable(t, sqlgen.Postgres, &db.FakeConn{}, "users")
	assert.Equal(t, "migrate_users", users.MigrateName())
	assert.Equal(t, "archive_users", users.ArchiveName())
}
