// SPDX-License-Identifier: Apache-2.0

package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/copperline/shadowtable/pkg/db"
	"github.com/copperline/shadowtable/pkg/sqlgen"
)

// The version of postgres against which the tests are run
// if the POSTGRES_VERSION environment variable is not set.
const defaultPostgresVersion = "15.3"

// tConnStr holds the connection string to the test container created in
// SharedTestMain; empty when no container could be started.
var tConnStr string

// SharedTestMain starts a postgres container to be used by all tests in a
// package. Each test then connects to the container and creates a new
// database. When no container runtime is available the container-backed
// tests skip themselves.
func SharedTestMain(m *testing.M) {
	ctx := context.Background()

	waitForLogs := wait.
		ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(time.Minute)

	pgVersion := os.Getenv("POSTGRES_VERSION")
	if pgVersion == "" {
		pgVersion = defaultPostgresVersion
	}

	ctr, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:"+pgVersion),
		testcontainers.WithWaitStrategy(waitForLogs),
	)
	if err != nil {
		log.Printf("no postgres container available, skipping container tests: %v", err)
		os.Exit(m.Run())
	}

	tConnStr, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		os.Exit(1)
	}

	exitCode := m.Run()

	if err := ctr.Terminate(ctx); err != nil {
		log.Printf("Failed to terminate container: %v", err)
	}

	os.Exit(exitCode)
}

// WithConnectionToContainer creates a fresh database in the test
// container and hands the test a raw connection to it.
func WithConnectionToContainer(t *testing.T, fn func(*sql.DB, string)) {
	t.Helper()

	conn, connStr, _ := setupTestDatabase(t)

	fn(conn, connStr)
}

// WithDatabaseToContainer creates a fresh database in the test container
// and hands the test a dialect-bound Database handle plus a raw
// connection for fixtures.
func WithDatabaseToContainer(t *testing.T, fn func(*db.Database, *sql.DB)) {
	t.Helper()
	ctx := context.Background()

	raw, connStr, dbName := setupTestDatabase(t)

	conn, err := db.Connect(ctx, sqlgen.Postgres, connStr)
	if err != nil {
		t.Fatal(err)
	}

	d, err := db.New(ctx, conn, db.NewConfig(sqlgen.Postgres, dbName))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := d.Close(context.Background()); err != nil {
			t.Fatalf("Failed to close database: %v", err)
		}
	})

	fn(d, raw)
}

// setupTestDatabase creates a new database in the test container and
// returns a connection to it, its connection string and its name.
func setupTestDatabase(t *testing.T) (*sql.DB, string, string) {
	t.Helper()

	if tConnStr == "" {
		t.Skip("no postgres container available")
	}

	ctx := context.Background()

	tDB, err := sql.Open("postgres", tConnStr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := tDB.Close(); err != nil {
			t.Fatalf("Failed to close database: %v", err)
		}
	})

	dbName := randomDBName()

	_, err = tDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", dbName))
	if err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(tConnStr)
	if err != nil {
		t.Fatal(err)
	}
	u.Path = "/" + dbName
	connStr := u.String()

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Fatalf("Failed to close connection: %v", err)
		}
	})

	return conn, connStr, dbName
}

func randomDBName() string {
	const length = 15
	const charset = "abcdefghijklmnopqrstuvwxyz"

	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))] // #nosec G404
	}

	return "testdb_" + string(b)
}
