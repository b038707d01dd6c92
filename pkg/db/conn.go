// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/lib/pq"

	"github.com/copperline/shadowtable/pkg/sqlgen"

	// Database drivers for the two supported dialects.
	_ "github.com/go-sql-driver/mysql"
)

const (
	maxBackoffDuration = 1 * time.Minute
	backoffInterval    = 1 * time.Second
)

// Conn is the connection contract the migration engine needs: execute a
// statement, fetch result rows, report the last inserted row id, commit.
// *SQLConn implements it over database/sql; tests use a scripted fake.
type Conn interface {
	// Exec runs a statement that returns no rows and reports the last
	// insert id where the driver knows it (0 otherwise).
	Exec(ctx context.Context, query string) (lastInsertID int64, err error)

	// Query runs a statement and fetches all result rows. A statement
	// producing no result set returns an empty slice.
	Query(ctx context.Context, query string) ([][]any, error)

	// Commit makes prior statements durable. On autocommit sessions it
	// closes any explicitly opened transaction.
	Commit(ctx context.Context) error

	Close() error
}

// SQLConn is a single database session with serialised statements. Exec
// and Query retry on postgres lock_timeout errors using an exponential
// backoff with jitter; mysql lock waits surface to the caller, which
// bounds its own retries.
type SQLConn struct {
	db      *sql.DB
	session *sql.Conn
}

// Connect opens a single session for the dialect. The drivers are
// registered by this package.
func Connect(ctx context.Context, dialect sqlgen.Dialect, dsn string) (*SQLConn, error) {
	var driver string
	switch dialect {
	case sqlgen.Postgres:
		driver = "postgres"
	case sqlgen.MySQL:
		driver = "mysql"
	default:
		return nil, ErrUnknownDialect
	}

	pool, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	session, err := pool.Conn(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}

	if err := session.PingContext(ctx); err != nil {
		session.Close()
		pool.Close()
		return nil, err
	}

	return &SQLConn{db: pool, session: session}, nil
}

func (c *SQLConn) Exec(ctx context.Context, query string) (int64, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		res, err := c.session.ExecContext(ctx, query)
		if err == nil {
			// Drivers without last-insert-id support (postgres) report an
			// error from LastInsertId; treat it as zero.
			id, idErr := res.LastInsertId()
			if idErr != nil {
				id = 0
			}
			return id, nil
		}

		if retryableLock(err) {
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return 0, err
			}
			continue
		}

		return 0, err
	}
}

func (c *SQLConn) Query(ctx context.Context, query string) ([][]any, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		rows, err := c.session.QueryContext(ctx, query)
		if err == nil {
			return scanAll(rows)
		}

		if retryableLock(err) {
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return nil, err
			}
			continue
		}

		return nil, err
	}
}

// Commit issues COMMIT on the session. Outside an explicit transaction
// both dialects treat it as a harmless no-op.
func (c *SQLConn) Commit(ctx context.Context) error {
	_, err := c.session.ExecContext(ctx, "COMMIT")
	return err
}

func (c *SQLConn) Close() error {
	err := c.session.Close()
	if errClose := c.db.Close(); err == nil {
		err = errClose
	}
	return err
}

// retryableLock matches only the postgres lock_not_available class; mysql
// lock waits are handled by the engine's bounded rename retry.
func retryableLock(err error) bool {
	pqErr := &pq.Error{}
	return errors.As(err, &pqErr) && pqErr.Code == pqLockNotAvailable
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// scanAll drains rows into a slice of generic tuples. Byte slices are
// converted to strings so callers see text values uniformly across
// drivers.
func scanAll(rows *sql.Rows) ([][]any, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}

	return out, rows.Err()
}
