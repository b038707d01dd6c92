// SPDX-License-Identifier: Apache-2.0

package db

import (
	"time"

	"github.com/copperline/shadowtable/pkg/sqlgen"
)

const (
	// DefaultChunkSize is the number of rows copied per backfill chunk.
	DefaultChunkSize = 10000
	// DefaultThrottle is the pause between backfill chunks.
	DefaultThrottle = 100 * time.Millisecond
	// DefaultMaxNameLength bounds generated trigger names.
	DefaultMaxNameLength = 60
	// DefaultMaxRenameRetries bounds the mysql rename retry loop.
	DefaultMaxRenameRetries = 10
	// DefaultRetrySleep is the pause between mysql rename retries.
	DefaultRetrySleep = 10 * time.Second
)

// Config carries the recognised options for a migration session.
type Config struct {
	// Dialect selects the SQL dialect. Required.
	Dialect sqlgen.Dialect

	// Database is the catalog name the session is connected to.
	Database string

	// Schema is the namespace introspection queries filter on: the
	// postgres schema ("public" unless set), or the database name on
	// mysql.
	Schema string

	// ChunkSize is the number of rows per backfill chunk.
	ChunkSize int

	// Throttle is the sleep between backfill chunks.
	Throttle time.Duration

	// MaxNameLength truncates generated trigger names.
	MaxNameLength int

	// MaxRenameRetries bounds the mysql rename retry loop.
	MaxRenameRetries int

	// RetrySleep is the pause between mysql rename retries.
	RetrySleep time.Duration
}

// NewConfig returns a Config for the dialect with all defaults applied.
func NewConfig(dialect sqlgen.Dialect, database string) *Config {
	c := &Config{
		Dialect:  dialect,
		Database: database,
	}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Schema == "" {
		if c.Dialect == sqlgen.MySQL {
			c.Schema = c.Database
		} else {
			c.Schema = "public"
		}
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Throttle <= 0 {
		c.Throttle = DefaultThrottle
	}
	if c.MaxNameLength <= 0 {
		c.MaxNameLength = DefaultMaxNameLength
	}
	if c.MaxRenameRetries <= 0 {
		c.MaxRenameRetries = DefaultMaxRenameRetries
	}
	if c.RetrySleep <= 0 {
		c.RetrySleep = DefaultRetrySleep
	}
}
