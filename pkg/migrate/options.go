// SPDX-License-Identifier: Apache-2.0

package migrate

import "time"

type copyConfig struct {
	chunkSize int
	throttle  time.Duration
	start     *int64
	limit     *int64
	callbacks []CallbackFn
}

// CopyOption adjusts one invocation of CopyInChunks.
type CopyOption func(*copyConfig)

// WithChunkSize sets the number of rows copied per chunk.
func WithChunkSize(chunkSize int) CopyOption {
	return func(c *copyConfig) {
		c.chunkSize = chunkSize
	}
}

// WithThrottle sets the sleep between chunks.
func WithThrottle(throttle time.Duration) CopyOption {
	return func(c *copyConfig) {
		c.throttle = throttle
	}
}

// WithStart overrides the first pk of the copy; the default is the
// source's minimum pk.
func WithStart(start int64) CopyOption {
	return func(c *copyConfig) {
		c.start = &start
	}
}

// WithLimit overrides the last pk of the copy; the default is the
// source's maximum pk.
func WithLimit(limit int64) CopyOption {
	return func(c *copyConfig) {
		c.limit = &limit
	}
}

// WithCallbacks registers progress callbacks, invoked after each chunk.
// When none are registered, progress is written to the standard logger.
func WithCallbacks(cbs ...CallbackFn) CopyOption {
	return func(c *copyConfig) {
		c.callbacks = append(c.callbacks, cbs...)
	}
}
