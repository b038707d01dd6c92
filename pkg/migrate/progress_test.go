// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressString(t *testing.T) {
	t.Parallel()

	p := Progress{
		Start:   1,
		Pointer: 501,
		Limit:   1001,
		RunTime: 30 * time.Second,
	}

	assert.InDelta(t, 50.0, p.Percent(), 0.001)
	// Half done in 30s leaves another 30s.
	assert.Equal(t, 30*time.Second, p.Remaining().Round(time.Second))
	assert.Equal(t, "Processed 501/1001 50.00% - time left: 0:00:30", p.String())
}

func TestProgressZeroSpan(t *testing.T) {
	t.Parallel()

	p := Progress{Start: 5, Pointer: 5, Limit: 5, RunTime: time.Second}
	assert.Equal(t, 0.0, p.Percent())
	assert.Equal(t, time.Duration(0), p.Remaining())
}

func TestProgressHoursFormat(t *testing.T) {
	t.Parallel()

	p := Progress{
		Start:   0,
		Pointer: 10,
		Limit:   1000,
		RunTime: 90 * time.Second,
	}

	// 1% done in 90s leaves 8910s = 2:28:30.
	assert.Equal(t, "Processed 10/1000 1.00% - time left: 2:28:30", p.String())
}
