// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"fmt"
	"time"
)

// Progress describes the state of a chunked copy after one chunk.
type Progress struct {
	Start   int64
	Pointer int64
	Limit   int64
	// RunTime is the time spent copying so far.
	RunTime time.Duration
}

// CallbackFn is invoked after each copied chunk.
type CallbackFn func(Progress)

// Percent returns how far the pointer has advanced between start and
// limit.
func (p Progress) Percent() float64 {
	span := float64(p.Limit - p.Start)
	if span == 0 {
		return 0
	}
	return float64(p.Pointer-p.Start) / span * 100
}

// Remaining estimates the time left from the run time and the fraction
// completed.
func (p Progress) Remaining() time.Duration {
	percent := p.Percent()
	if percent == 0 {
		return 0
	}
	run := p.RunTime.Seconds()
	return time.Duration((run/(percent/100) - run) * float64(time.Second))
}

func (p Progress) String() string {
	return fmt.Sprintf("Processed %d/%d %.2f%% - time left: %s",
		p.Pointer, p.Limit, p.Percent(), formatDuration(p.Remaining()))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
