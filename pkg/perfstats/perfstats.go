// Package perfstats has small helpers for tracking how long pipeline
// stages take.
package perfstats

import (
	"sync/atomic"
	"time"
)

// Two scalars (N samples and X total amount), which can measure total and average values.
type Accumulator struct {
	Samples int64
	Total   float64
}

func (a *Accumulator) Reset() {
	a.Samples = 0
	a.Total = 0
}

func (a *Accumulator) AddSample(v float64) {
	a.Samples++
	a.Total += v
}

func (a *Accumulator) Average() float64 {
	if a.Samples == 0 {
		return 0
	}
	return a.Total / float64(a.Samples)
}

// Accumulate samples of how long something took
type TimeAccumulator struct {
	Samples int64
	Total   time.Duration
}

func (a *TimeAccumulator) Reset() {
	a.Samples = 0
	a.Total = 0
}

func (a *TimeAccumulator) AddSample(v time.Duration) {
	a.Samples++
	a.Total += v
}

func (a *TimeAccumulator) Average() time.Duration {
	if a.Samples == 0 {
		return 0
	}
	return time.Duration(a.Total.Nanoseconds() / a.Samples)
}

// UpdateMovingAverage folds a new sample into an exponential moving average
// with a decay of 63/64. Safe for concurrent use.
func UpdateMovingAverage(avg *atomic.Int64, sample int64) {
	for {
		old := avg.Load()
		updated := sample
		if old != 0 {
			updated = (old*63 + sample) >> 6
		}
		if avg.CompareAndSwap(old, updated) {
			return
		}
	}
}
