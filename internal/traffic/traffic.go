// Package traffic tracks acquisition outcomes in a sliding window for health reporting.
package traffic

import (
	"sync"
	"time"
)

// Tracker records when acquisitions were live or fell back to synthetic data.
// Implements acquisition.OutcomeRecorder.
type Tracker struct {
	mu            sync.Mutex
	maxAge        time.Duration
	now           func() time.Time
	liveTimes     []time.Time
	fallbackTimes []time.Time
}

// NewTracker keeps outcomes for maxAge; windows longer than maxAge see only maxAge of history.
func NewTracker(maxAge time.Duration) *Tracker {
	return newTrackerWithClock(maxAge, time.Now)
}

func newTrackerWithClock(maxAge time.Duration, now func() time.Time) *Tracker {
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &Tracker{maxAge: maxAge, now: now}
}

func (t *Tracker) RecordLive() {
	t.record(&t.liveTimes)
}

func (t *Tracker) RecordFallback() {
	t.record(&t.fallbackTimes)
}

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// FallbackRate returns (fallbackCount, totalCount) within the window ending now.
func (t *Tracker) FallbackRate(window time.Duration) (fallbacks, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	fallbacks = countInWindow(t.fallbackTimes, cutoff)
	return fallbacks, fallbacks + countInWindow(t.liveTimes, cutoff)
}

func countInWindow(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than maxAge. Must be called with mutex held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.maxAge)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.liveTimes)
	prune(&t.fallbackTimes)
}
