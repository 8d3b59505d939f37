// Package clock separates the two kinds of waiting the director does: the
// scheduler tick that paces worker loops and may be cancelled at a tick
// boundary, and the deliberate dwell that holds a camera on screen and is
// never cut short.
package clock

import (
	"sync"
	"time"
)

// Clock provides the current time and a non-preemptible dwell.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Dwell blocks the calling goroutine for d. It ignores cancellation;
	// shutdown waits for an in-flight dwell to finish.
	Dwell(d time.Duration)
}

// Real implements Clock using the standard time package.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now()
}

// Dwell sleeps for d.
func (Real) Dwell(d time.Duration) {
	time.Sleep(d)
}

// Manual is a manually advanced clock for tests. Dwell advances the clock
// instead of sleeping and records the requested durations.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	dwells []time.Duration
}

// NewManual creates a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Dwell advances the clock by d without blocking.
func (m *Manual) Dwell(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	m.dwells = append(m.dwells, d)
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Dwells returns every dwell requested so far.
func (m *Manual) Dwells() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.dwells))
	copy(out, m.dwells)
	return out
}
