// Package debounce provides the single reusable scheduling primitive
// shared by every mood-triggered refresh call site: an action is
// delayed until a burst of triggers has settled, and re-triggering
// within the delay window collapses the burst into one invocation.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delays a function until triggers stop arriving for the
// configured delay. Safe for concurrent use; only the function passed
// to the most recent Trigger runs.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// New creates a Debouncer with the given delay. Non-positive delays
// fall back to a minimal delay so Trigger still coalesces.
func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = time.Millisecond
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the delay, cancelling any previously
// scheduled invocation. fn runs on its own goroutine.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Cancel drops any pending invocation.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
