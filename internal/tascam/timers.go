package tascam

import (
	"sync"
	"time"
)

// timerSet tracks the driver's delayed tasks (cooldown expiry,
// subscriber auto-expiry) so Disconnect can cancel them all instead of
// leaving orphaned timers firing against a torn-down instance.
type timerSet struct {
	mu     sync.Mutex
	timers map[*time.Timer]struct{}
}

func newTimerSet() *timerSet {
	return &timerSet{timers: make(map[*time.Timer]struct{})}
}

// schedule runs fn after d unless the set is cancelled first.
func (ts *timerSet) schedule(d time.Duration, fn func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		// Blocks until registration below completes, so timer is set.
		ts.mu.Lock()
		delete(ts.timers, timer)
		ts.mu.Unlock()
		fn()
	})
	ts.timers[timer] = struct{}{}
}

// cancelAll stops every pending timer.
func (ts *timerSet) cancelAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for timer := range ts.timers {
		timer.Stop()
	}
	ts.timers = make(map[*time.Timer]struct{})
}
