package monitoring

import (
	"sync"
	"time"

	"github.com/banshee-data/racecar/internal/timeutil"
)

// Throttle emits at most one log line per interval. The control loop uses it
// for the slow diagnostic print that would otherwise flood the log at the
// tick rate.
type Throttle struct {
	clock    timeutil.Clock
	interval time.Duration

	mu   sync.Mutex
	last time.Time
	seen bool
}

// NewThrottle returns a Throttle gated on interval.
func NewThrottle(clock timeutil.Clock, interval time.Duration) *Throttle {
	return &Throttle{clock: clock, interval: interval}
}

// Due reports whether a line may be emitted now and, if so, marks it emitted.
func (t *Throttle) Due() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if t.seen && now.Sub(t.last) < t.interval {
		return false
	}
	t.seen = true
	t.last = now
	return true
}

// Logf logs through the package logger when the interval has elapsed.
func (t *Throttle) Logf(format string, v ...interface{}) bool {
	if !t.Due() {
		return false
	}
	Logf(format, v...)
	return true
}
