package control

import (
	"fmt"
	"time"

	"github.com/banshee-data/racecar/internal/timeutil"
)

// Debouncer reports the baseline until the raw signal has differed from it
// for at least the debounce duration. A baseline reading is reported at
// once and restarts the timer.
type Debouncer struct {
	clock     timeutil.Clock
	baseline  bool
	duration  time.Duration
	lastReset time.Time
}

// NewDebouncer returns a Debouncer whose timer starts now.
func NewDebouncer(clock timeutil.Clock, baseline bool, duration time.Duration) (*Debouncer, error) {
	if duration < 0 {
		return nil, fmt.Errorf("%w: negative debounce duration %v", ErrInvalidConfig, duration)
	}
	return &Debouncer{
		clock:     clock,
		baseline:  baseline,
		duration:  duration,
		lastReset: clock.Now(),
	}, nil
}

// Update feeds one raw reading and returns the debounced value.
func (d *Debouncer) Update(raw bool) bool {
	now := d.clock.Now()
	if raw == d.baseline {
		d.lastReset = now
		return raw
	}
	if now.Sub(d.lastReset) >= d.duration {
		return raw
	}
	return d.baseline
}

// Baseline returns the value reported while the signal is unconfirmed.
func (d *Debouncer) Baseline() bool { return d.baseline }
