package control

import (
	"fmt"
	"time"

	"github.com/banshee-data/racecar/internal/timeutil"
)

// RateLimiter tracks a value that may change by at most maxRate per second
// of real elapsed time.
type RateLimiter struct {
	clock        timeutil.Clock
	maxRate      float64
	value        float64
	previousTime time.Time
}

// NewRateLimiter returns a limiter starting at start. maxRate must be
// non-negative.
func NewRateLimiter(clock timeutil.Clock, maxRate, start float64) (*RateLimiter, error) {
	if maxRate < 0 {
		return nil, fmt.Errorf("%w: negative rate limit %g", ErrInvalidConfig, maxRate)
	}
	return &RateLimiter{
		clock:        clock,
		maxRate:      maxRate,
		value:        start,
		previousTime: clock.Now(),
	}, nil
}

// Update moves the tracked value toward target by no more than
// maxRate*dt and returns it. A non-positive dt permits no change.
func (r *RateLimiter) Update(target float64) float64 {
	now := r.clock.Now()
	dt := timeutil.Seconds(now.Sub(r.previousTime))
	r.previousTime = now
	if dt < 0 {
		dt = 0
	}

	step := r.maxRate * dt
	r.value += Clamp(target-r.value, -step, step)
	return r.value
}

// Reset sets the value to start and restarts the time baseline. The rate
// is unchanged.
func (r *RateLimiter) Reset(start float64) {
	r.value = start
	r.previousTime = r.clock.Now()
}

// Value returns the current tracked value.
func (r *RateLimiter) Value() float64 { return r.value }

// MaxRate returns the configured rate in units per second.
func (r *RateLimiter) MaxRate() float64 { return r.maxRate }
