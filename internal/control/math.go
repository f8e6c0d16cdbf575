// Package control holds the feedback primitives shared by every driving
// behavior: a PID controller over irregular time steps, a slew-rate limiter
// and an asymmetric boolean debouncer. Each primitive reads time from an
// injected timeutil.Clock.
package control

import (
	"errors"
	"math"
)

// ErrInvalidConfig is wrapped by constructor errors for bad parameters.
var ErrInvalidConfig = errors.New("invalid controller configuration")

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// Remap linearly maps v from [oldMin, oldMax] to [newMin, newMax]. When
// clamp is set the result is bounded to the new range. A degenerate source
// interval maps every input to newMin.
func Remap(v, oldMin, oldMax, newMin, newMax float64, clamp bool) float64 {
	if oldMax == oldMin {
		return newMin
	}
	out := newMin + (v-oldMin)*(newMax-newMin)/(oldMax-oldMin)
	if clamp {
		lo, hi := newMin, newMax
		if lo > hi {
			lo, hi = hi, lo
		}
		out = Clamp(out, lo, hi)
	}
	return out
}

// Finite replaces NaN and infinities with zero so a degenerate computation
// can never reach the actuators.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
