// Package odometry implements inertial dead reckoning: a moving-average
// filtered accelerometer integrated twice into velocity and position, and a
// gyro integrated once into orientation. There is no bias estimation or
// absolute correction, so the estimate drifts and is indicative only.
package odometry

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/racecar/internal/timeutil"
)

// DefaultWindowSize is the number of accelerometer samples averaged before
// integration.
const DefaultWindowSize = 7

// StandardGravity is the gravity vector in the sensor frame when the car
// sits level, y pointing up.
var StandardGravity = r3.Vec{X: 0, Y: -9.81, Z: 0}

// ErrInvalidConfig is wrapped by NewInertialOdometer for bad parameters.
var ErrInvalidConfig = errors.New("invalid odometry configuration")

// Config configures an InertialOdometer.
type Config struct {
	// WindowSize is the moving-average length. Zero selects DefaultWindowSize.
	WindowSize int
	// CompensateGravity subtracts Gravity from every raw sample before it
	// enters the window.
	CompensateGravity bool
	Gravity           r3.Vec
}

// State is a snapshot of the odometer estimate.
type State struct {
	Position        r3.Vec `json:"position"`
	Velocity        r3.Vec `json:"velocity"`
	Acceleration    r3.Vec `json:"acceleration"`
	AngularVelocity r3.Vec `json:"angular_velocity"`
	AngularPosition r3.Vec `json:"angular_position"`
}

// InertialOdometer integrates IMU samples. It is owned by a single control
// loop and is not safe for concurrent use.
type InertialOdometer struct {
	clock timeutil.Clock
	cfg   Config

	window []r3.Vec
	next   int
	sum    r3.Vec

	state        State
	previousTime time.Time
}

// NewInertialOdometer returns an odometer at the origin. The moving-average
// window starts filled with zero samples.
func NewInertialOdometer(clock timeutil.Clock, cfg Config) (*InertialOdometer, error) {
	if cfg.WindowSize == 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.WindowSize < 1 {
		return nil, fmt.Errorf("%w: window size %d", ErrInvalidConfig, cfg.WindowSize)
	}
	return &InertialOdometer{
		clock:        clock,
		cfg:          cfg,
		window:       make([]r3.Vec, cfg.WindowSize),
		previousTime: clock.Now(),
	}, nil
}

// Update folds one IMU sample into the estimate using the real time elapsed
// since the previous call. A non-positive interval updates the filter and
// stored rates but integrates nothing.
func (o *InertialOdometer) Update(linearAcceleration, angularVelocity r3.Vec) {
	now := o.clock.Now()
	dt := timeutil.Seconds(now.Sub(o.previousTime))
	o.previousTime = now
	if dt < 0 {
		dt = 0
	}

	o.state.AngularVelocity = angularVelocity
	o.state.AngularPosition = r3.Add(o.state.AngularPosition, r3.Scale(dt, angularVelocity))

	sample := linearAcceleration
	if o.cfg.CompensateGravity {
		sample = r3.Sub(sample, o.cfg.Gravity)
	}
	o.push(sample)
	o.state.Acceleration = r3.Scale(1/float64(len(o.window)), o.sum)

	o.state.Velocity = r3.Add(o.state.Velocity, r3.Scale(dt, o.state.Acceleration))
	o.state.Position = r3.Add(o.state.Position, r3.Scale(dt, o.state.Velocity))
}

// push replaces the oldest window sample and recomputes the window sum.
func (o *InertialOdometer) push(v r3.Vec) {
	o.window[o.next] = v
	o.next = (o.next + 1) % len(o.window)

	var sum r3.Vec
	for _, s := range o.window {
		sum = r3.Add(sum, s)
	}
	o.sum = sum
}

// State returns the current estimate.
func (o *InertialOdometer) State() State { return o.state }

func (o *InertialOdometer) Position() r3.Vec        { return o.state.Position }
func (o *InertialOdometer) Velocity() r3.Vec        { return o.state.Velocity }
func (o *InertialOdometer) Acceleration() r3.Vec    { return o.state.Acceleration }
func (o *InertialOdometer) AngularPosition() r3.Vec { return o.state.AngularPosition }
func (o *InertialOdometer) AngularVelocity() r3.Vec { return o.state.AngularVelocity }

// WindowSize returns the moving-average length.
func (o *InertialOdometer) WindowSize() int { return len(o.window) }
