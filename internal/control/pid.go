package control

import (
	"fmt"
	"time"

	"github.com/banshee-data/racecar/internal/timeutil"
)

// PIDConstants are the proportional, integral and derivative gains.
type PIDConstants struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
}

// Scale returns the constants with every gain multiplied by k.
func (c PIDConstants) Scale(k float64) PIDConstants {
	return PIDConstants{Kp: c.Kp * k, Ki: c.Ki * k, Kd: c.Kd * k}
}

func (c PIDConstants) String() string {
	return fmt.Sprintf("PIDConstants(kp=%g, ki=%g, kd=%g)", c.Kp, c.Ki, c.Kd)
}

// PIDConfig configures a PIDController. MinOutput and MaxOutput are
// optional; nil leaves that side unbounded.
type PIDConfig struct {
	Constants PIDConstants
	Setpoint  float64
	MinOutput *float64
	MaxOutput *float64
}

// Limit returns a pointer to v for use as an output bound.
func Limit(v float64) *float64 { return &v }

// PIDController is a PID controller that measures the real time elapsed
// between calls. The timestamp baseline is taken at construction, so the
// first Calculate integrates over the time since the controller was built.
// When the elapsed time is zero or negative the derivative term is zero and
// the integral is left untouched for that call.
type PIDController struct {
	clock     timeutil.Clock
	constants PIDConstants
	minOutput *float64
	maxOutput *float64

	setpoint      float64
	integralSum   float64
	previousError float64
	previousTime  time.Time
}

// NewPIDController builds a controller. It fails when both bounds are set
// and MinOutput exceeds MaxOutput.
func NewPIDController(clock timeutil.Clock, cfg PIDConfig) (*PIDController, error) {
	if cfg.MinOutput != nil && cfg.MaxOutput != nil && *cfg.MinOutput > *cfg.MaxOutput {
		return nil, fmt.Errorf("%w: min_output %g > max_output %g", ErrInvalidConfig, *cfg.MinOutput, *cfg.MaxOutput)
	}
	return &PIDController{
		clock:        clock,
		constants:    cfg.Constants,
		minOutput:    cfg.MinOutput,
		maxOutput:    cfg.MaxOutput,
		setpoint:     cfg.Setpoint,
		previousTime: clock.Now(),
	}, nil
}

// Setpoint returns the stored setpoint.
func (p *PIDController) Setpoint() float64 { return p.setpoint }

// SetSetpoint replaces the stored setpoint.
func (p *PIDController) SetSetpoint(sp float64) { p.setpoint = sp }

// Integral returns the accumulated integral of the error.
func (p *PIDController) Integral() float64 { return p.integralSum }

// PreviousError returns the error seen by the last Calculate.
func (p *PIDController) PreviousError() float64 { return p.previousError }

// Calculate returns the control output for position against the stored
// setpoint.
func (p *PIDController) Calculate(position float64) float64 {
	errVal := p.setpoint - position

	now := p.clock.Now()
	dt := timeutil.Seconds(now.Sub(p.previousTime))
	p.previousTime = now

	var derivative float64
	if dt > 0 {
		derivative = (errVal - p.previousError) / dt
		p.integralSum += dt * errVal
	}
	p.previousError = errVal

	out := p.constants.Kp*errVal + p.constants.Ki*p.integralSum + p.constants.Kd*derivative
	if p.minOutput != nil {
		out = max(out, *p.minOutput)
	}
	if p.maxOutput != nil {
		out = min(out, *p.maxOutput)
	}
	return out
}

// CalculateWithSetpoint stores setpoint, zero included, and then calls
// Calculate.
func (p *PIDController) CalculateWithSetpoint(position, setpoint float64) float64 {
	p.setpoint = setpoint
	return p.Calculate(position)
}

func (p *PIDController) String() string {
	return fmt.Sprintf("PID{%v setpoint=%g error=%g integral=%g}", p.constants, p.setpoint, p.previousError, p.integralSum)
}
