// Package vehicle runs the control loop: one sense, decide, actuate cycle
// per tick around the active driving behavior.
package vehicle

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/racecar/internal/behavior"
	"github.com/banshee-data/racecar/internal/control"
	"github.com/banshee-data/racecar/internal/lidar"
	"github.com/banshee-data/racecar/internal/monitoring"
	"github.com/banshee-data/racecar/internal/odometry"
	"github.com/banshee-data/racecar/internal/perception"
	"github.com/banshee-data/racecar/internal/timeutil"
)

// Sensors returns the latest reading of every sensor without blocking.
// The images are nil on a missed frame.
type Sensors interface {
	ColorImage() perception.Image
	DepthImage() perception.Image
	LidarSamples() lidar.Scan
	VisibleFiducialIDs() []int
	LinearAcceleration() r3.Vec
	AngularVelocity() r3.Vec
}

// Drive accepts speed and steering commands, both in [-1, 1].
type Drive interface {
	SetSpeedAndAngle(speed, angle float64) error
}

// Config tunes the loop around the behaviors.
type Config struct {
	TickInterval        time.Duration
	SpeedRateLimit      float64
	TurnSpeedBoost      float64
	DiagnosticsInterval time.Duration
	Odometry            odometry.Config
}

// Status is a copy of the loop state for reporting.
type Status struct {
	SessionID   string           `json:"session_id"`
	StartedAt   time.Time        `json:"started_at"`
	LastTick    time.Time        `json:"last_tick"`
	Ticks       int64            `json:"ticks"`
	Behavior    behavior.Kind    `json:"behavior"`
	Detail      string           `json:"detail"`
	Requested   behavior.Command `json:"requested"`
	Speed       float64          `json:"speed"`
	Angle       float64          `json:"angle"`
	Fiducials   []int            `json:"fiducials"`
	Odometry    odometry.State   `json:"odometry"`
	DriveErrors int64            `json:"drive_errors"`
}

// Option configures a Session.
type Option func(*Session)

// WithRecorder sends tick and transition telemetry to r.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) Option {
	return func(s *Session) { s.id = id }
}

// Session owns everything the control loop mutates: the active behavior,
// the odometer and the speed limiter. Tick is not safe for concurrent use;
// Status may be called from any goroutine.
type Session struct {
	id       string
	clock    timeutil.Clock
	sensors  Sensors
	drive    Drive
	cfg      Config
	recorder Recorder

	odometer *odometry.InertialOdometer
	speed    *control.RateLimiter
	current  behavior.Behavior
	diag     *monitoring.Throttle
	started  time.Time

	mu     sync.Mutex
	status Status
}

// NewSession builds a session starting in the start behavior.
func NewSession(clock timeutil.Clock, sensors Sensors, drive Drive, start behavior.Behavior, cfg Config, opts ...Option) (*Session, error) {
	if start == nil {
		return nil, fmt.Errorf("%w: nil start behavior", control.ErrInvalidConfig)
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("%w: tick interval %v", control.ErrInvalidConfig, cfg.TickInterval)
	}
	odo, err := odometry.NewInertialOdometer(clock, cfg.Odometry)
	if err != nil {
		return nil, fmt.Errorf("failed to create odometer: %w", err)
	}
	limiter, err := control.NewRateLimiter(clock, cfg.SpeedRateLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create speed limiter: %w", err)
	}

	s := &Session{
		id:       uuid.NewString(),
		clock:    clock,
		sensors:  sensors,
		drive:    drive,
		cfg:      cfg,
		odometer: odo,
		speed:    limiter,
		current:  start,
		diag:     monitoring.NewThrottle(clock, cfg.DiagnosticsInterval),
		started:  clock.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status = Status{
		SessionID: s.id,
		StartedAt: s.started,
		Behavior:  start.Kind(),
		Detail:    describe(start),
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time { return s.started }

// Current returns the active behavior.
func (s *Session) Current() behavior.Behavior { return s.current }

// Tick runs one control cycle: read the sensors, update the odometer, run
// the behavior, shape and clamp its command, actuate, and only then let the
// behavior pick its successor.
func (s *Session) Tick() Status {
	now := s.clock.Now()
	snap := perception.Snapshot{
		ColorImage: s.sensors.ColorImage(),
		DepthImage: s.sensors.DepthImage(),
		Lidar:      s.sensors.LidarSamples(),
		Fiducials:  s.sensors.VisibleFiducialIDs(),
	}
	s.odometer.Update(s.sensors.LinearAcceleration(), s.sensors.AngularVelocity())

	cmd := s.current.Execute(snap)
	speed := s.speed.Update(control.Finite(cmd.Speed))
	speed *= 1 + math.Abs(control.Finite(cmd.Angle))*s.cfg.TurnSpeedBoost
	speed = control.Clamp(control.Finite(speed), -1, 1)
	angle := control.Clamp(control.Finite(cmd.Angle), -1, 1)

	driveFailed := false
	if err := s.drive.SetSpeedAndAngle(speed, angle); err != nil {
		driveFailed = true
		monitoring.Logf("drive: failed to send command: %v", err)
	}

	from := s.current
	next := s.current.Next(snap)
	if next != nil && next != s.current {
		s.current = next
		monitoring.Logf("behavior: %s -> %s", from.Kind(), next.Kind())
		if s.recorder != nil {
			s.recorder.RecordTransition(TransitionRecord{
				SessionID: s.id,
				Time:      now,
				From:      from.Kind(),
				To:        next.Kind(),
				Fiducials: snap.VisibleIDs(),
			})
		}
	}

	s.mu.Lock()
	s.status.LastTick = now
	s.status.Ticks++
	s.status.Behavior = s.current.Kind()
	s.status.Detail = describe(s.current)
	s.status.Requested = cmd
	s.status.Speed = speed
	s.status.Angle = angle
	s.status.Fiducials = snap.VisibleIDs()
	s.status.Odometry = s.odometer.State()
	if driveFailed {
		s.status.DriveErrors++
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordTick(TickRecord{
			SessionID: s.id,
			Seq:       st.Ticks,
			Time:      now,
			Behavior:  from.Kind(),
			Requested: cmd,
			Speed:     speed,
			Angle:     angle,
			Odometry:  st.Odometry,
		})
	}
	s.diag.Logf("session %s: %s speed=%.3f angle=%.3f markers=%v", s.id, st.Detail, speed, angle, st.Fiducials)
	return st
}

// Run ticks at the configured interval until ctx is done, then stops the
// car. It returns ctx.Err().
func (s *Session) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	defer func() {
		if err := s.drive.SetSpeedAndAngle(0, 0); err != nil {
			monitoring.Logf("drive: failed to stop: %v", err)
		}
	}()

	monitoring.Logf("session %s: starting in %s", s.id, s.current.Kind())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			s.Tick()
		}
	}
}

// Status returns a copy of the latest loop state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Status {
	st := s.status
	st.Fiducials = slices.Clone(s.status.Fiducials)
	return st
}

func describe(b behavior.Behavior) string {
	if str, ok := b.(fmt.Stringer); ok {
		return str.String()
	}
	return string(b.Kind())
}
