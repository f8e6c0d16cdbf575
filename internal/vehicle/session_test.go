package vehicle

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/racecar/internal/behavior"
	"github.com/banshee-data/racecar/internal/control"
	"github.com/banshee-data/racecar/internal/lidar"
	"github.com/banshee-data/racecar/internal/monitoring"
	"github.com/banshee-data/racecar/internal/odometry"
	"github.com/banshee-data/racecar/internal/perception"
	"github.com/banshee-data/racecar/internal/timeutil"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const interval = 100 * time.Millisecond

func init() {
	monitoring.SetLogger(nil)
}

type fakeSensors struct {
	accel     r3.Vec
	gyro      r3.Vec
	scan      lidar.Scan
	fiducials []int
}

func (f *fakeSensors) ColorImage() perception.Image { return nil }
func (f *fakeSensors) DepthImage() perception.Image { return nil }
func (f *fakeSensors) LidarSamples() lidar.Scan     { return f.scan }
func (f *fakeSensors) VisibleFiducialIDs() []int    { return f.fiducials }
func (f *fakeSensors) LinearAcceleration() r3.Vec   { return f.accel }
func (f *fakeSensors) AngularVelocity() r3.Vec      { return f.gyro }

type fakeDrive struct {
	mu   sync.Mutex
	sent []behavior.Command
	err  error
}

func (d *fakeDrive) SetSpeedAndAngle(speed, angle float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, behavior.Command{Speed: speed, Angle: angle})
	return d.err
}

func (d *fakeDrive) commands() []behavior.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]behavior.Command(nil), d.sent...)
}

// scripted returns a fixed command and hands over to next, logging calls.
type scripted struct {
	kind  behavior.Kind
	cmd   behavior.Command
	next  behavior.Behavior
	calls *[]string
}

func (s *scripted) Kind() behavior.Kind { return s.kind }

func (s *scripted) Execute(perception.Snapshot) behavior.Command {
	if s.calls != nil {
		*s.calls = append(*s.calls, "execute "+string(s.kind))
	}
	return s.cmd
}

func (s *scripted) Next(perception.Snapshot) behavior.Behavior {
	if s.calls != nil {
		*s.calls = append(*s.calls, "next "+string(s.kind))
	}
	if s.next != nil {
		return s.next
	}
	return s
}

type fakeRecorder struct {
	ticks       []TickRecord
	transitions []TransitionRecord
}

func (r *fakeRecorder) RecordTick(t TickRecord)             { r.ticks = append(r.ticks, t) }
func (r *fakeRecorder) RecordTransition(t TransitionRecord) { r.transitions = append(r.transitions, t) }

func testConfig() Config {
	return Config{
		TickInterval:        interval,
		SpeedRateLimit:      0.2,
		TurnSpeedBoost:      0.1,
		DiagnosticsInterval: 500 * time.Millisecond,
		Odometry:            odometry.Config{WindowSize: 7},
	}
}

func newTestSession(t *testing.T, start behavior.Behavior, cfg Config, opts ...Option) (*Session, *timeutil.MockClock, *fakeSensors, *fakeDrive) {
	t.Helper()
	clock := timeutil.NewMockClock(epoch)
	sensors := &fakeSensors{}
	drive := &fakeDrive{}
	s, err := NewSession(clock, sensors, drive, start, cfg, opts...)
	require.NoError(t, err)
	return s, clock, sensors, drive
}

func TestNewSession_Validation(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	start := &scripted{kind: behavior.KindStopped}

	_, err := NewSession(clock, &fakeSensors{}, &fakeDrive{}, nil, testConfig())
	assert.ErrorIs(t, err, control.ErrInvalidConfig)

	cfg := testConfig()
	cfg.TickInterval = 0
	_, err = NewSession(clock, &fakeSensors{}, &fakeDrive{}, start, cfg)
	assert.ErrorIs(t, err, control.ErrInvalidConfig)

	cfg = testConfig()
	cfg.SpeedRateLimit = -1
	_, err = NewSession(clock, &fakeSensors{}, &fakeDrive{}, start, cfg)
	assert.ErrorIs(t, err, control.ErrInvalidConfig)

	cfg = testConfig()
	cfg.Odometry.WindowSize = -3
	_, err = NewSession(clock, &fakeSensors{}, &fakeDrive{}, start, cfg)
	assert.ErrorIs(t, err, odometry.ErrInvalidConfig)
}

func TestSession_IDs(t *testing.T) {
	start := &scripted{kind: behavior.KindStopped}
	s, _, _, _ := newTestSession(t, start, testConfig())
	assert.Len(t, s.ID(), 36)
	assert.Equal(t, epoch, s.StartedAt())

	s2, _, _, _ := newTestSession(t, start, testConfig(), WithSessionID("run-1"))
	assert.Equal(t, "run-1", s2.ID())
	assert.Equal(t, "run-1", s2.Status().SessionID)
}

func TestTick_ExecuteRunsBeforeNext(t *testing.T) {
	var calls []string
	second := &scripted{kind: behavior.KindStopped, calls: &calls}
	first := &scripted{kind: behavior.KindLineFollowing, next: second, calls: &calls}
	s, clock, _, _ := newTestSession(t, first, testConfig())

	clock.Advance(interval)
	s.Tick()
	clock.Advance(interval)
	s.Tick()

	assert.Equal(t, []string{
		"execute line_following", "next line_following",
		"execute stopped", "next stopped",
	}, calls)
	assert.Same(t, second, s.Current())
}

func TestTick_RateLimitsSpeed(t *testing.T) {
	start := &scripted{kind: behavior.KindLineFollowing, cmd: behavior.Command{Speed: 1}}
	s, clock, _, drive := newTestSession(t, start, testConfig())

	for range 3 {
		clock.Advance(interval)
		s.Tick()
	}

	sent := drive.commands()
	require.Len(t, sent, 3)
	assert.InDelta(t, 0.02, sent[0].Speed, 1e-9)
	assert.InDelta(t, 0.04, sent[1].Speed, 1e-9)
	assert.InDelta(t, 0.06, sent[2].Speed, 1e-9)
}

func TestTick_TurnSpeedBoost(t *testing.T) {
	start := &scripted{kind: behavior.KindLineFollowing, cmd: behavior.Command{Speed: 1, Angle: -0.5}}
	s, clock, _, drive := newTestSession(t, start, testConfig())

	clock.Advance(interval)
	st := s.Tick()

	// 0.02 after rate limiting, boosted by 5%.
	assert.InDelta(t, 0.021, st.Speed, 1e-9)
	assert.Equal(t, -0.5, st.Angle)
	assert.InDelta(t, 0.021, drive.commands()[0].Speed, 1e-9)
}

func TestTick_ClampsAndSanitizesOutput(t *testing.T) {
	cfg := testConfig()
	cfg.SpeedRateLimit = 100
	start := &scripted{kind: behavior.KindLineFollowing, cmd: behavior.Command{Speed: 5, Angle: 3}}
	s, clock, _, drive := newTestSession(t, start, cfg)

	clock.Advance(interval)
	st := s.Tick()
	assert.Equal(t, 1.0, st.Speed)
	assert.Equal(t, 1.0, st.Angle)

	start.cmd = behavior.Command{Speed: math.NaN(), Angle: math.Inf(-1)}
	clock.Advance(interval)
	st = s.Tick()
	assert.False(t, math.IsNaN(st.Speed))
	assert.Equal(t, 0.0, st.Angle)

	for _, c := range drive.commands() {
		assert.LessOrEqual(t, math.Abs(c.Speed), 1.0)
		assert.LessOrEqual(t, math.Abs(c.Angle), 1.0)
	}
}

func TestTick_UpdatesOdometry(t *testing.T) {
	start := &scripted{kind: behavior.KindStopped}
	s, clock, sensors, _ := newTestSession(t, start, testConfig())
	sensors.accel = r3.Vec{X: 7}
	sensors.gyro = r3.Vec{Z: 2}

	clock.Advance(interval)
	st := s.Tick()

	assert.InDelta(t, 1.0, st.Odometry.Acceleration.X, 1e-9)
	assert.InDelta(t, 0.2, st.Odometry.AngularPosition.Z, 1e-9)
	assert.Equal(t, r3.Vec{Z: 2}, st.Odometry.AngularVelocity)
}

func TestTick_DriveErrorsAreCounted(t *testing.T) {
	start := &scripted{kind: behavior.KindStopped}
	s, clock, _, drive := newTestSession(t, start, testConfig())
	drive.err = errors.New("port closed")

	for range 2 {
		clock.Advance(interval)
		s.Tick()
	}

	st := s.Status()
	assert.Equal(t, int64(2), st.Ticks)
	assert.Equal(t, int64(2), st.DriveErrors)
}

func TestTick_RecordsTelemetry(t *testing.T) {
	rec := &fakeRecorder{}
	stopped := &scripted{kind: behavior.KindStopped}
	start := &scripted{kind: behavior.KindBraking, cmd: behavior.Command{Speed: -0.3}, next: stopped}
	s, clock, sensors, _ := newTestSession(t, start, testConfig(), WithRecorder(rec), WithSessionID("run-7"))
	sensors.fiducials = []int{9, 9}

	clock.Advance(interval)
	s.Tick()

	require.Len(t, rec.ticks, 1)
	assert.Equal(t, "run-7", rec.ticks[0].SessionID)
	assert.Equal(t, int64(1), rec.ticks[0].Seq)
	assert.Equal(t, behavior.KindBraking, rec.ticks[0].Behavior)
	assert.Equal(t, behavior.Command{Speed: -0.3}, rec.ticks[0].Requested)
	assert.Equal(t, epoch.Add(interval), rec.ticks[0].Time)

	require.Len(t, rec.transitions, 1)
	assert.Equal(t, TransitionRecord{
		SessionID: "run-7",
		Time:      epoch.Add(interval),
		From:      behavior.KindBraking,
		To:        behavior.KindStopped,
		Fiducials: []int{9},
	}, rec.transitions[0])

	st := s.Status()
	assert.Equal(t, behavior.KindStopped, st.Behavior)
	assert.Equal(t, []int{9}, st.Fiducials)
}

func TestTick_WithRealBehaviors(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	builder, err := behavior.NewBuilder(clock, noContours{}, behavior.DefaultParams())
	require.NoError(t, err)
	start, err := builder.Start(behavior.KindCenterWall)
	require.NoError(t, err)

	sensors := &fakeSensors{scan: make(lidar.Scan, lidar.SamplesPerRevolution)}
	drive := &fakeDrive{}
	s, err := NewSession(clock, sensors, drive, start, testConfig())
	require.NoError(t, err)

	clock.Advance(interval)
	s.Tick()
	assert.Equal(t, behavior.KindCenterWall, s.Status().Behavior)

	sensors.fiducials = []int{behavior.DefaultParams().Markers.Finish}
	clock.Advance(interval)
	s.Tick()
	assert.Equal(t, behavior.KindBraking, s.Status().Behavior)
}

type noContours struct{}

func (noContours) FindContour(perception.Image, []perception.Color, perception.Crop, float64) (perception.Contour, bool) {
	return perception.Contour{}, false
}

func TestRun_TicksUntilCancelledThenStops(t *testing.T) {
	start := &scripted{kind: behavior.KindLineFollowing, cmd: behavior.Command{Speed: 1, Angle: 0.2}}
	s, clock, _, drive := newTestSession(t, start, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		clock.Advance(interval)
		return s.Status().Ticks >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	sent := drive.commands()
	require.NotEmpty(t, sent)
	assert.Equal(t, behavior.Command{}, sent[len(sent)-1])
}
