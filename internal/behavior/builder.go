package behavior

import (
	"fmt"

	"github.com/banshee-data/racecar/internal/control"
	"github.com/banshee-data/racecar/internal/perception"
	"github.com/banshee-data/racecar/internal/timeutil"
)

// Builder constructs behaviors. Every behavior it returns owns freshly
// constructed controllers; no PID or debouncer state is ever shared
// between two behavior instances.
type Builder struct {
	clock  timeutil.Clock
	finder perception.ContourFinder
	depth  perception.DepthFinder // nil when finder cannot read depth frames
	params Params
}

// NewBuilder validates params and returns a Builder.
func NewBuilder(clock timeutil.Clock, finder perception.ContourFinder, params Params) (*Builder, error) {
	if finder == nil {
		return nil, fmt.Errorf("%w: nil contour finder", control.ErrInvalidConfig)
	}
	if params.DebounceTime < 0 {
		return nil, fmt.Errorf("%w: negative debounce time %v", control.ErrInvalidConfig, params.DebounceTime)
	}
	if params.BrakingDuration < 0 {
		return nil, fmt.Errorf("%w: negative braking duration %v", control.ErrInvalidConfig, params.BrakingDuration)
	}
	if params.ConeThreshold < 1 {
		return nil, fmt.Errorf("%w: cone threshold %d", control.ErrInvalidConfig, params.ConeThreshold)
	}
	if len(params.LineColors) == 0 {
		return nil, fmt.Errorf("%w: no line colors", control.ErrInvalidConfig)
	}
	if params.DepthStopDistance < 0 {
		return nil, fmt.Errorf("%w: negative depth stop distance %v", control.ErrInvalidConfig, params.DepthStopDistance)
	}
	b := &Builder{clock: clock, finder: finder, params: params}
	if depth, ok := finder.(perception.DepthFinder); ok {
		b.depth = depth
	}
	return b, nil
}

// Params returns the parameters behaviors are built from.
func (b *Builder) Params() Params { return b.params }

// Start builds the initial behavior named by kind with its default
// arguments.
func (b *Builder) Start(kind Kind) (Behavior, error) {
	switch kind {
	case KindLineFollowing:
		return b.LineFollowing(b.params.LineColors), nil
	case KindLaneCentering:
		return b.LaneCentering(b.params.LaneColor), nil
	case KindConeSlalom:
		return b.ConeSlalom(b.params.RightConeColor, b.params.LeftConeColor, b.params.ConeDefaultAngle), nil
	case KindCenterWall:
		return b.CenterWallFollowing(b.params.FollowingSpeed + b.params.SpeedwayBoost), nil
	case KindSideWall:
		return b.SideWallFollowing(true, b.params.SideFollowingSpeed), nil
	case KindBraking:
		return b.Braking(), nil
	case KindStopped:
		return b.Stopped(), nil
	}
	return nil, fmt.Errorf("unknown behavior %q", kind)
}

// obstacleAhead reports whether the depth camera sees something within
// DepthStopDistance in the top two-thirds of the frame.
func (b *Builder) obstacleAhead(snap perception.Snapshot) bool {
	if b.depth == nil || b.params.DepthStopDistance == 0 || snap.DepthImage == nil {
		return false
	}
	d, ok := b.depth.ClosestDepth(snap.DepthImage)
	return ok && d < b.params.DepthStopDistance
}

// pid returns a controller saturating at the steering range [-1, 1].
func (b *Builder) pid(k control.PIDConstants, setpoint float64) *control.PIDController {
	pid, err := control.NewPIDController(b.clock, control.PIDConfig{
		Constants: k,
		Setpoint:  setpoint,
		MinOutput: control.Limit(-1),
		MaxOutput: control.Limit(1),
	})
	if err != nil {
		panic(err) // bounds are constant
	}
	return pid
}

// debouncer returns a "still in sight" debouncer with baseline true.
func (b *Builder) debouncer() *control.Debouncer {
	d, err := control.NewDebouncer(b.clock, true, b.params.DebounceTime)
	if err != nil {
		panic(err) // validated by NewBuilder
	}
	return d
}

func (b *Builder) LineFollowing(colors []perception.Color) *LineFollowing {
	return &LineFollowing{
		b:         b,
		colors:    colors,
		pid:       b.pid(b.params.LineGains, 0),
		debouncer: b.debouncer(),
	}
}

func (b *Builder) LaneCentering(color perception.Color) *LaneCentering {
	return &LaneCentering{
		b:     b,
		color: color,
		pid:   b.pid(b.params.LaneGains, 0),
	}
}

func (b *Builder) ConeSlalom(right, left perception.Color, defaultAngle float64) *ConeSlalom {
	return &ConeSlalom{
		b:            b,
		right:        right,
		left:         left,
		defaultAngle: defaultAngle,
		target:       right,
		pid:          b.pid(b.params.ConeGains, 0),
		debouncer:    b.debouncer(),
	}
}

func (b *Builder) CenterWallFollowing(speed float64) *CenterWallFollowing {
	return &CenterWallFollowing{
		b:     b,
		speed: speed,
		pid:   b.pid(b.params.CenterWallGains, 0),
	}
}

// SideWallFollowing holds SideWallOffset centimetres from the right wall,
// or the left one when right is false.
func (b *Builder) SideWallFollowing(right bool, speed float64) *SideWallFollowing {
	window := b.params.WallWindowAngle
	if !right {
		window = 360 - window
	}
	return &SideWallFollowing{
		b:      b,
		right:  right,
		speed:  speed,
		window: window,
		pid:    b.pid(b.params.SideWallGains, b.params.SideWallOffset),
	}
}

// Braking starts its timer now.
func (b *Builder) Braking() *Braking {
	return &Braking{b: b, entered: b.clock.Now()}
}

func (b *Builder) Stopped() *Stopped { return &Stopped{} }
