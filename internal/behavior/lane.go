package behavior

import (
	"fmt"

	"github.com/banshee-data/racecar/internal/control"
	"github.com/banshee-data/racecar/internal/perception"
)

// LaneCentering keeps the car midway between two lane lines of one colour,
// searched for separately in each half of the frame.
type LaneCentering struct {
	b     *Builder
	color perception.Color
	pid   *control.PIDController

	position float64
	angle    float64
}

func (l *LaneCentering) Kind() Kind { return KindLaneCentering }

// Execute measures each line's horizontal distance from the frame centre.
// A side with no line counts as a quarter frame away. On a missed frame the
// previous angle is held.
func (l *LaneCentering) Execute(snap perception.Snapshot) Command {
	p := l.b.params
	width := snap.Width()
	if width == 0 {
		return Command{Speed: p.FollowingSpeed, Angle: l.angle}.finite()
	}
	colors := []perception.Color{l.color}
	fallback := float64(width / 4)

	leftDist, rightDist := fallback, fallback
	if c, ok := l.b.finder.FindContour(snap.ColorImage, colors, perception.CropLeftHalf, p.LaneMinArea); ok {
		leftDist = float64(c.Bounds.X - c.Center.X)
	}
	if c, ok := l.b.finder.FindContour(snap.ColorImage, colors, perception.CropRightHalf, p.LaneMinArea); ok {
		rightDist = float64(c.Center.X)
	}

	half := float64(width) / 2
	l.position = control.Remap(leftDist-rightDist, -half, half, -p.SteeringRange, p.SteeringRange, true)
	l.angle = l.pid.Calculate(l.position)
	if l.b.obstacleAhead(snap) {
		return Command{Angle: l.angle}.finite()
	}
	return Command{Speed: p.FollowingSpeed, Angle: l.angle}.finite()
}

func (l *LaneCentering) Next(snap perception.Snapshot) Behavior {
	if snap.Sees(l.b.params.Markers.Finish) {
		return l.b.Braking()
	}
	return l
}

func (l *LaneCentering) String() string {
	return fmt.Sprintf("LaneCentering{%s position=%.3f}", l.color, l.position)
}
