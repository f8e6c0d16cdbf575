package behavior

import (
	"fmt"

	"github.com/banshee-data/racecar/internal/control"
	"github.com/banshee-data/racecar/internal/perception"
)

// LineFollowing steers toward the largest line contour on the floor ahead,
// taking colours in priority order. While the line is confirmed lost it
// backs up to search for it. It holds still while the depth camera sees
// an obstacle close ahead.
type LineFollowing struct {
	b         *Builder
	colors    []perception.Color
	pid       *control.PIDController
	debouncer *control.Debouncer

	contour perception.Contour
	found   bool
	angle   float64
}

func (l *LineFollowing) Kind() Kind { return KindLineFollowing }

func (l *LineFollowing) Execute(snap perception.Snapshot) Command {
	p := l.b.params
	l.contour, l.found = l.b.finder.FindContour(snap.ColorImage, l.colors, perception.CropFloor, p.LineMinArea)
	inSight := l.debouncer.Update(l.found)

	if l.found {
		offset := control.Remap(float64(l.contour.Center.X), 0, float64(l.contour.Bounds.X), -p.SteeringRange, p.SteeringRange, true)
		l.angle = l.pid.CalculateWithSetpoint(0, offset)
	}
	if !inSight {
		return Command{Speed: -p.FollowingSpeed}.finite()
	}
	if l.b.obstacleAhead(snap) {
		return Command{Angle: l.angle}.finite()
	}
	return Command{Speed: p.FollowingSpeed, Angle: l.angle}.finite()
}

func (l *LineFollowing) Next(snap perception.Snapshot) Behavior {
	m := l.b.params.Markers
	switch {
	case snap.Sees(m.Finish):
		return l.b.Braking()
	case snap.Sees(m.Canyon):
		return l.b.SideWallFollowing(true, l.b.params.SideFollowingSpeed)
	case snap.Sees(m.Speedway):
		return l.b.CenterWallFollowing(l.b.params.FollowingSpeed + l.b.params.SpeedwayBoost)
	case snap.Sees(m.ConeZone):
		return l.b.ConeSlalom(l.b.params.RightConeColor, l.b.params.LeftConeColor, l.b.params.ConeDefaultAngle)
	}
	return l
}

func (l *LineFollowing) String() string {
	if !l.found {
		return "LineFollowing{no contour}"
	}
	return fmt.Sprintf("LineFollowing{%v}", l.contour)
}
