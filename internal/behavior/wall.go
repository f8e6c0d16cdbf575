package behavior

import (
	"fmt"

	"github.com/banshee-data/racecar/internal/control"
	"github.com/banshee-data/racecar/internal/perception"
)

// CenterWallFollowing holds the car midway between two walls by comparing
// the mean LIDAR range in a window on each side. The output is positive
// when the left side has more room. It runs at half speed while the
// closest return ahead is within FrontSafetyDistance.
type CenterWallFollowing struct {
	b     *Builder
	speed float64
	pid   *control.PIDController

	left, right, front float64
	angle              float64
}

func (c *CenterWallFollowing) Kind() Kind { return KindCenterWall }

// Speed returns the commanded speed.
func (c *CenterWallFollowing) Speed() float64 { return c.speed }

// Execute holds the previous angle when either window has no returns.
func (c *CenterWallFollowing) Execute(snap perception.Snapshot) Command {
	p := c.b.params
	c.right = snap.Lidar.AverageDistance(p.WallWindowAngle, p.WallWindowWidth)
	c.left = snap.Lidar.AverageDistance(360-p.WallWindowAngle, p.WallWindowWidth)
	if c.left > 0 && c.right > 0 {
		c.angle = c.pid.Calculate(c.right - c.left)
	}
	speed := c.speed
	c.front = c.b.frontDistance(snap)
	if c.front > 0 && c.front < p.FrontSafetyDistance {
		speed /= 2
	}
	return Command{Speed: speed, Angle: c.angle}.finite()
}

func (c *CenterWallFollowing) Next(snap perception.Snapshot) Behavior {
	p := c.b.params
	m := p.Markers
	switch {
	case snap.Sees(m.Finish):
		return c.b.Braking()
	case snap.Sees(m.Graveyard):
		return c.b.SideWallFollowing(true, p.SideFollowingSpeed)
	case snap.Sees(m.SlowZone):
		c.speed = p.FollowingSpeed - p.SlowZoneDrop
		return c
	case snap.Sees(m.GreenLine):
		return c.b.SideWallFollowing(false, p.SideFollowingSpeed)
	}
	return c
}

func (c *CenterWallFollowing) String() string {
	return fmt.Sprintf("CenterWallFollowing{left=%.0f right=%.0f front=%.0f speed=%.3f}", c.left, c.right, c.front, c.speed)
}

// SideWallFollowing holds a fixed distance from one wall and steers hard
// away when something is close ahead.
type SideWallFollowing struct {
	b      *Builder
	right  bool
	speed  float64
	window float64
	pid    *control.PIDController

	distance, front float64
	angle           float64
}

func (s *SideWallFollowing) Kind() Kind { return KindSideWall }

// RightWall reports whether the right wall is followed.
func (s *SideWallFollowing) RightWall() bool { return s.right }

// Speed returns the commanded speed.
func (s *SideWallFollowing) Speed() float64 { return s.speed }

// Execute holds the previous angle when the side window has no returns.
func (s *SideWallFollowing) Execute(snap perception.Snapshot) Command {
	p := s.b.params
	away := 1.0 // steering away from the followed wall
	if s.right {
		away = -1
	}

	s.distance = snap.Lidar.AverageDistance(s.window, p.WallWindowWidth)
	s.front = s.b.frontDistance(snap)

	if s.distance > 0 {
		s.angle = s.pid.Calculate(s.distance) * away
	}
	angle := s.angle
	if s.front > 0 && s.front < p.FrontSafetyDistance {
		angle = away
	}
	return Command{Speed: s.speed, Angle: angle}.finite()
}

func (s *SideWallFollowing) Next(snap perception.Snapshot) Behavior {
	p := s.b.params
	m := p.Markers
	switch {
	case snap.Sees(m.Finish):
		return s.b.Braking()
	case snap.Sees(m.Speedway):
		return s.b.CenterWallFollowing(p.FollowingSpeed + p.SpeedwayBoost)
	case snap.Sees(m.BrickWalls) && !s.right:
		return s.b.SideWallFollowing(true, p.SideFollowingSpeed)
	}
	return s
}

// frontDistance returns the closest LIDAR return in the front window, or
// zero when the window has no returns.
func (b *Builder) frontDistance(snap perception.Snapshot) float64 {
	half := b.params.FrontWindowWidth / 2
	_, d, ok := snap.Lidar.ClosestPoint(-half, half)
	if !ok {
		return 0
	}
	return d
}

func (s *SideWallFollowing) String() string {
	side := "left"
	if s.right {
		side = "right"
	}
	return fmt.Sprintf("SideWallFollowing{%s distance=%.0f front=%.0f}", side, s.distance, s.front)
}
