package behavior

import (
	"fmt"

	"github.com/banshee-data/racecar/internal/control"
	"github.com/banshee-data/racecar/internal/perception"
)

// ConeSlalom weaves between alternating cones: right-colour cones are
// passed on the car's left and left-colour cones on its right. When the
// tracked cone has been out of sight for the debounce time the target flips
// to the other colour and the car swings toward it at a fixed angle until
// it is reacquired.
type ConeSlalom struct {
	b            *Builder
	right, left  perception.Color
	defaultAngle float64
	pid          *control.PIDController
	debouncer    *control.Debouncer

	target      perception.Color
	previous    perception.Color
	hasPrevious bool
	conesSeen   int
}

func (c *ConeSlalom) Kind() Kind { return KindConeSlalom }

// Target returns the cone colour currently steered for.
func (c *ConeSlalom) Target() perception.Color { return c.target }

// ConesSeen returns the number of cones passed.
func (c *ConeSlalom) ConesSeen() int { return c.conesSeen }

func (c *ConeSlalom) Execute(snap perception.Snapshot) Command {
	p := c.b.params
	targets := []perception.Color{c.target}
	if c.hasPrevious {
		targets = append(targets, c.previous)
	}

	cone, found := c.b.finder.FindContour(snap.ColorImage, targets, perception.CropBottomThreeQuarters, p.ConeMinArea)
	inSight := c.debouncer.Update(found)

	var angle float64
	switch {
	case found:
		c.previous, c.hasPrevious = cone.Color, true

		side := 1.0
		if cone.Color == c.left {
			side = -1
		}
		// closer cones fill more of the frame and push the car further out
		sizeOffset := cone.Area / float64(snap.Width()) / float64(snap.Height()) * side

		center := control.Remap(float64(cone.Center.X), 0, float64(cone.Bounds.X), -1, 1, true)
		coneOffset := max(center, 0)
		if cone.Color == c.left {
			coneOffset = min(center, 0)
		}
		angle = c.pid.CalculateWithSetpoint(0, sizeOffset+coneOffset)

	case c.hasPrevious && !inSight:
		next := c.left
		if c.previous == c.left {
			next = c.right
		}
		if next != c.target {
			c.target = next
			c.conesSeen++
		}
		angle = c.defaultAngle
		if c.target == c.left {
			angle = -c.defaultAngle
		}
	}
	return Command{Speed: p.FollowingSpeed, Angle: angle}.finite()
}

func (c *ConeSlalom) Next(snap perception.Snapshot) Behavior {
	p := c.b.params
	switch {
	case snap.Sees(p.Markers.Finish):
		return c.b.Braking()
	case c.conesSeen >= p.ConeThreshold:
		return c.b.LineFollowing(p.LineColors)
	}
	return c
}

func (c *ConeSlalom) String() string {
	prev := "none"
	if c.hasPrevious {
		prev = c.previous.Name
	}
	return fmt.Sprintf("ConeSlalom{target=%s previous=%s seen=%d}", c.target, prev, c.conesSeen)
}
