package behavior

import (
	"time"

	"github.com/banshee-data/racecar/internal/perception"
)

// Braking reverses the throttle for the braking duration, measured from
// when the behavior was built, and then hands over to Stopped.
type Braking struct {
	b       *Builder
	entered time.Time
}

func (b *Braking) Kind() Kind { return KindBraking }

func (b *Braking) done() bool {
	return b.b.clock.Since(b.entered) >= b.b.params.BrakingDuration
}

func (b *Braking) Execute(perception.Snapshot) Command {
	if b.done() {
		return Command{}
	}
	return Command{Speed: -b.b.params.BrakeSpeed}
}

func (b *Braking) Next(perception.Snapshot) Behavior {
	if b.done() {
		return b.b.Stopped()
	}
	return b
}

func (b *Braking) String() string { return "Braking" }

// Stopped is the terminal behavior.
type Stopped struct{}

func (*Stopped) Kind() Kind                          { return KindStopped }
func (*Stopped) Execute(perception.Snapshot) Command { return Command{} }
func (s *Stopped) Next(perception.Snapshot) Behavior { return s }
func (*Stopped) String() string                      { return "Stopped" }
