package vehicle

import (
	"time"

	"github.com/banshee-data/racecar/internal/behavior"
	"github.com/banshee-data/racecar/internal/odometry"
)

// TickRecord is the telemetry of one control tick.
type TickRecord struct {
	SessionID string
	Seq       int64
	Time      time.Time
	Behavior  behavior.Kind
	Requested behavior.Command
	Speed     float64
	Angle     float64
	Odometry  odometry.State
}

// TransitionRecord is a change of active behavior.
type TransitionRecord struct {
	SessionID string
	Time      time.Time
	From      behavior.Kind
	To        behavior.Kind
	Fiducials []int
}

// Recorder receives telemetry from the control loop. Implementations must
// not block; the loop calls them inline.
type Recorder interface {
	RecordTick(TickRecord)
	RecordTransition(TransitionRecord)
}
