// Package behavior implements the driving state machine. Each Behavior
// turns one perception snapshot into a drive command and then picks the
// behavior for the next tick, usually itself.
package behavior

import (
	"fmt"
	"strings"

	"github.com/banshee-data/racecar/internal/control"
	"github.com/banshee-data/racecar/internal/perception"
)

// Command is a drive request. Both fields are nominally in [-1, 1]; the
// control loop clamps them before actuation.
type Command struct {
	Speed float64 `json:"speed"`
	Angle float64 `json:"angle"`
}

// finite zeroes any NaN or infinite component.
func (c Command) finite() Command {
	return Command{Speed: control.Finite(c.Speed), Angle: control.Finite(c.Angle)}
}

// Behavior is one state of the driving state machine. Execute is called
// once per tick, then Next decides the behavior for the following tick.
// Returning the receiver keeps the current behavior.
type Behavior interface {
	Kind() Kind
	Execute(snap perception.Snapshot) Command
	Next(snap perception.Snapshot) Behavior
}

// Kind names a behavior variant.
type Kind string

const (
	KindLineFollowing Kind = "line_following"
	KindLaneCentering Kind = "lane_centering"
	KindConeSlalom    Kind = "cone_slalom"
	KindCenterWall    Kind = "center_wall"
	KindSideWall      Kind = "side_wall"
	KindBraking       Kind = "braking"
	KindStopped       Kind = "stopped"
)

var kinds = []Kind{
	KindLineFollowing, KindLaneCentering, KindConeSlalom,
	KindCenterWall, KindSideWall, KindBraking, KindStopped,
}

// ParseKind resolves a behavior name such as "center_wall".
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range kinds {
		if string(k) == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown behavior %q", s)
}
