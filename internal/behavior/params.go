package behavior

import (
	"fmt"
	"time"

	"github.com/banshee-data/racecar/internal/config"
	"github.com/banshee-data/racecar/internal/control"
	"github.com/banshee-data/racecar/internal/perception"
)

// Markers are the fiducial IDs that trigger transitions.
type Markers struct {
	Graveyard  int
	Canyon     int
	Speedway   int
	SlowZone   int
	GreenLine  int
	ConeZone   int
	BrickWalls int
	Finish     int
}

// Params is the tuning every behavior is built from.
type Params struct {
	FollowingSpeed     float64
	SideFollowingSpeed float64
	SpeedwayBoost      float64
	SlowZoneDrop       float64
	SteeringRange      float64
	BrakeSpeed         float64
	BrakingDuration    time.Duration
	DebounceTime       time.Duration

	LineGains       control.PIDConstants
	LaneGains       control.PIDConstants
	ConeGains       control.PIDConstants
	CenterWallGains control.PIDConstants
	SideWallGains   control.PIDConstants

	SideWallOffset      float64
	WallWindowAngle     float64
	WallWindowWidth     float64
	FrontWindowWidth    float64
	FrontSafetyDistance float64

	// DepthStopDistance is in millimetres; 0 disables the depth stop.
	DepthStopDistance float64

	LineMinArea float64
	LaneMinArea float64
	ConeMinArea float64

	ConeDefaultAngle float64
	ConeThreshold    int

	LineColors     []perception.Color
	LaneColor      perception.Color
	RightConeColor perception.Color
	LeftConeColor  perception.Color

	Markers Markers
}

// ParamsFromTuning resolves a tuning file into behavior parameters.
func ParamsFromTuning(cfg *config.TuningConfig) (Params, error) {
	lineColors, err := perception.ColorsByName(cfg.GetLineColors())
	if err != nil {
		return Params{}, fmt.Errorf("line_colors: %w", err)
	}
	lane, err := perception.ColorByName(cfg.GetLaneColor())
	if err != nil {
		return Params{}, fmt.Errorf("lane_color: %w", err)
	}
	right, err := perception.ColorByName(cfg.GetRightConeColor())
	if err != nil {
		return Params{}, fmt.Errorf("right_cone_color: %w", err)
	}
	left, err := perception.ColorByName(cfg.GetLeftConeColor())
	if err != nil {
		return Params{}, fmt.Errorf("left_cone_color: %w", err)
	}

	return Params{
		FollowingSpeed:      cfg.GetFollowingSpeed(),
		SideFollowingSpeed:  cfg.GetSideFollowingSpeed(),
		SpeedwayBoost:       cfg.GetSpeedwayBoost(),
		SlowZoneDrop:        cfg.GetSlowZoneDrop(),
		SteeringRange:       cfg.GetSteeringRange(),
		BrakeSpeed:          cfg.GetBrakeSpeed(),
		BrakingDuration:     cfg.GetBrakingDuration(),
		DebounceTime:        cfg.GetDebounceTime(),
		LineGains:           cfg.GetLineGains(),
		LaneGains:           cfg.GetLaneGains(),
		ConeGains:           cfg.GetConeGains(),
		CenterWallGains:     cfg.GetCenterWallGains(),
		SideWallGains:       cfg.GetSideWallGains(),
		SideWallOffset:      cfg.GetSideWallOffset(),
		WallWindowAngle:     cfg.GetWallWindowAngle(),
		WallWindowWidth:     cfg.GetWallWindowWidth(),
		FrontWindowWidth:    cfg.GetFrontWindowWidth(),
		FrontSafetyDistance: cfg.GetFrontSafetyDistance(),
		DepthStopDistance:   cfg.GetDepthStopDistance(),
		LineMinArea:         cfg.GetLineMinArea(),
		LaneMinArea:         cfg.GetLaneMinArea(),
		ConeMinArea:         cfg.GetConeMinArea(),
		ConeDefaultAngle:    cfg.GetConeDefaultAngle(),
		ConeThreshold:       cfg.GetConeThreshold(),
		LineColors:          lineColors,
		LaneColor:           lane,
		RightConeColor:      right,
		LeftConeColor:       left,
		Markers: Markers{
			Graveyard:  cfg.GetMarkerGraveyard(),
			Canyon:     cfg.GetMarkerCanyon(),
			Speedway:   cfg.GetMarkerSpeedway(),
			SlowZone:   cfg.GetMarkerSlowZone(),
			GreenLine:  cfg.GetMarkerGreenLine(),
			ConeZone:   cfg.GetMarkerConeZone(),
			BrickWalls: cfg.GetMarkerBrickWalls(),
			Finish:     cfg.GetMarkerFinish(),
		},
	}, nil
}

// DefaultParams returns the parameters of an empty tuning file.
func DefaultParams() Params {
	p, err := ParamsFromTuning(config.EmptyTuningConfig())
	if err != nil {
		panic(err) // built-in colour names always resolve
	}
	return p
}
