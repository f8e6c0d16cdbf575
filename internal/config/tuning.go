package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/racecar/internal/control"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds every tunable number the car drives with. All fields
// are optional; the Get* methods fall back to the defaults measured on the
// real car, so partial files are safe.
type TuningConfig struct {
	// Speeds, as fractions of full throttle
	FollowingSpeed     *float64 `json:"following_speed,omitempty"`
	SideFollowingSpeed *float64 `json:"side_following_speed,omitempty"`
	SpeedwayBoost      *float64 `json:"speedway_boost,omitempty"`
	SlowZoneDrop       *float64 `json:"slow_zone_drop,omitempty"`
	SpeedRateLimit     *float64 `json:"speed_rate_limit,omitempty"` // throttle units per second
	TurnSpeedBoost     *float64 `json:"turn_speed_boost,omitempty"`
	SteeringRange      *float64 `json:"steering_range,omitempty"`
	BrakeSpeed         *float64 `json:"brake_speed,omitempty"`
	BrakingDuration    *string  `json:"braking_duration,omitempty"` // duration string like "1s"

	// Loop timing
	TickInterval        *string `json:"tick_interval,omitempty"`
	DebounceTime        *string `json:"debounce_time,omitempty"`
	DiagnosticsInterval *string `json:"diagnostics_interval,omitempty"`

	// PID gains per behavior
	LineKp       *float64 `json:"line_kp,omitempty"`
	LineKi       *float64 `json:"line_ki,omitempty"`
	LineKd       *float64 `json:"line_kd,omitempty"`
	LaneKp       *float64 `json:"lane_kp,omitempty"`
	LaneKi       *float64 `json:"lane_ki,omitempty"`
	LaneKd       *float64 `json:"lane_kd,omitempty"`
	ConeKp       *float64 `json:"cone_kp,omitempty"`
	ConeKi       *float64 `json:"cone_ki,omitempty"`
	ConeKd       *float64 `json:"cone_kd,omitempty"`
	CenterWallKp *float64 `json:"center_wall_kp,omitempty"`
	CenterWallKi *float64 `json:"center_wall_ki,omitempty"`
	CenterWallKd *float64 `json:"center_wall_kd,omitempty"`
	SideWallKp   *float64 `json:"side_wall_kp,omitempty"`
	SideWallKi   *float64 `json:"side_wall_ki,omitempty"`
	SideWallKd   *float64 `json:"side_wall_kd,omitempty"`

	// LIDAR windows, degrees clockwise from forward; distances in cm
	SideWallOffset      *float64 `json:"side_wall_offset,omitempty"`
	WallWindowAngle     *float64 `json:"wall_window_angle,omitempty"`
	WallWindowWidth     *float64 `json:"wall_window_width,omitempty"`
	FrontWindowWidth    *float64 `json:"front_window_width,omitempty"`
	FrontSafetyDistance *float64 `json:"front_safety_distance,omitempty"`

	// Depth camera stop distance in mm; 0 disables the stop
	DepthStopDistance *float64 `json:"depth_stop_distance,omitempty"`

	// Contour search
	LineMinArea *float64 `json:"line_min_area,omitempty"`
	LaneMinArea *float64 `json:"lane_min_area,omitempty"`
	ConeMinArea *float64 `json:"cone_min_area,omitempty"`

	// Cone slalom
	ConeDefaultAngle *float64 `json:"cone_default_angle,omitempty"`
	ConeThreshold    *int     `json:"cone_threshold,omitempty"`

	// Colour names from the perception palette
	LineColors     []string `json:"line_colors,omitempty"`
	LaneColor      *string  `json:"lane_color,omitempty"`
	RightConeColor *string  `json:"right_cone_color,omitempty"`
	LeftConeColor  *string  `json:"left_cone_color,omitempty"`

	// Odometry
	OdometryWindow      *int  `json:"odometry_window,omitempty"`
	GravityCompensation *bool `json:"gravity_compensation,omitempty"`

	// Fiducial marker IDs placed around the course
	MarkerGraveyard  *int `json:"marker_graveyard,omitempty"`
	MarkerCanyon     *int `json:"marker_canyon,omitempty"`
	MarkerSpeedway   *int `json:"marker_speedway,omitempty"`
	MarkerSlowZone   *int `json:"marker_slow_zone,omitempty"`
	MarkerGreenLine  *int `json:"marker_green_line,omitempty"`
	MarkerConeZone   *int `json:"marker_cone_zone,omitempty"`
	MarkerBrickWalls *int `json:"marker_brick_walls,omitempty"`
	MarkerFinish     *int `json:"marker_finish,omitempty"`

	// StartBehavior names the behavior the car starts in.
	StartBehavior *string `json:"start_behavior,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// or returns *p, or def when p is nil.
func or[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// EmptyTuningConfig returns a TuningConfig with every field unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to the
// value its getter falls back to.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	line, lane, cone := e.GetLineGains(), e.GetLaneGains(), e.GetConeGains()
	center, side := e.GetCenterWallGains(), e.GetSideWallGains()
	return &TuningConfig{
		FollowingSpeed:      ptrFloat64(e.GetFollowingSpeed()),
		SideFollowingSpeed:  ptrFloat64(e.GetSideFollowingSpeed()),
		SpeedwayBoost:       ptrFloat64(e.GetSpeedwayBoost()),
		SlowZoneDrop:        ptrFloat64(e.GetSlowZoneDrop()),
		SpeedRateLimit:      ptrFloat64(e.GetSpeedRateLimit()),
		TurnSpeedBoost:      ptrFloat64(e.GetTurnSpeedBoost()),
		SteeringRange:       ptrFloat64(e.GetSteeringRange()),
		BrakeSpeed:          ptrFloat64(e.GetBrakeSpeed()),
		BrakingDuration:     ptrString(e.GetBrakingDuration().String()),
		TickInterval:        ptrString(e.GetTickInterval().String()),
		DebounceTime:        ptrString(e.GetDebounceTime().String()),
		DiagnosticsInterval: ptrString(e.GetDiagnosticsInterval().String()),
		LineKp:              ptrFloat64(line.Kp),
		LineKi:              ptrFloat64(line.Ki),
		LineKd:              ptrFloat64(line.Kd),
		LaneKp:              ptrFloat64(lane.Kp),
		LaneKi:              ptrFloat64(lane.Ki),
		LaneKd:              ptrFloat64(lane.Kd),
		ConeKp:              ptrFloat64(cone.Kp),
		ConeKi:              ptrFloat64(cone.Ki),
		ConeKd:              ptrFloat64(cone.Kd),
		CenterWallKp:        ptrFloat64(center.Kp),
		CenterWallKi:        ptrFloat64(center.Ki),
		CenterWallKd:        ptrFloat64(center.Kd),
		SideWallKp:          ptrFloat64(side.Kp),
		SideWallKi:          ptrFloat64(side.Ki),
		SideWallKd:          ptrFloat64(side.Kd),
		SideWallOffset:      ptrFloat64(e.GetSideWallOffset()),
		WallWindowAngle:     ptrFloat64(e.GetWallWindowAngle()),
		WallWindowWidth:     ptrFloat64(e.GetWallWindowWidth()),
		FrontWindowWidth:    ptrFloat64(e.GetFrontWindowWidth()),
		FrontSafetyDistance: ptrFloat64(e.GetFrontSafetyDistance()),
		DepthStopDistance:   ptrFloat64(e.GetDepthStopDistance()),
		LineMinArea:         ptrFloat64(e.GetLineMinArea()),
		LaneMinArea:         ptrFloat64(e.GetLaneMinArea()),
		ConeMinArea:         ptrFloat64(e.GetConeMinArea()),
		ConeDefaultAngle:    ptrFloat64(e.GetConeDefaultAngle()),
		ConeThreshold:       ptrInt(e.GetConeThreshold()),
		LineColors:          e.GetLineColors(),
		LaneColor:           ptrString(e.GetLaneColor()),
		RightConeColor:      ptrString(e.GetRightConeColor()),
		LeftConeColor:       ptrString(e.GetLeftConeColor()),
		OdometryWindow:      ptrInt(e.GetOdometryWindow()),
		GravityCompensation: ptrBool(e.GetGravityCompensation()),
		MarkerGraveyard:     ptrInt(e.GetMarkerGraveyard()),
		MarkerCanyon:        ptrInt(e.GetMarkerCanyon()),
		MarkerSpeedway:      ptrInt(e.GetMarkerSpeedway()),
		MarkerSlowZone:      ptrInt(e.GetMarkerSlowZone()),
		MarkerGreenLine:     ptrInt(e.GetMarkerGreenLine()),
		MarkerConeZone:      ptrInt(e.GetMarkerConeZone()),
		MarkerBrickWalls:    ptrInt(e.GetMarkerBrickWalls()),
		MarkerFinish:        ptrInt(e.GetMarkerFinish()),
		StartBehavior:       ptrString(e.GetStartBehavior()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching up from the
// working directory. It panics when the file cannot be loaded and is meant
// for tests and the dev entry point.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks that the configured values are usable.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*float64{
		"following_speed":      c.FollowingSpeed,
		"side_following_speed": c.SideFollowingSpeed,
		"brake_speed":          c.BrakeSpeed,
		"steering_range":       c.SteeringRange,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}

	for name, v := range map[string]*float64{
		"speed_rate_limit":      c.SpeedRateLimit,
		"turn_speed_boost":      c.TurnSpeedBoost,
		"side_wall_offset":      c.SideWallOffset,
		"wall_window_width":     c.WallWindowWidth,
		"front_window_width":    c.FrontWindowWidth,
		"front_safety_distance": c.FrontSafetyDistance,
		"depth_stop_distance":   c.DepthStopDistance,
		"line_min_area":         c.LineMinArea,
		"lane_min_area":         c.LaneMinArea,
		"cone_min_area":         c.ConeMinArea,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	for name, v := range map[string]*float64{
		"wall_window_width":  c.WallWindowWidth,
		"front_window_width": c.FrontWindowWidth,
	} {
		if v != nil && *v >= 360 {
			return fmt.Errorf("%s must be less than 360 degrees, got %f", name, *v)
		}
	}

	for name, v := range map[string]*string{
		"braking_duration":     c.BrakingDuration,
		"tick_interval":        c.TickInterval,
		"debounce_time":        c.DebounceTime,
		"diagnostics_interval": c.DiagnosticsInterval,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *v)
		}
	}
	if c.TickInterval != nil && *c.TickInterval != "" {
		if d, _ := time.ParseDuration(*c.TickInterval); d == 0 {
			return fmt.Errorf("tick_interval must be positive")
		}
	}

	if c.ConeThreshold != nil && *c.ConeThreshold < 1 {
		return fmt.Errorf("cone_threshold must be at least 1, got %d", *c.ConeThreshold)
	}
	if c.OdometryWindow != nil && *c.OdometryWindow < 1 {
		return fmt.Errorf("odometry_window must be at least 1, got %d", *c.OdometryWindow)
	}
	return nil
}

func parseDuration(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def
	}
	return d
}

func (c *TuningConfig) GetFollowingSpeed() float64     { return or(c.FollowingSpeed, 0.15) }
func (c *TuningConfig) GetSideFollowingSpeed() float64 { return or(c.SideFollowingSpeed, 0.135) }
func (c *TuningConfig) GetSpeedwayBoost() float64      { return or(c.SpeedwayBoost, 0.02) }
func (c *TuningConfig) GetSlowZoneDrop() float64       { return or(c.SlowZoneDrop, 0.01) }
func (c *TuningConfig) GetSpeedRateLimit() float64     { return or(c.SpeedRateLimit, 0.2) }

// GetTurnSpeedBoost returns the fraction of |angle| added to speed in a
// turn, so the car does not stall on full lock.
func (c *TuningConfig) GetTurnSpeedBoost() float64 { return or(c.TurnSpeedBoost, 0.1) }

// GetSteeringRange returns the steering magnitude a contour at the image
// edge maps to.
func (c *TuningConfig) GetSteeringRange() float64 { return or(c.SteeringRange, 0.25) }
func (c *TuningConfig) GetBrakeSpeed() float64    { return or(c.BrakeSpeed, 0.3) }

func (c *TuningConfig) GetBrakingDuration() time.Duration {
	return parseDuration(c.BrakingDuration, time.Second)
}

func (c *TuningConfig) GetTickInterval() time.Duration {
	return parseDuration(c.TickInterval, 16*time.Millisecond)
}

func (c *TuningConfig) GetDebounceTime() time.Duration {
	return parseDuration(c.DebounceTime, 300*time.Millisecond)
}

func (c *TuningConfig) GetDiagnosticsInterval() time.Duration {
	return parseDuration(c.DiagnosticsInterval, 500*time.Millisecond)
}

func gains(kp, ki, kd *float64, def control.PIDConstants) control.PIDConstants {
	return control.PIDConstants{Kp: or(kp, def.Kp), Ki: or(ki, def.Ki), Kd: or(kd, def.Kd)}
}

func (c *TuningConfig) GetLineGains() control.PIDConstants {
	return gains(c.LineKp, c.LineKi, c.LineKd, control.PIDConstants{Kp: 1, Kd: 0.01})
}

func (c *TuningConfig) GetLaneGains() control.PIDConstants {
	return gains(c.LaneKp, c.LaneKi, c.LaneKd, control.PIDConstants{Kp: 1, Kd: 0.01})
}

func (c *TuningConfig) GetConeGains() control.PIDConstants {
	return gains(c.ConeKp, c.ConeKi, c.ConeKd, control.PIDConstants{Kp: 0.5, Kd: 0.01})
}

func (c *TuningConfig) GetCenterWallGains() control.PIDConstants {
	return gains(c.CenterWallKp, c.CenterWallKi, c.CenterWallKd, control.PIDConstants{Kp: 0.0013, Kd: 0.001})
}

func (c *TuningConfig) GetSideWallGains() control.PIDConstants {
	return gains(c.SideWallKp, c.SideWallKi, c.SideWallKd, control.PIDConstants{Kp: 0.0035, Kd: 0.0008})
}

func (c *TuningConfig) GetSideWallOffset() float64      { return or(c.SideWallOffset, 70) }
func (c *TuningConfig) GetWallWindowAngle() float64     { return or(c.WallWindowAngle, 55) }
func (c *TuningConfig) GetWallWindowWidth() float64     { return or(c.WallWindowWidth, 35) }
func (c *TuningConfig) GetFrontWindowWidth() float64    { return or(c.FrontWindowWidth, 2) }
func (c *TuningConfig) GetFrontSafetyDistance() float64 { return or(c.FrontSafetyDistance, 50) }

func (c *TuningConfig) GetDepthStopDistance() float64 { return or(c.DepthStopDistance, 200) }

func (c *TuningConfig) GetLineMinArea() float64 { return or(c.LineMinArea, 25) }
func (c *TuningConfig) GetLaneMinArea() float64 { return or(c.LaneMinArea, 180) }
func (c *TuningConfig) GetConeMinArea() float64 { return or(c.ConeMinArea, 100) }

func (c *TuningConfig) GetConeDefaultAngle() float64 { return or(c.ConeDefaultAngle, 0.14) }
func (c *TuningConfig) GetConeThreshold() int        { return or(c.ConeThreshold, 4) }

// GetLineColors returns the line colours in priority order.
func (c *TuningConfig) GetLineColors() []string {
	if len(c.LineColors) == 0 {
		return []string{"blue", "green", "red"}
	}
	return c.LineColors
}

func (c *TuningConfig) GetLaneColor() string      { return or(c.LaneColor, "purple") }
func (c *TuningConfig) GetRightConeColor() string { return or(c.RightConeColor, "orange") }
func (c *TuningConfig) GetLeftConeColor() string  { return or(c.LeftConeColor, "purple") }

func (c *TuningConfig) GetOdometryWindow() int       { return or(c.OdometryWindow, 7) }
func (c *TuningConfig) GetGravityCompensation() bool { return or(c.GravityCompensation, false) }

func (c *TuningConfig) GetMarkerGraveyard() int  { return or(c.MarkerGraveyard, 2) }
func (c *TuningConfig) GetMarkerCanyon() int     { return or(c.MarkerCanyon, 3) }
func (c *TuningConfig) GetMarkerSpeedway() int   { return or(c.MarkerSpeedway, 4) }
func (c *TuningConfig) GetMarkerSlowZone() int   { return or(c.MarkerSlowZone, 5) }
func (c *TuningConfig) GetMarkerGreenLine() int  { return or(c.MarkerGreenLine, 6) }
func (c *TuningConfig) GetMarkerConeZone() int   { return or(c.MarkerConeZone, 7) }
func (c *TuningConfig) GetMarkerBrickWalls() int { return or(c.MarkerBrickWalls, 8) }
func (c *TuningConfig) GetMarkerFinish() int     { return or(c.MarkerFinish, 9) }

func (c *TuningConfig) GetStartBehavior() string { return or(c.StartBehavior, "center_wall") }
