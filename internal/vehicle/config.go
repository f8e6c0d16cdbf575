package vehicle

import (
	"github.com/banshee-data/racecar/internal/config"
	"github.com/banshee-data/racecar/internal/odometry"
)

// ConfigFromTuning reads the loop settings out of a tuning file.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		TickInterval:        cfg.GetTickInterval(),
		SpeedRateLimit:      cfg.GetSpeedRateLimit(),
		TurnSpeedBoost:      cfg.GetTurnSpeedBoost(),
		DiagnosticsInterval: cfg.GetDiagnosticsInterval(),
		Odometry: odometry.Config{
			WindowSize:        cfg.GetOdometryWindow(),
			CompensateGravity: cfg.GetGravityCompensation(),
			Gravity:           odometry.StandardGravity,
		},
	}
}
