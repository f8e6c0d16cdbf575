package hardware

import (
	"encoding/json"
	"math"

	"github.com/banshee-data/racecar/internal/lidar"
)

// CorridorLines returns a generator of bridge lines for a car parked still
// in a straight corridor: a level IMU and walls left and right cm away.
// It feeds serialmux.NewSimulatedSerialMux in development runs.
func CorridorLines(left, right float64) func() []string {
	scan := make([]float64, lidar.SamplesPerRevolution)
	for i := range scan {
		deg := float64(i) * 360 / float64(len(scan))
		rad := deg * math.Pi / 180
		s := math.Sin(rad)
		switch {
		case s > 0.2:
			scan[i] = right / s
		case s < -0.2:
			scan[i] = left / -s
		}
	}
	scanLine, _ := json.Marshal(scanFrame{Scan: scan})
	imuLine, _ := json.Marshal(map[string][3]float64{
		"accel": {0, -9.81, 0},
		"gyro":  {0, 0, 0},
	})
	lines := []string{string(imuLine), string(scanLine)}
	return func() []string { return lines }
}
