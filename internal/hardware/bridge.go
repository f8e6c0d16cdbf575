// Package hardware connects the control loop to the car: the drive/IMU/LIDAR
// bridge on the serial link, plus the camera and marker detector.
package hardware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/racecar/internal/control"
	"github.com/banshee-data/racecar/internal/lidar"
	"github.com/banshee-data/racecar/internal/monitoring"
	"github.com/banshee-data/racecar/internal/serialmux"
	"github.com/banshee-data/racecar/internal/timeutil"
)

// ErrMalformedLine is returned for bridge lines that cannot be decoded.
var ErrMalformedLine = errors.New("malformed bridge line")

// Link is the part of a serialmux the bridge uses.
type Link interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
	SendCommand(string) error
}

// StopCommand halts the motors and centres the steering.
const StopCommand = "D 0.000 0.000"

// FormatDriveCommand renders a drive command, clamping both values to [-1, 1].
func FormatDriveCommand(speed, angle float64) string {
	speed = control.Clamp(control.Finite(speed), -1, 1)
	angle = control.Clamp(control.Finite(angle), -1, 1)
	return fmt.Sprintf("D %.3f %.3f", speed, angle)
}

type imuFrame struct {
	Accel *[3]float64 `json:"accel"`
	Gyro  *[3]float64 `json:"gyro"`
}

type scanFrame struct {
	Scan []float64 `json:"scan"`
}

// Stats counts lines handled by a Bridge.
type Stats struct {
	IMUFrames  int64     `json:"imu_frames"`
	ScanFrames int64     `json:"scan_frames"`
	Malformed  int64     `json:"malformed"`
	Ignored    int64     `json:"ignored"`
	LastIMU    time.Time `json:"last_imu"`
	LastScan   time.Time `json:"last_scan"`
}

// Bridge keeps the latest IMU and LIDAR frames read from the link and sends
// drive commands back over it. Getters never block on the link.
type Bridge struct {
	clock timeutil.Clock
	link  Link

	mu    sync.RWMutex
	accel r3.Vec
	gyro  r3.Vec
	scan  lidar.Scan
	stats Stats
}

// NewBridge returns a Bridge over link with an empty scan.
func NewBridge(clock timeutil.Clock, link Link) *Bridge {
	return &Bridge{
		clock: clock,
		link:  link,
		scan:  make(lidar.Scan, lidar.SamplesPerRevolution),
	}
}

// Run consumes lines from the link until ctx is done or the link closes.
func (b *Bridge) Run(ctx context.Context) error {
	id, lines := b.link.Subscribe()
	defer b.link.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := b.HandleLine(line); err != nil {
				monitoring.Logf("bridge: %v", err)
			}
		}
	}
}

// HandleLine decodes one line from the bridge and stores its values.
func (b *Bridge) HandleLine(line string) error {
	switch serialmux.ClassifyPayload(line) {
	case serialmux.EventTypeIMU:
		var f imuFrame
		if err := json.Unmarshal([]byte(line), &f); err != nil {
			b.malformed()
			return fmt.Errorf("%w: %v", ErrMalformedLine, err)
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if f.Accel != nil {
			b.accel = r3.Vec{X: f.Accel[0], Y: f.Accel[1], Z: f.Accel[2]}
		}
		if f.Gyro != nil {
			b.gyro = r3.Vec{X: f.Gyro[0], Y: f.Gyro[1], Z: f.Gyro[2]}
		}
		b.stats.IMUFrames++
		b.stats.LastIMU = b.clock.Now()
		return nil

	case serialmux.EventTypeScan:
		var f scanFrame
		if err := json.Unmarshal([]byte(line), &f); err != nil {
			b.malformed()
			return fmt.Errorf("%w: %v", ErrMalformedLine, err)
		}
		if len(f.Scan) != lidar.SamplesPerRevolution {
			b.malformed()
			return fmt.Errorf("%w: scan has %d samples, want %d", ErrMalformedLine, len(f.Scan), lidar.SamplesPerRevolution)
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		b.scan = lidar.Scan(f.Scan)
		b.stats.ScanFrames++
		b.stats.LastScan = b.clock.Now()
		return nil

	case serialmux.EventTypeLog:
		monitoring.Logf("bridge firmware: %s", line)
		return nil

	default:
		b.mu.Lock()
		b.stats.Ignored++
		b.mu.Unlock()
		return nil
	}
}

func (b *Bridge) malformed() {
	b.mu.Lock()
	b.stats.Malformed++
	b.mu.Unlock()
}

// LinearAcceleration returns the latest accelerometer reading in m/s^2.
func (b *Bridge) LinearAcceleration() r3.Vec {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.accel
}

// AngularVelocity returns the latest gyroscope reading in rad/s.
func (b *Bridge) AngularVelocity() r3.Vec {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.gyro
}

// LidarSamples returns the latest full scan. Scans are replaced, never
// modified, so the slice is safe to read.
func (b *Bridge) LidarSamples() lidar.Scan {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.scan
}

// Stats returns the line counters.
func (b *Bridge) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

// SetSpeedAndAngle sends a drive command.
func (b *Bridge) SetSpeedAndAngle(speed, angle float64) error {
	if err := b.link.SendCommand(FormatDriveCommand(speed, angle)); err != nil {
		return fmt.Errorf("failed to send drive command: %w", err)
	}
	return nil
}
