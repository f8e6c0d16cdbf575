package db

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/racecar/internal/lidar"
	"github.com/banshee-data/racecar/internal/perception"
)

type noContours struct{}

func (noContours) FindContour(perception.Image, []perception.Color, perception.Crop, float64) (perception.Contour, bool) {
	return perception.Contour{}, false
}

type staticSensors struct {
	fiducials []int
}

func (s *staticSensors) ColorImage() perception.Image { return nil }
func (s *staticSensors) DepthImage() perception.Image { return nil }
func (s *staticSensors) LidarSamples() lidar.Scan {
	return make(lidar.Scan, lidar.SamplesPerRevolution)
}
func (s *staticSensors) VisibleFiducialIDs() []int  { return s.fiducials }
func (s *staticSensors) LinearAcceleration() r3.Vec { return r3.Vec{} }
func (s *staticSensors) AngularVelocity() r3.Vec    { return r3.Vec{} }

type nopDrive struct{}

func (nopDrive) SetSpeedAndAngle(float64, float64) error { return nil }
