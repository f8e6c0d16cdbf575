package hardware

import (
	"slices"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/racecar/internal/lidar"
	"github.com/banshee-data/racecar/internal/perception"
)

// FrameSource returns the most recent camera frame, or nil if none is ready.
type FrameSource interface {
	Frame() perception.Image
}

// MarkerDetector finds fiducial marker IDs in a colour frame.
type MarkerDetector interface {
	Detect(img perception.Image) []int
}

// Rig combines the bridge with the cameras into the full sensor set the
// control loop reads. Missing sources read as absent data.
type Rig struct {
	Bridge  *Bridge
	Color   FrameSource
	Depth   FrameSource
	Markers MarkerDetector

	mu        sync.Mutex
	lastColor perception.Image
}

// ColorImage grabs the latest colour frame.
func (r *Rig) ColorImage() perception.Image {
	var img perception.Image
	if r.Color != nil {
		img = r.Color.Frame()
	}
	r.mu.Lock()
	r.lastColor = img
	r.mu.Unlock()
	return img
}

// DepthImage grabs the latest depth frame.
func (r *Rig) DepthImage() perception.Image {
	if r.Depth == nil {
		return nil
	}
	return r.Depth.Frame()
}

// VisibleFiducialIDs detects markers in the frame last returned by
// ColorImage.
func (r *Rig) VisibleFiducialIDs() []int {
	r.mu.Lock()
	img := r.lastColor
	r.mu.Unlock()
	if r.Markers == nil || img == nil {
		return nil
	}
	ids := r.Markers.Detect(img)
	slices.Sort(ids)
	return slices.Compact(ids)
}

func (r *Rig) LidarSamples() lidar.Scan   { return r.Bridge.LidarSamples() }
func (r *Rig) LinearAcceleration() r3.Vec { return r.Bridge.LinearAcceleration() }
func (r *Rig) AngularVelocity() r3.Vec    { return r.Bridge.AngularVelocity() }
