// Package perception defines the per-tick view of the world handed to
// driving behaviors, and the boundary to the image-processing code that
// extracts contours from camera frames.
package perception

import (
	"slices"

	"github.com/banshee-data/racecar/internal/lidar"
)

// Image is the minimal view of a camera frame the behaviors need. Pixel
// access stays behind the ContourFinder.
type Image interface {
	Rows() int
	Cols() int
}

// Snapshot is everything sensed in one control tick. ColorImage and
// DepthImage are nil on a missed frame. Behaviors only read it.
type Snapshot struct {
	ColorImage Image
	DepthImage Image
	Lidar      lidar.Scan
	Fiducials  []int
}

// VisibleIDs returns the sorted, de-duplicated fiducial marker IDs in view.
func (s Snapshot) VisibleIDs() []int {
	ids := slices.Clone(s.Fiducials)
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Sees reports whether the fiducial marker id is in view.
func (s Snapshot) Sees(id int) bool {
	return slices.Contains(s.Fiducials, id)
}

// Width returns the colour image width in pixels, or zero on a missed frame.
func (s Snapshot) Width() int {
	if s.ColorImage == nil {
		return 0
	}
	return s.ColorImage.Cols()
}

// Height returns the colour image height in pixels, or zero on a missed frame.
func (s Snapshot) Height() int {
	if s.ColorImage == nil {
		return 0
	}
	return s.ColorImage.Rows()
}
