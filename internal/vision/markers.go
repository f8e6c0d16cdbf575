package vision

import (
	"gocv.io/x/gocv"

	"github.com/banshee-data/racecar/internal/perception"
)

// MarkerDetector finds ArUco fiducials in colour frames.
type MarkerDetector struct {
	detector gocv.ArucoDetector
}

// NewMarkerDetector uses the 4x4 dictionary the course markers are printed
// from. Close releases it.
func NewMarkerDetector() *MarkerDetector {
	dict := gocv.GetPredefinedDictionary(gocv.ArucoDict4x4_50)
	params := gocv.NewArucoDetectorParameters()
	return &MarkerDetector{detector: gocv.NewArucoDetectorWithParams(dict, params)}
}

// Detect returns the IDs of the markers visible in img.
func (m *MarkerDetector) Detect(img perception.Image) []int {
	mat, ok := asMat(img)
	if !ok {
		return nil
	}
	_, ids, _ := m.detector.DetectMarkers(*mat)
	return ids
}

func (m *MarkerDetector) Close() error {
	m.detector.Close()
	return nil
}
