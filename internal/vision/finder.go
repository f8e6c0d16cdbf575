// Package vision implements the perception boundary with OpenCV through
// gocv: colour contour search, ArUco markers, depth lookups and camera
// capture. Frames are *gocv.Mat values holding BGR (colour) or 16-bit
// millimetre (depth) pixels.
package vision

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/banshee-data/racecar/internal/perception"
)

// Finder implements perception.ContourFinder and perception.DepthFinder
// over *gocv.Mat frames.
type Finder struct{}

var (
	_ perception.ContourFinder = Finder{}
	_ perception.DepthFinder   = Finder{}
)

// asMat unwraps a frame, rejecting anything that is not a non-empty Mat.
func asMat(img perception.Image) (*gocv.Mat, bool) {
	mat, ok := img.(*gocv.Mat)
	if !ok || mat == nil || mat.Empty() {
		return nil, false
	}
	return mat, true
}

func scalar(c perception.HSV) gocv.Scalar {
	return gocv.NewScalar(c.H, c.S, c.V, 0)
}

// FindContour thresholds the cropped frame against each colour in turn and
// returns the largest contour of the first colour that has one of at least
// minArea pixels.
func (Finder) FindContour(img perception.Image, colors []perception.Color, crop perception.Crop, minArea float64) (perception.Contour, bool) {
	mat, ok := asMat(img)
	if !ok {
		return perception.Contour{}, false
	}
	rect := crop.Rect(mat.Rows(), mat.Cols())
	if rect.Empty() {
		return perception.Contour{}, false
	}

	region := mat.Region(rect)
	defer region.Close()
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(region, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	for _, c := range colors {
		gocv.InRangeWithScalar(hsv, scalar(c.Lower), scalar(c.Upper), &mask)
		points, area, found := largestContour(mask)
		if !found || area < minArea {
			continue
		}
		return perception.Contour{
			Color:  c,
			Center: perception.Centroid(points),
			Area:   area,
			Bounds: rect.Size(),
		}, true
	}
	return perception.Contour{}, false
}

// largestContour returns the outline and area of the biggest external
// contour in a binary mask.
func largestContour(mask gocv.Mat) ([]image.Point, float64, bool) {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best, bestArea := -1, 0.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if best < 0 || area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return nil, 0, false
	}
	return contours.At(best).ToPoints(), bestArea, true
}
