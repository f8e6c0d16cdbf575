package vision

import (
	"gocv.io/x/gocv"

	"github.com/banshee-data/racecar/internal/perception"
)

// ClosestDepth returns the nearest non-zero depth in millimetres within the
// top two-thirds of a 16-bit depth frame. The bottom third sees the floor.
func ClosestDepth(img perception.Image) (float64, bool) {
	mat, ok := asMat(img)
	if !ok || mat.Type() != gocv.MatTypeCV16UC1 || !mat.IsContinuous() {
		return 0, false
	}
	pixels, err := mat.DataPtrUint16()
	if err != nil {
		return 0, false
	}
	cols := mat.Cols()
	rect := perception.CropTopTwoThirds.Rect(mat.Rows(), cols)

	closest := uint16(0)
	for row := rect.Min.Y; row < rect.Max.Y; row++ {
		for _, d := range pixels[row*cols+rect.Min.X : row*cols+rect.Max.X] {
			if d != 0 && (closest == 0 || d < closest) {
				closest = d
			}
		}
	}
	return float64(closest), closest != 0
}

// ClosestDepth implements perception.DepthFinder.
func (Finder) ClosestDepth(img perception.Image) (float64, bool) {
	return ClosestDepth(img)
}
