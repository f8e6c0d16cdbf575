package perception

import (
	"fmt"
	"image"
)

// Crop selects the part of a frame searched for contours.
type Crop int

const (
	CropNone Crop = iota
	// CropFloor keeps the bottom half, the floor just ahead of the car.
	CropFloor
	CropTopTwoThirds
	CropBottomTwoThirds
	CropBottomThreeQuarters
	CropLeftHalf
	CropRightHalf
)

// Rect returns the region of a rows x cols frame covered by the crop, using
// x for columns and y for rows.
func (c Crop) Rect(rows, cols int) image.Rectangle {
	switch c {
	case CropFloor:
		return image.Rect(0, rows/2, cols, rows)
	case CropTopTwoThirds:
		return image.Rect(0, 0, cols, rows*2/3)
	case CropBottomTwoThirds:
		return image.Rect(0, rows/3, cols, rows)
	case CropBottomThreeQuarters:
		return image.Rect(0, rows/4, cols, rows)
	case CropLeftHalf:
		return image.Rect(0, 0, cols/2, rows)
	case CropRightHalf:
		return image.Rect(cols/2, 0, cols, rows)
	default:
		return image.Rect(0, 0, cols, rows)
	}
}

func (c Crop) String() string {
	switch c {
	case CropNone:
		return "none"
	case CropFloor:
		return "floor"
	case CropTopTwoThirds:
		return "top-2/3"
	case CropBottomTwoThirds:
		return "bottom-2/3"
	case CropBottomThreeQuarters:
		return "bottom-3/4"
	case CropLeftHalf:
		return "left-half"
	case CropRightHalf:
		return "right-half"
	}
	return fmt.Sprintf("Crop(%d)", int(c))
}

// Contour is the largest region of one colour found in a cropped frame.
// Center is the centroid within the crop; Bounds is the crop size.
type Contour struct {
	Color  Color
	Center image.Point
	Area   float64
	Bounds image.Point
}

func (c Contour) String() string {
	return fmt.Sprintf("Contour{%s center=%v area=%.0f bounds=%v}", c.Color.Name, c.Center, c.Area, c.Bounds)
}

// ContourFinder searches img, cropped by crop, for the largest contour of
// at least minArea pixels in the first of colors that yields one. A nil
// image finds nothing.
type ContourFinder interface {
	FindContour(img Image, colors []Color, crop Crop, minArea float64) (Contour, bool)
}

// DepthFinder reports the nearest depth in millimetres ahead of the car in
// a depth frame. A finder may also implement it.
type DepthFinder interface {
	ClosestDepth(img Image) (float64, bool)
}
