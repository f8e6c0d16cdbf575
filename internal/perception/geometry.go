package perception

import (
	"image"
	"math"
)

// PolygonArea returns the unsigned area of a closed polygon.
func PolygonArea(points []image.Point) float64 {
	return math.Abs(signedArea(points))
}

func signedArea(points []image.Point) float64 {
	var a float64
	for i := range points {
		p, q := points[i], points[(i+1)%len(points)]
		a += float64(p.X*q.Y - q.X*p.Y)
	}
	return a / 2
}

// Centroid returns the centre of mass of a closed polygon, rounded to the
// nearest pixel. Degenerate polygons fall back to the mean of their
// vertices.
func Centroid(points []image.Point) image.Point {
	if len(points) == 0 {
		return image.Point{}
	}
	a := signedArea(points)
	if a == 0 {
		var sx, sy float64
		for _, p := range points {
			sx += float64(p.X)
			sy += float64(p.Y)
		}
		n := float64(len(points))
		return image.Pt(int(math.Round(sx/n)), int(math.Round(sy/n)))
	}

	var cx, cy float64
	for i := range points {
		p, q := points[i], points[(i+1)%len(points)]
		cross := float64(p.X*q.Y - q.X*p.Y)
		cx += float64(p.X+q.X) * cross
		cy += float64(p.Y+q.Y) * cross
	}
	return image.Pt(int(math.Round(cx/(6*a))), int(math.Round(cy/(6*a))))
}
