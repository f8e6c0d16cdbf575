package lidar

import "math"

// PointPolar is a single LIDAR return in the car frame.
type PointPolar struct {
	Azimuth  float64 // degrees clockwise from forward
	Distance float64 // centimetres
}

// PolarToCartesian converts a return to car-frame coordinates.
// Coordinate convention: X=right, Y=forward.
func PolarToCartesian(distance, azimuthDeg float64) (x, y float64) {
	rad := azimuthDeg * math.Pi / 180.0
	return distance * math.Sin(rad), distance * math.Cos(rad)
}

// Points returns every non-zero return of the scan in polar form.
func (s Scan) Points() []PointPolar {
	out := make([]PointPolar, 0, len(s))
	spd := s.SamplesPerDegree()
	for i, d := range s {
		if d > 0 {
			out = append(out, PointPolar{Azimuth: float64(i) / spd, Distance: d})
		}
	}
	return out
}
