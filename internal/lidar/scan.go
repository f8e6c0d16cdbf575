package lidar

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SamplesPerRevolution is the scan length produced by the car's LIDAR: two
// samples per degree, index 0 pointing straight ahead and angles increasing
// clockwise.
const SamplesPerRevolution = 720

// Scan is one revolution of range readings in centimetres. A zero reading
// means no return.
type Scan []float64

// SamplesPerDegree returns the angular resolution of the scan.
func (s Scan) SamplesPerDegree() float64 {
	return float64(len(s)) / 360
}

// index maps an angle in degrees to a sample index, wrapping around the
// revolution.
func (s Scan) index(angleDeg float64) int {
	n := len(s)
	i := int(math.Round(normalizeDegrees(angleDeg)*s.SamplesPerDegree())) % n
	if i < 0 {
		i += n
	}
	return i
}

// span returns the first index and the number of extra samples covered
// walking clockwise from start to end. A span of 360 degrees or more covers
// the whole revolution.
func (s Scan) span(startDeg, endDeg float64) (first, extra int) {
	first = s.index(startDeg)
	if endDeg-startDeg >= 360 {
		return first, len(s) - 1
	}
	extra = s.index(endDeg) - first
	if extra < 0 {
		extra += len(s)
	}
	return first, extra
}

// Window returns the non-zero readings between start and end degrees,
// walking clockwise and wrapping through forward.
func (s Scan) Window(startDeg, endDeg float64) []float64 {
	if len(s) == 0 {
		return nil
	}
	first, extra := s.span(startDeg, endDeg)
	out := make([]float64, 0, extra+1)
	for k := 0; k <= extra; k++ {
		if v := s[(first+k)%len(s)]; v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// AverageDistance returns the mean of the non-zero readings in a window of
// windowDeg degrees centred on angleDeg, or zero when the window has no
// returns.
func (s Scan) AverageDistance(angleDeg, windowDeg float64) float64 {
	samples := s.Window(angleDeg-windowDeg/2, angleDeg+windowDeg/2)
	if len(samples) == 0 {
		return 0
	}
	return stat.Mean(samples, nil)
}

// ClosestPoint returns the angle and distance of the nearest return between
// start and end degrees. ok is false when the window has no returns.
func (s Scan) ClosestPoint(startDeg, endDeg float64) (angleDeg, distance float64, ok bool) {
	if len(s) == 0 {
		return 0, 0, false
	}
	first, extra := s.span(startDeg, endDeg)
	distance = math.Inf(1)
	for k := 0; k <= extra; k++ {
		i := (first + k) % len(s)
		if v := s[i]; v > 0 && v < distance {
			distance = v
			angleDeg = float64(i) / s.SamplesPerDegree()
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return angleDeg, distance, true
}

func normalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}
