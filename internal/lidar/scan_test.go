package lidar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// uniformScan returns a 720 sample scan reading d everywhere.
func uniformScan(d float64) Scan {
	s := make(Scan, SamplesPerRevolution)
	for i := range s {
		s[i] = d
	}
	return s
}

// setArc writes d into every sample from startDeg to endDeg inclusive.
func setArc(s Scan, startDeg, endDeg, d float64) {
	for a := startDeg; a <= endDeg; a += 0.5 {
		s[s.index(a)] = d
	}
}

func TestScan_AverageDistance(t *testing.T) {
	t.Parallel()
	s := uniformScan(100)
	setArc(s, 40, 70, 80)
	setArc(s, 290, 320, 120)

	assert.InDelta(t, 80, s.AverageDistance(55, 30), 1e-9)
	assert.InDelta(t, 120, s.AverageDistance(305, 30), 1e-9)
	assert.InDelta(t, 100, s.AverageDistance(0, 2), 1e-9)
}

func TestScan_AverageDistanceWrapsThroughForward(t *testing.T) {
	t.Parallel()
	s := make(Scan, SamplesPerRevolution)
	s[s.index(359)] = 30
	s[s.index(1)] = 50

	assert.InDelta(t, 40, s.AverageDistance(0, 4), 1e-9)
	assert.InDelta(t, 40, s.AverageDistance(360, 4), 1e-9)
}

func TestScan_AverageDistanceIgnoresMissingReturns(t *testing.T) {
	t.Parallel()
	s := make(Scan, SamplesPerRevolution)
	assert.Equal(t, 0.0, s.AverageDistance(90, 20))

	s[s.index(90)] = 64
	assert.Equal(t, 64.0, s.AverageDistance(90, 20))

	var empty Scan
	assert.Equal(t, 0.0, empty.AverageDistance(0, 10))
}

func TestScan_ClosestPoint(t *testing.T) {
	t.Parallel()
	s := uniformScan(200)
	s[s.index(10.5)] = 35
	s[s.index(180)] = 5

	angle, dist, ok := s.ClosestPoint(-20, 20)
	assert.True(t, ok)
	assert.Equal(t, 10.5, angle)
	assert.Equal(t, 35.0, dist)

	_, _, ok = make(Scan, SamplesPerRevolution).ClosestPoint(0, 90)
	assert.False(t, ok)
}

func TestScan_FullRevolutionWindow(t *testing.T) {
	t.Parallel()
	s := uniformScan(100)
	s[0] = 10

	assert.Len(t, s.Window(-180, 180), SamplesPerRevolution)
	assert.Len(t, s.Window(0, 400), SamplesPerRevolution)
	assert.InDelta(t, (719*100.0+10)/720, s.AverageDistance(0, 360), 1e-9)

	angle, d, ok := s.ClosestPoint(90, 450)
	assert.True(t, ok)
	assert.Equal(t, 0.0, angle)
	assert.Equal(t, 10.0, d)
}

func TestPolarToCartesian(t *testing.T) {
	t.Parallel()
	x, y := PolarToCartesian(100, 90)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	x, y = PolarToCartesian(50, 0)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 50, y, 1e-9)
}

func TestScan_Points(t *testing.T) {
	t.Parallel()
	s := make(Scan, SamplesPerRevolution)
	s[s.index(45)] = 10
	pts := s.Points()
	if assert.Len(t, pts, 1) {
		assert.Equal(t, 45.0, pts[0].Azimuth)
		assert.False(t, math.IsNaN(pts[0].Distance))
	}
}
