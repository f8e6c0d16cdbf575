package behavior

import (
	"image"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/racecar/internal/control"
	"github.com/banshee-data/racecar/internal/lidar"
	"github.com/banshee-data/racecar/internal/perception"
	"github.com/banshee-data/racecar/internal/timeutil"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

const tick = 16 * time.Millisecond

type frame struct{ rows, cols int }

func (f frame) Rows() int { return f.rows }
func (f frame) Cols() int { return f.cols }

var vga = frame{rows: 480, cols: 640}

// fakeFinder returns a canned contour per crop, honouring the colour list,
// and a canned depth reading.
type fakeFinder struct {
	results map[perception.Crop]perception.Contour
	depth   float64 // mm; 0 sees nothing
}

func newFakeFinder() *fakeFinder {
	return &fakeFinder{results: map[perception.Crop]perception.Contour{}}
}

func (f *fakeFinder) FindContour(img perception.Image, colors []perception.Color, crop perception.Crop, minArea float64) (perception.Contour, bool) {
	if img == nil {
		return perception.Contour{}, false
	}
	c, ok := f.results[crop]
	if !ok || c.Area < minArea || !slices.Contains(colors, c.Color) {
		return perception.Contour{}, false
	}
	return c, true
}

func (f *fakeFinder) ClosestDepth(img perception.Image) (float64, bool) {
	if img == nil || f.depth == 0 {
		return 0, false
	}
	return f.depth, true
}

func (f *fakeFinder) set(crop perception.Crop, c perception.Contour) { f.results[crop] = c }
func (f *fakeFinder) clear(crop perception.Crop)                     { delete(f.results, crop) }

// contourAt places a contour of color at column x of the crop of a VGA frame.
func contourAt(color perception.Color, crop perception.Crop, x int, area float64) perception.Contour {
	r := crop.Rect(vga.rows, vga.cols)
	return perception.Contour{
		Color:  color,
		Center: image.Pt(x, r.Dy()/2),
		Area:   area,
		Bounds: image.Pt(r.Dx(), r.Dy()),
	}
}

// testParams are the defaults with derivative and integral gains removed so
// outputs are exact multiples of the error.
func testParams() Params {
	p := DefaultParams()
	p.LineGains = control.PIDConstants{Kp: 1}
	p.LaneGains = control.PIDConstants{Kp: 1}
	p.ConeGains = control.PIDConstants{Kp: 0.5}
	p.CenterWallGains = control.PIDConstants{Kp: 0.01}
	p.SideWallGains = control.PIDConstants{Kp: 0.0035}
	return p
}

func newTestBuilder(t *testing.T) (*Builder, *fakeFinder, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(epoch)
	finder := newFakeFinder()
	b, err := NewBuilder(clock, finder, testParams())
	require.NoError(t, err)
	return b, finder, clock
}

// wallScan reads right cm on the right side, left cm on the left side and
// ahead cm in front.
func wallScan(left, right, ahead float64) lidar.Scan {
	s := make(lidar.Scan, lidar.SamplesPerRevolution)
	for i := range s {
		deg := float64(i) / 2
		switch {
		case deg >= 20 && deg <= 90:
			s[i] = right
		case deg >= 270 && deg <= 340:
			s[i] = left
		default:
			s[i] = ahead
		}
	}
	return s
}
