package perception

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolygonArea(t *testing.T) {
	square := []image.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.Equal(t, 100.0, PolygonArea(square))

	// Winding order does not matter.
	reversed := []image.Point{{0, 10}, {10, 10}, {10, 0}, {0, 0}}
	assert.Equal(t, 100.0, PolygonArea(reversed))

	assert.Equal(t, 0.0, PolygonArea(nil))
}

func TestCentroid(t *testing.T) {
	tests := []struct {
		name   string
		points []image.Point
		want   image.Point
	}{
		{"empty", nil, image.Point{}},
		{"rectangle", []image.Point{{300, 60}, {340, 60}, {340, 160}, {300, 160}}, image.Pt(320, 110)},
		{"triangle", []image.Point{{0, 0}, {30, 0}, {0, 30}}, image.Pt(10, 10)},
		{"line", []image.Point{{0, 0}, {10, 0}}, image.Pt(5, 0)},
		{"point", []image.Point{{7, 3}}, image.Pt(7, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Centroid(tt.points))
		})
	}
}
