package perception

import (
	"fmt"
	"strings"
)

// HSV is a colour in OpenCV's HSV scale: hue 0-179, saturation and value
// 0-255.
type HSV struct {
	H, S, V float64
}

// Color is a named HSV range used for thresholding.
type Color struct {
	Name  string
	Lower HSV
	Upper HSV
}

func (c Color) String() string { return c.Name }

// Palette of the course colours, measured on the car's camera.
var (
	Yellow = Color{Name: "yellow", Lower: HSV{10, 120, 150}, Upper: HSV{30, 255, 255}}
	Blue   = Color{Name: "blue", Lower: HSV{71, 75, 150}, Upper: HSV{111, 255, 255}}
	Green  = Color{Name: "green", Lower: HSV{30, 160, 150}, Upper: HSV{90, 255, 255}}
	Orange = Color{Name: "orange", Lower: HSV{0, 125, 200}, Upper: HSV{16, 255, 255}}
	Purple = Color{Name: "purple", Lower: HSV{100, 90, 70}, Upper: HSV{160, 255, 255}}
	Red    = Color{Name: "red", Lower: HSV{130, 40, 160}, Upper: HSV{179, 255, 255}}
)

var palette = []Color{Yellow, Blue, Green, Orange, Purple, Red}

// ColorByName looks up a palette colour, ignoring case.
func ColorByName(name string) (Color, error) {
	for _, c := range palette {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c, nil
		}
	}
	return Color{}, fmt.Errorf("unknown color %q", name)
}

// ColorsByName resolves a priority list of colour names.
func ColorsByName(names []string) ([]Color, error) {
	out := make([]Color, 0, len(names))
	for _, n := range names {
		c, err := ColorByName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
