package vision

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/banshee-data/racecar/internal/perception"
)

// Camera reads frames from a capture device. Frame reuses one buffer, so a
// returned frame is only valid until the next call.
type Camera struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
	name    string
}

// OpenCamera opens a device index or a stream/file path.
func OpenCamera(device interface{}) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %v: %w", device, err)
	}
	return &Camera{capture: capture, frame: gocv.NewMat(), name: fmt.Sprint(device)}, nil
}

// Frame grabs the next frame, or returns nil if the device delivered none.
func (c *Camera) Frame() perception.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok := c.capture.Read(&c.frame); !ok || c.frame.Empty() {
		return nil
	}
	return &c.frame
}

func (c *Camera) String() string { return "camera " + c.name }

func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.Close()
	return c.capture.Close()
}
