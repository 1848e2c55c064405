package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back blank frames of a fixed size. It is used where a
// real device is unavailable and only frame geometry matters.
type MockCamera struct {
	width, height int
	remaining     int
	mu            sync.Mutex
	running       bool
	reads         int
}

// NewMockCamera returns a camera that yields count frames of width x height.
// A negative count never runs out.
func NewMockCamera(width, height, count int) *MockCamera {
	return &MockCamera{
		width:     width,
		height:    height,
		remaining: count,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	if c.remaining == 0 {
		return nil, errors.New("no more frames")
	}
	if c.remaining > 0 {
		c.remaining--
	}
	c.reads++

	frame := gocv.NewMatWithSize(c.height, c.width, gocv.MatTypeCV8UC3)
	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {}
func (c *MockCamera) FPS() int       { return DefaultFPS }
func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Reads returns how many frames were handed out.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
