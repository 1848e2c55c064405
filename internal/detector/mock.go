package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalmLandmarks returns a preset hand with all fingers extended upward and
// spread apart. Every fingertip is above the wrist and, in a 640x480 frame,
// adjacent fingertips are more than 50px apart.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := NewHandLandmarks("Right", 0.95)

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}

	// Thumb extended to the side
	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42}

	return landmarks
}

// ClosedPalmLandmarks returns a preset hand pointing downward: the wrist is
// high in the frame and index, middle, ring and pinky tips hang below it.
// The fingers are kept close together.
func ClosedPalmLandmarks() HandLandmarks {
	landmarks := NewHandLandmarks("Right", 0.93)

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.3}

	// Thumb tucked beside the palm, above the wrist
	landmarks.Points[ThumbCMC] = Point3D{X: 0.53, Y: 0.31}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.55, Y: 0.30}
	landmarks.Points[ThumbIP] = Point3D{X: 0.56, Y: 0.29}
	landmarks.Points[ThumbTip] = Point3D{X: 0.57, Y: 0.28}

	for i, x := range []float64{0.53, 0.51, 0.49, 0.47} {
		base := IndexMCP + i*4
		landmarks.Points[base] = Point3D{X: x, Y: 0.40}
		landmarks.Points[base+1] = Point3D{X: x, Y: 0.46}
		landmarks.Points[base+2] = Point3D{X: x, Y: 0.50}
		landmarks.Points[base+3] = Point3D{X: x, Y: 0.54}
	}

	return landmarks
}

// PinchLandmarks returns a preset hand whose thumb and index tips are pinched
// around centerX, separated horizontally by spread (normalized units). The
// remaining fingers are curled below the wrist so neither palm rule matches.
func PinchLandmarks(centerX, spread float64) HandLandmarks {
	landmarks := NewHandLandmarks("Right", 0.9)

	landmarks.Points[Wrist] = Point3D{X: centerX, Y: 0.7}

	landmarks.Points[ThumbCMC] = Point3D{X: centerX - 0.03, Y: 0.66}
	landmarks.Points[ThumbMCP] = Point3D{X: centerX - 0.04, Y: 0.60}
	landmarks.Points[ThumbIP] = Point3D{X: centerX - 0.04, Y: 0.55}
	landmarks.Points[ThumbTip] = Point3D{X: centerX - spread/2, Y: 0.5}

	landmarks.Points[IndexMCP] = Point3D{X: centerX + 0.02, Y: 0.62}
	landmarks.Points[IndexPIP] = Point3D{X: centerX + 0.03, Y: 0.56}
	landmarks.Points[IndexDIP] = Point3D{X: centerX + 0.02, Y: 0.52}
	landmarks.Points[IndexTip] = Point3D{X: centerX + spread/2, Y: 0.5}

	for i, dx := range []float64{0.0, -0.02, -0.04} {
		base := MiddleMCP + i*4
		landmarks.Points[base] = Point3D{X: centerX + dx, Y: 0.64}
		landmarks.Points[base+1] = Point3D{X: centerX + dx, Y: 0.68}
		landmarks.Points[base+2] = Point3D{X: centerX + dx, Y: 0.71}
		landmarks.Points[base+3] = Point3D{X: centerX + dx, Y: 0.72}
	}

	return landmarks
}

// LevelLandmarks returns a preset hand whose fingertips all share the wrist's
// vertical position, the boundary case between an open and a closed palm.
func LevelLandmarks() HandLandmarks {
	landmarks := OpenPalmLandmarks()
	wrist := landmarks.Points[Wrist]
	for _, tip := range FingerTips {
		landmarks.Points[tip].Y = wrist.Y
	}
	return landmarks
}
