// Package detector provides hand landmark types and the detectors that produce them.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// FingerTips lists the five fingertip indices from thumb to pinky.
var FingerTips = [5]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

var landmarkNames = [NumLandmarks]string{
	"wrist",
	"thumb_cmc", "thumb_mcp", "thumb_ip", "thumb_tip",
	"index_mcp", "index_pip", "index_dip", "index_tip",
	"middle_mcp", "middle_pip", "middle_dip", "middle_tip",
	"ring_mcp", "ring_pip", "ring_dip", "ring_tip",
	"pinky_mcp", "pinky_pip", "pinky_dip", "pinky_tip",
}

// LandmarkName returns the snake_case name of a landmark index, or "unknown".
func LandmarkName(index int) string {
	if index < 0 || index >= NumLandmarks {
		return "unknown"
	}
	return landmarkNames[index]
}

// Point3D is a landmark position. X and Y are normalized to [0,1] relative to
// the frame width and height; Z is the relative depth and may be zero.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one detected hand. Points are indexed by the MediaPipe
// landmark constants above. A partially tracked hand carries fewer than
// NumLandmarks points.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"` // "Left" or "Right"
	Score      float64   `json:"score"`
}

// NewHandLandmarks returns a hand with all NumLandmarks points allocated.
func NewHandLandmarks(handedness string, score float64) HandLandmarks {
	return HandLandmarks{
		Points:     make([]Point3D, NumLandmarks),
		Handedness: handedness,
		Score:      score,
	}
}

// Point returns the landmark at index and whether the hand carries it.
func (h HandLandmarks) Point(index int) (Point3D, bool) {
	if index < 0 || index >= len(h.Points) {
		return Point3D{}, false
	}
	return h.Points[index], true
}

// Has reports whether every listed landmark is present.
func (h HandLandmarks) Has(indices ...int) bool {
	for _, i := range indices {
		if i < 0 || i >= len(h.Points) {
			return false
		}
	}
	return true
}

// Complete reports whether all NumLandmarks points are present.
func (h HandLandmarks) Complete() bool {
	return len(h.Points) >= NumLandmarks
}

// Mirror returns a copy of the hand flipped horizontally, as seen in a
// mirrored (selfie) view. Handedness is swapped to match.
func (h HandLandmarks) Mirror() HandLandmarks {
	out := HandLandmarks{
		Points:     make([]Point3D, len(h.Points)),
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i, p := range h.Points {
		out.Points[i] = Point3D{X: 1 - p.X, Y: p.Y, Z: p.Z}
	}
	switch h.Handedness {
	case "Left":
		out.Handedness = "Right"
	case "Right":
		out.Handedness = "Left"
	}
	return out
}
