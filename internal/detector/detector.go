package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand landmark extraction.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int `koanf:"max_hands" yaml:"max_hands"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `koanf:"min_confidence" yaml:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `koanf:"min_tracking_confidence" yaml:"min_tracking_confidence"`

	// Script is the path of the MediaPipe service script. Empty means the
	// well-known locations are searched.
	Script string `koanf:"script" yaml:"script,omitempty"`

	// Python is the interpreter used to run Script. Empty means a local
	// virtualenv is searched before falling back to python3.
	Python string `koanf:"python" yaml:"python,omitempty"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.7,
		MinTrackingConf: 0.7,
	}
}
