// Package gesture turns hand landmarks into gesture events using a fixed set
// of geometric rules.
package gesture

import (
	"errors"
	"fmt"
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

var (
	// ErrInsufficientLandmarks is returned when a hand lacks a landmark a
	// computation needs.
	ErrInsufficientLandmarks = errors.New("insufficient landmarks")

	// ErrInvalidDimensions is returned for frames without a positive width and height.
	ErrInvalidDimensions = errors.New("invalid frame dimensions")
)

// Dims are the pixel dimensions of the frame a hand was observed in.
type Dims struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (d Dims) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

// MidlineX is the horizontal center of the frame in pixels.
func (d Dims) MidlineX() float64 {
	return float64(d.Width) / 2
}

// Pixel is a landmark position scaled to frame pixels.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pair names two landmarks whose distance is of interest.
type Pair struct {
	A, B int
}

func (p Pair) String() string {
	return detector.LandmarkName(p.A) + "-" + detector.LandmarkName(p.B)
}

// Side is a horizontal position relative to the frame midline.
type Side string

const (
	SideNone   Side = ""
	SideLeft   Side = "left"
	SideRight  Side = "right"
	SideCenter Side = "center"
)

// Features holds the pixel-space geometry of one hand.
type Features struct {
	Dims      Dims
	Positions []Pixel
	Distances map[Pair]float64
}

// Extract scales the hand to pixel space and computes the distance for each
// requested pair. It fails with ErrInsufficientLandmarks when a pair refers to
// a landmark the hand does not carry.
func Extract(hand detector.HandLandmarks, dims Dims, pairs ...Pair) (Features, error) {
	if !dims.Valid() {
		return Features{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, dims.Width, dims.Height)
	}

	f := Features{
		Dims:      dims,
		Positions: make([]Pixel, len(hand.Points)),
		Distances: make(map[Pair]float64, len(pairs)),
	}
	for i, p := range hand.Points {
		f.Positions[i] = Pixel{
			X: p.X * float64(dims.Width),
			Y: p.Y * float64(dims.Height),
		}
	}

	for _, pair := range pairs {
		d, err := f.Distance(pair.A, pair.B)
		if err != nil {
			return Features{}, err
		}
		f.Distances[pair] = d
	}
	return f, nil
}

// Has reports whether every listed landmark is present.
func (f Features) Has(indices ...int) bool {
	for _, i := range indices {
		if i < 0 || i >= len(f.Positions) {
			return false
		}
	}
	return true
}

// Position returns the pixel position of a landmark.
func (f Features) Position(index int) (Pixel, error) {
	if !f.Has(index) {
		return Pixel{}, fmt.Errorf("%w: %s", ErrInsufficientLandmarks, detector.LandmarkName(index))
	}
	return f.Positions[index], nil
}

// Distance returns the Euclidean pixel distance between two landmarks.
func (f Features) Distance(a, b int) (float64, error) {
	if d, ok := f.Distances[Pair{a, b}]; ok {
		return d, nil
	}
	pa, err := f.Position(a)
	if err != nil {
		return 0, err
	}
	pb, err := f.Position(b)
	if err != nil {
		return 0, err
	}
	return math.Hypot(pa.X-pb.X, pa.Y-pb.Y), nil
}

// VerticalOffset returns the landmark's Y minus the wrist's Y in pixels.
// Negative values are above the wrist.
func (f Features) VerticalOffset(index int) (float64, error) {
	wrist, err := f.Position(detector.Wrist)
	if err != nil {
		return 0, err
	}
	p, err := f.Position(index)
	if err != nil {
		return 0, err
	}
	return p.Y - wrist.Y, nil
}

// SideOf reports which side of the frame midline a landmark is on.
func (f Features) SideOf(index int) (Side, error) {
	p, err := f.Position(index)
	if err != nil {
		return SideNone, err
	}
	mid := f.Dims.MidlineX()
	switch {
	case p.X < mid:
		return SideLeft, nil
	case p.X > mid:
		return SideRight, nil
	default:
		return SideCenter, nil
	}
}
