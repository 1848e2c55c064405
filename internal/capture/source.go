package capture

import (
	"context"
	"fmt"
	"time"

	log "github.com/echocat/slf4g"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/pipeline"
)

// CameraSource reads frames from a camera and runs them through a landmark
// detector. It implements pipeline.Source.
type CameraSource struct {
	camera   Camera
	detector detector.Detector
	mirror   bool
	now      func() time.Time
	seq      uint64
}

// NewCameraSource pairs camera with det. With mirror set, landmarks are
// flipped horizontally so the user sees a selfie view.
func NewCameraSource(camera Camera, det detector.Detector, mirror bool) *CameraSource {
	return &CameraSource{
		camera:   camera,
		detector: det,
		mirror:   mirror,
		now:      time.Now,
	}
}

// Next blocks until the camera yields a frame. A failed read ends the
// stream with ErrInputExhausted. A failed detection yields a frame without
// hands so a single bad frame does not stop the loop.
func (s *CameraSource) Next(ctx context.Context) (pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}

	mat, err := s.camera.ReadFrame()
	if err != nil {
		return pipeline.Frame{}, fmt.Errorf("%w: %v", ErrInputExhausted, err)
	}
	defer mat.Close()

	s.seq++
	frame := pipeline.Frame{
		Seq:       s.seq,
		Dims:      gesture.Dims{Width: mat.Cols(), Height: mat.Rows()},
		Timestamp: s.now(),
	}

	hands, err := s.detector.Detect(mat)
	if err != nil {
		log.With("seq", s.seq).
			WithError(err).
			Warn("Hand detection failed.")
		return frame, nil
	}

	if s.mirror {
		mirrored := make([]detector.HandLandmarks, len(hands))
		for i, h := range hands {
			mirrored[i] = h.Mirror()
		}
		hands = mirrored
	}
	frame.Hands = hands
	return frame, nil
}

// Close releases the camera and the detector.
func (s *CameraSource) Close() error {
	camErr := s.camera.Close()
	if err := s.detector.Close(); err != nil {
		return err
	}
	return camErr
}
