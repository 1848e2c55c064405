package capture

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/pipeline"
)

// Record is one line of a recorded session. T is the offset from the start
// of the session in milliseconds.
type Record struct {
	T      int64                    `json:"t"`
	Width  int                      `json:"width,omitempty"`
	Height int                      `json:"height,omitempty"`
	Hands  []detector.HandLandmarks `json:"hands"`
}

// ReplayOption configures a ReplaySource.
type ReplayOption func(*ReplaySource)

// WithPacing makes Next wait until each record is due relative to the first
// one, reproducing the session's original timing.
func WithPacing(enabled bool) ReplayOption {
	return func(s *ReplaySource) {
		s.paced = enabled
	}
}

// WithStart sets the wall time that offset 0 maps to.
func WithStart(start time.Time) ReplayOption {
	return func(s *ReplaySource) {
		s.start = start
	}
}

// WithDims sets the frame size used by records that do not carry one.
func WithDims(dims gesture.Dims) ReplayOption {
	return func(s *ReplaySource) {
		s.dims = dims
	}
}

// ReplaySource plays back a JSON-lines session. Blank lines and lines
// starting with '#' are skipped. It implements pipeline.Source.
type ReplaySource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	start   time.Time
	began   time.Time
	dims    gesture.Dims
	paced   bool
	line    int
	seq     uint64
}

// NewReplaySource reads a session from r.
func NewReplaySource(r io.Reader, opts ...ReplayOption) *ReplaySource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	s := &ReplaySource{
		scanner: scanner,
		start:   time.Now(),
		dims:    gesture.Dims{Width: DefaultWidth, Height: DefaultHeight},
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenReplay opens a session file.
func OpenReplay(path string, opts ...ReplayOption) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	return NewReplaySource(f, opts...), nil
}

// Next returns the next record as a frame. The end of the session is
// reported as ErrInputExhausted; a malformed line ends it with a parse error.
func (s *ReplaySource) Next(ctx context.Context) (pipeline.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.Frame{}, err
	}

	rec, err := s.nextRecord()
	if err != nil {
		return pipeline.Frame{}, err
	}

	if s.paced {
		if err := s.wait(ctx, rec.T); err != nil {
			return pipeline.Frame{}, err
		}
	}

	if rec.Width > 0 && rec.Height > 0 {
		s.dims = gesture.Dims{Width: rec.Width, Height: rec.Height}
	}

	s.seq++
	return pipeline.Frame{
		Seq:       s.seq,
		Dims:      s.dims,
		Hands:     rec.Hands,
		Timestamp: s.start.Add(time.Duration(rec.T) * time.Millisecond),
	}, nil
}

func (s *ReplaySource) nextRecord() (Record, error) {
	for s.scanner.Scan() {
		s.line++
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return Record{}, fmt.Errorf("replay line %d: %w", s.line, err)
		}
		return rec, nil
	}
	if err := s.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("read replay: %w", err)
	}
	return Record{}, ErrInputExhausted
}

func (s *ReplaySource) wait(ctx context.Context, offsetMs int64) error {
	if s.began.IsZero() {
		s.began = time.Now()
	}
	delay := time.Until(s.began.Add(time.Duration(offsetMs) * time.Millisecond))
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the underlying reader if it is closable.
func (s *ReplaySource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
