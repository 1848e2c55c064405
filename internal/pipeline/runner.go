package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/echocat/slf4g"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Frame is one observation from a frame source.
type Frame struct {
	Seq       uint64
	Dims      gesture.Dims
	Hands     []detector.HandLandmarks
	Timestamp time.Time
}

// Source produces frames. Next blocks until a frame is available. Any error
// ends the stream; io.EOF marks a clean end.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// Observer receives every frame report. Observe is called from the
// processing goroutine and should return quickly.
type Observer interface {
	Observe(ctx context.Context, r Report)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, r Report)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, r Report) {
	f(ctx, r)
}

// DropObserver is optionally implemented by observers that want to know
// about frames replaced in the mailbox before they were processed.
type DropObserver interface {
	ObserveDrop()
}

// RunnerStats are lifetime counters of a Runner.
type RunnerStats struct {
	Frames    uint64 `json:"frames"`
	Processed uint64 `json:"processed"`
	Skipped   uint64 `json:"skipped"`
	Dropped   uint64 `json:"dropped"`
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithDropStale makes the runner read frames on a separate goroutine and
// hand them over through a latest-wins mailbox, so a slow frame never delays
// the next capture.
func WithDropStale(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.dropStale = enabled
	}
}

// WithObserver adds an observer for frame reports.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// WithClock sets the clock used for frames without a timestamp.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// Runner pulls frames from a Source and feeds them to a Processor.
type Runner struct {
	source    Source
	processor *Processor
	observers []Observer
	dropStale bool
	now       func() time.Time

	enabled   atomic.Bool
	frames    atomic.Uint64
	processed atomic.Uint64
	skipped   atomic.Uint64
	dropped   atomic.Uint64
}

// NewRunner creates an enabled Runner.
func NewRunner(source Source, processor *Processor, opts ...RunnerOption) *Runner {
	r := &Runner{
		source:    source,
		processor: processor,
		now:       time.Now,
	}
	r.enabled.Store(true)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetEnabled toggles processing. Frames read while disabled are discarded.
func (r *Runner) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
}

// Enabled reports whether frames are processed.
func (r *Runner) Enabled() bool {
	return r.enabled.Load()
}

// Stats returns the runner counters.
func (r *Runner) Stats() RunnerStats {
	return RunnerStats{
		Frames:    r.frames.Load(),
		Processed: r.processed.Load(),
		Skipped:   r.skipped.Load(),
		Dropped:   r.dropped.Load(),
	}
}

// Run processes frames until the source is exhausted or ctx is done. Source
// exhaustion is a normal end and returns nil.
func (r *Runner) Run(ctx context.Context) error {
	log.With("dropStale", r.dropStale).Info("Pipeline started.")
	defer log.Info("Pipeline stopped.")

	if r.dropStale {
		return r.runDecoupled(ctx)
	}
	return r.runInline(ctx)
}

func (r *Runner) runInline(ctx context.Context) error {
	for {
		frame, err := r.source.Next(ctx)
		if err != nil {
			return r.finish(ctx, err)
		}
		r.frames.Add(1)
		if ctx.Err() != nil {
			return nil
		}
		r.handle(ctx, frame)
	}
}

func (r *Runner) runDecoupled(ctx context.Context) error {
	mailbox := NewMailbox[Frame]()

	var wg sync.WaitGroup
	var readErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer mailbox.Close()
		for {
			frame, err := r.source.Next(ctx)
			if err != nil {
				readErr = err
				return
			}
			r.frames.Add(1)
			if mailbox.Put(frame) {
				r.dropped.Add(1)
				r.notifyDrop()
			}
		}
	}()

	for {
		frame, ok := mailbox.Take()
		if !ok {
			break
		}
		if ctx.Err() != nil {
			break
		}
		r.handle(ctx, frame)
	}
	mailbox.Close()
	wg.Wait()

	return r.finish(ctx, readErr)
}

func (r *Runner) handle(ctx context.Context, frame Frame) {
	if !r.Enabled() {
		r.skipped.Add(1)
		return
	}

	ts := frame.Timestamp
	if ts.IsZero() {
		ts = r.now()
	}

	report := r.processor.ProcessFrame(ctx, frame.Dims, frame.Hands, ts)
	report.Seq = frame.Seq
	r.processed.Add(1)

	for _, o := range report.Outcomes {
		switch o.Status {
		case StatusFailed:
			log.With("hand", o.Hand).
				With("command", o.Command.String()).
				WithError(o.Err).
				Warn("Command dispatch failed.")
		case StatusInvalid:
			log.With("seq", frame.Seq).
				WithError(o.Err).
				Warn("Frame rejected.")
		}
	}

	for _, obs := range r.observers {
		obs.Observe(ctx, report)
	}
}

func (r *Runner) notifyDrop() {
	for _, obs := range r.observers {
		if d, ok := obs.(DropObserver); ok {
			d.ObserveDrop()
		}
	}
}

func (r *Runner) finish(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		log.Debug("Pipeline interrupted.")
	case err == nil, errors.Is(err, io.EOF):
		log.With("frames", r.frames.Load()).Info("Input exhausted.")
	default:
		log.With("frames", r.frames.Load()).
			WithError(err).
			Warn("Frame source failed; treating input as exhausted.")
	}
	return nil
}
