package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/cooldown"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Processor runs one frame at a time through classify, gate and dispatch.
// ProcessFrame is synchronous and must be called from a single goroutine.
type Processor struct {
	classifier *gesture.Classifier
	gate       *cooldown.Gate
	dispatcher *action.Dispatcher
}

// NewProcessor wires the three stages together.
func NewProcessor(classifier *gesture.Classifier, gate *cooldown.Gate, dispatcher *action.Dispatcher) *Processor {
	return &Processor{
		classifier: classifier,
		gate:       gate,
		dispatcher: dispatcher,
	}
}

// ProcessFrame classifies every hand, gates discrete events and dispatches
// the resulting commands. It never fails: every problem is reported in the
// hand's Outcome. Cancellation is checked before each dispatch; once ctx is
// done the remaining hands are marked aborted and nothing else is dispatched.
func (p *Processor) ProcessFrame(ctx context.Context, dims gesture.Dims, hands []detector.HandLandmarks, now time.Time) Report {
	start := time.Now()
	report := Report{
		Timestamp: now,
		Dims:      dims,
		Outcomes:  make([]Outcome, len(hands)),
	}

	events := make([]gesture.Event, len(hands))
	errs := make([]error, len(hands))
	for i, hand := range hands {
		events[i], errs[i] = p.classifier.Classify(hand, dims)
	}

	for i, hand := range hands {
		out := &report.Outcomes[i]
		out.Hand = i
		out.Handedness = hand.Handedness
		out.Event = events[i]

		if report.Aborted || ctx.Err() != nil {
			report.Aborted = true
			out.Status = StatusAborted
			out.Err = ctx.Err()
			continue
		}

		if err := errs[i]; err != nil {
			out.Err = err
			if errors.Is(err, gesture.ErrInsufficientLandmarks) {
				out.Status = StatusInsufficient
			} else {
				out.Status = StatusInvalid
			}
			continue
		}

		ev := events[i]
		if ev.None() {
			out.Status = StatusNoGesture
			continue
		}

		cmd, ok := p.dispatcher.Map(ev)
		if !ok {
			out.Status = StatusUnmapped
			continue
		}

		if ev.Discrete() && !p.gate.Allow(ev.Channel(), now) {
			out.Status = StatusSuppressed
			continue
		}

		out.Command, out.HasCommand = cmd, true
		res, err := p.dispatcher.Execute(ctx, cmd)
		out.Latency = res.Duration
		switch {
		case err == nil:
			out.Status = StatusDispatched
			out.Level, out.HasLevel = res.Level, res.HasLevel
		case ctx.Err() != nil:
			report.Aborted = true
			out.Status = StatusAborted
			out.Err = err
		default:
			out.Status = StatusFailed
			out.Err = err
		}
	}

	report.Duration = time.Since(start)
	return report
}
