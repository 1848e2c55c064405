// Package pipeline drives landmark frames through classification, cooldown
// gating and dispatch.
package pipeline

import (
	"encoding/json"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/gesture"
)

// Status is what happened to one hand in one frame.
type Status string

const (
	StatusNoGesture    Status = "no_gesture"
	StatusInsufficient Status = "insufficient_landmarks"
	StatusInvalid      Status = "invalid_input"
	StatusSuppressed   Status = "suppressed"
	StatusUnmapped     Status = "unmapped"
	StatusDispatched   Status = "dispatched"
	StatusFailed       Status = "failed"
	StatusAborted      Status = "aborted"
)

// Outcome is the per-hand result of processing a frame. Command is set when
// the event was mapped to a command, whether or not executing it succeeded.
// Latency is how long executing the command took.
//
// In JSON, command and level appear only when HasCommand and HasLevel are
// set, and a failure carries its text as error.
type Outcome struct {
	Hand       int            `json:"hand"`
	Handedness string         `json:"handedness,omitempty"`
	Event      gesture.Event  `json:"event"`
	Status     Status         `json:"status"`
	Command    action.Command `json:"-"`
	HasCommand bool           `json:"-"`
	Level      float64        `json:"-"`
	HasLevel   bool           `json:"-"`
	Latency    time.Duration  `json:"latency,omitempty"`
	Err        error          `json:"-"`
}

// MarshalJSON implements json.Marshaler.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type fields Outcome
	out := struct {
		fields
		Command *action.Command `json:"command,omitempty"`
		Level   *float64        `json:"level,omitempty"`
		Error   string          `json:"error,omitempty"`
	}{
		fields: fields(o),
		Error:  o.Error(),
	}
	if o.HasCommand {
		out.Command = &o.Command
	}
	if o.HasLevel {
		out.Level = &o.Level
	}
	return json.Marshal(out)
}

// Error returns the outcome's error text, or an empty string.
func (o Outcome) Error() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Report is the result of processing one frame.
type Report struct {
	Seq       uint64        `json:"seq"`
	Timestamp time.Time     `json:"timestamp"`
	Dims      gesture.Dims  `json:"dims"`
	Outcomes  []Outcome     `json:"outcomes"`
	Duration  time.Duration `json:"duration"`
	Aborted   bool          `json:"aborted,omitempty"`
}

// Commands returns the commands that were dispatched successfully, in hand order.
func (r Report) Commands() []action.Command {
	var out []action.Command
	for _, o := range r.Outcomes {
		if o.Status == StatusDispatched {
			out = append(out, o.Command)
		}
	}
	return out
}

// Failures returns the outcomes whose command could not be executed.
func (r Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Count returns how many outcomes have status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}
