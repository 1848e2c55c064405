package emitter

import (
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/pipeline"
)

// Message announces one executed command.
type Message struct {
	ID         string    `json:"id" msgpack:"id"`
	Timestamp  time.Time `json:"timestamp" msgpack:"timestamp"`
	Seq        uint64    `json:"seq" msgpack:"seq"`
	Hand       int       `json:"hand" msgpack:"hand"`
	Handedness string    `json:"handedness,omitempty" msgpack:"handedness,omitempty"`
	Gesture    string    `json:"gesture" msgpack:"gesture"`
	Rule       string    `json:"rule,omitempty" msgpack:"rule,omitempty"`
	Kind       string    `json:"kind" msgpack:"kind"`
	Command    string    `json:"command" msgpack:"command"`
	Level      *float64  `json:"level,omitempty" msgpack:"level,omitempty"`
}

// Messages returns one message per dispatched command in r.
func Messages(r pipeline.Report) []Message {
	var out []Message
	for _, o := range r.Outcomes {
		if o.Status != pipeline.StatusDispatched {
			continue
		}
		m := Message{
			ID:         uuid.New().String(),
			Timestamp:  r.Timestamp,
			Seq:        r.Seq,
			Hand:       o.Hand,
			Handedness: o.Handedness,
			Gesture:    string(o.Event.Kind),
			Rule:       string(o.Event.Rule),
			Kind:       string(o.Command.Kind),
			Command:    o.Command.String(),
		}
		if o.HasLevel {
			level := o.Level
			m.Level = &level
		}
		out = append(out, m)
	}
	return out
}
