package gesture

// Kind identifies a gesture event.
type Kind string

const (
	KindNone            Kind = "none"
	KindContinuousPinch Kind = "continuous_pinch"
	KindSideMute        Kind = "side_mute"
	KindOpenPalm        Kind = "open_palm"
	KindClosedPalm      Kind = "closed_palm"
)

// Event is the outcome of classifying one hand in one frame.
//
// Magnitude is only set for KindContinuousPinch and Side only for
// KindSideMute. Rule names the rule set that produced the event, which
// matters because the same kind may map to different commands.
type Event struct {
	Kind      Kind    `json:"kind"`
	Magnitude float64 `json:"magnitude,omitempty"`
	Side      Side    `json:"side,omitempty"`
	Rule      Rule    `json:"rule,omitempty"`
}

// NoGesture is the event for a hand that matched no rule.
func NoGesture() Event {
	return Event{Kind: KindNone}
}

// None reports whether the event carries no gesture.
func (e Event) None() bool {
	return e.Kind == KindNone || e.Kind == ""
}

// Discrete reports whether the event is a one-shot gesture subject to cooldown.
func (e Event) Discrete() bool {
	switch e.Kind {
	case KindSideMute, KindOpenPalm, KindClosedPalm:
		return true
	default:
		return false
	}
}

// Channel is the cooldown channel the event belongs to. Continuous and empty
// events have no channel.
func (e Event) Channel() string {
	if !e.Discrete() {
		return ""
	}
	return e.Rule.Channel()
}

func (e Event) String() string {
	switch e.Kind {
	case KindSideMute:
		return string(e.Kind) + "(" + string(e.Side) + ")"
	case KindOpenPalm, KindClosedPalm:
		return string(e.Kind) + "[" + string(e.Rule) + "]"
	default:
		return string(e.Kind)
	}
}
