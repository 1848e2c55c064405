package gesture

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ayusman/mudra/internal/detector"
)

// ErrUnknownRule is returned when a rule set name is not recognized.
var ErrUnknownRule = errors.New("unknown rule set")

// ErrInvalidThresholds is returned for rule thresholds that cannot be evaluated.
var ErrInvalidThresholds = errors.New("invalid rule thresholds")

// Rule names one of the geometric rule sets.
type Rule string

const (
	RulePinchContinuous  Rule = "pinchContinuous"
	RulePinchSideToggle  Rule = "pinchSideToggle"
	RulePalmFiveDistance Rule = "palmFiveDistance"
	RulePalmVertical     Rule = "palmVertical"
)

// Cooldown channels for the discrete rule sets.
const (
	ChannelMuteToggle = "mute-toggle"
	ChannelMute       = "mute"
	ChannelPlayPause  = "play-pause"
)

// canonicalOrder is the evaluation order when several rule sets are enabled.
var canonicalOrder = []Rule{
	RulePinchContinuous,
	RulePinchSideToggle,
	RulePalmFiveDistance,
	RulePalmVertical,
}

// AllRules returns every known rule set in evaluation order.
func AllRules() []Rule {
	out := make([]Rule, len(canonicalOrder))
	copy(out, canonicalOrder)
	return out
}

// DefaultRules are the rule sets enabled when none are configured.
func DefaultRules() []Rule {
	return []Rule{RulePinchSideToggle, RulePalmVertical}
}

// Shadowed returns, in evaluation order, the rule sets in rules that can
// never fire because pinchContinuous, which matches every hand with a thumb
// and index tip, is evaluated before them.
func Shadowed(rules []Rule) []Rule {
	enabled := make(map[Rule]bool, len(rules))
	for _, r := range rules {
		enabled[r] = true
	}
	if !enabled[RulePinchContinuous] {
		return nil
	}
	var out []Rule
	for _, r := range canonicalOrder[1:] {
		if enabled[r] {
			out = append(out, r)
		}
	}
	return out
}

func (r Rule) rank() int {
	for i, c := range canonicalOrder {
		if c == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r is a known rule set.
func (r Rule) Valid() bool {
	return r.rank() >= 0
}

// Channel returns the cooldown channel of a discrete rule set.
func (r Rule) Channel() string {
	switch r {
	case RulePinchSideToggle:
		return ChannelMuteToggle
	case RulePalmFiveDistance:
		return ChannelMute
	case RulePalmVertical:
		return ChannelPlayPause
	default:
		return ""
	}
}

// ParseRules parses rule set names, case-insensitively, ignoring blanks.
func ParseRules(names []string) ([]Rule, error) {
	var out []Rule
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		found := false
		for _, r := range canonicalOrder {
			if strings.EqualFold(string(r), name) {
				out = append(out, r)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRule, name)
		}
	}
	return out, nil
}

// PinchConfig holds the thumb-index distance thresholds in pixels.
type PinchConfig struct {
	// MinDistance and MaxDistance bound the continuous pinch scale.
	MinDistance float64 `koanf:"min_distance" yaml:"min_distance"`
	MaxDistance float64 `koanf:"max_distance" yaml:"max_distance"`

	// Range is the largest magnitude a continuous pinch can report.
	Range float64 `koanf:"range" yaml:"range"`

	// ToggleDistance is the pinch distance below which a side toggle fires.
	ToggleDistance float64 `koanf:"toggle_distance" yaml:"toggle_distance"`
}

// PalmConfig holds the palm rule thresholds in pixels.
type PalmConfig struct {
	// SpreadDistance is the minimum distance between adjacent fingertips
	// for a spread hand.
	SpreadDistance float64 `koanf:"spread_distance" yaml:"spread_distance"`
}

// Config selects the enabled rule sets and their thresholds.
type Config struct {
	Rules []Rule      `koanf:"rules" yaml:"rules"`
	Pinch PinchConfig `koanf:"pinch" yaml:"pinch"`
	Palm  PalmConfig  `koanf:"palm" yaml:"palm"`
}

// DefaultConfig returns the thresholds of the reference gesture scripts.
func DefaultConfig() Config {
	return Config{
		Rules: DefaultRules(),
		Pinch: PinchConfig{
			MinDistance:    50,
			MaxDistance:    200,
			Range:          0.1,
			ToggleDistance: 50,
		},
		Palm: PalmConfig{
			SpreadDistance: 50,
		},
	}
}

// Validate checks the thresholds and rule names.
func (c Config) Validate() error {
	for _, r := range c.Rules {
		if !r.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownRule, r)
		}
	}
	p := c.Pinch
	if p.MinDistance < 0 || p.MaxDistance <= p.MinDistance {
		return fmt.Errorf("%w: pinch distance range [%g, %g]", ErrInvalidThresholds, p.MinDistance, p.MaxDistance)
	}
	if p.Range <= 0 || p.Range > 1 {
		return fmt.Errorf("%w: pinch range %g must be in (0, 1]", ErrInvalidThresholds, p.Range)
	}
	if p.ToggleDistance <= 0 {
		return fmt.Errorf("%w: toggle distance %g", ErrInvalidThresholds, p.ToggleDistance)
	}
	if c.Palm.SpreadDistance <= 0 {
		return fmt.Errorf("%w: spread distance %g", ErrInvalidThresholds, c.Palm.SpreadDistance)
	}
	return nil
}

// ruleSet is one compiled rule: the landmarks it reads and its predicate.
type ruleSet struct {
	name     Rule
	requires []int
	match    func(Features) (Event, bool)
}

var (
	pinchLandmarks = []int{detector.ThumbTip, detector.IndexTip}
	palmLandmarks  = []int{detector.Wrist, detector.ThumbTip, detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip}
	adjacentTips   = []Pair{
		{detector.ThumbTip, detector.IndexTip},
		{detector.IndexTip, detector.MiddleTip},
		{detector.MiddleTip, detector.RingTip},
		{detector.RingTip, detector.PinkyTip},
	}
)

func compile(r Rule, cfg Config) ruleSet {
	switch r {
	case RulePinchContinuous:
		return ruleSet{name: r, requires: pinchLandmarks, match: pinchContinuous(cfg.Pinch)}
	case RulePinchSideToggle:
		return ruleSet{name: r, requires: pinchLandmarks, match: pinchSideToggle(cfg.Pinch)}
	case RulePalmFiveDistance:
		return ruleSet{name: r, requires: palmLandmarks, match: palmFiveDistance(cfg.Palm)}
	default:
		return ruleSet{name: RulePalmVertical, requires: palmLandmarks, match: palmVertical}
	}
}

// PinchMagnitude maps a thumb-index distance to a signed volume step.
//
// Distances at or beyond the midpoint of [MinDistance, MaxDistance] raise the
// level, shorter ones lower it. The result is non-decreasing in d and never
// exceeds Range in absolute value.
func PinchMagnitude(d float64, cfg PinchConfig) float64 {
	span := cfg.MaxDistance - cfg.MinDistance
	split := cfg.MinDistance + span/2
	if d >= split {
		return math.Min((d-cfg.MinDistance)/span, 1) * cfg.Range
	}
	return -math.Min((cfg.MaxDistance-d)/span, 1) * cfg.Range
}

func pinchContinuous(cfg PinchConfig) func(Features) (Event, bool) {
	return func(f Features) (Event, bool) {
		d, err := f.Distance(detector.ThumbTip, detector.IndexTip)
		if err != nil {
			return Event{}, false
		}
		return Event{
			Kind:      KindContinuousPinch,
			Magnitude: PinchMagnitude(d, cfg),
			Rule:      RulePinchContinuous,
		}, true
	}
}

func pinchSideToggle(cfg PinchConfig) func(Features) (Event, bool) {
	return func(f Features) (Event, bool) {
		d, err := f.Distance(detector.ThumbTip, detector.IndexTip)
		if err != nil || d >= cfg.ToggleDistance {
			return Event{}, false
		}
		thumb, err := f.SideOf(detector.ThumbTip)
		if err != nil {
			return Event{}, false
		}
		index, err := f.SideOf(detector.IndexTip)
		if err != nil {
			return Event{}, false
		}
		if thumb != index || (thumb != SideLeft && thumb != SideRight) {
			return Event{}, false
		}
		return Event{Kind: KindSideMute, Side: thumb, Rule: RulePinchSideToggle}, true
	}
}

func palmFiveDistance(cfg PalmConfig) func(Features) (Event, bool) {
	return func(f Features) (Event, bool) {
		for _, pair := range adjacentTips {
			d, err := f.Distance(pair.A, pair.B)
			if err != nil || d <= cfg.SpreadDistance {
				return Event{}, false
			}
		}
		return Event{Kind: KindOpenPalm, Rule: RulePalmFiveDistance}, true
	}
}

func palmVertical(f Features) (Event, bool) {
	offsets := make([]float64, len(detector.FingerTips))
	for i, tip := range detector.FingerTips {
		off, err := f.VerticalOffset(tip)
		if err != nil {
			return Event{}, false
		}
		offsets[i] = off
	}

	open := true
	for _, off := range offsets {
		if off >= 0 {
			open = false
			break
		}
	}
	if open {
		return Event{Kind: KindOpenPalm, Rule: RulePalmVertical}, true
	}

	// Closed palm ignores the thumb.
	for _, off := range offsets[1:] {
		if off <= 0 {
			return Event{}, false
		}
	}
	return Event{Kind: KindClosedPalm, Rule: RulePalmVertical}, true
}
