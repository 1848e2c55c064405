package gesture

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ayusman/mudra/internal/detector"
)

// ErrNoRules is returned when a classifier is built without any rule set.
var ErrNoRules = errors.New("no rule sets enabled")

// Classifier maps one hand to at most one event using the enabled rule sets.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules []ruleSet
}

// NewClassifier compiles the enabled rule sets. Duplicates are ignored and
// the rules are evaluated in canonical order regardless of configuration
// order; the first match wins.
func NewClassifier(cfg Config) (*Classifier, error) {
	if len(cfg.Rules) == 0 {
		return nil, ErrNoRules
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	enabled := make([]Rule, 0, len(cfg.Rules))
	seen := make(map[Rule]bool, len(cfg.Rules))
	for _, r := range cfg.Rules {
		if seen[r] {
			continue
		}
		seen[r] = true
		enabled = append(enabled, r)
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].rank() < enabled[j].rank()
	})

	c := &Classifier{rules: make([]ruleSet, len(enabled))}
	for i, r := range enabled {
		c.rules[i] = compile(r, cfg)
	}
	return c, nil
}

// Rules returns the enabled rule sets in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = r.name
	}
	return out
}

// Classify evaluates the enabled rule sets against one hand.
//
// A rule whose landmarks the hand lacks is skipped. When no enabled rule could
// be evaluated at all, Classify returns NoGesture with ErrInsufficientLandmarks.
func (c *Classifier) Classify(hand detector.HandLandmarks, dims Dims) (Event, error) {
	f, err := Extract(hand, dims)
	if err != nil {
		return NoGesture(), err
	}

	evaluated := false
	for _, r := range c.rules {
		if !f.Has(r.requires...) {
			continue
		}
		evaluated = true
		if ev, ok := r.match(f); ok {
			return ev, nil
		}
	}

	if !evaluated {
		return NoGesture(), fmt.Errorf("%w: %d of %d points", ErrInsufficientLandmarks, len(hand.Points), detector.NumLandmarks)
	}
	return NoGesture(), nil
}
