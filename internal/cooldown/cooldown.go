// Package cooldown rate-limits discrete gesture events per channel.
package cooldown

import (
	"sync"
	"time"
)

// DefaultInterval is the minimum time between two accepted events on a channel.
const DefaultInterval = 2 * time.Second

// Gate remembers when each channel last fired. A channel that never fired
// always accepts. Rejections do not update state.
type Gate struct {
	mu        sync.Mutex
	interval  time.Duration
	overrides map[string]time.Duration
	lastFired map[string]time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithInterval sets the default interval for all channels.
func WithInterval(d time.Duration) Option {
	return func(g *Gate) {
		if d >= 0 {
			g.interval = d
		}
	}
}

// WithChannelInterval overrides the interval of a single channel.
func WithChannelInterval(channel string, d time.Duration) Option {
	return func(g *Gate) {
		if d >= 0 {
			g.overrides[channel] = d
		}
	}
}

// New creates a Gate with DefaultInterval unless overridden.
func New(opts ...Option) *Gate {
	g := &Gate{
		interval:  DefaultInterval,
		overrides: make(map[string]time.Duration),
		lastFired: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Interval returns the interval that applies to channel.
func (g *Gate) Interval(channel string) time.Duration {
	if d, ok := g.overrides[channel]; ok {
		return d
	}
	return g.interval
}

// Allow reports whether an event on channel at now may fire, and records now
// as the channel's last firing time if so. An event stamped before the last
// firing is rejected so that recorded times never move backwards.
func (g *Gate) Allow(channel string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, fired := g.lastFired[channel]
	if fired {
		if now.Before(last) || now.Sub(last) < g.Interval(channel) {
			return false
		}
	}
	g.lastFired[channel] = now
	return true
}

