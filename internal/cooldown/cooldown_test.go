package cooldown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestGate_Allow(t *testing.T) {
	g := New()

	assert.True(t, g.Allow("play-pause", t0), "first event must fire")
	assert.False(t, g.Allow("play-pause", t0.Add(1000*time.Millisecond)), "within cooldown")
	assert.True(t, g.Allow("play-pause", t0.Add(2100*time.Millisecond)), "after cooldown")
}

func TestGate_BoundaryIsInclusive(t *testing.T) {
	g := New()
	assert.True(t, g.Allow("mute", t0))
	assert.True(t, g.Allow("mute", t0.Add(DefaultInterval)))
}

func TestGate_RejectionDoesNotExtendCooldown(t *testing.T) {
	g := New()
	assert.True(t, g.Allow("mute", t0))
	assert.False(t, g.Allow("mute", t0.Add(1900*time.Millisecond)))
	assert.True(t, g.Allow("mute", t0.Add(2*time.Second)), "measured from the accepted event")
}

func TestGate_ChannelsAreIndependent(t *testing.T) {
	g := New()
	assert.True(t, g.Allow("mute-toggle", t0))
	assert.True(t, g.Allow("play-pause", t0.Add(100*time.Millisecond)))
	assert.False(t, g.Allow("mute-toggle", t0.Add(100*time.Millisecond)))
}

func TestGate_TimeNeverMovesBackwards(t *testing.T) {
	g := New(WithInterval(0))
	assert.True(t, g.Allow("mute", t0))
	assert.False(t, g.Allow("mute", t0.Add(-time.Second)))
	assert.True(t, g.Allow("mute", t0), "rejected stale event leaves the last firing at t0")
}

func TestGate_Options(t *testing.T) {
	g := New(WithInterval(time.Second), WithChannelInterval("mute", 5*time.Second))

	assert.Equal(t, time.Second, g.Interval("play-pause"))
	assert.Equal(t, 5*time.Second, g.Interval("mute"))

	assert.True(t, g.Allow("mute", t0))
	assert.False(t, g.Allow("mute", t0.Add(3*time.Second)))
	assert.True(t, g.Allow("mute", t0.Add(5*time.Second)))
	assert.True(t, g.Allow("play-pause", t0))
	assert.True(t, g.Allow("play-pause", t0.Add(time.Second)))
}

func TestGate_ConcurrentAllow(t *testing.T) {
	g := New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Allow("play-pause", t0) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
}
