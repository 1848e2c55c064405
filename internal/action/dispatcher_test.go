package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/gesture"
)

func newTestDispatcher(level float64) (*Dispatcher, *MemoryController) {
	mem := NewMemoryController(level)
	return NewDispatcher(mem, mem, DefaultConfig()), mem
}

func TestDispatcher_Map(t *testing.T) {
	d, _ := newTestDispatcher(0.5)

	tests := []struct {
		name   string
		ev     gesture.Event
		want   Command
		mapped bool
	}{
		{"no gesture", gesture.NoGesture(), Command{}, false},
		{"continuous pinch", gesture.Event{Kind: gesture.KindContinuousPinch, Magnitude: -0.05, Rule: gesture.RulePinchContinuous}, AdjustVolume(-0.05), true},
		{"side mute left", gesture.Event{Kind: gesture.KindSideMute, Side: gesture.SideLeft, Rule: gesture.RulePinchSideToggle}, Mute(), true},
		{"side mute right", gesture.Event{Kind: gesture.KindSideMute, Side: gesture.SideRight, Rule: gesture.RulePinchSideToggle}, Unmute(), true},
		{"side mute center", gesture.Event{Kind: gesture.KindSideMute, Side: gesture.SideCenter}, Command{}, false},
		{"spread palm", gesture.Event{Kind: gesture.KindOpenPalm, Rule: gesture.RulePalmFiveDistance}, Mute(), true},
		{"vertical open palm", gesture.Event{Kind: gesture.KindOpenPalm, Rule: gesture.RulePalmVertical}, KeyPress("space"), true},
		{"closed palm", gesture.Event{Kind: gesture.KindClosedPalm, Rule: gesture.RulePalmVertical}, KeyPress("space"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.Map(tt.ev)
			assert.Equal(t, tt.mapped, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatcher_MapCustomKeys(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PlayKey = "k"
	cfg.PauseKey = "p"
	d := NewDispatcher(nil, nil, cfg)

	cmd, _ := d.Map(gesture.Event{Kind: gesture.KindClosedPalm, Rule: gesture.RulePalmVertical})
	assert.Equal(t, "k", cmd.Key)
	cmd, _ = d.Map(gesture.Event{Kind: gesture.KindOpenPalm, Rule: gesture.RulePalmVertical})
	assert.Equal(t, "p", cmd.Key)
}

func TestDispatcher_AdjustVolumeClamps(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		delta float64
		want  float64
	}{
		{"raise", 0.5, 0.1, 0.6},
		{"lower", 0.5, -0.1, 0.4},
		{"clamp at top", 0.95, 0.1, 1},
		{"clamp at bottom", 0.05, -0.1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, mem := newTestDispatcher(tt.start)
			res, err := d.Execute(context.Background(), AdjustVolume(tt.delta))
			require.NoError(t, err)
			assert.True(t, res.HasLevel)
			assert.InDelta(t, tt.want, res.Level, 1e-9)
			assert.InDelta(t, tt.want, mem.Current(), 1e-9)
		})
	}
}

func TestDispatcher_LevelsStayInRange(t *testing.T) {
	d, mem := newTestDispatcher(0.5)
	deltas := []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, -0.1, -0.1, -0.1, -0.1, -0.1, -0.1, -0.1, -0.1}
	for _, delta := range deltas {
		_, err := d.Execute(context.Background(), AdjustVolume(delta))
		require.NoError(t, err)
	}
	for _, level := range mem.Sets() {
		assert.GreaterOrEqual(t, level, 0.0)
		assert.LessOrEqual(t, level, 1.0)
	}
}

func TestDispatcher_SetVolumeIdempotent(t *testing.T) {
	d, mem := newTestDispatcher(0.2)

	for i := 0; i < 3; i++ {
		res, err := d.Execute(context.Background(), SetVolume(0.7))
		require.NoError(t, err)
		assert.Equal(t, 0.7, res.Level)
	}
	assert.Equal(t, 0.7, mem.Current())
	assert.Equal(t, []float64{0.7, 0.7, 0.7}, mem.Sets())

	res, err := d.Execute(context.Background(), SetVolume(3))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Level)
}

func TestDispatcher_MuteRestoresPreviousLevel(t *testing.T) {
	d, mem := newTestDispatcher(0.8)
	ctx := context.Background()

	_, err := d.Execute(ctx, Mute())
	require.NoError(t, err)
	assert.Equal(t, 0.0, mem.Current())
	assert.True(t, d.Muted())

	// muting twice keeps the first pre-mute level
	_, err = d.Execute(ctx, Mute())
	require.NoError(t, err)

	res, err := d.Execute(ctx, Unmute())
	require.NoError(t, err)
	assert.Equal(t, 0.8, res.Level)
	assert.Equal(t, 0.8, mem.Current())
	assert.False(t, d.Muted())
}

func TestDispatcher_UnmuteWithoutMuteUsesDefault(t *testing.T) {
	d, mem := newTestDispatcher(0.1)

	res, err := d.Execute(context.Background(), Unmute())
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.Level)
	assert.Equal(t, 0.5, mem.Current())
}

func TestDispatcher_MuteAtZeroUnmutesToDefault(t *testing.T) {
	d, mem := newTestDispatcher(0)
	ctx := context.Background()

	_, err := d.Execute(ctx, Mute())
	require.NoError(t, err)
	_, err = d.Execute(ctx, Unmute())
	require.NoError(t, err)
	assert.Equal(t, 0.5, mem.Current())
}

func TestDispatcher_KeyPress(t *testing.T) {
	d, mem := newTestDispatcher(0.5)

	res, err := d.Execute(context.Background(), KeyPress("space"))
	require.NoError(t, err)
	assert.False(t, res.HasLevel)
	assert.Equal(t, []string{"space"}, mem.Presses())
}

func TestDispatcher_ControllerFailure(t *testing.T) {
	d, mem := newTestDispatcher(0.5)
	mem.SetError(errors.New("endpoint gone"))

	_, err := d.Execute(context.Background(), AdjustVolume(0.1))
	assert.ErrorIs(t, err, ErrControllerUnavailable)
	assert.NotErrorIs(t, err, ErrDispatchTimeout)
}

func TestDispatcher_Timeout(t *testing.T) {
	mem := NewMemoryController(0.5)
	mem.SetDelay(time.Second)
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	d := NewDispatcher(mem, mem, cfg)

	start := time.Now()
	_, err := d.Execute(context.Background(), KeyPress("space"))
	assert.ErrorIs(t, err, ErrDispatchTimeout)
	assert.ErrorIs(t, err, ErrControllerUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Empty(t, mem.Presses())
}

func TestDispatcher_CanceledContext(t *testing.T) {
	d, mem := newTestDispatcher(0.5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Execute(ctx, KeyPress("space"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mem.Presses())
}

func TestDispatcher_MissingControllers(t *testing.T) {
	d := NewDispatcher(nil, nil, DefaultConfig())

	_, err := d.Execute(context.Background(), Mute())
	assert.ErrorIs(t, err, ErrControllerUnavailable)
	_, err = d.Execute(context.Background(), KeyPress("space"))
	assert.ErrorIs(t, err, ErrControllerUnavailable)
}

func TestDispatcher_UnsupportedCommand(t *testing.T) {
	d, _ := newTestDispatcher(0.5)
	_, err := d.Execute(context.Background(), Command{Kind: "reboot"})
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
}

func TestDispatcher_Dispatch(t *testing.T) {
	d, mem := newTestDispatcher(0.5)

	cmd, res, ok, err := d.Dispatch(context.Background(), gesture.Event{Kind: gesture.KindSideMute, Side: gesture.SideLeft})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Mute(), cmd)
	assert.Equal(t, 0.0, res.Level)
	assert.Equal(t, 0.0, mem.Current())

	_, _, ok, err = d.Dispatch(context.Background(), gesture.NoGesture())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "set_volume(0.50)", SetVolume(0.5).String())
	assert.Equal(t, "adjust_volume(-0.100)", AdjustVolume(-0.1).String())
	assert.Equal(t, "key_press(space)", KeyPress("space").String())
	assert.Equal(t, "mute", Mute().String())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1))
	assert.Equal(t, 1.0, Clamp(2))
	assert.Equal(t, 0.25, Clamp(0.25))
}
