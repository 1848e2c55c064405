// Package action maps gesture events to control commands and applies them to
// external volume and keyboard controllers.
package action

import (
	"fmt"
	"math"
)

// Kind identifies a control command.
type Kind string

const (
	KindSetVolume    Kind = "set_volume"
	KindAdjustVolume Kind = "adjust_volume"
	KindMute         Kind = "mute"
	KindUnmute       Kind = "unmute"
	KindKeyPress     Kind = "key_press"
)

// Command is an immutable control command. Level is set for KindSetVolume,
// Delta for KindAdjustVolume and Key for KindKeyPress.
type Command struct {
	Kind  Kind    `json:"kind"`
	Level float64 `json:"level,omitempty"`
	Delta float64 `json:"delta,omitempty"`
	Key   string  `json:"key,omitempty"`
}

// SetVolume returns a command setting the volume to level, clamped to [0,1].
func SetVolume(level float64) Command {
	return Command{Kind: KindSetVolume, Level: Clamp(level)}
}

// AdjustVolume returns a command moving the volume by delta.
func AdjustVolume(delta float64) Command {
	return Command{Kind: KindAdjustVolume, Delta: delta}
}

// Mute returns a mute command.
func Mute() Command {
	return Command{Kind: KindMute}
}

// Unmute returns an unmute command.
func Unmute() Command {
	return Command{Kind: KindUnmute}
}

// KeyPress returns a command pressing key.
func KeyPress(key string) Command {
	return Command{Kind: KindKeyPress, Key: key}
}

// Clamp limits a volume level to [0,1]. NaN becomes 0.
func Clamp(level float64) float64 {
	if math.IsNaN(level) {
		return 0
	}
	return math.Max(0, math.Min(1, level))
}

func (c Command) String() string {
	switch c.Kind {
	case KindSetVolume:
		return fmt.Sprintf("%s(%.2f)", c.Kind, c.Level)
	case KindAdjustVolume:
		return fmt.Sprintf("%s(%+.3f)", c.Kind, c.Delta)
	case KindKeyPress:
		return fmt.Sprintf("%s(%s)", c.Kind, c.Key)
	default:
		return string(c.Kind)
	}
}
