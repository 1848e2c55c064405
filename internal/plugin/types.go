// Package plugin runs external controller plugins. A plugin is an executable
// that reads one JSON Request on stdin and writes one JSON Response on stdout.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Supports reports whether the plugin declares action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Plugin actions understood by the controller.
const (
	ActionVolumeGet = "volume-get"
	ActionVolumeSet = "volume-set"
	ActionPress     = "press"

	// Media keys are pressed through the volume plugin.
	ActionMediaPlayPause = "media-play-pause"
	ActionMediaNext      = "media-next"
	ActionMediaPrev      = "media-prev"
)

// IsMediaKey reports whether key names one of the media key actions.
func IsMediaKey(key string) bool {
	switch key {
	case ActionMediaPlayPause, ActionMediaNext, ActionMediaPrev:
		return true
	}
	return false
}

// LevelParams carries a volume level in [0,1].
type LevelParams struct {
	Level float64 `json:"level"`
}

// KeyParams carries a key name.
type KeyParams struct {
	Key string `json:"key"`
}
