// Package main provides a system control plugin for macOS.
// It reads and sets the output volume and sends media keys via AppleScript.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
)

// actionHandler handles one action and returns optional response data.
type actionHandler func(params json.RawMessage) (any, error)

var actionHandlers = map[string]actionHandler{
	plugin.ActionVolumeGet: volumeGet,
	plugin.ActionVolumeSet: volumeSet,
	"media-play-pause":     mediaKey(100),
	"media-next":           mediaKey(101),
	"media-prev":           mediaKey(98),
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(plugin.Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeResponse(plugin.Response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	data, err := handler(req.Params)
	if err != nil {
		writeResponse(plugin.Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)})
		return
	}

	resp := plugin.Response{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			writeResponse(plugin.Response{Error: fmt.Sprintf("failed to encode data: %v", err)})
			return
		}
		resp.Data = raw
	}
	writeResponse(resp)
}

func writeResponse(resp plugin.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

// runAppleScript executes an AppleScript command and returns its output.
func runAppleScript(script string) (string, error) {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, string(output))
	}
	return strings.TrimSpace(string(output)), nil
}

// volumeGet reports the output volume in [0,1]. A muted output reads as 0.
func volumeGet(json.RawMessage) (any, error) {
	out, err := runAppleScript(`set s to get volume settings
if output muted of s then
	return 0
end if
return output volume of s`)
	if err != nil {
		return nil, err
	}
	v, err := strconv.Atoi(out)
	if err != nil {
		return nil, fmt.Errorf("unexpected volume %q", out)
	}
	return plugin.LevelParams{Level: float64(v) / 100}, nil
}

func volumeSet(params json.RawMessage) (any, error) {
	var p plugin.LevelParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("failed to parse params: %w", err)
	}
	if p.Level < 0 || p.Level > 1 || math.IsNaN(p.Level) {
		return nil, fmt.Errorf("level %v out of range", p.Level)
	}
	v := int(math.Round(p.Level * 100))
	_, err := runAppleScript(fmt.Sprintf("set volume output volume %d without output muted", v))
	return nil, err
}

func mediaKey(code int) actionHandler {
	return func(json.RawMessage) (any, error) {
		_, err := runAppleScript(fmt.Sprintf(`tell application "System Events"
	key code %d
end tell`, code))
		return nil, err
	}
}
