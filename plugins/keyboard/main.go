// Package main provides a keyboard plugin for macOS.
// It presses named keys and modifier combos such as cmd+shift+k via
// AppleScript.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
)

// keyCodes maps named keys to macOS virtual key codes.
var keyCodes = map[string]int{
	"space":     49,
	"return":    36,
	"enter":     36,
	"tab":       48,
	"escape":    53,
	"esc":       53,
	"delete":    51,
	"left":      123,
	"right":     124,
	"down":      125,
	"up":        126,
	"playpause": 100,
	"next":      101,
	"previous":  98,
}

var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(plugin.Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	var err error
	switch req.Action {
	case plugin.ActionPress:
		var p plugin.KeyParams
		if err = json.Unmarshal(req.Params, &p); err == nil {
			err = press(p.Key)
		}
	default:
		writeResponse(plugin.Response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	if err != nil {
		writeResponse(plugin.Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)})
		return
	}
	writeResponse(plugin.Response{Success: true})
}

var (
	errNoKey           = errors.New("key is required")
	errUnknownModifier = errors.New("unknown modifier")
)

func press(combo string) error {
	key, modifiers, err := parseCombo(combo)
	if err != nil {
		return err
	}
	return runAppleScript(buildScript(key, modifiers))
}

// parseCombo splits a combo such as "cmd+shift+k" into its key and
// modifiers. A trailing "+" is the plus key itself.
func parseCombo(combo string) (key string, modifiers []string, err error) {
	if combo == "" {
		return "", nil, errNoKey
	}
	i := strings.LastIndex(combo[:len(combo)-1], "+")
	if i < 0 {
		return combo, nil, nil
	}
	key = combo[i+1:]
	for _, mod := range strings.Split(combo[:i], "+") {
		if _, ok := modifierMap[strings.ToLower(mod)]; !ok {
			return "", nil, fmt.Errorf("%w: %q", errUnknownModifier, mod)
		}
		modifiers = append(modifiers, mod)
	}
	return key, modifiers, nil
}

// buildScript generates an AppleScript for key and modifiers. Named keys are
// sent as key codes, anything else as a literal keystroke.
func buildScript(key string, modifiers []string) string {
	var appleModifiers []string
	for _, mod := range modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}

	stroke := fmt.Sprintf("keystroke %q", key)
	if code, ok := keyCodes[strings.ToLower(key)]; ok {
		stroke = fmt.Sprintf("key code %d", code)
	}
	if len(appleModifiers) > 0 {
		stroke += " using {" + strings.Join(appleModifiers, ", ") + "}"
	}
	return `tell application "System Events" to ` + stroke
}

func writeResponse(resp plugin.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

func runAppleScript(script string) error {
	cmd := exec.Command("osascript", "-e", script)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
