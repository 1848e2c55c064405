package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/testdata"
)

// keyPlugin logs every request and succeeds.
const keyPlugin = `#!/bin/sh
cat >> requests
echo >> requests
echo '{"success":true}'
`

// volumePlugin keeps the level in a file next to the script.
const volumePlugin = `#!/bin/sh
req=$(cat)
case "$req" in
  *volume-get*)
    printf '{"success":true,"data":{"level":%s}}\n' "$(cat level)"
    ;;
  *volume-set*)
    echo "$req" | sed 's/.*"level":\([0-9.]*\).*/\1/' > level
    echo '{"success":true}'
    ;;
esac
`

func writePlugin(t *testing.T, dir, name, script string, actions ...string) string {
	t.Helper()
	pluginDir := filepath.Join(dir, name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	manifest, _ := json.Marshal(map[string]any{
		"name":       name,
		"version":    "1.0.0",
		"executable": "run.sh",
		"actions":    actions,
	})
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), manifest, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return pluginDir
}

func writeSession(t *testing.T, dir, name string) string {
	t.Helper()
	r, err := testdata.Session(name)
	if err != nil {
		t.Fatalf("testdata.Session() error = %v", err)
	}
	data, _ := io.ReadAll(r)
	path := filepath.Join(dir, name+".jsonl")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write session: %v", err)
	}
	return path
}

func TestE2E_ReplayThroughPlugins(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins need a POSIX shell")
	}

	tmpDir := t.TempDir()
	pluginsDir := filepath.Join(tmpDir, "plugins")
	keyDir := writePlugin(t, pluginsDir, "keyboard", keyPlugin, "press")
	volDir := writePlugin(t, pluginsDir, "system-control", volumePlugin, "volume-get", "volume-set")
	if err := os.WriteFile(filepath.Join(volDir, "level"), []byte("0.6"), 0644); err != nil {
		t.Fatalf("failed to seed level: %v", err)
	}

	configFile := filepath.Join(tmpDir, "mudra.yaml")
	yaml := strings.Join([]string{
		"rules: [pinchSideToggle, palmVertical]",
		"source:",
		"  kind: replay",
		"  replay: " + writeSession(t, tmpDir, "closed_palm"),
		"  drop_stale: false",
		"controller:",
		"  kind: plugin",
		"  plugins:",
		"    dir: " + pluginsDir,
		"    timeout: 5s",
		"dispatch:",
		"  timeout: 5s",
		"store:",
		"  path: " + filepath.Join(tmpDir, "mudra.db"),
		"server:",
		"  addr: \"\"",
		"tray:",
		"  disabled: true",
	}, "\n")
	if err := os.WriteFile(configFile, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	t.Run("Run", func(t *testing.T) {
		if err := application.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		data, err := os.ReadFile(filepath.Join(keyDir, "requests"))
		if err != nil {
			t.Fatalf("failed to read plugin requests: %v", err)
		}
		if n := strings.Count(string(data), `"key":"space"`); n != 2 {
			t.Errorf("keyboard plugin got %d presses, want 2:\n%s", n, data)
		}
	})

	srv := httptest.NewServer(server.New(server.Config{
		Store:   application.Store(),
		Control: application,
		Metrics: application.Registry(),
	}))
	defer srv.Close()
	client := srv.Client()

	t.Run("Journal", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/api/commands")
		if err != nil {
			t.Fatalf("GET /api/commands error = %v", err)
		}
		defer resp.Body.Close()

		var listed struct {
			Commands []struct {
				Command string `json:"command"`
				Status  string `json:"status"`
			} `json:"commands"`
			Total int `json:"total"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if listed.Total != 2 {
			t.Fatalf("total = %d, want 2", listed.Total)
		}
		for _, c := range listed.Commands {
			if c.Command != "key_press(space)" || c.Status != "dispatched" {
				t.Errorf("unexpected journal entry %+v", c)
			}
		}
	})

	t.Run("Status", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/api/status")
		if err != nil {
			t.Fatalf("GET /api/status error = %v", err)
		}
		defer resp.Body.Close()

		var status struct {
			Enabled bool     `json:"enabled"`
			Source  string   `json:"source"`
			Level   *float64 `json:"level"`
			Runner  struct {
				Processed int `json:"processed"`
			} `json:"runner"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !status.Enabled || status.Source != config.SourceReplay {
			t.Errorf("unexpected status %+v", status)
		}
		if status.Runner.Processed != 3 {
			t.Errorf("processed = %d, want 3", status.Runner.Processed)
		}
		if status.Level == nil || *status.Level != 0.6 {
			t.Errorf("level = %v, want 0.6 from the volume plugin", status.Level)
		}
	})

	t.Run("DisableDetection", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/detection", bytes.NewBufferString(`{"enabled":false}`))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/detection error = %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if application.Enabled() {
			t.Error("expected detection to be disabled")
		}
	})
}

func TestE2E_ConfigDumpReloads(t *testing.T) {
	cfg := config.New()
	cfg.Cooldown.Interval *= 2
	cfg.Dispatch.PlayKey = "k"

	var buf bytes.Buffer
	if err := cfg.SaveTo(&buf); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "dump.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write dump: %v", err)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if loaded.Cooldown.Interval != cfg.Cooldown.Interval {
		t.Errorf("cooldown = %v, want %v", loaded.Cooldown.Interval, cfg.Cooldown.Interval)
	}
	if loaded.Dispatch.PlayKey != "k" {
		t.Errorf("play key = %q, want k", loaded.Dispatch.PlayKey)
	}
}
