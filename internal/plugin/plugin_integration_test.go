package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestPlugin_SystemControl_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	if runtime.GOOS != "darwin" {
		t.Skip("system-control plugin only works on macOS")
	}

	pluginDir := findPluginDir("system-control")
	if pluginDir == "" {
		t.Skip("system-control plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir))
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	c := NewController(mgr, NewExecutor(5*time.Second), DefaultControllerConfig())

	// Reading the level has no side effects.
	level, err := c.Level(context.Background())
	if err != nil {
		t.Fatalf("Level() error = %v", err)
	}
	if level < 0 || level > 1 {
		t.Errorf("level %v out of range", level)
	}
}

func TestPlugin_Keyboard_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	if runtime.GOOS != "darwin" {
		t.Skip("keyboard plugin only works on macOS")
	}

	pluginDir := findPluginDir("keyboard")
	if pluginDir == "" {
		t.Skip("keyboard plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir))
	mgr.Discover()

	c := NewController(mgr, NewExecutor(5*time.Second), DefaultControllerConfig())

	// An empty key is rejected before anything is sent.
	if err := c.Press(context.Background(), ""); !errors.Is(err, ErrFailed) {
		t.Errorf("expected ErrFailed for empty key, got %v", err)
	}
}

func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		exe := filepath.Join(dir, name)
		if _, err := os.Stat(exe); err == nil {
			return dir
		}
	}
	return ""
}
