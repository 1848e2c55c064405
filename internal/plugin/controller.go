package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ControllerConfig names the plugins that back volume and key control.
type ControllerConfig struct {
	Dir          string        `koanf:"dir" yaml:"dir"`
	VolumePlugin string        `koanf:"volume" yaml:"volume"`
	KeyPlugin    string        `koanf:"keys" yaml:"keys"`
	Timeout      time.Duration `koanf:"timeout" yaml:"timeout"`
}

// DefaultControllerConfig returns the bundled plugin names.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Dir:          "plugins",
		VolumePlugin: "system-control",
		KeyPlugin:    "keyboard",
		Timeout:      2 * time.Second,
	}
}

// Controller implements volume and key control on top of plugins.
type Controller struct {
	manager  *Manager
	executor *Executor
	config   ControllerConfig
}

// NewController creates a Controller using already discovered plugins.
func NewController(manager *Manager, executor *Executor, config ControllerConfig) *Controller {
	return &Controller{
		manager:  manager,
		executor: executor,
		config:   config,
	}
}

// Level asks the volume plugin for the current output level.
func (c *Controller) Level(ctx context.Context) (float64, error) {
	resp, err := c.call(ctx, c.config.VolumePlugin, ActionVolumeGet, nil)
	if err != nil {
		return 0, err
	}
	var p LevelParams
	if err := json.Unmarshal(resp.Data, &p); err != nil {
		return 0, fmt.Errorf("%s: invalid data: %w", ActionVolumeGet, err)
	}
	return p.Level, nil
}

// SetLevel asks the volume plugin to set the output level.
func (c *Controller) SetLevel(ctx context.Context, level float64) error {
	_, err := c.call(ctx, c.config.VolumePlugin, ActionVolumeSet, LevelParams{Level: level})
	return err
}

// Press asks the key plugin to press key. Media keys such as
// media-play-pause go to the volume plugin's action of the same name.
func (c *Controller) Press(ctx context.Context, key string) error {
	if IsMediaKey(key) {
		_, err := c.call(ctx, c.config.VolumePlugin, key, nil)
		return err
	}
	_, err := c.call(ctx, c.config.KeyPlugin, ActionPress, KeyParams{Key: key})
	return err
}

func (c *Controller) call(ctx context.Context, name, action string, params any) (*Response, error) {
	p, err := c.manager.Lookup(name, action)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, action, err)
	}

	req := &Request{Action: action}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal params: %w", action, err)
		}
		req.Params = raw
	}

	resp, err := c.executor.Execute(ctx, p, req)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s %s: %s", ErrFailed, name, action, resp.Error)
	}
	return resp, nil
}
