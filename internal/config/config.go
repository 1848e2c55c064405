// Package config defines the application configuration, its defaults and how
// it is layered from file, environment and command line flags.
package config

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/cooldown"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/emitter"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
)

// Source kinds.
const (
	SourceCamera = "camera"
	SourceReplay = "replay"
)

// Controller kinds.
const (
	ControllerPlugin = "plugin"
	ControllerMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	Log LogConfig `koanf:"log" yaml:"log"`

	// Rules are the enabled gesture rule sets, evaluated in canonical order.
	Rules []gesture.Rule      `koanf:"rules" yaml:"rules"`
	Pinch gesture.PinchConfig `koanf:"pinch" yaml:"pinch"`
	Palm  gesture.PalmConfig  `koanf:"palm" yaml:"palm"`

	Cooldown   CooldownConfig   `koanf:"cooldown" yaml:"cooldown"`
	Dispatch   action.Config    `koanf:"dispatch" yaml:"dispatch"`
	Controller ControllerConfig `koanf:"controller" yaml:"controller"`
	Source     SourceConfig     `koanf:"source" yaml:"source"`
	Detector   detector.Config  `koanf:"detector" yaml:"detector"`
	Store      StoreConfig      `koanf:"store" yaml:"store"`
	Server     ServerConfig     `koanf:"server" yaml:"server"`
	MQTT       emitter.Config   `koanf:"mqtt" yaml:"mqtt"`
	Tray       TrayConfig       `koanf:"tray" yaml:"tray"`
}

// LogConfig sets the log level and format (text or json).
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// CooldownConfig sets the minimum time between two discrete commands on the
// same channel. Channels overrides Interval per channel.
type CooldownConfig struct {
	Interval time.Duration            `koanf:"interval" yaml:"interval"`
	Channels map[string]time.Duration `koanf:"channels" yaml:"channels,omitempty"`
}

// ControllerConfig selects what executes commands.
type ControllerConfig struct {
	// Kind is plugin or memory.
	Kind string `koanf:"kind" yaml:"kind"`

	// InitialLevel is the starting volume of the memory controller.
	InitialLevel float64 `koanf:"initial_level" yaml:"initial_level"`

	Plugins plugin.ControllerConfig `koanf:"plugins" yaml:"plugins"`
}

// SourceConfig selects where frames come from.
type SourceConfig struct {
	// Kind is camera or replay.
	Kind string `koanf:"kind" yaml:"kind"`

	// Replay is the session file played back by the replay source.
	Replay string `koanf:"replay" yaml:"replay,omitempty"`

	// Pace replays a session with its recorded timing.
	Pace bool `koanf:"pace" yaml:"pace"`

	// DropStale processes only the latest frame when processing falls behind.
	// An unpaced replay ignores it and processes every frame.
	DropStale bool `koanf:"drop_stale" yaml:"drop_stale"`

	Camera capture.CameraConfig `koanf:"camera" yaml:"camera"`
}

// StoreConfig locates the command journal. An empty Path disables it.
// Journal entries older than Retention are pruned while running; zero keeps
// them forever.
type StoreConfig struct {
	Path      string        `koanf:"path" yaml:"path"`
	Retention time.Duration `koanf:"retention" yaml:"retention"`
}

// ServerConfig sets the HTTP listen address. An empty Addr disables it.
// Static is a directory of dashboard files served at the root.
type ServerConfig struct {
	Addr   string `koanf:"addr" yaml:"addr"`
	Static string `koanf:"static" yaml:"static,omitempty"`
}

// TrayConfig controls the system tray icon.
type TrayConfig struct {
	Disabled bool `koanf:"disabled" yaml:"disabled"`
}

// New returns a Config holding the defaults.
func New() *Config {
	g := gesture.DefaultConfig()
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Rules: g.Rules,
		Pinch: g.Pinch,
		Palm:  g.Palm,
		Cooldown: CooldownConfig{
			Interval: cooldown.DefaultInterval,
		},
		Dispatch: action.DefaultConfig(),
		Controller: ControllerConfig{
			Kind:         ControllerPlugin,
			InitialLevel: 0.5,
			Plugins:      plugin.DefaultControllerConfig(),
		},
		Source: SourceConfig{
			Kind:      SourceCamera,
			DropStale: true,
			Camera:    capture.DefaultCameraConfig(),
		},
		Detector: detector.DefaultConfig(),
		Store: StoreConfig{
			Path:      "mudra.db",
			Retention: 7 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		MQTT: emitter.DefaultConfig(),
	}
}

// Gesture returns the classifier configuration.
func (c *Config) Gesture() gesture.Config {
	return gesture.Config{
		Rules: c.Rules,
		Pinch: c.Pinch,
		Palm:  c.Palm,
	}
}

// DropStale reports whether the runner should decouple capture from
// processing and drop stale frames. An unpaced replay yields frames as fast
// as they can be read, so dropping would lose frames arbitrarily.
func (c *Config) DropStale() bool {
	if c.Source.Kind == SourceReplay && !c.Source.Pace {
		return false
	}
	return c.Source.DropStale
}

// CooldownOptions returns the gate options for the cooldown section.
func (c *Config) CooldownOptions() []cooldown.Option {
	opts := []cooldown.Option{cooldown.WithInterval(c.Cooldown.Interval)}
	for ch, d := range c.Cooldown.Channels {
		opts = append(opts, cooldown.WithChannelInterval(ch, d))
	}
	return opts
}

// Validate checks the configuration. All errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.Gesture().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(c.Rules) == 0 {
		return fmt.Errorf("%w: no gesture rules enabled", ErrInvalidConfig)
	}
	if c.Cooldown.Interval < 0 {
		return fmt.Errorf("%w: negative cooldown interval", ErrInvalidConfig)
	}
	for ch, d := range c.Cooldown.Channels {
		if d < 0 {
			return fmt.Errorf("%w: negative cooldown for channel %q", ErrInvalidConfig, ch)
		}
	}
	if l := c.Dispatch.UnmuteLevel; l < 0 || l > 1 {
		return fmt.Errorf("%w: unmute level %g must be in [0, 1]", ErrInvalidConfig, l)
	}
	if l := c.Controller.InitialLevel; l < 0 || l > 1 {
		return fmt.Errorf("%w: initial level %g must be in [0, 1]", ErrInvalidConfig, l)
	}
	switch c.Controller.Kind {
	case ControllerPlugin, ControllerMemory:
	default:
		return fmt.Errorf("%w: unknown controller %q", ErrInvalidConfig, c.Controller.Kind)
	}
	switch c.Source.Kind {
	case SourceCamera:
	case SourceReplay:
		if c.Source.Replay == "" {
			return fmt.Errorf("%w: replay source needs a session file", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source.Kind)
	}
	if c.Store.Retention < 0 {
		return fmt.Errorf("%w: negative store retention", ErrInvalidConfig)
	}
	if _, err := emitter.NewCodec(c.MQTT.Codec); err != nil {
		return fmt.Errorf("%w: mqtt: %v", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// SaveTo writes c as YAML.
func (c *Config) SaveTo(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
