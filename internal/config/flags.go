package config

import (
	"strings"

	"dario.cat/mergo"
	"github.com/alecthomas/kingpin/v2"

	"github.com/ayusman/mudra/internal/gesture"
)

// FlagHolder is implemented by kingpin applications and commands.
type FlagHolder interface {
	Flag(name, help string) *kingpin.FlagClause
}

// SetupConfiguration binds command line flags to c. Flags left unset keep
// their zero value, so c is meant to be merged over a loaded Config with
// Merge.
func (c *Config) SetupConfiguration(using FlagHolder) {
	using.Flag("source", "Where frames come from: camera or replay.").
		EnumVar(&c.Source.Kind, SourceCamera, SourceReplay)
	using.Flag("replay", "Recorded session (JSON lines) to play back. Implies --source=replay.").
		PlaceHolder("FILE").
		StringVar(&c.Source.Replay)
	using.Flag("pace", "Replay a session with its recorded timing.").
		BoolVar(&c.Source.Pace)
	using.Flag("controller", "What executes commands: plugin or memory.").
		EnumVar(&c.Controller.Kind, ControllerPlugin, ControllerMemory)
	using.Flag("plugins", "Directory the controller plugins are discovered in.").
		PlaceHolder("DIR").
		StringVar(&c.Controller.Plugins.Dir)
	using.Flag("rules", "Comma separated gesture rule sets to enable, from "+strings.Join(ruleNames(gesture.AllRules()), ", ")+".").
		PlaceHolder(strings.Join(ruleNames(gesture.DefaultRules()), ",")).
		SetValue(&rulesValue{target: &c.Rules})
	using.Flag("cooldown", "Minimum time between two discrete commands on the same channel.").
		DurationVar(&c.Cooldown.Interval)
	using.Flag("addr", "HTTP listen address.").
		StringVar(&c.Server.Addr)
	using.Flag("store", "Path of the command journal database.").
		PlaceHolder("FILE").
		StringVar(&c.Store.Path)
	using.Flag("mqtt.broker", "MQTT broker to publish executed commands to.").
		PlaceHolder("HOST:PORT").
		StringVar(&c.MQTT.Broker)
	using.Flag("no-tray", "Run without the system tray icon.").
		BoolVar(&c.Tray.Disabled)
}

// Merge overrides c with every non-zero field of flags and validates the
// result.
func (c *Config) Merge(flags *Config) error {
	if flags.Source.Replay != "" && flags.Source.Kind == "" {
		flags.Source.Kind = SourceReplay
	}
	if err := mergo.Merge(c, flags, mergo.WithOverride); err != nil {
		return err
	}
	return c.Validate()
}

// rulesValue is a kingpin.Value for a comma separated rule list.
type rulesValue struct {
	target *[]gesture.Rule
}

func (v *rulesValue) Set(s string) error {
	rules, err := gesture.ParseRules(strings.Split(s, ","))
	if err != nil {
		return err
	}
	*v.target = rules
	return nil
}

func (v *rulesValue) String() string {
	if v.target == nil {
		return ""
	}
	return strings.Join(ruleNames(*v.target), ",")
}

func ruleNames(rules []gesture.Rule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = string(r)
	}
	return names
}
