package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/echocat/slf4g"

	"github.com/ayusman/mudra/internal/gesture"
)

// Config controls how events become commands and how commands are executed.
type Config struct {
	// Timeout bounds every controller call. Zero disables the bound.
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`

	// UnmuteLevel is restored on unmute when no pre-mute level is known.
	UnmuteLevel float64 `koanf:"unmute_level" yaml:"unmute_level"`

	// PlayKey is pressed for a closed palm, PauseKey for a vertical open palm.
	// Either may be a combo like cmd+right or a media key like
	// media-play-pause.
	PlayKey  string `koanf:"play_key" yaml:"play_key"`
	PauseKey string `koanf:"pause_key" yaml:"pause_key"`
}

// DefaultConfig returns the dispatcher defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:     500 * time.Millisecond,
		UnmuteLevel: 0.5,
		PlayKey:     "space",
		PauseKey:    "space",
	}
}

// Result describes the effect of an executed command.
type Result struct {
	// Level is the volume after the command, valid when HasLevel is set.
	Level    float64
	HasLevel bool
	Duration time.Duration
}

// Dispatcher maps events to commands and executes them against the injected
// controllers. It owns the mute state: the level before muting is restored
// on unmute.
type Dispatcher struct {
	volume VolumeController
	keys   KeyPresser
	config Config

	mu          sync.Mutex
	muted       bool
	preMute     float64
	havePreMute bool
}

// NewDispatcher creates a Dispatcher. Either controller may be nil, in which
// case the commands that need it fail with ErrControllerUnavailable.
func NewDispatcher(volume VolumeController, keys KeyPresser, config Config) *Dispatcher {
	if config.PlayKey == "" {
		config.PlayKey = "space"
	}
	if config.PauseKey == "" {
		config.PauseKey = "space"
	}
	config.UnmuteLevel = Clamp(config.UnmuteLevel)
	return &Dispatcher{
		volume: volume,
		keys:   keys,
		config: config,
	}
}

// Map returns the command for an event, or false when the event maps to
// nothing.
func (d *Dispatcher) Map(ev gesture.Event) (Command, bool) {
	switch ev.Kind {
	case gesture.KindContinuousPinch:
		return AdjustVolume(ev.Magnitude), true
	case gesture.KindSideMute:
		switch ev.Side {
		case gesture.SideLeft:
			return Mute(), true
		case gesture.SideRight:
			return Unmute(), true
		}
	case gesture.KindOpenPalm:
		if ev.Rule == gesture.RulePalmFiveDistance {
			return Mute(), true
		}
		return KeyPress(d.config.PauseKey), true
	case gesture.KindClosedPalm:
		return KeyPress(d.config.PlayKey), true
	}
	return Command{}, false
}

// Muted reports whether the dispatcher last muted the output.
func (d *Dispatcher) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}

// Dispatch maps ev and executes the resulting command. ok is false when the
// event maps to nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, ev gesture.Event) (cmd Command, res Result, ok bool, err error) {
	cmd, ok = d.Map(ev)
	if !ok {
		return Command{}, Result{}, false, nil
	}
	res, err = d.Execute(ctx, cmd)
	return cmd, res, true, err
}

// Execute applies cmd to the controllers. Every controller call is bounded
// by the configured timeout; failures wrap ErrControllerUnavailable.
func (d *Dispatcher) Execute(ctx context.Context, cmd Command) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	res, err := d.execute(ctx, cmd)
	res.Duration = time.Since(start)

	if err != nil {
		log.With("command", cmd.String()).
			WithError(err).
			Warn("Cannot execute command.")
		return res, err
	}
	if res.HasLevel {
		log.With("command", cmd.String()).
			With("level", fmt.Sprintf("%.0f%%", res.Level*100)).
			Info("Volume set.")
	} else {
		log.With("command", cmd.String()).
			Info("Command executed.")
	}
	return res, nil
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command) (Result, error) {
	switch cmd.Kind {
	case KindSetVolume:
		level := Clamp(cmd.Level)
		if err := d.setLevel(ctx, level); err != nil {
			return Result{}, err
		}
		d.muted = false
		return Result{Level: level, HasLevel: true}, nil

	case KindAdjustVolume:
		current, err := d.level(ctx)
		if err != nil {
			return Result{}, err
		}
		level := Clamp(current + cmd.Delta)
		if err := d.setLevel(ctx, level); err != nil {
			return Result{}, err
		}
		d.muted = false
		return Result{Level: level, HasLevel: true}, nil

	case KindMute:
		if !d.muted {
			current, err := d.level(ctx)
			if err != nil {
				return Result{}, err
			}
			if err := d.setLevel(ctx, 0); err != nil {
				return Result{}, err
			}
			d.preMute, d.havePreMute = current, current > 0
			d.muted = true
			return Result{Level: 0, HasLevel: true}, nil
		}
		if err := d.setLevel(ctx, 0); err != nil {
			return Result{}, err
		}
		return Result{Level: 0, HasLevel: true}, nil

	case KindUnmute:
		level := d.config.UnmuteLevel
		if d.havePreMute {
			level = d.preMute
		}
		if err := d.setLevel(ctx, level); err != nil {
			return Result{}, err
		}
		d.muted, d.havePreMute = false, false
		return Result{Level: level, HasLevel: true}, nil

	case KindKeyPress:
		if d.keys == nil {
			return Result{}, fmt.Errorf("press %q: %w: no key presser", cmd.Key, ErrControllerUnavailable)
		}
		_, err := bounded(ctx, d.config.Timeout, "press "+cmd.Key, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, d.keys.Press(ctx, cmd.Key)
		})
		return Result{}, err
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd.Kind)
}

func (d *Dispatcher) level(ctx context.Context) (float64, error) {
	if d.volume == nil {
		return 0, fmt.Errorf("get level: %w: no volume controller", ErrControllerUnavailable)
	}
	return bounded(ctx, d.config.Timeout, "get level", d.volume.Level)
}

func (d *Dispatcher) setLevel(ctx context.Context, level float64) error {
	if d.volume == nil {
		return fmt.Errorf("set level: %w: no volume controller", ErrControllerUnavailable)
	}
	_, err := bounded(ctx, d.config.Timeout, "set level", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.volume.SetLevel(ctx, level)
	})
	return err
}

// bounded runs fn in its own goroutine and stops waiting once timeout
// elapses or ctx ends. A stalled controller therefore never blocks the
// caller beyond the timeout.
func bounded[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(callCtx)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		if o.err == nil {
			return o.v, nil
		}
		if errors.Is(o.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, fmt.Errorf("%s: %w", op, ErrDispatchTimeout)
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%s: %w: %w", op, ErrControllerUnavailable, o.err)
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%s: %w", op, ErrDispatchTimeout)
	}
}
