// Package app wires configuration, frame source, gesture pipeline and the
// outer surfaces (journal, metrics, HTTP, MQTT) into one application.
package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	log "github.com/echocat/slf4g"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/cooldown"
	"github.com/ayusman/mudra/internal/emitter"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

const pruneInterval = time.Hour

// Option customizes an App.
type Option func(*App)

// WithSource replaces the configured frame source.
func WithSource(src pipeline.Source) Option {
	return func(a *App) {
		a.source = src
	}
}

// WithControllers replaces the configured volume and key controllers.
func WithControllers(volume action.VolumeController, keys action.KeyPresser) Option {
	return func(a *App) {
		a.ctrl = controllers{volume: volume, keys: keys}
	}
}

// WithObserver adds an observer for frame reports.
func WithObserver(o pipeline.Observer) Option {
	return func(a *App) {
		a.observers = append(a.observers, o)
	}
}

// App is the main application. Create it with New, start it with Run and
// release it with Close.
type App struct {
	config *config.Config

	rules      []gesture.Rule
	source     pipeline.Source
	ctrl       controllers
	observers  []pipeline.Observer
	dispatcher *action.Dispatcher
	runner     *pipeline.Runner

	registry *prometheus.Registry
	metrics  *metrics.Manager
	store    *store.Store
	hub      *server.Hub
	emitter  *emitter.MQTTEmitter
	server   *server.Server

	closers []io.Closer

	mu        sync.Mutex
	listeners []func(enabled bool)
}

// New builds the application from cfg. Nothing runs until Run is called.
func New(cfg *config.Config, opts ...Option) (_ *App, err error) {
	a := &App{config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	classifier, err := gesture.NewClassifier(cfg.Gesture())
	if err != nil {
		return nil, err
	}
	a.rules = classifier.Rules()
	if shadowed := gesture.Shadowed(a.rules); len(shadowed) > 0 {
		log.With("shadowed", shadowed).
			Warn("pinchContinuous matches every pinch-capable hand first; the shadowed rule sets never fire.")
	}
	gate := cooldown.New(cfg.CooldownOptions()...)

	if a.ctrl.volume == nil && a.ctrl.keys == nil {
		if a.ctrl, err = newControllers(cfg.Controller); err != nil {
			return nil, err
		}
	}
	a.dispatcher = action.NewDispatcher(a.ctrl.volume, a.ctrl.keys, cfg.Dispatch)

	if a.source == nil {
		src, closer, err := newSource(cfg.Source, cfg.Detector)
		if err != nil {
			return nil, err
		}
		a.source = src
		a.closers = append(a.closers, closer)
	}

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.NewManager(metrics.WithPrometheusRegistry(a.registry))
	a.hub = server.NewHub()

	enabled := true
	if cfg.Store.Path != "" {
		if a.store, err = store.New(cfg.Store.Path); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.store)
		if enabled, err = a.store.Settings().GetBool(store.KeyDetectionEnabled, true); err != nil {
			log.WithError(err).Warn("Cannot read detection setting; detection stays enabled.")
			enabled = true
		}
	}

	if cfg.MQTT.Enabled() {
		if a.emitter, err = emitter.NewMQTTEmitter(cfg.MQTT); err != nil {
			return nil, err
		}
	}

	runnerOpts := []pipeline.RunnerOption{
		pipeline.WithDropStale(cfg.DropStale()),
		pipeline.WithObserver(a.metrics),
		pipeline.WithObserver(a.hub),
	}
	if a.store != nil {
		runnerOpts = append(runnerOpts, pipeline.WithObserver(a.store.Journal()))
	}
	if a.emitter != nil {
		runnerOpts = append(runnerOpts, pipeline.WithObserver(a.emitter))
	}
	for _, o := range a.observers {
		runnerOpts = append(runnerOpts, pipeline.WithObserver(o))
	}

	processor := pipeline.NewProcessor(classifier, gate, a.dispatcher)
	a.runner = pipeline.NewRunner(a.source, processor, runnerOpts...)
	a.runner.SetEnabled(enabled)
	a.metrics.SetDetectionEnabled(enabled)

	if cfg.Server.Addr != "" {
		a.server = server.New(server.Config{
			StaticDir: cfg.Server.Static,
			Store:     a.store,
			Control:   a,
			Hub:       a.hub,
			Metrics:   a.registry,
		})
	}

	log.With("rules", a.rules).
		With("cooldown", cfg.Cooldown.Interval).
		With("enabled", enabled).
		Info("Application initialized.")

	return a, nil
}

// Run processes frames until the source is exhausted or ctx is done. The
// HTTP server and MQTT emitter run alongside and stop when Run returns.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	if a.emitter != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := a.emitter.Connect(ctx); err != nil {
				log.With("broker", a.config.MQTT.Broker).
					WithError(err).
					Warn("Cannot connect to MQTT broker; commands will not be published.")
			}
		}()
		go func() {
			defer wg.Done()
			a.emitter.Run(ctx)
		}()
	}

	if a.store != nil && a.config.Store.Retention > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.pruneJournal(ctx)
		}()
	}

	if a.server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.server.ListenAndServe(ctx, a.config.Server.Addr); err != nil {
				log.With("addr", a.config.Server.Addr).
					WithError(err).
					Error("HTTP server failed.")
			}
		}()
	}

	err := a.runner.Run(ctx)
	cancel()
	wg.Wait()

	if a.emitter != nil {
		a.emitter.Disconnect()
	}
	return err
}

// pruneJournal removes journal entries older than the retention period now
// and then every pruneInterval until ctx is done.
func (a *App) pruneJournal(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		retention := a.config.Store.Retention
		removed, err := a.store.Journal().Prune(time.Now().Add(-retention))
		if err != nil {
			log.WithError(err).Warn("Cannot prune command journal.")
		} else if removed > 0 {
			log.With("removed", removed).
				With("retention", retention).
				Info("Pruned command journal.")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close releases the frame source and the store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Enabled reports whether gesture detection is enabled.
func (a *App) Enabled() bool {
	return a.runner.Enabled()
}

// SetEnabled toggles gesture detection and persists the choice.
func (a *App) SetEnabled(enabled bool) error {
	a.runner.SetEnabled(enabled)
	a.metrics.SetDetectionEnabled(enabled)
	log.With("enabled", enabled).Info("Gesture detection toggled.")

	a.mu.Lock()
	listeners := append([]func(bool){}, a.listeners...)
	a.mu.Unlock()
	for _, fn := range listeners {
		fn(enabled)
	}

	if a.store != nil {
		return a.store.Settings().SetBool(store.KeyDetectionEnabled, enabled)
	}
	return nil
}

// OnEnabledChange registers fn to be called after every SetEnabled.
func (a *App) OnEnabledChange(fn func(enabled bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Status returns a snapshot for the status API.
func (a *App) Status() api.Status {
	status := api.Status{
		Enabled: a.runner.Enabled(),
		Source:  a.config.Source.Kind,
		Runner:  a.runner.Stats(),
		Muted:   a.dispatcher.Muted(),
	}
	for _, r := range a.rules {
		status.Rules = append(status.Rules, string(r))
	}

	if a.ctrl.volume != nil {
		timeout := a.config.Dispatch.Timeout
		if timeout <= 0 {
			timeout = time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if level, err := a.ctrl.volume.Level(ctx); err == nil {
			status.Level = &level
		}
	}

	if a.emitter != nil {
		stats := a.emitter.Stats()
		status.MQTT = &stats
	}
	return status
}

// Store returns the command journal store, or nil when it is disabled.
func (a *App) Store() *store.Store {
	return a.store
}

// Registry returns the metrics registry.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}
