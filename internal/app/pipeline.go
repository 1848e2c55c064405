package app

import (
	"fmt"
	"io"

	log "github.com/echocat/slf4g"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/plugin"
)

// controllers are the volume and key backends commands are executed against.
type controllers struct {
	volume action.VolumeController
	keys   action.KeyPresser
}

// newControllers builds the configured controller backend. The plugin
// backend discovers plugins once at startup; missing plugins surface as
// failed dispatches rather than a startup error.
func newControllers(cfg config.ControllerConfig) (controllers, error) {
	switch cfg.Kind {
	case config.ControllerMemory:
		mem := action.NewMemoryController(cfg.InitialLevel)
		log.With("level", cfg.InitialLevel).Info("Using in-memory controller.")
		return controllers{volume: mem, keys: mem}, nil

	case config.ControllerPlugin:
		manager := plugin.NewManager(cfg.Plugins.Dir)
		if err := manager.Discover(); err != nil {
			return controllers{}, fmt.Errorf("discover plugins: %w", err)
		}
		found := manager.List()
		names := make([]string, len(found))
		for i, p := range found {
			names[i] = p.Manifest.Name
		}
		log.With("dir", cfg.Plugins.Dir).
			With("plugins", names).
			Info("Plugins discovered.")

		ctrl := plugin.NewController(manager, plugin.NewExecutor(cfg.Plugins.Timeout), cfg.Plugins)
		return controllers{volume: ctrl, keys: ctrl}, nil

	default:
		return controllers{}, fmt.Errorf("%w: unknown controller %q", config.ErrInvalidConfig, cfg.Kind)
	}
}

// newSource opens the configured frame source. The returned closer releases
// it.
func newSource(cfg config.SourceConfig, detCfg detector.Config) (pipeline.Source, io.Closer, error) {
	switch cfg.Kind {
	case config.SourceReplay:
		src, err := capture.OpenReplay(cfg.Replay, capture.WithPacing(cfg.Pace))
		if err != nil {
			return nil, nil, err
		}
		log.With("file", cfg.Replay).
			With("pace", cfg.Pace).
			Info("Replaying recorded session.")
		return src, src, nil

	case config.SourceCamera:
		d, err := detector.NewMediaPipeDetector(detCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("hand detector: %w", err)
		}
		cam := capture.NewCamera(cfg.Camera)
		if err := cam.Open(); err != nil {
			_ = d.Close()
			return nil, nil, err
		}
		log.With("device", cfg.Camera.Device).
			With("fps", cam.FPS()).
			With("mirror", cfg.Camera.Mirror).
			Info("Camera opened.")
		src := capture.NewCameraSource(cam, d, cfg.Camera.Mirror)
		return src, src, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown source %q", config.ErrInvalidConfig, cfg.Kind)
	}
}
