package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	log "github.com/echocat/slf4g"
	"github.com/echocat/slf4g/native"
	"github.com/echocat/slf4g/native/facade/value"
	"github.com/echocat/slf4g/native/formatter"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	lv := value.NewProvider(native.DefaultProvider)
	lv.Consumer.Formatter.Codec = value.MappingFormatterCodec{
		"text": formatter.NewText(),
		"json": formatter.NewJson(),
	}

	var (
		configFile   string
		levelByUser  bool
		formatByUser bool
		flags        config.Config
	)

	cli := kingpin.New("mudra", "Control volume and media keys with hand gestures.")
	cli.Flag("config", "YAML configuration file.").
		Short('c').
		PlaceHolder("FILE").
		StringVar(&configFile)
	cli.Flag("log.level", "").
		IsSetByUser(&levelByUser).
		SetValue(lv.Level)
	cli.Flag("log.format", "").
		IsSetByUser(&formatByUser).
		SetValue(lv.Consumer.Formatter)

	runCmd := cli.Command("run", "Run the gesture pipeline.").Default()
	flags.SetupConfiguration(runCmd)

	dumpCmd := cli.Command("config", "Configuration commands.").
		Command("dump", "Print the effective configuration as YAML.")
	flags.SetupConfiguration(dumpCmd)

	command := kingpin.MustParse(cli.Parse(os.Args[1:]))

	cfg, err := config.Load(configFile)
	if err == nil {
		err = cfg.Merge(&flags)
	}
	if err != nil {
		log.WithError(err).Error("Cannot load configuration.")
		os.Exit(2)
	}

	if !levelByUser && cfg.Log.Level != "" {
		if err := lv.Level.Set(cfg.Log.Level); err != nil {
			log.With("level", cfg.Log.Level).WithError(err).Warn("Ignoring invalid log level.")
		}
	}
	if !formatByUser && cfg.Log.Format != "" {
		_ = lv.Consumer.Formatter.Set(cfg.Log.Format)
	}

	switch command {
	case dumpCmd.FullCommand():
		err = cfg.SaveTo(os.Stdout)
	default:
		err = run(cfg)
	}
	if err != nil {
		log.WithError(err).Error("Going down with an error.")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.Server.Static == "" {
		cfg.Server.Static = findWebDir()
	}

	a, t, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if t == nil {
		return a.Run(ctx)
	}

	t.OnDashboard(func() { openBrowser(cfg.Server.Addr) })
	t.OnQuit(func() {
		log.Info("Quit clicked. Going down...")
		cancel()
	})

	// The tray owns the main goroutine; the pipeline runs beside it.
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	cancel()
	return <-errCh
}

// newApp builds the application and, unless it is disabled, the tray that
// shows its state and last command. The tray is nil when disabled.
func newApp(cfg *config.Config, opts ...app.Option) (*app.App, *tray.Tray, error) {
	if cfg.Tray.Disabled {
		a, err := app.New(cfg, opts...)
		return a, nil, err
	}

	t := tray.New(true)
	a, err := app.New(cfg, append(opts, app.WithObserver(t))...)
	if err != nil {
		return nil, nil, err
	}
	t.SetEnabled(a.Enabled())
	t.OnToggle(func(enabled bool) {
		if err := a.SetEnabled(enabled); err != nil {
			log.WithError(err).Warn("Cannot persist detection setting.")
		}
	})
	a.OnEnabledChange(t.SetEnabled)
	return a, t, nil
}

// findWebDir searches for the dashboard directory in common locations.
// It checks "web", "../web" and ~/.mudra/web and returns "" if none exists.
func findWebDir() string {
	candidates := []string{"web", filepath.Join("..", "web")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".mudra", "web"))
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func openBrowser(addr string) {
	if addr == "" {
		log.Warn("HTTP server is disabled; no dashboard to open.")
		return
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	url := fmt.Sprintf("http://%s/", addr)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.With("url", url).WithError(err).Warn("Cannot open browser.")
	}
}
