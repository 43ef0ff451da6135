// Package app wires the configuration subsystem to the tracking backend.
//
// Startup order: resolve directories, load the config file (creating it
// from defaults on first run), open the backend with parameters derived
// from the loaded Config, then subscribe the backend to config-changed.
// On every notification the App reloads the Config and hands the result
// to the backend.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hourglass-app/hourglass/internal/backend"
	"github.com/hourglass-app/hourglass/internal/config"
	"github.com/hourglass-app/hourglass/internal/config/notify"
	"github.com/hourglass-app/hourglass/internal/metrics"
)

// App holds the running components of one process.
type App struct {
	Dirs     config.AppDirs
	Manager  *config.Manager
	Control  *backend.Control
	Metrics  *metrics.Config
	Registry *prometheus.Registry

	sub *notify.Subscription
	log *zap.SugaredLogger
}

type options struct {
	opener   backend.Opener
	registry *prometheus.Registry
}

// Option configures New.
type Option func(*options)

// WithOpener replaces the function used to open the fact store.
func WithOpener(open backend.Opener) Option {
	return func(o *options) {
		o.opener = open
	}
}

// WithRegistry registers the instruments on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// New starts the application for dirs. A Config that cannot be loaded is
// fatal; the error carries the config error code.
func New(ctx context.Context, dirs config.AppDirs, log *zap.SugaredLogger, opts ...Option) (*App, error) {
	o := options{registry: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	a := &App{
		Dirs:     dirs,
		Metrics:  metrics.NewConfig(o.registry),
		Registry: o.registry,
		log:      log,
	}

	a.Manager = config.NewManager(
		config.NewFileStore(config.Location(dirs)),
		dirs,
		config.WithLogger(log.Named("config")),
		config.WithMetrics(a.Metrics),
	)

	cfg, err := a.Manager.Reload()
	if err != nil {
		return nil, err
	}

	backendOpts := []backend.Option{backend.WithLogger(log.Named("backend"))}
	if o.opener != nil {
		backendOpts = append(backendOpts, backend.WithOpener(o.opener))
	}
	a.Control, err = backend.New(ctx, cfg.Backend(), backendOpts...)
	if err != nil {
		return nil, err
	}

	a.sub = a.Manager.Subscribe(a.configChanged)
	return a, nil
}

// configChanged re-reads the file and pushes the result to the backend.
// A file that fails to load leaves the backend on its previous settings.
func (a *App) configChanged() {
	cfg, err := a.Manager.Reload()
	if err != nil {
		a.log.Warnw("config change ignored", "err", err)
		return
	}
	if err := a.Control.UpdateConfig(context.Background(), cfg.Backend()); err != nil {
		a.log.Errorw("backend kept previous config", "err", err)
	}
}

// Watch emits config-changed for external edits of the config file until
// ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	w, err := config.NewWatcher(a.Manager, config.WithWatcherLogger(a.log.Named("watcher")))
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer w.Close()

	a.log.Infow("watching config", "path", a.Manager.Store().Path())
	w.Run(ctx)
	return nil
}

// Close unsubscribes the backend and closes it.
func (a *App) Close() error {
	a.sub.Unsubscribe()
	a.Manager.Close()
	return a.Control.Close()
}
