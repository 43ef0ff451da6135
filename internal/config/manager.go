package config

import (
	"sync/atomic"

	"go.uber.org/zap"
	"gopkg.in/ini.v1"

	"github.com/hourglass-app/hourglass/internal/config/notify"
	"github.com/hourglass-app/hourglass/internal/errors"
	"github.com/hourglass-app/hourglass/internal/metrics"
)

// Manager owns the current configuration.
//
// The persisted file is the single source of truth: Save writes the file
// and emits config-changed, but does not touch the held Config. Observers
// call Reload to obtain the re-parsed, re-validated model.
type Manager struct {
	store    *FileStore
	dirs     AppDirs
	codec    *Codec
	notifier *notify.Notifier
	current  atomic.Pointer[Config]

	log     *zap.SugaredLogger
	metrics *metrics.Config
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithMetrics sets the instruments updated by the manager.
func WithMetrics(mc *metrics.Config) Option {
	return func(m *Manager) {
		m.metrics = mc
	}
}

// WithCodec replaces the codec, e.g. to accept a different store set.
func WithCodec(c *Codec) Option {
	return func(m *Manager) {
		if c != nil {
			m.codec = c
		}
	}
}

// NewManager returns an uninitialized Manager for the file held by store.
// dirs feeds the Default provider used on first run.
func NewManager(store *FileStore, dirs AppDirs, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		dirs:     dirs,
		codec:    defaultCodec,
		notifier: notify.New(),
		log:      zap.NewNop().Sugar(),
		metrics:  metrics.NewConfig(nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying file store.
func (m *Manager) Store() *FileStore {
	return m.store
}

// Reload reads and decodes the config file, creating it from defaults if
// it doesn't exist, and replaces the held Config. On error the held
// Config is left unchanged.
func (m *Manager) Reload() (Config, error) {
	file, err := m.store.Load(m.fallback)
	if err != nil {
		m.fail("config load failed", err)
		return Config{}, err
	}

	cfg, err := m.codec.Decode(file)
	if err != nil {
		m.fail("config decode failed", err)
		return Config{}, err
	}

	m.current.Store(&cfg)
	m.metrics.Reloads.Inc()
	m.log.Infow("config loaded",
		"path", m.store.Path(),
		"store", cfg.Store,
		"engine", cfg.DB.Engine,
		"day_start", cfg.DayStart.String(),
	)
	return cfg, nil
}

// Current returns a copy of the held Config. Before the first successful
// Reload it returns the zero Config.
func (m *Manager) Current() Config {
	if cfg := m.current.Load(); cfg != nil {
		return *cfg
	}
	return Config{}
}

// Loaded reports whether a Config has been loaded.
func (m *Manager) Loaded() bool {
	return m.current.Load() != nil
}

// Save persists cfg and emits config-changed. If the file cannot be
// written, no notification is emitted.
//
// Observers must not call Save from their callback.
func (m *Manager) Save(cfg Config) error {
	if err := m.store.Save(m.codec.Encode(cfg)); err != nil {
		m.fail("config save failed", err)
		return err
	}

	m.metrics.Saves.Inc()
	m.log.Infow("config saved", "path", m.store.Path())
	m.NotifyChanged()
	return nil
}

// Subscribe registers fn to be called after every config change.
func (m *Manager) Subscribe(fn func()) *notify.Subscription {
	return m.notifier.Subscribe(fn)
}

// NotifyChanged emits config-changed without writing the file. The
// watcher uses it when the file was edited by someone else.
func (m *Manager) NotifyChanged() {
	n := m.notifier.Notify()
	m.metrics.Notifications.Inc()
	m.log.Debugw("config-changed emitted", "observers", n)
}

// Close drops all subscriptions.
func (m *Manager) Close() {
	m.notifier.Close()
}

func (m *Manager) fallback() *ini.File {
	m.log.Infow("config file missing, writing defaults", "path", m.store.Path())
	return m.codec.Encode(Default(m.dirs))
}

func (m *Manager) fail(msg string, err error) {
	m.metrics.ObserveError(errors.GetCode(err))
	m.log.Errorw(msg, "path", m.store.Path(), "err", err)
}
