package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits for a burst of file
// events to settle before checking the file.
const DefaultDebounce = 100 * time.Millisecond

// Watcher emits config-changed when the config file is modified by
// another process or an editor.
type Watcher struct {
	m        *Manager
	fs       *fsnotify.Watcher
	path     string
	debounce time.Duration
	log      *zap.SugaredLogger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce interval.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(log *zap.SugaredLogger) WatcherOption {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWatcher watches the directory of m's config file. Editors often
// replace files by renaming, so the directory is watched rather than the
// file itself.
func NewWatcher(m *Manager, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		m:        m,
		fs:       fsw,
		path:     filepath.Clean(m.Store().Path()),
		debounce: DefaultDebounce,
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes file events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op == fsnotify.Chmod {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warnw("config watcher error", "err", err)

		case <-fire:
			fire = nil
			w.check()
		}
	}
}

// check emits config-changed unless the file holds what the manager
// itself last read or wrote.
func (w *Watcher) check() {
	changed, err := w.m.Store().Changed()
	if err != nil {
		w.log.Warnw("config watcher cannot read file", "path", w.path, "err", err)
		return
	}
	if !changed {
		return
	}
	w.log.Infow("config file changed on disk", "path", w.path)
	w.m.NotifyChanged()
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
