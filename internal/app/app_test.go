package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hourglass-app/hourglass/internal/backend/backendtest"
	"github.com/hourglass-app/hourglass/internal/config"
	"github.com/hourglass-app/hourglass/internal/errors"
)

func testDirs(t *testing.T) config.AppDirs {
	root := t.TempDir()
	return config.AppDirs{
		ConfigDir: filepath.Join(root, "config"),
		DataDir:   filepath.Join(root, "data"),
	}
}

func TestNew_FirstRun(t *testing.T) {
	open, opened := backendtest.Opener(t, nil)
	dirs := testDirs(t)

	a, err := New(context.Background(), dirs, nil, WithOpener(open))
	require.NoError(t, err)
	defer a.Close()

	assert.FileExists(t, config.Location(dirs))
	assert.Equal(t, config.Default(dirs), a.Manager.Current())
	assert.Equal(t, config.Default(dirs).Backend(), a.Control.Config())
	assert.Len(t, opened.All(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.Reloads))
}

func TestNew_BrokenConfigIsFatal(t *testing.T) {
	open, opened := backendtest.Opener(t, nil)
	dirs := testDirs(t)
	require.NoError(t, os.MkdirAll(dirs.ConfigDir, 0755))
	require.NoError(t, os.WriteFile(config.Location(dirs), []byte("[Backend]\nstore = sql\n"), 0644))

	_, err := New(context.Background(), dirs, nil, WithOpener(open))
	assert.True(t, errors.HasCode(err, errors.CodeConfigMissingKey))
	assert.Empty(t, opened.All())
}

func TestApp_SaveUpdatesBackend(t *testing.T) {
	open, opened := backendtest.Opener(t, nil)
	dirs := testDirs(t)

	a, err := New(context.Background(), dirs, nil, WithOpener(open))
	require.NoError(t, err)
	defer a.Close()

	cfg := a.Manager.Current()
	cfg.DayStart = config.TimeOfDay{Hour: 4}
	cfg.FactMinDelta = 3
	require.NoError(t, a.Manager.Save(cfg))

	got := a.Control.Config()
	assert.Equal(t, 4*time.Hour, got.DayStart)
	assert.Equal(t, 3*time.Minute, got.FactMinDelta)
	assert.Len(t, opened.All(), 1, "same database, no reopen")
	assert.Equal(t, cfg, a.Manager.Current())

	cfg.DB.Path = filepath.Join(dirs.DataDir, "other.sqlite")
	require.NoError(t, a.Manager.Save(cfg))
	require.Len(t, opened.All(), 2)
	assert.Equal(t, cfg.DB.Path, opened.All()[1].Path)
	assert.Equal(t, cfg.DB.Path, a.Control.Config().DB.Path)
}

func TestApp_BadEditKeepsBackend(t *testing.T) {
	open, _ := backendtest.Opener(t, nil)
	dirs := testDirs(t)

	a, err := New(context.Background(), dirs, nil, WithOpener(open))
	require.NoError(t, err)
	defer a.Close()

	before := a.Control.Config()
	require.NoError(t, os.WriteFile(config.Location(dirs), []byte("[Backend]\nstore = tape\n"), 0644))
	a.Manager.NotifyChanged()

	assert.Equal(t, before, a.Control.Config())
	assert.Equal(t, config.Default(dirs), a.Manager.Current())
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.Errors.WithLabelValues(errors.CodeConfigInvalidStore)))
}

func TestApp_CloseUnsubscribes(t *testing.T) {
	open, _ := backendtest.Opener(t, nil)
	dirs := testDirs(t)

	a, err := New(context.Background(), dirs, nil, WithOpener(open))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	cfg := a.Manager.Current()
	cfg.FactMinDelta = 9
	require.NoError(t, a.Manager.Save(cfg))
	assert.Equal(t, time.Minute, a.Control.Config().FactMinDelta)
}

func TestApp_Watch(t *testing.T) {
	open, _ := backendtest.Opener(t, nil)
	dirs := testDirs(t)

	a, err := New(context.Background(), dirs, nil, WithOpener(open))
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx) }()

	// The watcher may not be registered yet; keep rewriting until seen.
	cfg := config.Default(dirs)
	require.Eventually(t, func() bool {
		cfg.FactMinDelta++
		data, err := config.Render(config.Encode(cfg))
		if err != nil || os.WriteFile(config.Location(dirs), data, 0644) != nil {
			return false
		}
		time.Sleep(150 * time.Millisecond)
		return a.Control.Config().FactMinDelta != time.Minute
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
