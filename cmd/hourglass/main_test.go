package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hourglass-app/hourglass/internal/app"
	"github.com/hourglass-app/hourglass/internal/backend"
	"github.com/hourglass-app/hourglass/internal/backend/backendtest"
	"github.com/hourglass-app/hourglass/internal/config"
	"github.com/hourglass-app/hourglass/internal/errors"
)

var morning = time.Date(2024, 3, 4, 9, 0, 0, 0, time.Local)

// testCLI returns a cli rooted in temporary directories. Every backend
// open gets a fresh sqlmock prepared by expect.
func testCLI(t *testing.T, expect func(sqlmock.Sqlmock)) (*cli, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()
	out := &bytes.Buffer{}

	open, _ := backendtest.Opener(t, expect)

	return &cli{
		stdout: out,
		dirs: config.AppDirs{
			ConfigDir: filepath.Join(root, "config"),
			DataDir:   filepath.Join(root, "data"),
		},
		log:     zap.NewNop().Sugar(),
		now:     func() time.Time { return morning },
		appOpts: []app.Option{app.WithOpener(open)},
	}, out
}

func TestParseFact(t *testing.T) {
	tests := []struct {
		in   string
		want backend.Fact
	}{
		{"coding", backend.Fact{Activity: "coding"}},
		{"coding@work", backend.Fact{Activity: "coding", Category: "work"}},
		{"coding@work, reviewing PRs", backend.Fact{Activity: "coding", Category: "work", Description: "reviewing PRs"}},
		{"mail@home@work", backend.Fact{Activity: "mail@home", Category: "work"}},
		{" lunch , with team", backend.Fact{Activity: "lunch", Description: "with team"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseFact(tt.in), tt.in)
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	c, _ := testCLI(t, nil)
	err := c.execute([]string{"dance"})
	assert.True(t, errors.HasCode(err, errors.CodeUnknownCommand))
	assert.Contains(t, errors.FormatUserMessage(err), "hourglass help")
}

func TestExecute_Help(t *testing.T) {
	c, out := testCLI(t, nil)
	require.NoError(t, c.execute(nil))
	assert.Contains(t, out.String(), "config set <key> <value>")
}

func TestConfig_PathAndKeys(t *testing.T) {
	c, out := testCLI(t, nil)

	require.NoError(t, c.execute([]string{"config", "path"}))
	assert.Equal(t, config.Location(c.dirs)+"\n", out.String())

	out.Reset()
	require.NoError(t, c.execute([]string{"config", "keys"}))
	assert.Contains(t, out.String(), "Backend\tday_start\n")
	assert.Contains(t, out.String(), "Frontend\tautocomplete_split_activity\n")

	out.Reset()
	require.NoError(t, c.execute([]string{"config", "stores"}))
	assert.Equal(t, "sql\t"+backend.Describe("sql")+"\n", out.String())
}

func TestConfig_ShowCreatesDefaults(t *testing.T) {
	c, out := testCLI(t, nil)

	require.NoError(t, c.execute([]string{"config", "show"}))
	data, err := os.ReadFile(config.Location(c.dirs))
	require.NoError(t, err)
	assert.Equal(t, string(data), out.String())
	assert.Contains(t, out.String(), "day_start")
}

func TestConfig_ShowYAML(t *testing.T) {
	c, out := testCLI(t, nil)

	require.NoError(t, c.execute([]string{"config", "show", "--format", "yaml"}))
	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Backend:\n  store: sql\n"), text)
	assert.Contains(t, text, "Frontend:\n  autocomplete_activities_range: 30\n")
	assert.NotContains(t, text, "DEFAULT")

	err := c.execute([]string{"config", "show", "--format", "json"})
	assert.True(t, errors.HasCode(err, errors.CodeUsage))
}

func TestConfig_GetSet(t *testing.T) {
	c, out := testCLI(t, nil)

	require.NoError(t, c.execute([]string{"config", "set", "day_start", "06:00:00", "fact_min_delta", "2"}))
	out.Reset()
	require.NoError(t, c.execute([]string{"config", "get", "day_start"}))
	assert.Equal(t, "06:00:00\n", out.String())

	err := c.execute([]string{"config", "set", "day_start", "6am"})
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalidTimeFormat))

	err = c.execute([]string{"config", "set", "tmpfile_path", ""})
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))

	err = c.execute([]string{"config", "set", "day_start"})
	assert.True(t, errors.HasCode(err, errors.CodeUsage))

	err = c.execute([]string{"config", "get"})
	assert.True(t, errors.HasCode(err, errors.CodeUsage))
}

func TestConfig_SetSwitchEngine(t *testing.T) {
	c, out := testCLI(t, nil)

	require.NoError(t, c.execute([]string{"config", "set",
		"db_engine", "mysql", "db_host", "db", "db_name", "hg", "db_user", "me", "db_password", "pw"}))

	data, err := os.ReadFile(config.Location(c.dirs))
	require.NoError(t, err)
	assert.Contains(t, string(data), "db_host")
	assert.NotContains(t, string(data), "db_path")

	out.Reset()
	require.NoError(t, c.execute([]string{"config", "get", "db_path"}))
	assert.Equal(t, "\n", out.String())
}

func TestConfig_ResetBrokenFile(t *testing.T) {
	c, _ := testCLI(t, nil)
	require.NoError(t, os.MkdirAll(c.dirs.ConfigDir, 0755))
	require.NoError(t, os.WriteFile(config.Location(c.dirs), []byte("[Backend\n"), 0644))

	err := c.execute([]string{"config", "show"})
	assert.True(t, errors.HasCode(err, errors.CodeConfigParseFailed))

	require.NoError(t, c.execute([]string{"config", "reset"}))
	require.NoError(t, c.execute([]string{"config", "show"}))
}

func TestTrack_StartCurrentStop(t *testing.T) {
	c, out := testCLI(t, func(mock sqlmock.Sqlmock) {})

	require.NoError(t, c.execute([]string{"start", "coding@work,", "reviewing"}))
	assert.Equal(t, "Started coding@work\n", out.String())

	out.Reset()
	c.now = func() time.Time { return morning.Add(20 * time.Minute) }
	require.NoError(t, c.execute([]string{"current"}))
	assert.Equal(t, "coding@work since 09:00 (20m0s)\n", out.String())

	err := c.execute([]string{"start", "email"})
	assert.True(t, errors.HasCode(err, errors.CodeFactInvalid))
}

func TestTrack_Stop(t *testing.T) {
	c, out := testCLI(t, func(mock sqlmock.Sqlmock) {})
	require.NoError(t, c.execute([]string{"start", "coding"}))

	c2, out2 := testCLI(t, func(mock sqlmock.Sqlmock) {
		mock.ExpectExec("INSERT INTO facts").
			WithArgs("coding", "", "", morning.UTC(), morning.Add(90*time.Minute).UTC()).
			WillReturnResult(sqlmock.NewResult(1, 1))
	})
	c2.dirs = c.dirs
	c2.now = func() time.Time { return morning.Add(90 * time.Minute) }

	require.NoError(t, c2.execute([]string{"stop"}))
	assert.Equal(t, "Stopped coding after 1h30m0s\n", out2.String())
	assert.Equal(t, "Started coding\n", out.String())
}

func TestTrack_StopWithoutFact(t *testing.T) {
	c, _ := testCLI(t, nil)
	err := c.execute([]string{"stop"})
	assert.True(t, errors.HasCode(err, errors.CodeNoOngoingFact))
}

func TestTrack_Today(t *testing.T) {
	c, out := testCLI(t, func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery("SELECT id, activity, category, description, start_time, end_time").
			WillReturnRows(sqlmock.NewRows([]string{"id", "activity", "category", "description", "start_time", "end_time"}).
				AddRow(1, "email", "", "inbox zero", morning.Add(-2*time.Hour), morning.Add(-90*time.Minute)))
	})

	require.NoError(t, c.execute([]string{"today"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "07:00-07:30")
	assert.Contains(t, lines[0], "email")
	assert.Contains(t, lines[0], "inbox zero")
	assert.Contains(t, lines[1], "total")
	assert.Contains(t, lines[1], "30m0s")
}

func TestTrack_Activities(t *testing.T) {
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"activity", "category"}).
			AddRow("coding", "work").
			AddRow("lunch", "")
	}

	c, out := testCLI(t, func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery("SELECT activity, category FROM facts").
			WithArgs(morning.AddDate(0, 0, -30).UTC()).
			WillReturnRows(rows())
	})
	require.NoError(t, c.execute([]string{"activities"}))
	assert.Equal(t, "coding@work\nlunch\n", out.String())

	// Split output once the frontend option is on.
	c2, out2 := testCLI(t, func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery("SELECT activity, category FROM facts").WillReturnRows(rows())
	})
	m := c2.manager()
	cfg := config.Default(c2.dirs)
	cfg.AutocompleteSplitActivity = true
	require.NoError(t, m.Save(cfg))

	require.NoError(t, c2.execute([]string{"activities"}))
	assert.Equal(t, "coding\twork\nlunch\t\n", out2.String())
}

func TestRun_Version(t *testing.T) {
	root := t.TempDir()
	t.Setenv("HOURGLASS_CONFIG_DIR", filepath.Join(root, "config"))
	t.Setenv("HOURGLASS_DATA_DIR", filepath.Join(root, "data"))
	t.Setenv("HOURGLASS_LOG_LEVEL", "info")
	t.Setenv("HOURGLASS_LOG_TEE", "false")
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"version"}, &stdout, &stderr))
	assert.Equal(t, "hourglass dev (unknown)\n", stdout.String())

	stdout.Reset()
	assert.Equal(t, 1, run([]string{"config", "get", "colour"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Error: unknown config key (colour)")
	assert.FileExists(t, filepath.Join(root, "data", "logs", "hourglass.log"))
}
