package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hourglass-app/hourglass/internal/errors"
)

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Len(t, keys, 13)
	assert.Equal(t, KeyStore, keys[0])
	assert.Equal(t, KeyAutocompleteSplitActivity, keys[len(keys)-1])

	section, ok := SectionOf(KeyAutocompleteActivitiesRange)
	assert.True(t, ok)
	assert.Equal(t, SectionFrontend, section)

	_, ok = SectionOf("colour")
	assert.False(t, ok)
}

func TestGet(t *testing.T) {
	cfg := networkConfig()

	for key, want := range map[string]string{
		KeyStore:                       "sql",
		KeyDayStart:                    "07:00:00",
		KeyFactMinDelta:                "5",
		KeyDBEngine:                    "postgresql",
		KeyDBPort:                      "6543",
		KeyDBPath:                      "",
		KeyAutocompleteSplitActivity:   "true",
		KeyAutocompleteActivitiesRange: "14",
	} {
		got, err := Get(cfg, key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}

	_, err := Get(cfg, "colour")
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}

func TestSet(t *testing.T) {
	cfg := Default(AppDirs{DataDir: "/data"})

	got, err := Set(cfg, KeyDayStart, "06:15:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 6, Minute: 15}, got.DayStart)
	assert.Equal(t, TimeOfDay{Hour: 5, Minute: 30}, cfg.DayStart, "input is not modified")

	got, err = Set(cfg, KeyAutocompleteSplitActivity, "yes")
	require.NoError(t, err)
	assert.True(t, got.AutocompleteSplitActivity)

	_, err = Set(cfg, KeyDayStart, "6am")
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalidTimeFormat))

	_, err = Set(cfg, KeyFactMinDelta, "x")
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalidStore))

	_, err = Set(cfg, "colour", "blue")
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}

func TestApply_SwitchEngine(t *testing.T) {
	cfg := Default(AppDirs{DataDir: "/data"})

	got, err := Apply(cfg, [][2]string{
		{KeyDBEngine, "postgresql"},
		{KeyDBHost, "db.local"},
		{KeyDBName, "tracking"},
		{KeyDBUser, "alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, DBConfig{
		Engine: "postgresql",
		Host:   "db.local",
		Name:   "tracking",
		User:   "alice",
	}, got.DB)
	assert.NoError(t, Validate(got))

	// Switching alone decodes, but leaves required keys blank.
	got, err = Set(cfg, KeyDBEngine, "mysql")
	require.NoError(t, err)
	err = Validate(got)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KeyDBHost, appErr.Context["key"])

	_, err = Apply(cfg, [][2]string{{KeyDBHost, "h"}, {"colour", "blue"}})
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}
