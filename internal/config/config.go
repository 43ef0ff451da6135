// Package config handles Hourglass configuration loading and management.
//
// The configuration lives in a small INI file with a [Backend] and a
// [Frontend] section. The Codec translates between that file and the typed
// Config, the FileStore reads and writes it (creating it from defaults on
// first use), and the Manager owns the current Config and tells
// subscribers when the file changed.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hourglass-app/hourglass/internal/backend"
)

// AppName names the per-user directories and files.
const AppName = "hourglass"

// FileName is the config file name inside AppDirs.ConfigDir.
const FileName = AppName + ".conf"

// AppDirs are the per-user directories of the application.
type AppDirs struct {
	ConfigDir string
	DataDir   string
}

// ResolveAppDirs returns the standard per-user directories for appName.
// Non-empty overrides replace the resolved values.
func ResolveAppDirs(appName, configOverride, dataOverride string) (AppDirs, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return AppDirs{}, err
	}

	dirs := AppDirs{
		ConfigDir: expandPath(configOverride, homeDir),
		DataDir:   expandPath(dataOverride, homeDir),
	}

	if dirs.ConfigDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = filepath.Join(homeDir, ".config")
		}
		dirs.ConfigDir = filepath.Join(base, appName)
	}

	if dirs.DataDir == "" {
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			base = filepath.Join(homeDir, ".local", "share")
		}
		dirs.DataDir = filepath.Join(base, appName)
	}

	return dirs, nil
}

// Location returns the config file path inside dirs.
func Location(dirs AppDirs) string {
	return filepath.Join(dirs.ConfigDir, FileName)
}

// Default returns the default configuration for dirs.
func Default(dirs AppDirs) Config {
	return Config{
		Store:        backend.DefaultStore,
		DayStart:     TimeOfDay{Hour: 5, Minute: 30},
		FactMinDelta: 1,
		TmpfilePath:  filepath.Join(dirs.DataDir, AppName+".tmp"),
		DB: DBConfig{
			Engine: EngineSQLite,
			Path:   filepath.Join(dirs.DataDir, AppName+".sqlite"),
		},
		AutocompleteActivitiesRange: 30,
		AutocompleteSplitActivity:   false,
	}
}

// expandPath expands a leading ~ to homeDir.
func expandPath(p, homeDir string) string {
	if p == "~" {
		return homeDir
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir, p[2:])
	}
	return p
}
