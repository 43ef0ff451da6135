// Package appenv reads process runtime settings.
//
// Settings come from environment variables prefixed HOURGLASS_, after an
// optional .env file has been merged into the environment. Variables that
// are already set win over the .env file.
//
//	HOURGLASS_CONFIG_DIR → config_dir
//	HOURGLASS_LOG_TEE    → log_tee
package appenv

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	koanf "github.com/knadh/koanf/v2"
)

// Prefix is the environment variable prefix.
const Prefix = "HOURGLASS_"

// Settings are the runtime settings of one process.
type Settings struct {
	ConfigDir string `koanf:"config_dir"`
	DataDir   string `koanf:"data_dir"`
	LogLevel  string `koanf:"log_level"`
	LogTee    bool   `koanf:"log_tee"`

	// Dotenv is the .env file that was merged, if any.
	Dotenv string `koanf:"-"`
}

// Load merges the first existing file of dotenv into the environment and
// reads Settings from it. Missing .env files are not an error.
func Load(dotenv ...string) (Settings, error) {
	var loaded string
	for _, path := range dotenv {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return Settings{}, fmt.Errorf("loading %s: %w", path, err)
		}
		loaded = path
		break
	}

	k := koanf.New(".")
	if err := k.Load(env.Provider(Prefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, Prefix))
	}), nil); err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, err
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	s.Dotenv = loaded
	return s, nil
}
