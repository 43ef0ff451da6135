package config

import (
	"strings"

	"github.com/hourglass-app/hourglass/internal/backend"
	"github.com/hourglass-app/hourglass/internal/errors"
)

func missingKeyError(section, key string) error {
	return errors.NewBuilder(errors.CodeConfigMissingKey, "required config key is missing").
		WithContext("section", section).
		WithContext("key", key).
		WithSuggestion("Add " + key + " to the [" + section + "] section or delete the file to regenerate defaults").
		Build()
}

func invalidStoreError(store string) error {
	return errors.NewBuilder(errors.CodeConfigInvalidStore, "unrecognized store option").
		WithContext("key", KeyStore).
		WithContext("value", store).
		WithSuggestion("Known stores: " + strings.Join(backend.Names(), ", ")).
		Build()
}

func invalidTimeError(value string, err error) error {
	return errors.NewBuilder(errors.CodeConfigInvalidTimeFormat, "day_start is not a valid HH:MM:SS time").
		WithContext("key", KeyDayStart).
		WithContext("value", value).
		WithSuggestion("Use a 24-hour time such as 05:30:00").
		Wrap(err).
		Build()
}

// invalidValueError reports a failed int or bool conversion. It shares
// the invalid-store code: the file format has no finer-grained kind for it.
func invalidValueError(section, key, value string, err error) error {
	return errors.NewBuilder(errors.CodeConfigInvalidStore, "config value has the wrong type").
		WithContext("section", section).
		WithContext("key", key).
		WithContext("value", value).
		Wrap(err).
		Build()
}

func ioError(op, path string, err error) error {
	return errors.NewBuilder(errors.CodeConfigIOFailure, "cannot "+op+" config file").
		System().
		WithContext("path", path).
		Wrap(err).
		Build()
}

func parseError(path string, err error) error {
	return errors.NewBuilder(errors.CodeConfigParseFailed, "config file is not valid INI").
		WithContext("path", path).
		WithSuggestion("Fix the syntax error or delete the file to regenerate defaults").
		Wrap(err).
		Build()
}
