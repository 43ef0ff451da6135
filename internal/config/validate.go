package config

import (
	stderrors "errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hourglass-app/hourglass/internal/backend"
	"github.com/hourglass-app/hourglass/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// The file format trims unquoted values, so padding cannot be stored.
	if err := v.RegisterValidation("trimmed", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.TrimSpace(s) == s
	}); err != nil {
		panic(err)
	}
	return v
}

// fieldKeys maps struct field names to persisted key names for messages.
var fieldKeys = map[string]string{
	"Store":       KeyStore,
	"TmpfilePath": KeyTmpfilePath,
	"Engine":      KeyDBEngine,
	"Path":        KeyDBPath,
	"Host":        KeyDBHost,
	"Port":        KeyDBPort,
	"Name":        KeyDBName,
	"User":        KeyDBUser,
	"Password":    KeyDBPassword,
}

// Validate checks cfg before it is submitted for saving. Decode performs
// its own checks; Validate additionally rejects empty required values,
// which the file format cannot distinguish from intentional blanks.
func Validate(cfg Config) error {
	if !backend.Registered(cfg.Store) {
		return invalidStoreError(cfg.Store)
	}

	if _, err := ParseTimeOfDay(cfg.DayStart.String()); err != nil {
		return invalidTimeError(cfg.DayStart.String(), err)
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) || len(verrs) == 0 {
			return errors.Wrap(err, errors.CodeConfigInvalid, "config validation failed", errors.CategoryPermanent)
		}

		fe := verrs[0]
		key := fieldKeys[fe.StructField()]
		if key == "" {
			key = strings.ToLower(fe.StructField())
		}
		return errors.NewBuilder(errors.CodeConfigInvalid, "config value is invalid").
			WithContext("key", key).
			WithContext("rule", fe.Tag()).
			Wrap(err).
			Build()
	}

	if cfg.DB.Engine != EngineSQLite {
		if _, _, err := backend.DSN(cfg.Backend().DB); err != nil {
			return errors.NewBuilder(errors.CodeConfigInvalid, "unsupported database engine").
				WithContext("key", KeyDBEngine).
				WithContext("value", cfg.DB.Engine).
				WithSuggestion("Use sqlite, postgresql or mysql").
				Wrap(err).
				Build()
		}
	}
	return nil
}
