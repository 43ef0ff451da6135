// Package config provides configuration types for Hourglass.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hourglass-app/hourglass/internal/backend"
)

// Config is the typed configuration model. It is a plain value: copies
// handed out by the Manager can be modified freely and submitted back
// through (*Manager).Save.
type Config struct {
	// Backend section
	Store        string    `validate:"required,trimmed"`
	DayStart     TimeOfDay `validate:"-"`
	FactMinDelta int
	TmpfilePath  string `validate:"required,trimmed"`
	DB           DBConfig

	// Frontend section
	AutocompleteActivitiesRange int
	AutocompleteSplitActivity   bool
}

// DBConfig holds the database connection parameters. Path is meaningful
// for the sqlite engine only; the network fields for every other engine.
type DBConfig struct {
	Engine   string `validate:"required,trimmed"`
	Path     string `validate:"required_if=Engine sqlite,trimmed"`
	Host     string `validate:"required_unless=Engine sqlite,trimmed"`
	Port     string `validate:"omitempty,numeric"` // empty selects the engine default
	Name     string `validate:"required_unless=Engine sqlite,trimmed"`
	User     string `validate:"required_unless=Engine sqlite,trimmed"`
	Password string `validate:"trimmed"`
}

// EngineSQLite is the db_engine value selecting a local sqlite file.
const EngineSQLite = backend.EngineSQLite

// IsSQLite reports whether the sqlite-shaped fields are the active ones.
func (d DBConfig) IsSQLite() bool {
	return d.Engine == EngineSQLite
}

// Normalize returns a copy of c with the connection fields of the
// inactive engine cleared.
func (c Config) Normalize() Config {
	if c.DB.IsSQLite() {
		c.DB = DBConfig{Engine: c.DB.Engine, Path: c.DB.Path}
	} else {
		c.DB.Path = ""
	}
	return c
}

// Backend derives the tracking backend's operating parameters.
func (c Config) Backend() backend.Config {
	return backend.Config{
		Store:        c.Store,
		DayStart:     c.DayStart.Duration(),
		FactMinDelta: time.Duration(c.FactMinDelta) * time.Minute,
		TmpfilePath:  c.TmpfilePath,
		DB: backend.DBConfig{
			Engine:   c.DB.Engine,
			Path:     c.DB.Path,
			Host:     c.DB.Host,
			Port:     c.DB.Port,
			Name:     c.DB.Name,
			User:     c.DB.User,
			Password: c.DB.Password,
		},
	}
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// timeLayout is the persisted HH:MM:SS form.
const timeLayout = "15:04:05"

// ParseTimeOfDay parses s in HH:MM:SS form. Fractional seconds are
// rejected.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if strings.ContainsAny(s, ".,") {
		return TimeOfDay{}, fmt.Errorf("parsing time %q: unexpected fractional seconds", s)
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return TimeOfDay{}, err
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

// String renders t as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Duration returns the offset of t from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second
}
