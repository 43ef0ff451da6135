// Package backend is the tracking backend that consumes Hourglass
// configuration.
//
// It owns the set of registered store backends (consulted when a config
// file is decoded), the SQL fact store, and the tmpfile that holds the
// currently running fact. The backend never reads the config file itself:
// the application re-derives a Config from the freshly reloaded model and
// hands it to (*Control).UpdateConfig whenever the configuration changes.
package backend

import (
	"sort"
	"time"
)

// DefaultStore is the store backend used when nothing else is configured.
const DefaultStore = "sql"

// registered maps store backend names to a short description.
var registered = map[string]string{
	DefaultStore: "SQL database (sqlite, postgresql, mysql)",
}

// Names returns the registered store backend names, sorted.
func Names() []string {
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registered reports whether name is a known store backend.
func Registered(name string) bool {
	_, ok := registered[name]
	return ok
}

// Describe returns the human readable description of a store backend.
func Describe(name string) string {
	return registered[name]
}

// Config holds the operating parameters of the backend.
type Config struct {
	// Store is the store backend name, one of Names().
	Store string

	// DayStart is the offset from midnight at which a tracking day begins.
	DayStart time.Duration

	// FactMinDelta is the shortest fact the backend accepts.
	FactMinDelta time.Duration

	// TmpfilePath is where the ongoing fact is persisted.
	TmpfilePath string

	DB DBConfig
}

// DBConfig holds database connection parameters.
// Path is used by sqlite only; the network fields by every other engine.
type DBConfig struct {
	Engine   string
	Path     string
	Host     string
	Port     string // empty selects the engine default
	Name     string
	User     string
	Password string
}

// Fact is a tracked period of time spent on an activity.
type Fact struct {
	ID          int64     `db:"id"`
	Activity    string    `db:"activity"`
	Category    string    `db:"category"`
	Description string    `db:"description"`
	Start       time.Time `db:"start_time"`
	End         time.Time `db:"end_time"`
}

// Activity is an activity name with the category it was tracked under.
type Activity struct {
	Name     string `db:"activity"`
	Category string `db:"category"`
}

// String returns the activity in "name@category" form.
func (a Activity) String() string {
	if a.Category == "" {
		return a.Name
	}
	return a.Name + "@" + a.Category
}

// Duration returns the length of the fact.
func (f Fact) Duration() time.Duration {
	return f.End.Sub(f.Start)
}
