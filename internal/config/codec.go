package config

import (
	"strconv"

	"gopkg.in/ini.v1"

	"github.com/hourglass-app/hourglass/internal/backend"
)

// Section names of the persisted file.
const (
	SectionBackend  = "Backend"
	SectionFrontend = "Frontend"
)

// Keys of the [Backend] section.
const (
	KeyStore        = "store"
	KeyDayStart     = "day_start"
	KeyFactMinDelta = "fact_min_delta"
	KeyTmpfilePath  = "tmpfile_path"
	KeyDBEngine     = "db_engine"
	KeyDBPath       = "db_path"
	KeyDBHost       = "db_host"
	KeyDBPort       = "db_port"
	KeyDBName       = "db_name"
	KeyDBUser       = "db_user"
	KeyDBPassword   = "db_password"
)

// Keys of the [Frontend] section.
const (
	KeyAutocompleteActivitiesRange = "autocomplete_activities_range"
	KeyAutocompleteSplitActivity   = "autocomplete_split_activity"
)

// loadOptions are shared by every ini.File the package creates so that
// decoded and encoded files behave the same way.
// A trailing backslash is data, not a continuation, and surrounding quotes
// are kept as part of the value.
var loadOptions = ini.LoadOptions{
	InsensitiveKeys:          true,
	SpaceBeforeInlineComment: true,
	IgnoreContinuation:       true,
	PreserveSurroundedQuote:  true,
}

// Codec translates between Config and its persisted INI form.
type Codec struct {
	registered func(store string) bool
}

// NewCodec returns a Codec accepting the stores for which registered
// returns true.
func NewCodec(registered func(store string) bool) *Codec {
	return &Codec{registered: registered}
}

var defaultCodec = NewCodec(backend.Registered)

// Encode renders cfg with the registered backends of this build.
func Encode(cfg Config) *ini.File {
	return defaultCodec.Encode(cfg)
}

// Decode parses file with the registered backends of this build.
func Decode(file *ini.File) (Config, error) {
	return defaultCodec.Decode(file)
}

// Encode renders cfg as an INI file. Only the connection fields of the
// active engine are written; db_port is omitted when empty.
func (c *Codec) Encode(cfg Config) *ini.File {
	file := ini.Empty(loadOptions)

	b := file.Section(SectionBackend)
	set(b, KeyStore, cfg.Store)
	set(b, KeyDayStart, cfg.DayStart.String())
	set(b, KeyFactMinDelta, strconv.Itoa(cfg.FactMinDelta))
	set(b, KeyTmpfilePath, cfg.TmpfilePath)
	set(b, KeyDBEngine, cfg.DB.Engine)
	if cfg.DB.IsSQLite() {
		set(b, KeyDBPath, cfg.DB.Path)
	} else {
		set(b, KeyDBHost, cfg.DB.Host)
		set(b, KeyDBName, cfg.DB.Name)
		set(b, KeyDBUser, cfg.DB.User)
		set(b, KeyDBPassword, cfg.DB.Password)
		if cfg.DB.Port != "" {
			set(b, KeyDBPort, cfg.DB.Port)
		}
	}

	f := file.Section(SectionFrontend)
	set(f, KeyAutocompleteActivitiesRange, strconv.Itoa(cfg.AutocompleteActivitiesRange))
	set(f, KeyAutocompleteSplitActivity, strconv.FormatBool(cfg.AutocompleteSplitActivity))

	return file
}

// set adds a key; NewKey only fails for empty names.
func set(sec *ini.Section, key, value string) {
	_, _ = sec.NewKey(key, value)
}

// Decode builds a Config from file, validating every value.
func (c *Codec) Decode(file *ini.File) (Config, error) {
	d := decoder{file: file}
	var cfg Config

	store := d.str(SectionBackend, KeyStore)
	if d.err == nil && !c.registered(store) {
		d.err = invalidStoreError(store)
	}
	cfg.Store = store

	if raw := d.str(SectionBackend, KeyDayStart); d.err == nil {
		t, err := ParseTimeOfDay(raw)
		if err != nil {
			d.err = invalidTimeError(raw, err)
		}
		cfg.DayStart = t
	}

	cfg.FactMinDelta = d.int(SectionBackend, KeyFactMinDelta)
	cfg.TmpfilePath = d.str(SectionBackend, KeyTmpfilePath)
	cfg.AutocompleteActivitiesRange = d.int(SectionFrontend, KeyAutocompleteActivitiesRange)
	cfg.AutocompleteSplitActivity = d.bool(SectionFrontend, KeyAutocompleteSplitActivity)

	cfg.DB.Engine = d.str(SectionBackend, KeyDBEngine)
	if cfg.DB.IsSQLite() {
		cfg.DB.Path = d.str(SectionBackend, KeyDBPath)
	} else {
		cfg.DB.Port = d.optional(SectionBackend, KeyDBPort)
		cfg.DB.Host = d.str(SectionBackend, KeyDBHost)
		cfg.DB.Name = d.str(SectionBackend, KeyDBName)
		cfg.DB.User = d.str(SectionBackend, KeyDBUser)
		cfg.DB.Password = d.str(SectionBackend, KeyDBPassword)
	}

	if d.err != nil {
		return Config{}, d.err
	}
	return cfg, nil
}

// decoder reads typed values from an ini.File and remembers the first
// error; every read after it is a no-op.
type decoder struct {
	file *ini.File
	err  error
}

func (d *decoder) key(section, name string) *ini.Key {
	if d.err != nil {
		return nil
	}
	sec, err := d.file.GetSection(section)
	if err != nil {
		d.err = missingKeyError(section, name)
		return nil
	}
	k, err := sec.GetKey(name)
	if err != nil {
		d.err = missingKeyError(section, name)
		return nil
	}
	return k
}

func (d *decoder) str(section, name string) string {
	if k := d.key(section, name); k != nil {
		return k.String()
	}
	return ""
}

func (d *decoder) optional(section, name string) string {
	if d.err != nil {
		return ""
	}
	sec, err := d.file.GetSection(section)
	if err != nil || !sec.HasKey(name) {
		return ""
	}
	return sec.Key(name).String()
}

func (d *decoder) int(section, name string) int {
	k := d.key(section, name)
	if k == nil {
		return 0
	}
	v, err := strconv.Atoi(k.String())
	if err != nil {
		d.err = invalidValueError(section, name, k.String(), err)
		return 0
	}
	return v
}

func (d *decoder) bool(section, name string) bool {
	k := d.key(section, name)
	if k == nil {
		return false
	}
	v, err := k.Bool()
	if err != nil {
		d.err = invalidValueError(section, name, k.String(), err)
		return false
	}
	return v
}
