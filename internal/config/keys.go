package config

import (
	"gopkg.in/ini.v1"

	"github.com/hourglass-app/hourglass/internal/errors"
)

// keySections lists every persisted key with its section, in file order.
var keySections = []struct {
	key     string
	section string
}{
	{KeyStore, SectionBackend},
	{KeyDayStart, SectionBackend},
	{KeyFactMinDelta, SectionBackend},
	{KeyTmpfilePath, SectionBackend},
	{KeyDBEngine, SectionBackend},
	{KeyDBPath, SectionBackend},
	{KeyDBHost, SectionBackend},
	{KeyDBName, SectionBackend},
	{KeyDBUser, SectionBackend},
	{KeyDBPassword, SectionBackend},
	{KeyDBPort, SectionBackend},
	{KeyAutocompleteActivitiesRange, SectionFrontend},
	{KeyAutocompleteSplitActivity, SectionFrontend},
}

// Keys returns every key of the persisted schema in file order.
func Keys() []string {
	keys := make([]string, len(keySections))
	for i, ks := range keySections {
		keys[i] = ks.key
	}
	return keys
}

// SectionOf returns the section holding key.
func SectionOf(key string) (string, bool) {
	for _, ks := range keySections {
		if ks.key == key {
			return ks.section, true
		}
	}
	return "", false
}

// Get returns the persisted string form of key in cfg. Keys of the
// inactive database engine read as empty.
func Get(cfg Config, key string) (string, error) {
	section, ok := SectionOf(key)
	if !ok {
		return "", unknownKeyError(key)
	}
	sec, err := Encode(cfg).GetSection(section)
	if err != nil || !sec.HasKey(key) {
		return "", nil
	}
	return sec.Key(key).String(), nil
}

// Set returns a copy of cfg with key set from its string form. The value
// goes through Decode, so it is converted and checked exactly as if it
// had been read from the file.
func Set(cfg Config, key, value string) (Config, error) {
	return Apply(cfg, [][2]string{{key, value}})
}

// Apply is Set for several key/value pairs at once. Pairs are applied in
// order before decoding, which lets db_engine change together with the
// connection keys of the new engine.
func Apply(cfg Config, pairs [][2]string) (Config, error) {
	file := encodeAll(cfg)
	for _, kv := range pairs {
		section, ok := SectionOf(kv[0])
		if !ok {
			return Config{}, unknownKeyError(kv[0])
		}
		file.Section(section).Key(kv[0]).SetValue(kv[1])
	}
	return Decode(file)
}

// encodeAll is Encode plus the connection keys of the inactive engine, so
// that switching db_engine keeps the model decodable.
func encodeAll(cfg Config) *ini.File {
	file := Encode(cfg)
	b := file.Section(SectionBackend)
	for key, value := range map[string]string{
		KeyDBPath:     cfg.DB.Path,
		KeyDBHost:     cfg.DB.Host,
		KeyDBName:     cfg.DB.Name,
		KeyDBUser:     cfg.DB.User,
		KeyDBPassword: cfg.DB.Password,
		KeyDBPort:     cfg.DB.Port,
	} {
		if !b.HasKey(key) {
			set(b, key, value)
		}
	}
	return file
}

func unknownKeyError(key string) error {
	return errors.NewBuilder(errors.CodeConfigInvalid, "unknown config key").
		WithContext("key", key).
		Build()
}
