package backend

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/hourglass-app/hourglass/internal/errors"
)

// ongoingFile is the on-disk form of the running fact.
type ongoingFile struct {
	RunID       string    `toml:"run_id"`
	Activity    string    `toml:"activity"`
	Category    string    `toml:"category"`
	Description string    `toml:"description"`
	Start       time.Time `toml:"start"`
}

// Ongoing persists the currently running fact in a tmpfile so that it
// survives restarts.
type Ongoing struct {
	path string
}

// NewOngoing returns an Ongoing backed by the file at path.
func NewOngoing(path string) *Ongoing {
	return &Ongoing{path: path}
}

// Path returns the tmpfile location.
func (o *Ongoing) Path() string {
	return o.path
}

// Start records f as the running fact and returns the run ID stamped on
// it. Only Activity, Category, Description and Start are kept.
func (o *Ongoing) Start(f Fact) (string, error) {
	if _, ok, err := o.Current(); err != nil {
		return "", err
	} else if ok {
		return "", errors.NewBuilder(errors.CodeFactInvalid, "a fact is already running").
			WithSuggestion("Stop the running fact first").
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(o.path), 0755); err != nil {
		return "", err
	}

	id := uuid.New().String()
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(ongoingFile{
		RunID:       id,
		Activity:    f.Activity,
		Category:    f.Category,
		Description: f.Description,
		Start:       f.Start,
	}); err != nil {
		return "", err
	}
	return id, os.WriteFile(o.path, buf.Bytes(), 0644)
}

// Current returns the running fact, if any.
func (o *Ongoing) Current() (Fact, bool, error) {
	of, ok, err := o.read()
	if err != nil || !ok {
		return Fact{}, false, err
	}
	return Fact{
		Activity:    of.Activity,
		Category:    of.Category,
		Description: of.Description,
		Start:       of.Start,
	}, true, nil
}

// RunID returns the ID stamped on the running fact, or "" when none is
// running. Files written before run IDs existed also yield "".
func (o *Ongoing) RunID() (string, error) {
	of, _, err := o.read()
	return of.RunID, err
}

func (o *Ongoing) read() (ongoingFile, bool, error) {
	data, err := os.ReadFile(o.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ongoingFile{}, false, nil
		}
		return ongoingFile{}, false, err
	}

	var of ongoingFile
	if err := toml.Unmarshal(data, &of); err != nil {
		return ongoingFile{}, false, err
	}
	return of, true, nil
}

// Clear removes the running fact.
func (o *Ongoing) Clear() error {
	if err := os.Remove(o.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
