package config

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/ini.v1"
)

// FileStore reads and writes the persisted configuration at one location.
type FileStore struct {
	path string

	mu   sync.Mutex
	last []byte // content most recently read or written
}

// NewFileStore returns a FileStore for the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load parses the config file. If it doesn't exist, the file returned by
// fallback is written to the location and returned instead.
func (s *FileStore) Load(fallback func() *ini.File) (*ini.File, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, ioError("read", s.path, err)
		}

		file := fallback()
		if err := s.Save(file); err != nil {
			return nil, err
		}
		return file, nil
	}

	file, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, parseError(s.path, err)
	}

	s.remember(data)
	return file, nil
}

// Save writes file to the location, replacing previous content. Parent
// directories are created as needed.
func (s *FileStore) Save(file *ini.File) error {
	data, err := Render(file)
	if err != nil {
		return ioError("render", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ioError("write", s.path, err)
	}

	// Write to a sibling and rename so readers never see a partial file.
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return ioError("write", s.path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return ioError("write", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return ioError("write", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return ioError("write", s.path, err)
	}

	s.remember(data)
	return nil
}

// Changed reports whether the file content differs from what this store
// last read or wrote.
func (s *FileStore) Changed() (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, ioError("read", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return !bytes.Equal(data, s.last), nil
}

func (s *FileStore) remember(data []byte) {
	s.mu.Lock()
	s.last = data
	s.mu.Unlock()
}

// Render returns the INI text of file.
func Render(file *ini.File) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
