// Package prefs stores small per-user settings for cardctl.
package prefs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Flag is a boolean preference the demo reads and writes without knowing
// where it is kept.
type Flag interface {
	Get() (bool, error)
	Set(v bool) error
}

type document struct {
	SeenDemo bool `yaml:"seen_demo"`
}

// File keeps preferences in a YAML document.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

// DefaultPath is prefs.yaml under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "valentine", "prefs.yaml"), nil
}

func (f *File) read() (document, error) {
	var doc document
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}
	err = yaml.Unmarshal(b, &doc)
	return doc, err
}

func (f *File) write(doc document) error {
	b, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(f.path, b, 0o644)
}

// SeenDemo is the "has seen the onboarding demo" flag.
func (f *File) SeenDemo() Flag {
	return seenDemo{f}
}

type seenDemo struct {
	f *File
}

func (s seenDemo) Get() (bool, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	doc, err := s.f.read()
	return doc.SeenDemo, err
}

func (s seenDemo) Set(v bool) error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	doc, err := s.f.read()
	if err != nil {
		return err
	}
	doc.SeenDemo = v
	return s.f.write(doc)
}
