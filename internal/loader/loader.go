// Package loader handles script file loading operations.
package loader

import (
	"fmt"
	"os"

	"github.com/retroenv/mestool/internal/script"
)

// File is a loaded script file.
type File struct {
	Path   string
	Data   []byte // raw file content
	Script *script.Script
}

// Loader handles loading script files from disk.
type Loader struct{}

// New creates a new script loader.
func New() *Loader {
	return &Loader{}
}

// Load reads and decodes a script file.
func (l *Loader) Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return l.LoadFromBytes(path, data)
}

// LoadFromBytes decodes the script content of a file that was already read.
// The path is only used for reporting.
func (l *Loader) LoadFromBytes(path string, data []byte) (*File, error) {
	s, err := script.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding script %s: %w", path, err)
	}

	return &File{
		Path:   path,
		Data:   data,
		Script: s,
	}, nil
}

// OpenTranscript opens the transcript file of a script for reading.
func (l *Loader) OpenTranscript(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening transcript %s: %w", path, err)
	}
	return file, nil
}
