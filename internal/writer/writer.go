// Package writer publishes output files. Content is written to a temporary file in the
// destination directory that is renamed to the final name only after all content was written,
// a failed write never leaves a partial output file behind.
package writer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tebeka/atexit"
)

const outputFileMode = 0o644

// ContentFunc writes the file content.
type ContentFunc func(w io.Writer) error

// WriteFile creates or replaces the file at path with the content written by fn.
func WriteFile(path string, fn ContentFunc) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for '%s': %w", path, err)
	}
	tmpName := tmp.Name()

	// remove the temp file if the program exits through atexit.Exit while writing
	handler := atexit.Register(func() {
		_ = os.Remove(tmpName)
	})
	defer func() {
		_ = handler.Cancel()
	}()

	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			_ = tmp.Close()
		}
		_ = os.Remove(tmpName)
	}()

	buf := bufio.NewWriter(tmp)
	if err := fn(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("writing file '%s': %w", path, err)
	}
	if err := tmp.Chmod(outputFileMode); err != nil {
		return fmt.Errorf("setting mode of '%s': %w", path, err)
	}

	closed = true
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing file '%s': %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file to '%s': %w", path, err)
	}
	return nil
}

// WriteBytes creates or replaces the file at path with data.
func WriteBytes(path string, data []byte) error {
	return WriteFile(path, func(w io.Writer) error {
		_, err := w.Write(data)
		if err != nil {
			return fmt.Errorf("writing file '%s': %w", path, err)
		}
		return nil
	})
}
