// Package file reads and writes session files on disk.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nstogner/diagrammer/pkg/store"
)

// Ext is the extension of session files.
const Ext = ".json"

// PathFor returns the session file path for name inside dir. The extension
// is added when missing.
func PathFor(dir, name string) string {
	if !strings.HasSuffix(name, Ext) {
		name += Ext
	}
	return filepath.Join(dir, name)
}

// Write stores data at path. The file is written next to its destination and
// renamed into place so readers never observe a partial file.
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Save exports s to path.
func Save(s store.Store, path string) error {
	data, err := s.Export()
	if err != nil {
		return err
	}
	return Write(path, data)
}

// Load imports the session file at path into s. s is unchanged when the file
// cannot be read or fails validation.
func Load(s store.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read session file: %w", err)
	}
	if err := s.Import(data); err != nil {
		return fmt.Errorf("import %s: %w", filepath.Base(path), err)
	}
	return nil
}
