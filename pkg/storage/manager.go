package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	errs "megascraper/pkg/errors"
)

// Manager handles file writes under the output root. Writes are atomic:
// data lands in a temporary file first and is renamed into place, so a
// failed download never leaves a truncated image behind.
type Manager struct {
	root string
}

// NewManager creates a storage manager, creating the output root if needed
func NewManager(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errs.Wrap(errs.KindWrite, root, fmt.Errorf("failed to create output directory: %w", err))
	}
	return &Manager{root: root}, nil
}

// Root returns the output root path
func (m *Manager) Root() string {
	return m.root
}

// Exists reports whether a file already occupies the destination path
func (m *Manager) Exists(dest string) bool {
	_, err := os.Stat(dest)
	return err == nil
}

// Save writes the reader's content to dest, creating parent directories
// as needed. An existing file is never overwritten; the planner is
// expected to have disambiguated the path.
func (m *Manager) Save(r io.Reader, dest string) error {
	if m.Exists(dest) {
		return errs.New(errs.KindWrite, dest, "destination already exists")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errs.Wrap(errs.KindWrite, dest, fmt.Errorf("failed to create parent directory: %w", err))
	}

	tempFile := dest + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return errs.Wrap(errs.KindWrite, dest, fmt.Errorf("failed to create temporary file: %w", err))
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return errs.Wrap(errs.KindWrite, dest, fmt.Errorf("failed to write image data: %w", err))
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return errs.Wrap(errs.KindWrite, dest, fmt.Errorf("failed to close file: %w", closeErr))
	}

	if err := os.Rename(tempFile, dest); err != nil {
		os.Remove(tempFile)
		return errs.Wrap(errs.KindWrite, dest, fmt.Errorf("failed to rename temporary file: %w", err))
	}

	return nil
}
