package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rewired-gh/oisentry/internal/history"
	"github.com/rewired-gh/oisentry/internal/models"
)

// DefaultStateFile is the state document written next to the working directory.
const DefaultStateFile = "oi_state.json"

// File keeps the history in a human-readable JSON document.
type File struct {
	path string
}

func NewFile(path string) *File {
	if path == "" {
		path = DefaultStateFile
	}
	return &File{path: path}
}

func (f *File) Path() string { return f.path }

// Load returns no ticks and no error when the file does not exist yet.
func (f *File) Load(ctx context.Context) ([]models.Tick, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	ticks, err := history.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, f.path, err)
	}
	return ticks, nil
}

// Save writes to a temporary file in the same directory and renames it over
// the state file, so readers see either the old or the new document.
func (f *File) Save(ctx context.Context, ticks []models.Tick) error {
	data, err := history.Encode(ticks)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set state file permissions: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (f *File) Close() error { return nil }
