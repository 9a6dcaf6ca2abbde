package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/starford/recentfiles/internal/models"
)

// FileBackend stores the document as a JSON file.
type FileBackend struct {
	path string

	mu      sync.Mutex
	lastSum string // digest of the last document written or read
}

// NewFileBackend returns a backend writing to path. The file and its
// directory are created on first save.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Load reads the document; a missing file yields the default document.
func (f *FileBackend) Load(_ context.Context) (models.Data, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.DefaultData(), nil
		}
		return models.Data{}, fmt.Errorf("state: read %s: %w", f.path, err)
	}
	d, err := decode(raw)
	if err != nil {
		return models.Data{}, err
	}
	f.mu.Lock()
	f.lastSum = digest(raw)
	f.mu.Unlock()
	return d, nil
}

// Save atomically writes the document: tmp file → fsync → rename.
// A document identical to the last one written is not rewritten.
func (f *FileBackend) Save(_ context.Context, d models.Data) error {
	raw, err := encode(d)
	if err != nil {
		return err
	}
	sum := digest(raw)

	f.mu.Lock()
	defer f.mu.Unlock()
	if sum == f.lastSum {
		return nil
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".recentfiles-tmp-*")
	if err != nil {
		return fmt.Errorf("state: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(raw); err != nil {
		return fmt.Errorf("state: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("state: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("state: rename: %w", err)
	}
	success = true
	f.lastSum = sum
	return nil
}

// Close is a no-op for the file backend.
func (f *FileBackend) Close() error {
	return nil
}
