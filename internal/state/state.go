// Package state persists the recent files document as a flat blob, either
// as a JSON file or as a row in a SQLite key/value table.
package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/starford/recentfiles/internal/models"
)

// Drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Backend loads and saves the persisted document.
type Backend interface {
	// Load returns the stored document merged over defaults. A backend
	// with nothing stored yet returns models.DefaultData().
	Load(ctx context.Context) (models.Data, error)
	// Save replaces the stored document.
	Save(ctx context.Context, d models.Data) error
	Close() error
}

// Open returns the backend for driver rooted at path.
func Open(driver, path string) (Backend, error) {
	switch driver {
	case DriverFile, "":
		return NewFileBackend(path), nil
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("state: unknown driver %q", driver)
	}
}

// decode merges raw over the default document, so keys missing from
// older documents keep their defaults.
func decode(raw []byte) (models.Data, error) {
	d := models.DefaultData()
	if err := json.Unmarshal(raw, &d); err != nil {
		return models.Data{}, fmt.Errorf("state: decode: %w", err)
	}
	return d.Normalize(), nil
}

func encode(d models.Data) ([]byte, error) {
	d = d.Normalize()
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("state: encode: %w", err)
	}
	return raw, nil
}

// digest returns the hex-encoded SHA-256 of an encoded document.
func digest(raw []byte) string {
	h := sha256.Sum256(raw)
	return hex.EncodeToString(h[:])
}
