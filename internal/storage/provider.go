// Package storage defines the read-only vault file-system abstraction.
package storage

import "io/fs"

// Provider is the interface for vault file lookups.
// All paths are relative to the vault root and use forward slashes.
type Provider interface {
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
	// ReadHead returns at most limit bytes from the start of the file at path.
	ReadHead(path string, limit int64) ([]byte, error)
	// Exists reports whether path is an existing regular file.
	Exists(path string) bool
	// Abs returns the absolute file-system path for path.
	Abs(path string) (string, error)
	// Rel converts an absolute path inside the vault to a vault-relative path.
	Rel(abs string) (string, error)
	// Root returns the absolute vault root.
	Root() string
}
