// Package models defines the domain types for the recent files tracker.
package models

import (
	"path"
	"strings"
)

// Defaults for the list bound.
const (
	DefaultMaxLength = 50
	MaxAllowedLength = 1000
)

// FileReference is the identity record tracked per list entry.
// Path is vault-relative with forward slashes; Basename is display only.
type FileReference struct {
	Path     string `json:"path"`
	Basename string `json:"basename"`
}

// NewFileReference builds a reference for path, deriving the basename.
func NewFileReference(p string) FileReference {
	return FileReference{Path: p, Basename: Basename(p)}
}

// Basename returns the file name of p without its extension.
func Basename(p string) string {
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	if ext := path.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// Data is the persisted document.
type Data struct {
	RecentFiles  []FileReference `json:"recentFiles"`
	OmittedPaths []string        `json:"omittedPaths"`
	OmittedTags  []string        `json:"omittedTags"`
	MaxLength    *int            `json:"maxLength"`
}

// DefaultData returns an empty document.
func DefaultData() Data {
	return Data{
		RecentFiles:  []FileReference{},
		OmittedPaths: []string{},
		OmittedTags:  []string{},
	}
}

// Bound returns the effective list bound.
func (d Data) Bound() int {
	if d.MaxLength == nil || *d.MaxLength <= 0 {
		return DefaultMaxLength
	}
	return *d.MaxLength
}

// Clone returns a deep copy of d.
func (d Data) Clone() Data {
	out := Data{
		RecentFiles:  make([]FileReference, len(d.RecentFiles)),
		OmittedPaths: make([]string, len(d.OmittedPaths)),
		OmittedTags:  make([]string, len(d.OmittedTags)),
	}
	copy(out.RecentFiles, d.RecentFiles)
	copy(out.OmittedPaths, d.OmittedPaths)
	copy(out.OmittedTags, d.OmittedTags)
	if d.MaxLength != nil {
		n := *d.MaxLength
		out.MaxLength = &n
	}
	return out
}

// Normalize re-establishes the document invariants after loading:
// blank rules are dropped, duplicate paths keep their first occurrence,
// missing basenames are derived and a non-positive bound becomes nil.
func (d Data) Normalize() Data {
	out := Data{
		RecentFiles:  make([]FileReference, 0, len(d.RecentFiles)),
		OmittedPaths: CleanLines(d.OmittedPaths),
		OmittedTags:  CleanLines(d.OmittedTags),
	}
	seen := make(map[string]struct{}, len(d.RecentFiles))
	for _, f := range d.RecentFiles {
		if f.Path == "" {
			continue
		}
		if _, dup := seen[f.Path]; dup {
			continue
		}
		seen[f.Path] = struct{}{}
		if f.Basename == "" {
			f.Basename = Basename(f.Path)
		}
		out.RecentFiles = append(out.RecentFiles, f)
	}
	if d.MaxLength != nil && *d.MaxLength > 0 {
		n := min(*d.MaxLength, MaxAllowedLength)
		out.MaxLength = &n
	}
	return out
}

// CleanLines trims every entry and drops blank ones.
func CleanLines(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// OpenMode is where the host should open a file picked from the list.
type OpenMode string

// Open modes.
const (
	OpenSamePane OpenMode = "same-pane"
	OpenNewTab   OpenMode = "new-tab"
	OpenNewSplit OpenMode = "new-split"
)

// Valid reports whether m is a known mode.
func (m OpenMode) Valid() bool {
	switch m {
	case OpenSamePane, OpenNewTab, OpenNewSplit:
		return true
	}
	return false
}
