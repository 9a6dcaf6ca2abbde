// Package view projects the recent files list into display items.
package view

import "github.com/starford/recentfiles/internal/models"

// Item is one rendered list entry.
type Item struct {
	Path     string `json:"path"`
	Basename string `json:"basename"`
	Title    string `json:"title"`
	Active   bool   `json:"active"`
}

// ExistsFunc reports whether a vault file exists.
type ExistsFunc func(path string) bool

// TitleResolver is an optional source of display titles.
type TitleResolver interface {
	ResolveTitle(path string) (string, bool)
}

// Project maps files to display items in list order. Entries whose file no
// longer exists are left out and returned as stale so the caller can drop
// them. titles may be nil; the basename is used when it yields nothing.
func Project(files []models.FileReference, activePath string, exists ExistsFunc, titles TitleResolver) (items []Item, stale []string) {
	items = make([]Item, 0, len(files))
	for _, f := range files {
		if exists != nil && !exists(f.Path) {
			stale = append(stale, f.Path)
			continue
		}
		title := f.Basename
		if titles != nil {
			if t, ok := titles.ResolveTitle(f.Path); ok && t != "" {
				title = t
			}
		}
		items = append(items, Item{
			Path:     f.Path,
			Basename: f.Basename,
			Title:    title,
			Active:   activePath != "" && f.Path == activePath,
		})
	}
	return items, stale
}
