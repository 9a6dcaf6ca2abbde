// Package metadata answers "does this vault file exist, and what does its
// frontmatter declare" for the recent files store, caching parsed
// frontmatter in a bounded LRU.
package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/recentfiles/internal/parser"
	"github.com/starford/recentfiles/internal/storage"
)

// DefaultSize is the number of cached files when none is configured.
const DefaultSize = 512

// HeadLimit caps how much of a file is read when looking for frontmatter.
// Frontmatter that does not close within it is treated as absent.
const HeadLimit = 64 << 10

// Info is the frontmatter-derived metadata of a vault file.
type Info struct {
	Tags  []string
	Title string
}

type entry struct {
	modTime time.Time
	size    int64
	info    Info
}

// Cache looks up file metadata through a storage.Provider.
// Entries are validated against the file's mod time and size on every
// lookup, so a stale entry is never served even without Invalidate.
type Cache struct {
	store   storage.Provider
	entries *lru.Cache[string, entry]
	logger  *slog.Logger
}

// New creates a cache holding up to size entries.
func New(store storage.Provider, size int, logger *slog.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("metadata: new lru: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, entries: entries, logger: logger}, nil
}

// Lookup returns the metadata of path and whether the file exists.
// A file that exists but cannot be read or parsed reports empty metadata.
func (c *Cache) Lookup(path string) (Info, bool) {
	st, err := c.store.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		c.entries.Remove(path)
		return Info{}, false
	}

	if e, ok := c.entries.Get(path); ok && e.modTime.Equal(st.ModTime()) && e.size == st.Size() {
		return e.info, true
	}

	data, err := c.store.ReadHead(path, HeadLimit)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, false
		}
		c.logger.Warn("metadata: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return Info{}, true
	}
	res, err := parser.Parse(data)
	if err != nil {
		c.logger.Warn("metadata: parse failed", slog.String("path", path), slog.String("error", err.Error()))
		return Info{}, true
	}

	info := Info{Tags: res.Tags, Title: res.Title}
	c.entries.Add(path, entry{modTime: st.ModTime(), size: st.Size(), info: info})
	return info, true
}

// Exists reports whether path is an existing vault file.
func (c *Cache) Exists(path string) bool {
	return c.store.Exists(path)
}

// Invalidate drops any cached entry for path.
func (c *Cache) Invalidate(path string) {
	c.entries.Remove(path)
}

// ResolveTitle returns the frontmatter title of path, if it declares one.
func (c *Cache) ResolveTitle(path string) (string, bool) {
	info, ok := c.Lookup(path)
	if !ok || info.Title == "" {
		return "", false
	}
	return info.Title, true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
