// Package recent maintains the most-recently-used list of vault files.
package recent

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/starford/recentfiles/internal/models"
)

// Change reasons passed to subscribers.
const (
	ReasonOpen      = "open"
	ReasonRename    = "rename"
	ReasonDelete    = "delete"
	ReasonRemove    = "remove"
	ReasonExclusion = "exclusion"
	ReasonBound     = "bound"
	ReasonClear     = "clear"
)

// Change describes a persisted mutation of the list.
type Change struct {
	Reason string
	Path   string
}

// Store holds the ordered list of recently opened files together with the
// exclusion rules and list bound.
//
// Invariants: paths are unique, the most recent entry is first, and the
// list never holds more than Bound() entries. All methods are safe for
// concurrent use; subscribers are notified outside the lock.
type Store struct {
	mu     sync.Mutex
	data   models.Data
	rules  rules
	meta   MetadataSource
	saver  Saver
	logger *slog.Logger
	closed bool

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Change)
}

// New creates a store from a loaded (or default) document. The document is
// normalized and truncated to its bound; nothing is persisted until the
// first mutation.
func New(data models.Data, opts ...Option) *Store {
	s := &Store{
		data:   data.Normalize(),
		logger: slog.Default(),
		subs:   make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rules = compileRules(s.data.OmittedPaths, s.data.OmittedTags, s.logger)
	s.truncateLocked()
	return s
}

// RecordOpen moves ref to the front of the list, inserting it if absent,
// and drops the oldest entries past the bound. Excluded files are ignored.
// It reports whether the list was updated.
func (s *Store) RecordOpen(ref models.FileReference) bool {
	if ref.Path == "" {
		return false
	}
	if ref.Basename == "" {
		ref.Basename = models.Basename(ref.Path)
	}
	return s.mutate(ReasonOpen, ref.Path, func() bool {
		if s.excludedLocked(ref) {
			return false
		}
		files := make([]models.FileReference, 0, len(s.data.RecentFiles)+1)
		files = append(files, ref)
		for _, f := range s.data.RecentFiles {
			if f.Path != ref.Path {
				files = append(files, f)
			}
		}
		s.data.RecentFiles = files
		s.truncateLocked()
		return true
	})
}

// RecordRename updates the entry for oldPath in place, keeping its position.
// It is a no-op when oldPath is not in the list.
func (s *Store) RecordRename(oldPath, newPath, newBasename string) bool {
	if newPath == "" {
		return false
	}
	if newBasename == "" {
		newBasename = models.Basename(newPath)
	}
	return s.mutate(ReasonRename, newPath, func() bool {
		idx := s.indexLocked(oldPath)
		if idx < 0 {
			return false
		}
		s.data.RecentFiles[idx] = models.FileReference{Path: newPath, Basename: newBasename}
		if oldPath != newPath {
			// Another entry may already carry newPath; paths stay unique.
			s.dropDuplicateLocked(newPath, idx)
		}
		return true
	})
}

// RecordRenameDir moves every entry under oldDir to the same relative path
// under newDir, keeping positions. It reports whether any entry moved.
func (s *Store) RecordRenameDir(oldDir, newDir string) bool {
	if oldDir == "" || newDir == "" || oldDir == newDir {
		return false
	}
	oldPrefix, newPrefix := oldDir+"/", newDir+"/"
	return s.mutate(ReasonRename, newDir, func() bool {
		moved := false
		for i, f := range s.data.RecentFiles {
			rest, ok := strings.CutPrefix(f.Path, oldPrefix)
			if !ok {
				continue
			}
			s.data.RecentFiles[i].Path = newPrefix + rest
			moved = true
		}
		if moved {
			s.dedupeLocked()
		}
		return moved
	})
}

// RecordDeleteDir removes every entry under dir.
func (s *Store) RecordDeleteDir(dir string) bool {
	if dir == "" {
		return false
	}
	prefix := dir + "/"
	return s.mutate(ReasonDelete, dir, func() bool {
		before := len(s.data.RecentFiles)
		s.data.RecentFiles = slices.DeleteFunc(s.data.RecentFiles, func(f models.FileReference) bool {
			return strings.HasPrefix(f.Path, prefix)
		})
		return len(s.data.RecentFiles) != before
	})
}

// RecordDelete removes the entry for path. Nothing is persisted when the
// path was not tracked.
func (s *Store) RecordDelete(path string) bool {
	return s.mutate(ReasonDelete, path, func() bool {
		return s.removeLocked(path)
	})
}

// Remove drops the entry for path on user request and re-applies the bound.
// The document is persisted even when path was not tracked.
func (s *Store) Remove(path string) bool {
	removed := false
	s.mutate(ReasonRemove, path, func() bool {
		removed = s.removeLocked(path)
		s.truncateLocked()
		return true
	})
	return removed
}

// ApplyExclusionRules removes every entry matching the current rules.
func (s *Store) ApplyExclusionRules() {
	s.mutate(ReasonExclusion, "", func() bool {
		s.data.RecentFiles = slices.DeleteFunc(s.data.RecentFiles, s.excludedLocked)
		return true
	})
}

// ApplyBound truncates the list to the current bound.
func (s *Store) ApplyBound() {
	s.mutate(ReasonBound, "", func() bool {
		s.truncateLocked()
		return true
	})
}

// Clear empties the list.
func (s *Store) Clear() {
	s.mutate(ReasonClear, "", func() bool {
		s.data.RecentFiles = []models.FileReference{}
		return true
	})
}

// SetOmittedPaths replaces the path patterns. Blank lines are dropped.
// Call ApplyExclusionRules to prune existing entries.
func (s *Store) SetOmittedPaths(patterns []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.OmittedPaths = models.CleanLines(patterns)
	s.rules = compileRules(s.data.OmittedPaths, s.data.OmittedTags, s.logger)
}

// SetOmittedTags replaces the excluded frontmatter tags. Blank lines are
// dropped. Call ApplyExclusionRules to prune existing entries.
func (s *Store) SetOmittedTags(tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.OmittedTags = models.CleanLines(tags)
	s.rules = compileRules(s.data.OmittedPaths, s.data.OmittedTags, s.logger)
}

// SetMaxLength sets the bound; nil or a non-positive value selects the
// default. Values above models.MaxAllowedLength are clamped.
// Call ApplyBound to truncate.
func (s *Store) SetMaxLength(n *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n == nil || *n <= 0 {
		s.data.MaxLength = nil
		return
	}
	v := min(*n, models.MaxAllowedLength)
	s.data.MaxLength = &v
}

// Excluded reports whether ref matches the current exclusion rules.
func (s *Store) Excluded(ref models.FileReference) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.excludedLocked(ref)
}

// InvalidPatterns returns the configured path patterns that failed to
// compile and are therefore ignored.
func (s *Store) InvalidPatterns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rules.invalid)
}

// Files returns a copy of the list, most recent first.
func (s *Store) Files() []models.FileReference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data.RecentFiles)
}

// Snapshot returns a copy of the whole document.
func (s *Store) Snapshot() models.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// Bound returns the effective maximum list length.
func (s *Store) Bound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Bound()
}

// Subscribe registers fn to be called after every persisted mutation.
// The returned release function unregisters it and may be called any
// number of times.
func (s *Store) Subscribe(fn func(Change)) (release func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Close persists the final state. Later mutations are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.persistLocked()
}

// mutate runs fn under the lock; when fn reports true the document is
// persisted and subscribers are notified.
func (s *Store) mutate(reason, path string, fn func() bool) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if !fn() {
		s.mu.Unlock()
		return false
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Change{Reason: reason, Path: path})
	return true
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (s *Store) persistLocked() {
	if s.saver != nil {
		s.saver.Save(s.data.Clone())
	}
}

func (s *Store) excludedLocked(ref models.FileReference) bool {
	if s.rules.matchPath(ref.Path) {
		return true
	}
	if len(s.rules.tags) == 0 || s.meta == nil {
		return false
	}
	info, ok := s.meta.Lookup(ref.Path)
	if !ok {
		return false
	}
	return s.rules.matchTags(info.Tags)
}

func (s *Store) truncateLocked() {
	if bound := s.data.Bound(); len(s.data.RecentFiles) > bound {
		s.data.RecentFiles = slices.Clip(s.data.RecentFiles[:bound])
	}
}

func (s *Store) indexLocked(path string) int {
	return slices.IndexFunc(s.data.RecentFiles, func(f models.FileReference) bool {
		return f.Path == path
	})
}

func (s *Store) removeLocked(path string) bool {
	before := len(s.data.RecentFiles)
	s.data.RecentFiles = slices.DeleteFunc(s.data.RecentFiles, func(f models.FileReference) bool {
		return f.Path == path
	})
	return len(s.data.RecentFiles) != before
}

// dropDuplicateLocked removes any entry for path other than the one at keep.
func (s *Store) dropDuplicateLocked(path string, keep int) {
	files := make([]models.FileReference, 0, len(s.data.RecentFiles))
	for i, f := range s.data.RecentFiles {
		if i != keep && f.Path == path {
			continue
		}
		files = append(files, f)
	}
	s.data.RecentFiles = files
}

// dedupeLocked keeps the first entry for each path.
func (s *Store) dedupeLocked() {
	seen := make(map[string]struct{}, len(s.data.RecentFiles))
	s.data.RecentFiles = slices.DeleteFunc(s.data.RecentFiles, func(f models.FileReference) bool {
		if _, ok := seen[f.Path]; ok {
			return true
		}
		seen[f.Path] = struct{}{}
		return false
	})
}
