// Package recentservice connects vault events and user intents to the recent
// files store.
package recentservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/recentfiles/internal/apperr"
	"github.com/starford/recentfiles/internal/metadata"
	"github.com/starford/recentfiles/internal/models"
	"github.com/starford/recentfiles/internal/recent"
	"github.com/starford/recentfiles/internal/settings"
	"github.com/starford/recentfiles/internal/storage"
	"github.com/starford/recentfiles/internal/view"
)

// DefaultOpenDelay is the pause before a file-open notification is handled,
// giving the host time to settle the newly active file.
const DefaultOpenDelay = 100 * time.Millisecond

// OpenResult describes a file the caller should now display.
type OpenResult struct {
	Path    string          `json:"path"`
	AbsPath string          `json:"abs_path"`
	Mode    models.OpenMode `json:"mode"`
}

// Service coordinates the store, metadata cache and vault storage.
type Service struct {
	store     *recent.Store
	meta      *metadata.Cache
	vault     storage.Provider
	logger    *slog.Logger
	openDelay time.Duration
	useTitles bool
	titles    view.TitleResolver // nil unless frontmatter titles are enabled
}

// Option configures a Service.
type Option func(*Service)

// WithOpenDelay overrides DefaultOpenDelay. Zero disables the delay.
func WithOpenDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.openDelay = d
		}
	}
}

// WithFrontmatterTitles makes List prefer frontmatter titles over basenames.
func WithFrontmatterTitles(enabled bool) Option {
	return func(s *Service) {
		s.useTitles = enabled
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a service.
func New(store *recent.Store, meta *metadata.Cache, vault storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:     store,
		meta:      meta,
		vault:     vault,
		logger:    slog.Default(),
		openDelay: DefaultOpenDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.useTitles {
		s.titles = meta
	}
	return s
}

// MissingNotice is the message shown when a listed file has disappeared.
func MissingNotice(path string) string {
	return fmt.Sprintf("the file %s didn't exist anymore, removed", path)
}

// RecordOpen handles a file-open notification from the host. It waits for
// the open delay and then records the file if it still exists. It reports
// whether the list changed.
func (s *Service) RecordOpen(ctx context.Context, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if s.openDelay > 0 {
		t := time.NewTimer(s.openDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return false, ctx.Err()
		case <-t.C:
		}
	}
	if !s.meta.Exists(path) {
		s.logger.Debug("recent: open of missing file ignored", slog.String("path", path))
		return false, nil
	}
	return s.store.RecordOpen(models.NewFileReference(path)), nil
}

// FileRenamed updates the entry for oldPath in place.
func (s *Service) FileRenamed(oldPath, newPath string) {
	s.meta.Invalidate(oldPath)
	s.meta.Invalidate(newPath)
	if s.store.RecordRename(oldPath, newPath, models.Basename(newPath)) {
		s.logger.Debug("recent: renamed", slog.String("from", oldPath), slog.String("to", newPath))
	}
}

// FileDeleted drops the entry for path.
func (s *Service) FileDeleted(path string) {
	s.meta.Invalidate(path)
	if s.store.RecordDelete(path) {
		s.logger.Debug("recent: deleted", slog.String("path", path))
	}
}

// DirRenamed moves the entries under oldDir to newDir, keeping positions.
func (s *Service) DirRenamed(oldDir, newDir string) {
	if s.store.RecordRenameDir(oldDir, newDir) {
		s.logger.Debug("recent: folder renamed", slog.String("from", oldDir), slog.String("to", newDir))
	}
}

// DirDeleted drops every entry under dir.
func (s *Service) DirDeleted(dir string) {
	if s.store.RecordDeleteDir(dir) {
		s.logger.Debug("recent: folder deleted", slog.String("path", dir))
	}
}

// FileChanged drops cached metadata for path.
func (s *Service) FileChanged(path string) {
	s.meta.Invalidate(path)
}

// List returns the display items, most recent first. Entries whose file has
// vanished are hidden and removed from the store.
func (s *Service) List(_ context.Context, activePath string) []view.Item {
	items, stale := view.Project(s.store.Files(), activePath, s.meta.Exists, s.titles)
	for _, p := range stale {
		s.logger.Debug("recent: dropping stale entry", slog.String("path", p))
		s.store.RecordDelete(p)
	}
	return items
}

// Open validates a request to display a listed file. A file that no longer
// exists is removed and reported with MissingNotice wrapped around
// apperr.ErrNotFound. On success the open is recorded.
func (s *Service) Open(_ context.Context, path string, mode models.OpenMode) (*OpenResult, error) {
	if mode == "" {
		mode = models.OpenSamePane
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("recentservice: open %q: %w", mode, apperr.ErrInvalidMode)
	}
	if !s.meta.Exists(path) {
		s.store.Remove(path)
		return nil, fmt.Errorf("%s: %w", MissingNotice(path), apperr.ErrNotFound)
	}
	abs, err := s.vault.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("recentservice: open: %w", err)
	}
	s.store.RecordOpen(models.NewFileReference(path))
	return &OpenResult{Path: path, AbsPath: abs, Mode: mode}, nil
}

// Remove drops path from the list on user request.
func (s *Service) Remove(_ context.Context, path string) error {
	if !s.store.Remove(path) {
		return fmt.Errorf("recentservice: remove %s: %w", path, apperr.ErrNotFound)
	}
	return nil
}

// Clear empties the list.
func (s *Service) Clear(_ context.Context) {
	s.store.Clear()
}

// Settings returns the editable settings.
func (s *Service) Settings(_ context.Context) settings.View {
	return settings.NewView(s.store.Snapshot(), s.store.InvalidPatterns())
}

// UpdateSettings applies u and returns the resulting settings.
func (s *Service) UpdateSettings(ctx context.Context, u settings.Update) (settings.View, error) {
	if err := settings.Apply(s.store, u); err != nil {
		return settings.View{}, err
	}
	return s.Settings(ctx), nil
}

// Snapshot returns the persisted document.
func (s *Service) Snapshot(_ context.Context) models.Data {
	return s.store.Snapshot()
}

// Subscribe forwards to the store; see recent.Store.Subscribe.
func (s *Service) Subscribe(fn func(recent.Change)) (release func()) {
	return s.store.Subscribe(fn)
}

// Reconcile drops entries whose files vanished while the service was not
// watching, then re-applies the exclusion rules and bound.
func (s *Service) Reconcile(ctx context.Context) error {
	removed := 0
	for _, f := range s.store.Files() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.meta.Exists(f.Path) && s.store.RecordDelete(f.Path) {
			removed++
		}
	}
	s.store.ApplyExclusionRules()
	s.store.ApplyBound()
	s.logger.Info("recent: reconciled",
		slog.Int("removed", removed),
		slog.Int("entries", len(s.store.Files())))
	return nil
}
