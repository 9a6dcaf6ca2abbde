package recent

import (
	"log/slog"

	"github.com/starford/recentfiles/internal/metadata"
	"github.com/starford/recentfiles/internal/models"
)

// MetadataSource reports whether a vault file exists and what its
// frontmatter declares.
type MetadataSource interface {
	Lookup(path string) (metadata.Info, bool)
}

// Saver receives a snapshot of the document after every persisted mutation.
// Implementations must not block the caller for long; see state.Writer.
type Saver interface {
	Save(d models.Data)
}

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithMetadata sets the metadata source used for tag exclusion.
// Without one, tag rules never match.
func WithMetadata(m MetadataSource) Option {
	return func(s *Store) {
		s.meta = m
	}
}

// WithSaver sets where snapshots are persisted.
func WithSaver(sv Saver) Option {
	return func(s *Store) {
		s.saver = sv
	}
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
