package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/recentfiles/internal/models"
)

// documentKey is the kv row holding the document.
const documentKey = "recent-files"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteBackend stores the document as one row of a key/value table.
type SQLiteBackend struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*SQLiteBackend, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("state: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: apply schema: %w", err)
	}
	return &SQLiteBackend{conn: conn}, nil
}

// Load reads the document row; no row yields the default document.
func (s *SQLiteBackend) Load(ctx context.Context) (models.Data, error) {
	var raw string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, documentKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultData(), nil
	}
	if err != nil {
		return models.Data{}, fmt.Errorf("state: load: %w", err)
	}
	return decode([]byte(raw))
}

// Save upserts the document row.
func (s *SQLiteBackend) Save(ctx context.Context, d models.Data) error {
	raw, err := encode(d)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, documentKey, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("state: save: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteBackend) Close() error {
	return s.conn.Close()
}
