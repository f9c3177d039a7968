// Package db manages the embedded libsql database: connection, pragmas,
// goose migrations, and the per-request liveness probe.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

// Connect opens (creating if necessary) the embedded libsql database at path.
func Connect(path string, logger zerolog.Logger) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create database directory %s: %w", dir, err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info().Str("path", path).Msg("database not found, creating a new one")
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("could not create db at path %s: %w", path, err)
		}
		file.Close()
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_synchronous=NORMAL", path)

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}

	if err := verify(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// verify checks basic connectivity and that FTS5 is present in the build.
func verify(db *sql.DB, logger zerolog.Logger) error {
	ctx := context.Background()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("basic connectivity test failed: %w", err)
	}

	if _, err := db.ExecContext(ctx, "CREATE VIRTUAL TABLE IF NOT EXISTS temp._fts5_test USING fts5(content)"); err != nil {
		return fmt.Errorf("FTS5 is required for article search: %w", err)
	}
	_, _ = db.ExecContext(ctx, "DROP TABLE IF EXISTS temp._fts5_test")

	return nil
}

// Health is the per-request liveness probe for the persistent store.
// One probe per request; the result is threaded through the whole
// request so conversation lookup and context retrieval never disagree
// on which store they read from.
type Health struct {
	db      *sql.DB
	timeout time.Duration
}

// NewHealth wraps db with a bounded ping. A nil db is a valid degraded
// state: the process serves from the fallback stores.
func NewHealth(db *sql.DB, timeout time.Duration) *Health {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Health{db: db, timeout: timeout}
}

// Alive reports whether the persistent store answered a ping in time.
func (h *Health) Alive(ctx context.Context) bool {
	if h == nil || h.db == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.db.PingContext(ctx) == nil
}
