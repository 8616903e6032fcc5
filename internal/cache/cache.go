// Package cache persists raw provider responses so that identical paid
// calls are never repeated. Entries are keyed by a hash of the effective
// model, the prompt category and the prompt text.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a durable key/value cache backed by SQLite. It is opened once
// at startup and closed at shutdown.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at the given path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	// sqlite wants a single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	schema := `
	CREATE TABLE IF NOT EXISTS responses (
	  key        TEXT PRIMARY KEY,
	  response   TEXT NOT NULL,
	  created_at TEXT NOT NULL
	);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Key derives the deterministic cache key for a (model, category, prompt)
// triple. Changing the model or category for identical prompt text yields
// a different key.
func Key(model, category, prompt string) string {
	sum := sha256.Sum256([]byte(model + "|" + category + "|" + prompt))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for key, reporting whether it exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var response string
	err := s.db.QueryRowContext(ctx, `SELECT response FROM responses WHERE key = ?`, key).Scan(&response)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache lookup: %w", err)
	}
	return response, true, nil
}

// Put stores the response under key. An existing entry is kept untouched:
// the first successful response for a key wins until the cache is
// explicitly cleared.
func (s *Store) Put(ctx context.Context, key, response string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO responses (key, response, created_at) VALUES (?, ?, ?)`,
		key, response, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

// Len reports the number of cached entries.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return n, nil
}

// Clear removes every cached entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM responses`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
