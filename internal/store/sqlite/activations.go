// Package sqlite implements the standalone activation store on a local
// SQLite database (pure-Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_activations (
    chat_id    INTEGER PRIMARY KEY,
    active     INTEGER NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// ActivationStore keeps the flag in SQLite with a write-through cache; the
// activation check sits on the hot path of every inbound update.
type ActivationStore struct {
	db    *sql.DB
	mu    sync.RWMutex
	cache map[int64]bool
}

// Open creates the database file (and parent directory) if needed and
// ensures the schema exists.
func Open(path string) (*ActivationStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer is plenty here and sidesteps SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &ActivationStore{db: db, cache: make(map[int64]bool)}, nil
}

func (s *ActivationStore) IsActive(ctx context.Context, chatID int64) bool {
	s.mu.RLock()
	if active, ok := s.cache[chatID]; ok {
		s.mu.RUnlock()
		return active
	}
	s.mu.RUnlock()

	var active bool
	err := s.db.QueryRowContext(ctx,
		`SELECT active FROM chat_activations WHERE chat_id = ?`, chatID,
	).Scan(&active)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		active = true // no row means the chat never opted out
	case err != nil:
		slog.Error("activation lookup failed", "chat_id", chatID, "error", err)
		return false
	}

	s.mu.Lock()
	s.cache[chatID] = active
	s.mu.Unlock()
	return active
}

func (s *ActivationStore) Activate(ctx context.Context, chatID int64) error {
	return s.set(ctx, chatID, true)
}

func (s *ActivationStore) Deactivate(ctx context.Context, chatID int64) error {
	return s.set(ctx, chatID, false)
}

func (s *ActivationStore) set(ctx context.Context, chatID int64, active bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_activations (chat_id, active, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (chat_id) DO UPDATE SET active = excluded.active, updated_at = excluded.updated_at`,
		chatID, active, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update activation for chat %d: %w", chatID, err)
	}

	s.mu.Lock()
	s.cache[chatID] = active
	s.mu.Unlock()
	return nil
}

func (s *ActivationStore) Close() error { return s.db.Close() }
