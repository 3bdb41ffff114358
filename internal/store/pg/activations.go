// Package pg implements the activation store on Postgres for managed
// deployments. Schema is owned by the migrations in migrations/ and applied
// with `avision migrate up`.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ActivationStore mirrors the sqlite store's contract on Postgres, cache
// included.
type ActivationStore struct {
	db    *sql.DB
	mu    sync.RWMutex
	cache map[int64]bool
}

// Open connects with the pgx database/sql driver and verifies the
// connection. It does not create the schema; run migrations first.
func Open(ctx context.Context, dsn string) (*ActivationStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
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
		`SELECT active FROM chat_activations WHERE chat_id = $1`, chatID,
	).Scan(&active)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		active = true
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
		`INSERT INTO chat_activations (chat_id, active, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (chat_id) DO UPDATE SET active = EXCLUDED.active, updated_at = EXCLUDED.updated_at`,
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
