// Package store persists conversation history to Postgres so a session's
// exchanges survive gateway restarts and remain queryable by session id.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the conversation tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversation_items (
			id          uuid PRIMARY KEY,
			session_id  text NOT NULL,
			question    text NOT NULL,
			answer      text,
			error       text,
			is_loading  boolean NOT NULL DEFAULT true,
			response    jsonb,
			created_at  timestamptz NOT NULL,
			answered_at timestamptz
		)`)
	if err != nil {
		return fmt.Errorf("create conversation_items: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS conversation_items_session_idx
		ON conversation_items (session_id, created_at)`)
	if err != nil {
		return fmt.Errorf("create session index: %w", err)
	}
	return nil
}
