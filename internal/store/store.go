// Package store persists captured conversation payloads and an audit row
// per generated export, backed by Postgres.
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

// EnsureSchema creates the capture tables when they do not exist yet. The
// daemon owns its schema; there is no external migration step.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS captures (
			id          UUID PRIMARY KEY,
			platform    TEXT NOT NULL,
			payload     JSONB NOT NULL,
			source      TEXT NOT NULL DEFAULT '',
			captured_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS exports (
			id           UUID PRIMARY KEY,
			capture_id   UUID NOT NULL REFERENCES captures(id) ON DELETE CASCADE,
			file_count   INT NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS captures_platform_idx ON captures(platform, captured_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
