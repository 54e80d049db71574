package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres catalog of export runs and the documents they wrote.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS export_runs (
	id          UUID PRIMARY KEY,
	input       TEXT NOT NULL,
	output_dir  TEXT NOT NULL,
	dry_run     BOOLEAN NOT NULL DEFAULT false,
	total       INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	duplicates  INTEGER NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS exported_documents (
	id              UUID PRIMARY KEY,
	run_id          UUID NOT NULL REFERENCES export_runs(id) ON DELETE CASCADE,
	conversation_id TEXT,
	updated_at      TEXT NOT NULL DEFAULT '',
	title           TEXT NOT NULL,
	path            TEXT NOT NULL,
	policy          TEXT NOT NULL,
	sections        INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (run_id, conversation_id, updated_at)
);

ALTER TABLE exported_documents ALTER COLUMN conversation_id DROP NOT NULL;

CREATE INDEX IF NOT EXISTS exported_documents_conversation_idx
	ON exported_documents (conversation_id);
`

// EnsureSchema creates the catalog tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
