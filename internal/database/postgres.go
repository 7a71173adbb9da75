package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// archiveSchema holds the mirrored message rows used for counting and
// statistics. The conversation documents stay the source of truth;
// rows here are best-effort upserts keyed by message id.
const archiveSchema = `
CREATE TABLE IF NOT EXISTS message_archive (
    id          TEXT PRIMARY KEY,
    chat_id     TEXT NOT NULL,
    sender_id   TEXT NOT NULL,
    text        TEXT NOT NULL DEFAULT '',
    image_url   TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'sent',
    is_seen     BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL,
    archived_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_message_archive_chat ON message_archive (chat_id, created_at);
`

// NewPostgresPool creates a new PostgreSQL connection pool and ensures
// the archive schema exists.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, archiveSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring archive schema: %w", err)
	}

	return pool, nil
}
