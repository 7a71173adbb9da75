package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/neo-chat/internal/domain/chat/entity"
)

// ArchivePostgres mirrors reconciled messages into PostgreSQL. The
// conversation document stays the source of truth; the archive is a
// best-effort read model for counting and statistics.
type ArchivePostgres struct {
	pool *pgxpool.Pool
}

// NewArchivePostgres creates a PostgreSQL message archive.
func NewArchivePostgres(pool *pgxpool.Pool) *ArchivePostgres {
	return &ArchivePostgres{pool: pool}
}

// UpsertBatch inserts or refreshes a batch of messages from one
// conversation snapshot.
func (r *ArchivePostgres) UpsertBatch(ctx context.Context, chatID string, msgs []entity.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO message_archive (
			id, chat_id, sender_id, text, image_url, status, is_seen, created_at, archived_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			status = EXCLUDED.status,
			is_seen = EXCLUDED.is_seen
	`

	now := time.Now()
	for _, msg := range msgs {
		batch.Queue(query,
			msg.ID,
			chatID,
			msg.SenderID,
			msg.Text,
			msg.ImageURL,
			msg.Status,
			msg.IsSeen,
			msg.CreatedAt,
			now,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range msgs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("executing archive batch: %w", err)
		}
	}

	return nil
}

// Count returns the number of archived messages in a conversation.
func (r *ArchivePostgres) Count(ctx context.Context, chatID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM message_archive WHERE chat_id = $1", chatID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting archived messages: %w", err)
	}
	return count, nil
}

// GetStatistics computes activity statistics for one conversation from
// userID's point of view.
func (r *ArchivePostgres) GetStatistics(ctx context.Context, chatID, userID string) (*entity.ChatStatistics, error) {
	query := `
		WITH counts AS (
			SELECT
				COUNT(*) AS total,
				COUNT(*) FILTER (WHERE sender_id = $2) AS sent,
				COUNT(*) FILTER (WHERE sender_id <> $2) AS received
			FROM message_archive
			WHERE chat_id = $1
		),
		busiest AS (
			SELECT
				EXTRACT(DOW FROM created_at)::int AS day,
				EXTRACT(HOUR FROM created_at)::int AS hour,
				COUNT(*) AS cnt
			FROM message_archive
			WHERE chat_id = $1
			GROUP BY 1, 2
			ORDER BY cnt DESC
			LIMIT 1
		)
		SELECT
			c.total,
			c.sent,
			c.received,
			COALESCE(b.day, 0),
			COALESCE(b.hour, 0)
		FROM counts c
		LEFT JOIN busiest b ON true
	`

	var stats entity.ChatStatistics
	err := r.pool.QueryRow(ctx, query, chatID, userID).Scan(
		&stats.TotalMessages,
		&stats.Sent,
		&stats.Received,
		&stats.BusiestDay,
		&stats.BusiestHour,
	)
	if err != nil {
		return nil, fmt.Errorf("getting chat statistics: %w", err)
	}

	return &stats, nil
}
