package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailvault/internal/models"
)

// GetStats counts the rows of every archive table.
func GetStats(ctx context.Context, pool *pgxpool.Pool) (*models.Stats, error) {
	var s models.Stats
	err := pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM accounts),
			(SELECT count(*) FROM mailboxes),
			(SELECT count(*) FROM messages),
			(SELECT count(*) FROM mailbox_messages),
			(SELECT count(*) FROM persons),
			(SELECT count(*) FROM threads),
			(SELECT count(*) FROM attachments)
	`).Scan(&s.Accounts, &s.Mailboxes, &s.Messages, &s.Placements, &s.Persons, &s.Threads, &s.Attachments)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &s, nil
}
