package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailvault/internal/models"
)

// UpsertPlacement records a message at (mailbox, uid). An existing placement
// is overwritten: a UID reused after UIDVALIDITY changes points at the new message.
func UpsertPlacement(ctx context.Context, pool *pgxpool.Pool, p *models.MailboxMessage) error {
	flags := p.Flags
	if flags == nil {
		flags = []string{}
	}

	err := pool.QueryRow(ctx, `
		INSERT INTO mailbox_messages (mailbox_id, message_id, uid, flags, modseq, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (mailbox_id, uid) DO UPDATE SET
			message_id = EXCLUDED.message_id,
			flags = EXCLUDED.flags,
			modseq = EXCLUDED.modseq,
			last_seen_at = EXCLUDED.last_seen_at
		RETURNING id
	`, p.MailboxID, p.MessageID, int64(p.UID), flags, p.ModSeq, p.LastSeenAt).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert placement: %w", err)
	}
	return nil
}

// ListPlacements returns every placement of a message.
func ListPlacements(ctx context.Context, pool *pgxpool.Pool, messageID string) ([]*models.MailboxMessage, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, mailbox_id, message_id, uid, flags, modseq, last_seen_at
		FROM mailbox_messages
		WHERE message_id = $1
		ORDER BY mailbox_id, uid
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list placements: %w", err)
	}
	defer rows.Close()

	var placements []*models.MailboxMessage
	for rows.Next() {
		var p models.MailboxMessage
		var uid int64
		if err := rows.Scan(&p.ID, &p.MailboxID, &p.MessageID, &uid, &p.Flags, &p.ModSeq, &p.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan placement: %w", err)
		}
		p.UID = uint32(uid)
		placements = append(placements, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating placements: %w", err)
	}

	return placements, nil
}
