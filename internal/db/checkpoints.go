package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailvault/internal/models"
)

// GetCheckpoint returns the last imported UID of a mailbox, creating a zero
// checkpoint (and the account) when none exists.
func GetCheckpoint(ctx context.Context, pool *pgxpool.Pool, accountEmail, mailboxName string) (uint32, error) {
	var lastUID int64
	err := pool.QueryRow(ctx, `
		WITH account AS (
			INSERT INTO accounts (email) VALUES ($1)
			ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
			RETURNING id
		)
		INSERT INTO import_checkpoints (account_id, mailbox_name, last_uid)
		SELECT id, $2, 0 FROM account
		ON CONFLICT (account_id, mailbox_name) DO UPDATE SET last_uid = import_checkpoints.last_uid
		RETURNING last_uid
	`, accountEmail, mailboxName).Scan(&lastUID)
	if err != nil {
		return 0, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return uint32(lastUID), nil
}

// SetCheckpoint raises the checkpoint to uid. A lower uid leaves it unchanged.
func SetCheckpoint(ctx context.Context, pool *pgxpool.Pool, accountEmail, mailboxName string, uid uint32) error {
	_, err := pool.Exec(ctx, `
		WITH account AS (
			INSERT INTO accounts (email) VALUES ($1)
			ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
			RETURNING id
		)
		INSERT INTO import_checkpoints (account_id, mailbox_name, last_uid, updated_at)
		SELECT id, $2, $3, now() FROM account
		ON CONFLICT (account_id, mailbox_name) DO UPDATE SET
			last_uid = GREATEST(import_checkpoints.last_uid, EXCLUDED.last_uid),
			updated_at = now()
	`, accountEmail, mailboxName, int64(uid))
	if err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}
	return nil
}

// ListCheckpoints returns the checkpoints of an account, or of all accounts
// when accountEmail is empty.
func ListCheckpoints(ctx context.Context, pool *pgxpool.Pool, accountEmail string) ([]*models.Checkpoint, error) {
	rows, err := pool.Query(ctx, `
		SELECT a.email, c.mailbox_name, c.last_uid, c.updated_at
		FROM import_checkpoints c
		JOIN accounts a ON a.id = c.account_id
		WHERE $1 = '' OR a.email = $1
		ORDER BY a.email, c.mailbox_name
	`, accountEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []*models.Checkpoint
	for rows.Next() {
		var c models.Checkpoint
		var lastUID int64
		if err := rows.Scan(&c.AccountEmail, &c.MailboxName, &lastUID, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		c.LastUID = uint32(lastUID)
		checkpoints = append(checkpoints, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoints: %w", err)
	}

	return checkpoints, nil
}
