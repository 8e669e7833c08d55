package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vdavid/mailvault/internal/models"
)

func ensureAccount(ctx context.Context, q sqlx.ExtContext, accountEmail, provider string) (string, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO accounts (id, email, provider, created_at) VALUES (?, ?, ?, ?) ON CONFLICT (email) DO NOTHING`,
		uuid.NewString(), accountEmail, provider, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to ensure account: %w", err)
	}

	var id string
	if err := sqlx.GetContext(ctx, q, &id, `SELECT id FROM accounts WHERE email = ?`, accountEmail); err != nil {
		return "", fmt.Errorf("failed to read account: %w", err)
	}
	return id, nil
}

func (s *Store) EnsureAccountAndMailbox(ctx context.Context, accountEmail, provider, mailboxName string) (*models.Mailbox, error) {
	accountID, err := ensureAccount(ctx, s.db, accountEmail, provider)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO mailboxes (id, account_id, name) VALUES (?, ?, ?) ON CONFLICT (account_id, name) DO NOTHING`,
		uuid.NewString(), accountID, mailboxName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure mailbox: %w", err)
	}

	mailbox := &models.Mailbox{AccountID: accountID, AccountEmail: accountEmail, Name: mailboxName}
	err = s.db.GetContext(ctx, &mailbox.ID, `SELECT id FROM mailboxes WHERE account_id = ? AND name = ?`, accountID, mailboxName)
	if err != nil {
		return nil, fmt.Errorf("failed to read mailbox: %w", err)
	}

	return mailbox, nil
}

// UpsertPlacement records a message at (mailbox, uid), replacing whatever was there.
func (s *Store) UpsertPlacement(ctx context.Context, p *models.MailboxMessage) error {
	flags, err := encodeList(p.Flags)
	if err != nil {
		return fmt.Errorf("failed to encode flags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mailbox_messages (id, mailbox_id, message_id, uid, flags, modseq, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (mailbox_id, uid) DO UPDATE SET
			message_id = excluded.message_id,
			flags = excluded.flags,
			modseq = excluded.modseq,
			last_seen_at = excluded.last_seen_at`,
		uuid.NewString(), p.MailboxID, p.MessageID, int64(p.UID), flags, p.ModSeq, p.LastSeenAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert placement: %w", err)
	}

	err = s.db.GetContext(ctx, &p.ID, `SELECT id FROM mailbox_messages WHERE mailbox_id = ? AND uid = ?`, p.MailboxID, int64(p.UID))
	if err != nil {
		return fmt.Errorf("failed to read placement: %w", err)
	}
	return nil
}

func (s *Store) ListPlacements(ctx context.Context, messageID string) ([]*models.MailboxMessage, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, mailbox_id, message_id, uid, flags, modseq, last_seen_at
		FROM mailbox_messages
		WHERE message_id = ?
		ORDER BY mailbox_id, uid`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list placements: %w", err)
	}
	defer rows.Close()

	var placements []*models.MailboxMessage
	for rows.Next() {
		var (
			p      models.MailboxMessage
			uid    int64
			flags  string
			modseq sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.MailboxID, &p.MessageID, &uid, &flags, &modseq, &p.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan placement: %w", err)
		}
		p.UID = uint32(uid)
		if modseq.Valid {
			p.ModSeq = &modseq.Int64
		}
		if err := json.Unmarshal([]byte(flags), &p.Flags); err != nil {
			return nil, fmt.Errorf("failed to decode flags: %w", err)
		}
		placements = append(placements, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating placements: %w", err)
	}

	return placements, nil
}

// GetCheckpoint returns the last imported UID, creating a zero checkpoint if absent.
func (s *Store) GetCheckpoint(ctx context.Context, accountEmail, mailboxName string) (uint32, error) {
	accountID, err := ensureAccount(ctx, s.db, accountEmail, "")
	if err != nil {
		return 0, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO import_checkpoints (account_id, mailbox_name, last_uid, updated_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT (account_id, mailbox_name) DO NOTHING`,
		accountID, mailboxName, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create checkpoint: %w", err)
	}

	var lastUID int64
	err = s.db.GetContext(ctx, &lastUID,
		`SELECT last_uid FROM import_checkpoints WHERE account_id = ? AND mailbox_name = ?`,
		accountID, mailboxName,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return uint32(lastUID), nil
}

// SetCheckpoint raises the checkpoint to uid; a lower uid is ignored.
func (s *Store) SetCheckpoint(ctx context.Context, accountEmail, mailboxName string, uid uint32) error {
	accountID, err := ensureAccount(ctx, s.db, accountEmail, "")
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO import_checkpoints (account_id, mailbox_name, last_uid, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (account_id, mailbox_name) DO UPDATE SET
			last_uid = MAX(import_checkpoints.last_uid, excluded.last_uid),
			updated_at = excluded.updated_at`,
		accountID, mailboxName, int64(uid), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}
	return nil
}

type checkpointRow struct {
	AccountEmail string    `db:"email"`
	MailboxName  string    `db:"mailbox_name"`
	LastUID      int64     `db:"last_uid"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (s *Store) ListCheckpoints(ctx context.Context, accountEmail string) ([]*models.Checkpoint, error) {
	var rows []checkpointRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.email, c.mailbox_name, c.last_uid, c.updated_at
		FROM import_checkpoints c
		JOIN accounts a ON a.id = c.account_id
		WHERE ? = '' OR a.email = ?
		ORDER BY a.email, c.mailbox_name`, accountEmail, accountEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	checkpoints := make([]*models.Checkpoint, 0, len(rows))
	for _, r := range rows {
		checkpoints = append(checkpoints, &models.Checkpoint{
			AccountEmail: r.AccountEmail,
			MailboxName:  r.MailboxName,
			LastUID:      uint32(r.LastUID),
			UpdatedAt:    r.UpdatedAt,
		})
	}
	return checkpoints, nil
}
