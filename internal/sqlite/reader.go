package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vdavid/mailvault/internal/models"
	"github.com/vdavid/mailvault/internal/store"
)

type personRow struct {
	ID          string `db:"id"`
	Email       string `db:"email"`
	DisplayName string `db:"display_name"`
}

func (s *Store) GetPerson(ctx context.Context, email string) (*models.Person, error) {
	var row personRow
	err := s.db.GetContext(ctx, &row, `SELECT id, email, display_name FROM persons WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return &models.Person{ID: row.ID, Email: row.Email, DisplayName: row.DisplayName}, nil
}

type recipientRow struct {
	MessageID string `db:"message_id"`
	PersonID  string `db:"person_id"`
	Email     string `db:"email"`
	Role      string `db:"role"`
}

func (s *Store) ListRecipients(ctx context.Context, messageID string) ([]*models.Recipient, error) {
	var rows []recipientRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT r.message_id, r.person_id, p.email, r.role
		FROM recipients r
		JOIN persons p ON p.id = r.person_id
		WHERE r.message_id = ?
		ORDER BY CASE r.role WHEN 'to' THEN 0 WHEN 'cc' THEN 1 ELSE 2 END, p.email`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}

	recipients := make([]*models.Recipient, 0, len(rows))
	for _, r := range rows {
		recipients = append(recipients, &models.Recipient{MessageID: r.MessageID, PersonID: r.PersonID, Email: r.Email, Role: r.Role})
	}
	return recipients, nil
}

type attachmentRow struct {
	ID          string `db:"id"`
	MessageID   string `db:"message_id"`
	Filename    string `db:"filename"`
	ContentType string `db:"content_type"`
	SizeBytes   int64  `db:"size_bytes"`
	PartID      string `db:"part_id"`
	SHA256      string `db:"sha256"`
}

func (s *Store) ListAttachments(ctx context.Context, messageID string) ([]*models.Attachment, error) {
	var rows []attachmentRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, message_id, filename, content_type, size_bytes, part_id, sha256
		FROM attachments
		WHERE message_id = ?
		ORDER BY length(part_id), part_id`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}

	attachments := make([]*models.Attachment, 0, len(rows))
	for _, r := range rows {
		attachments = append(attachments, &models.Attachment{
			ID:          r.ID,
			MessageID:   r.MessageID,
			Filename:    r.Filename,
			ContentType: r.ContentType,
			SizeBytes:   r.SizeBytes,
			PartID:      r.PartID,
			SHA256:      r.SHA256,
		})
	}
	return attachments, nil
}

func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	var st models.Stats
	err := s.db.QueryRowxContext(ctx, `
		SELECT
			(SELECT count(*) FROM accounts),
			(SELECT count(*) FROM mailboxes),
			(SELECT count(*) FROM messages),
			(SELECT count(*) FROM mailbox_messages),
			(SELECT count(*) FROM persons),
			(SELECT count(*) FROM threads),
			(SELECT count(*) FROM attachments)`,
	).Scan(&st.Accounts, &st.Mailboxes, &st.Messages, &st.Placements, &st.Persons, &st.Threads, &st.Attachments)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &st, nil
}
