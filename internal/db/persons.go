package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailvault/internal/models"
	"github.com/vdavid/mailvault/internal/store"
)

// upsertPerson returns the person id for an address. The first non-empty
// display name wins and is never replaced.
func upsertPerson(ctx context.Context, tx pgx.Tx, email, displayName string) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO persons (email, display_name)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET
			display_name = CASE
				WHEN persons.display_name = '' THEN EXCLUDED.display_name
				ELSE persons.display_name
			END
		RETURNING id
	`, email, displayName).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert person: %w", err)
	}
	return id, nil
}

// GetPerson returns the person with the given normalized address.
func GetPerson(ctx context.Context, pool *pgxpool.Pool, email string) (*models.Person, error) {
	var p models.Person
	err := pool.QueryRow(ctx, `
		SELECT id, email, display_name FROM persons WHERE email = $1
	`, email).Scan(&p.ID, &p.Email, &p.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return &p, nil
}

// ListRecipients returns the recipients of a message ordered by role and address.
func ListRecipients(ctx context.Context, pool *pgxpool.Pool, messageID string) ([]*models.Recipient, error) {
	rows, err := pool.Query(ctx, `
		SELECT r.message_id, r.person_id, p.email, r.role
		FROM recipients r
		JOIN persons p ON p.id = r.person_id
		WHERE r.message_id = $1
		ORDER BY CASE r.role WHEN 'to' THEN 0 WHEN 'cc' THEN 1 ELSE 2 END, p.email
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var recipients []*models.Recipient
	for rows.Next() {
		var r models.Recipient
		if err := rows.Scan(&r.MessageID, &r.PersonID, &r.Email, &r.Role); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipients: %w", err)
	}

	return recipients, nil
}

// ListAttachments returns the attachment metadata of a message in part order.
func ListAttachments(ctx context.Context, pool *pgxpool.Pool, messageID string) ([]*models.Attachment, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, message_id, filename, content_type, size_bytes, part_id, sha256
		FROM attachments
		WHERE message_id = $1
		ORDER BY length(part_id), part_id
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.Filename, &a.ContentType, &a.SizeBytes, &a.PartID, &a.SHA256); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}

	return attachments, nil
}
