package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailvault/internal/models"
	"github.com/vdavid/mailvault/internal/normalize"
	"github.com/vdavid/mailvault/internal/store"
)

const messageColumns = `
	id,
	seq,
	raw_sha256,
	COALESCE(message_id_header, ''),
	content_fingerprint,
	subject,
	subject_norm,
	sent_at,
	internal_date,
	from_name,
	from_email,
	in_reply_to,
	references_ids,
	body_text,
	body_html,
	size_bytes,
	COALESCE(thread_id::text, ''),
	created_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	err := row.Scan(
		&msg.ID,
		&msg.Seq,
		&msg.RawSHA256,
		&msg.MessageIDHeader,
		&msg.ContentFingerprint,
		&msg.Subject,
		&msg.SubjectNorm,
		&msg.SentAt,
		&msg.InternalDate,
		&msg.FromName,
		&msg.FromEmail,
		&msg.InReplyTo,
		&msg.References,
		&msg.BodyText,
		&msg.BodyHTML,
		&msg.SizeBytes,
		&msg.ThreadID,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpsertMessageAndRelations stores a message by its raw hash. The first
// writer creates the row together with persons, recipients and attachments;
// later writers only backfill a missing Message-ID. Everything runs in one
// transaction.
func UpsertMessageAndRelations(ctx context.Context, pool *pgxpool.Pool, email *normalize.NormalizedEmail, internalDate *time.Time) (*models.Message, bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	references := email.References
	if references == nil {
		references = []string{}
	}

	msg, err := scanMessage(tx.QueryRow(ctx, `
		INSERT INTO messages (
			raw_sha256,
			message_id_header,
			content_fingerprint,
			subject,
			subject_norm,
			sent_at,
			internal_date,
			from_name,
			from_email,
			in_reply_to,
			references_ids,
			body_text,
			body_html,
			size_bytes
		) VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (raw_sha256) DO NOTHING
		RETURNING `+messageColumns,
		email.RawSHA256,
		email.MessageID,
		email.ContentFingerprint,
		email.Subject,
		email.SubjectNorm,
		email.SentAt,
		internalDate,
		email.FromName,
		email.FromEmail,
		email.InReplyTo,
		references,
		email.BodyText,
		email.BodyHTML,
		email.Size,
	))

	created := true
	if errors.Is(err, pgx.ErrNoRows) {
		created = false
		msg, err = backfillMessageID(ctx, tx, email.RawSHA256, email.MessageID)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert message: %w", err)
	}

	if created {
		if err := insertRelations(ctx, tx, msg.ID, email); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to commit message: %w", err)
	}

	return msg, created, nil
}

// backfillMessageID sets the Message-ID of an existing message if it has none.
func backfillMessageID(ctx context.Context, tx pgx.Tx, rawSHA256, messageID string) (*models.Message, error) {
	if messageID != "" {
		_, err := tx.Exec(ctx, `
			UPDATE messages SET message_id_header = $2
			WHERE raw_sha256 = $1 AND (message_id_header IS NULL OR message_id_header = '')
		`, rawSHA256, messageID)
		if err != nil {
			return nil, fmt.Errorf("failed to backfill message id: %w", err)
		}
	}

	return scanMessage(tx.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE raw_sha256 = $1`, rawSHA256))
}

func insertRelations(ctx context.Context, tx pgx.Tx, messageID string, email *normalize.NormalizedEmail) error {
	if email.FromEmail != "" {
		if _, err := upsertPerson(ctx, tx, email.FromEmail, email.FromName); err != nil {
			return err
		}
	}

	for _, r := range store.RecipientsOf(email) {
		personID, err := upsertPerson(ctx, tx, r.Email, r.Name)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO recipients (message_id, person_id, role)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, messageID, personID, r.Role)
		if err != nil {
			return fmt.Errorf("failed to insert recipient: %w", err)
		}
	}

	for _, att := range email.Attachments {
		_, err := tx.Exec(ctx, `
			INSERT INTO attachments (message_id, filename, content_type, size_bytes, part_id, sha256)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, messageID, att.Filename, att.ContentType, att.Size, att.PartID, att.SHA256)
		if err != nil {
			return fmt.Errorf("failed to insert attachment: %w", err)
		}
	}

	return nil
}

// GetMessageByHash returns the message with the given raw hash.
func GetMessageByHash(ctx context.Context, pool *pgxpool.Pool, rawSHA256 string) (*models.Message, error) {
	msg, err := scanMessage(pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE raw_sha256 = $1`, rawSHA256))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}
