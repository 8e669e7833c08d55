package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vdavid/mailvault/internal/models"
	"github.com/vdavid/mailvault/internal/normalize"
	"github.com/vdavid/mailvault/internal/store"
)

const messageColumns = `
	id, seq, raw_sha256, COALESCE(message_id_header, ''), content_fingerprint,
	subject, subject_norm, sent_at, internal_date, from_name, from_email,
	in_reply_to, references_ids, body_text, body_html, size_bytes,
	COALESCE(thread_id, ''), created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		msg          models.Message
		sentAt       sql.NullTime
		internalDate sql.NullTime
		references   string
	)
	err := row.Scan(
		&msg.ID,
		&msg.Seq,
		&msg.RawSHA256,
		&msg.MessageIDHeader,
		&msg.ContentFingerprint,
		&msg.Subject,
		&msg.SubjectNorm,
		&sentAt,
		&internalDate,
		&msg.FromName,
		&msg.FromEmail,
		&msg.InReplyTo,
		&references,
		&msg.BodyText,
		&msg.BodyHTML,
		&msg.SizeBytes,
		&msg.ThreadID,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.SentAt = nullTime(sentAt)
	msg.InternalDate = nullTime(internalDate)
	if err := json.Unmarshal([]byte(references), &msg.References); err != nil {
		return nil, fmt.Errorf("failed to decode references: %w", err)
	}

	return &msg, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UpsertMessageAndRelations inserts the message if its raw hash is new and
// writes its persons, recipients and attachments in the same transaction.
// An existing message only gets a missing Message-ID backfilled.
func (s *Store) UpsertMessageAndRelations(ctx context.Context, email *normalize.NormalizedEmail, internalDate *time.Time) (*models.Message, bool, error) {
	references, err := encodeList(email.References)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode references: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (
			id, raw_sha256, message_id_header, content_fingerprint,
			subject, subject_norm, sent_at, internal_date,
			from_name, from_email, in_reply_to, references_ids,
			body_text, body_html, size_bytes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (raw_sha256) DO NOTHING`,
		uuid.NewString(), email.RawSHA256, nullIfEmpty(email.MessageID), email.ContentFingerprint,
		email.Subject, email.SubjectNorm, utcOrNil(email.SentAt), utcOrNil(internalDate),
		email.FromName, email.FromEmail, email.InReplyTo, references,
		email.BodyText, email.BodyHTML, email.Size, time.Now().UTC(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	created := affected == 1

	if !created && email.MessageID != "" {
		_, err := tx.ExecContext(ctx, `
			UPDATE messages SET message_id_header = ?
			WHERE raw_sha256 = ? AND (message_id_header IS NULL OR message_id_header = '')`,
			email.MessageID, email.RawSHA256,
		)
		if err != nil {
			return nil, false, fmt.Errorf("failed to backfill message id: %w", err)
		}
	}

	msg, err := scanMessage(tx.QueryRowxContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE raw_sha256 = ?`, email.RawSHA256))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read message: %w", err)
	}

	if created {
		if err := insertRelations(ctx, tx, msg.ID, email); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit message: %w", err)
	}

	return msg, created, nil
}

func insertRelations(ctx context.Context, tx *sqlx.Tx, messageID string, email *normalize.NormalizedEmail) error {
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
		_, err = tx.ExecContext(ctx,
			`INSERT INTO recipients (message_id, person_id, role) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			messageID, personID, r.Role,
		)
		if err != nil {
			return fmt.Errorf("failed to insert recipient: %w", err)
		}
	}

	for _, att := range email.Attachments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attachments (id, message_id, filename, content_type, size_bytes, part_id, sha256)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), messageID, att.Filename, att.ContentType, att.Size, att.PartID, att.SHA256,
		)
		if err != nil {
			return fmt.Errorf("failed to insert attachment: %w", err)
		}
	}

	return nil
}

// upsertPerson returns the person id for an address. The first non-empty
// display name is kept.
func upsertPerson(ctx context.Context, tx *sqlx.Tx, email, displayName string) (string, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO persons (id, email, display_name) VALUES (?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			display_name = CASE
				WHEN persons.display_name = '' THEN excluded.display_name
				ELSE persons.display_name
			END`,
		uuid.NewString(), email, displayName,
	)
	if err != nil {
		return "", fmt.Errorf("failed to upsert person: %w", err)
	}

	var id string
	if err := tx.GetContext(ctx, &id, `SELECT id FROM persons WHERE email = ?`, email); err != nil {
		return "", fmt.Errorf("failed to read person: %w", err)
	}
	return id, nil
}

func (s *Store) GetMessageByHash(ctx context.Context, rawSHA256 string) (*models.Message, error) {
	msg, err := scanMessage(s.db.QueryRowxContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE raw_sha256 = ?`, rawSHA256))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}
