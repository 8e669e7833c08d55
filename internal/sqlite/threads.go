package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/vdavid/mailvault/internal/models"
)

func (s *Store) ListThreadCandidates(ctx context.Context, afterSeq int64, limit int) ([]*models.ThreadCandidate, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, seq, subject_norm, sent_at, in_reply_to, references_ids, COALESCE(thread_id, '')
		FROM messages
		WHERE seq > ?
		ORDER BY seq
		LIMIT ?`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list thread candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*models.ThreadCandidate
	for rows.Next() {
		var (
			c          models.ThreadCandidate
			sentAt     sql.NullTime
			references string
		)
		if err := rows.Scan(&c.ID, &c.Seq, &c.SubjectNorm, &sentAt, &c.InReplyTo, &references, &c.ThreadID); err != nil {
			return nil, fmt.Errorf("failed to scan thread candidate: %w", err)
		}
		c.SentAt = nullTime(sentAt)
		if err := json.Unmarshal([]byte(references), &c.References); err != nil {
			return nil, fmt.Errorf("failed to decode references: %w", err)
		}
		candidates = append(candidates, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating thread candidates: %w", err)
	}

	return candidates, nil
}

// GetOrCreateThread returns the thread for a key; subjectNorm only seeds a new thread.
func (s *Store) GetOrCreateThread(ctx context.Context, threadKey, subjectNorm string) (*models.Thread, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (id, thread_key, subject_norm) VALUES (?, ?, ?) ON CONFLICT (thread_key) DO NOTHING`,
		uuid.NewString(), threadKey, subjectNorm,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	var thread models.Thread
	err = s.db.QueryRowxContext(ctx,
		`SELECT id, thread_key, subject_norm FROM threads WHERE thread_key = ?`, threadKey,
	).Scan(&thread.ID, &thread.ThreadKey, &thread.SubjectNorm)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return &thread, nil
}

func (s *Store) AssignThread(ctx context.Context, messageID, threadID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE messages SET thread_id = ? WHERE id = ? AND thread_id IS NOT ?`,
		threadID, messageID, threadID,
	)
	if err != nil {
		return fmt.Errorf("failed to assign thread: %w", err)
	}
	return nil
}
