package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailvault/internal/models"
)

// ListThreadCandidates returns up to limit messages with seq > afterSeq in
// creation order.
func ListThreadCandidates(ctx context.Context, pool *pgxpool.Pool, afterSeq int64, limit int) ([]*models.ThreadCandidate, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, seq, subject_norm, sent_at, in_reply_to, references_ids, COALESCE(thread_id::text, '')
		FROM messages
		WHERE seq > $1
		ORDER BY seq
		LIMIT $2
	`, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list thread candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*models.ThreadCandidate
	for rows.Next() {
		var c models.ThreadCandidate
		if err := rows.Scan(&c.ID, &c.Seq, &c.SubjectNorm, &c.SentAt, &c.InReplyTo, &c.References, &c.ThreadID); err != nil {
			return nil, fmt.Errorf("failed to scan thread candidate: %w", err)
		}
		candidates = append(candidates, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating thread candidates: %w", err)
	}

	return candidates, nil
}

// GetOrCreateThread returns the thread for a key. The subject is only used
// when the thread is created.
func GetOrCreateThread(ctx context.Context, pool *pgxpool.Pool, threadKey, subjectNorm string) (*models.Thread, error) {
	var thread models.Thread
	err := pool.QueryRow(ctx, `
		INSERT INTO threads (thread_key, subject_norm)
		VALUES ($1, $2)
		ON CONFLICT (thread_key) DO UPDATE SET thread_key = EXCLUDED.thread_key
		RETURNING id, thread_key, subject_norm
	`, threadKey, subjectNorm).Scan(&thread.ID, &thread.ThreadKey, &thread.SubjectNorm)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create thread: %w", err)
	}
	return &thread, nil
}

// AssignThread points a message at a thread.
func AssignThread(ctx context.Context, pool *pgxpool.Pool, messageID, threadID string) error {
	_, err := pool.Exec(ctx, `
		UPDATE messages SET thread_id = $2
		WHERE id = $1 AND thread_id IS DISTINCT FROM $2::uuid
	`, messageID, threadID)
	if err != nil {
		return fmt.Errorf("failed to assign thread: %w", err)
	}
	return nil
}
