package threading

import (
	"context"
	"fmt"
	"log"

	"github.com/vdavid/mailvault/internal/metrics"
	"github.com/vdavid/mailvault/internal/store"
)

// pageSize is how many messages one rebuild query reads.
const pageSize = 500

// Builder groups stored messages into threads.
type Builder struct {
	store store.ThreadStore
}

func NewBuilder(s store.ThreadStore) *Builder {
	return &Builder{store: s}
}

// Result summarizes a rebuild pass.
type Result struct {
	Scanned  int
	Assigned int
	Threads  int
}

// Rebuild walks messages in creation order and assigns each to the thread of
// its key, creating threads as needed. A positive limit stops after that many
// messages. Running it twice changes nothing the second time.
func (b *Builder) Rebuild(ctx context.Context, limit int) (*Result, error) {
	result := &Result{}
	seenThreads := make(map[string]bool)

	var afterSeq int64
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		size := pageSize
		if limit > 0 && limit-result.Scanned < size {
			size = limit - result.Scanned
		}
		if size <= 0 {
			break
		}

		page, err := b.store.ListThreadCandidates(ctx, afterSeq, size)
		if err != nil {
			return result, fmt.Errorf("failed to list messages: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for _, msg := range page {
			key := ThreadKey(msg.References, msg.InReplyTo, msg.SubjectNorm, msg.SentAt)

			thread, err := b.store.GetOrCreateThread(ctx, key, msg.SubjectNorm)
			if err != nil {
				return result, fmt.Errorf("failed to get thread for message %s: %w", msg.ID, err)
			}
			seenThreads[thread.ID] = true

			if msg.ThreadID != thread.ID {
				if err := b.store.AssignThread(ctx, msg.ID, thread.ID); err != nil {
					return result, fmt.Errorf("failed to assign message %s: %w", msg.ID, err)
				}
				result.Assigned++
				metrics.ThreadsAssigned.Inc()
			}

			result.Scanned++
			afterSeq = msg.Seq
		}

		log.Printf("Thread rebuild: %d messages scanned, %d reassigned", result.Scanned, result.Assigned)
	}

	result.Threads = len(seenThreads)
	return result, nil
}
