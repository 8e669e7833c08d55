package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vdavid/mailvault/internal/models"
	"github.com/vdavid/mailvault/internal/normalize"
)

// ErrNotFound is returned by Reader lookups when no row matches.
var ErrNotFound = errors.New("not found")

// StorageError wraps a failed storage operation. It is fatal for an import run.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store persists import observations. Every method is idempotent.
type Store interface {
	// EnsureAccountAndMailbox returns the mailbox, creating it and its account on first reference.
	EnsureAccountAndMailbox(ctx context.Context, accountEmail, provider, mailboxName string) (*models.Mailbox, error)

	// UpsertMessageAndRelations inserts the message by raw hash if absent.
	// Persons, recipients and attachments are written only when created is true.
	UpsertMessageAndRelations(ctx context.Context, msg *normalize.NormalizedEmail, internalDate *time.Time) (message *models.Message, created bool, err error)

	// UpsertPlacement records the message at (mailbox, uid), overwriting an existing placement.
	UpsertPlacement(ctx context.Context, placement *models.MailboxMessage) error

	// GetCheckpoint returns the last imported UID, creating a zero checkpoint if absent.
	GetCheckpoint(ctx context.Context, accountEmail, mailboxName string) (uint32, error)

	// SetCheckpoint raises the checkpoint to uid. It never lowers it.
	SetCheckpoint(ctx context.Context, accountEmail, mailboxName string, uid uint32) error
}

// ThreadStore is what the thread builder needs from a backend.
type ThreadStore interface {
	// ListThreadCandidates returns up to limit messages with seq > afterSeq in seq order.
	ListThreadCandidates(ctx context.Context, afterSeq int64, limit int) ([]*models.ThreadCandidate, error)
	GetOrCreateThread(ctx context.Context, threadKey, subjectNorm string) (*models.Thread, error)
	AssignThread(ctx context.Context, messageID, threadID string) error
}

// Reader serves lookups for the stats command and tests.
type Reader interface {
	GetMessageByHash(ctx context.Context, rawSHA256 string) (*models.Message, error)
	GetPerson(ctx context.Context, email string) (*models.Person, error)
	ListRecipients(ctx context.Context, messageID string) ([]*models.Recipient, error)
	ListAttachments(ctx context.Context, messageID string) ([]*models.Attachment, error)
	ListPlacements(ctx context.Context, messageID string) ([]*models.MailboxMessage, error)
	ListCheckpoints(ctx context.Context, accountEmail string) ([]*models.Checkpoint, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Backend is a complete storage implementation.
type Backend interface {
	Store
	ThreadStore
	Reader
	Close() error
}
