package store

import (
	"context"
	"errors"
	"time"

	"github.com/vdavid/mailvault/internal/models"
	"github.com/vdavid/mailvault/internal/normalize"
)

// ImportRecord is one observation of a message in a mailbox.
type ImportRecord struct {
	AccountEmail string
	Provider     string
	MailboxName  string
	UID          uint32
	Flags        []string
	ModSeq       *int64
	InternalDate *time.Time
	Email        *normalize.NormalizedEmail
}

// LoadResult reports what Load did with a record.
type LoadResult struct {
	Message *models.Message
	Created bool
}

// Load stores a record: mailbox, message with relations, then placement.
// Any failure is returned as a *StorageError.
func Load(ctx context.Context, s Store, rec *ImportRecord) (*LoadResult, error) {
	mailbox, err := s.EnsureAccountAndMailbox(ctx, rec.AccountEmail, rec.Provider, rec.MailboxName)
	if err != nil {
		return nil, wrap("ensure mailbox", err)
	}

	message, created, err := s.UpsertMessageAndRelations(ctx, rec.Email, rec.InternalDate)
	if err != nil {
		return nil, wrap("upsert message", err)
	}

	flags := rec.Flags
	if flags == nil {
		flags = []string{}
	}

	err = s.UpsertPlacement(ctx, &models.MailboxMessage{
		MailboxID:  mailbox.ID,
		MessageID:  message.ID,
		UID:        rec.UID,
		Flags:      flags,
		ModSeq:     rec.ModSeq,
		LastSeenAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, wrap("upsert placement", err)
	}

	return &LoadResult{Message: message, Created: created}, nil
}

func wrap(op string, err error) error {
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
