package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailvault/internal/models"
	"github.com/vdavid/mailvault/internal/normalize"
	"github.com/vdavid/mailvault/internal/store"
)

// Store adapts the package functions to the store interfaces.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Backend = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) Close() error {
	CloseConnection(s.pool)
	return nil
}

func (s *Store) EnsureAccountAndMailbox(ctx context.Context, accountEmail, provider, mailboxName string) (*models.Mailbox, error) {
	return EnsureAccountAndMailbox(ctx, s.pool, accountEmail, provider, mailboxName)
}

func (s *Store) UpsertMessageAndRelations(ctx context.Context, msg *normalize.NormalizedEmail, internalDate *time.Time) (*models.Message, bool, error) {
	return UpsertMessageAndRelations(ctx, s.pool, msg, internalDate)
}

func (s *Store) UpsertPlacement(ctx context.Context, placement *models.MailboxMessage) error {
	return UpsertPlacement(ctx, s.pool, placement)
}

func (s *Store) GetCheckpoint(ctx context.Context, accountEmail, mailboxName string) (uint32, error) {
	return GetCheckpoint(ctx, s.pool, accountEmail, mailboxName)
}

func (s *Store) SetCheckpoint(ctx context.Context, accountEmail, mailboxName string, uid uint32) error {
	return SetCheckpoint(ctx, s.pool, accountEmail, mailboxName, uid)
}

func (s *Store) ListThreadCandidates(ctx context.Context, afterSeq int64, limit int) ([]*models.ThreadCandidate, error) {
	return ListThreadCandidates(ctx, s.pool, afterSeq, limit)
}

func (s *Store) GetOrCreateThread(ctx context.Context, threadKey, subjectNorm string) (*models.Thread, error) {
	return GetOrCreateThread(ctx, s.pool, threadKey, subjectNorm)
}

func (s *Store) AssignThread(ctx context.Context, messageID, threadID string) error {
	return AssignThread(ctx, s.pool, messageID, threadID)
}

func (s *Store) GetMessageByHash(ctx context.Context, rawSHA256 string) (*models.Message, error) {
	return GetMessageByHash(ctx, s.pool, rawSHA256)
}

func (s *Store) GetPerson(ctx context.Context, email string) (*models.Person, error) {
	return GetPerson(ctx, s.pool, email)
}

func (s *Store) ListRecipients(ctx context.Context, messageID string) ([]*models.Recipient, error) {
	return ListRecipients(ctx, s.pool, messageID)
}

func (s *Store) ListAttachments(ctx context.Context, messageID string) ([]*models.Attachment, error) {
	return ListAttachments(ctx, s.pool, messageID)
}

func (s *Store) ListPlacements(ctx context.Context, messageID string) ([]*models.MailboxMessage, error) {
	return ListPlacements(ctx, s.pool, messageID)
}

func (s *Store) ListCheckpoints(ctx context.Context, accountEmail string) ([]*models.Checkpoint, error) {
	return ListCheckpoints(ctx, s.pool, accountEmail)
}

func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	return GetStats(ctx, s.pool)
}
