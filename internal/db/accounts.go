package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailvault/internal/models"
)

// EnsureAccountAndMailbox returns the mailbox for (account, name), creating
// the account and mailbox rows on first reference. An existing account keeps
// its provider.
func EnsureAccountAndMailbox(ctx context.Context, pool *pgxpool.Pool, accountEmail, provider, mailboxName string) (*models.Mailbox, error) {
	var accountID string
	err := pool.QueryRow(ctx, `
		INSERT INTO accounts (email, provider)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id
	`, accountEmail, provider).Scan(&accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure account: %w", err)
	}

	mailbox := &models.Mailbox{AccountID: accountID, AccountEmail: accountEmail, Name: mailboxName}
	err = pool.QueryRow(ctx, `
		INSERT INTO mailboxes (account_id, name)
		VALUES ($1, $2)
		ON CONFLICT (account_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, accountID, mailboxName).Scan(&mailbox.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure mailbox: %w", err)
	}

	return mailbox, nil
}
