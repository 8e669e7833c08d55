// Command test-server starts a disposable PostgreSQL database and an in-memory
// IMAP server seeded with sample mail, then prints what is needed to run
// "mailvault import" against them.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vdavid/mailvault/internal/crypto"
	"github.com/vdavid/mailvault/internal/db"
)

const (
	imapUsername = "username"
	imapPassword = "password"
	dbPassword   = "mailvault"
)

func main() {
	ctx := context.Background()

	postgresContainer, connStr, err := startPostgres(ctx)
	if err != nil {
		log.Fatalf("Failed to start Postgres: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate Postgres container: %v", err)
		}
	}()

	if err := migrateDatabase(ctx, connStr); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	imapServer, addr, err := startIMAPServer()
	if err != nil {
		log.Fatalf("Failed to start IMAP server: %v", err)
	}
	defer imapServer.Close()

	if err := seedMailbox(addr); err != nil {
		log.Fatalf("Failed to seed IMAP server: %v", err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("Failed to generate encryption key: %v", err)
	}

	accountPath, err := writeAccountFile(os.TempDir(), addr, key)
	if err != nil {
		log.Fatalf("Failed to write account file: %v", err)
	}

	host, port, err := postgresHostPort(ctx, postgresContainer)
	if err != nil {
		log.Fatalf("Failed to read Postgres address: %v", err)
	}

	log.Printf("IMAP server: %s (username: %s, password: %s)", addr, imapUsername, imapPassword)
	log.Printf("Account file: %s", accountPath)
	log.Println("Environment for mailvault:")
	fmt.Printf("export MAILVAULT_ENV=test MAILVAULT_BACKEND=postgres MAILVAULT_DB_HOST=%s MAILVAULT_DB_PORT=%s MAILVAULT_DB_USER=mailvault MAILVAULT_DB_PASSWORD=%s MAILVAULT_DB_NAME=mailvault MAILVAULT_ENCRYPTION_KEY_BASE64=%s\n",
		host, port, dbPassword, key)
	fmt.Printf("mailvault import --account %s\n", accountPath)
	log.Println("Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %v, shutting down...", sig)
}

// startPostgres starts a Postgres database using testcontainers.
func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	log.Println("Starting Postgres database...")
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mailvault"),
		postgres.WithUsername("mailvault"),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start Postgres container: %w", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("failed to get connection string: %w", err)
	}

	log.Println("Postgres database started")
	return postgresContainer, connStr, nil
}

func postgresHostPort(ctx context.Context, c *postgres.PostgresContainer) (string, string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", "", err
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return "", "", err
	}
	return host, port.Port(), nil
}

func migrateDatabase(ctx context.Context, connStr string) error {
	m, err := db.NewMigrator(ctx, connStr)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Printf("Warning: failed to close migrator: %v", err)
		}
	}()

	if err := m.Up(); err != nil {
		return err
	}

	version, _, err := m.Version()
	if err != nil {
		return err
	}
	log.Printf("Database migrated to version %d", version)
	return nil
}

// startIMAPServer serves go-imap's memory backend on a random local port.
func startIMAPServer() (*server.Server, string, error) {
	s := server.New(memory.New())
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		if err := s.Serve(listener); err != nil {
			log.Printf("IMAP server stopped: %v", err)
		}
	}()

	return s, listener.Addr().String(), nil
}

type seedMessage struct {
	folder string
	raw    string
}

// sampleMessages covers a reply chain, a message filed in two folders and an
// attachment.
func sampleMessages(now time.Time) []seedMessage {
	date := func(ago time.Duration) string {
		return now.Add(-ago).Format(time.RFC1123Z)
	}

	kickoff := "Message-ID: <kickoff@sandbox>\r\n" +
		"Date: " + date(72*time.Hour) + "\r\n" +
		"From: Alice <alice@example.com>\r\n" +
		"To: Bob <bob@example.com>, carol@example.com\r\n" +
		"Subject: Project kickoff\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n\r\n" +
		"Kickoff is on Monday.\r\n"

	return []seedMessage{
		{folder: "INBOX", raw: kickoff},
		{folder: "INBOX", raw: "Message-ID: <reply@sandbox>\r\n" +
			"Date: " + date(48*time.Hour) + "\r\n" +
			"From: Bob <bob@example.com>\r\n" +
			"To: Alice <alice@example.com>\r\n" +
			"Subject: Re: Project kickoff\r\n" +
			"In-Reply-To: <kickoff@sandbox>\r\n" +
			"References: <kickoff@sandbox>\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n\r\n" +
			"Works for me.\r\n"},
		{folder: "INBOX", raw: "Message-ID: <report@sandbox>\r\n" +
			"Date: " + date(24*time.Hour) + "\r\n" +
			"From: reports@example.com\r\n" +
			"To: alice@example.com\r\n" +
			"Subject: Quarterly report\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: multipart/mixed; boundary=sep\r\n\r\n" +
			"--sep\r\n" +
			"Content-Type: text/html; charset=utf-8\r\n\r\n" +
			"<p>Report <b>attached</b>.</p>\r\n" +
			"--sep\r\n" +
			"Content-Type: text/csv\r\n" +
			"Content-Disposition: attachment; filename=\"q3.csv\"\r\n\r\n" +
			"quarter,revenue\r\nq3,42\r\n" +
			"--sep--\r\n"},
		{folder: "Archive", raw: kickoff},
	}
}

// seedMailbox creates the sandbox folders and appends the sample messages.
func seedMailbox(addr string) error {
	c, err := client.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		_ = c.Logout()
	}()

	if err := c.Login(imapUsername, imapPassword); err != nil {
		return fmt.Errorf("failed to login: %w", err)
	}

	for _, folder := range []string{"Archive", "Sent"} {
		if err := c.Create(folder); err != nil {
			log.Printf("Warning: failed to create folder %s: %v", folder, err)
		}
	}

	now := time.Now()
	for _, msg := range sampleMessages(now) {
		if err := c.Append(msg.folder, nil, now, bytes.NewReader([]byte(msg.raw))); err != nil {
			return fmt.Errorf("failed to append to %s: %w", msg.folder, err)
		}
	}

	return nil
}

// writeAccountFile writes a YAML account file whose password is sealed with key.
func writeAccountFile(dir, imapAddr, key string) (string, error) {
	host, port, err := net.SplitHostPort(imapAddr)
	if err != nil {
		return "", fmt.Errorf("failed to split IMAP address: %w", err)
	}

	encryptor, err := crypto.NewEncryptor(key)
	if err != nil {
		return "", err
	}
	sealed, err := encryptor.Seal(imapPassword)
	if err != nil {
		return "", err
	}

	content := fmt.Sprintf(`account_email: sandbox@example.com
provider: sandbox
imap:
  host: %s
  port: %s
  ssl: false
  username: %s
  password_sealed: %q
`, host, port, imapUsername, sealed)

	path := filepath.Join(dir, "mailvault-sandbox-account.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
