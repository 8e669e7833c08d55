package testutil

import (
	"bytes"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
)

// TestIMAPServer is an in-memory IMAP server for tests.
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Host     string
	Port     int
	Backend  *memory.Backend
	username string
	password string
}

// NewTestIMAPServer starts an IMAP server with go-imap's memory backend on a
// random local port and stops it when the test finishes. The backend has one
// user, "username" / "password", whose INBOX holds a single message.
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	be := memory.New()

	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	tcpAddr := listener.Addr().(*net.TCPAddr)

	go func() {
		if err := s.Serve(listener); err != nil {
			t.Logf("IMAP server stopped: %v", err)
		}
	}()

	t.Cleanup(func() {
		_ = s.Close()
	})

	// Give the server time to start accepting.
	time.Sleep(50 * time.Millisecond)

	return &TestIMAPServer{
		Server:   s,
		Address:  tcpAddr.String(),
		Host:     tcpAddr.IP.String(),
		Port:     tcpAddr.Port,
		Backend:  be,
		username: "username",
		password: "password",
	}
}

// Username returns the default test username.
func (s *TestIMAPServer) Username() string {
	return s.username
}

// Password returns the default test password.
func (s *TestIMAPServer) Password() string {
	return s.password
}

// Connect opens an authenticated client to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	client, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}

	if err := client.Login(s.username, s.password); err != nil {
		_ = client.Logout()
		t.Fatalf("Failed to login: %v", err)
	}

	return client, func() {
		_ = client.Logout()
	}
}

// CreateFolder creates a folder for the default user.
func (s *TestIMAPServer) CreateFolder(t *testing.T, name string) {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if err := client.Create(name); err != nil {
		t.Fatalf("Failed to create folder %s: %v", name, err)
	}
}

// AddRawMessage appends raw bytes to a folder and returns the UID the server assigned.
func (s *TestIMAPServer) AddRawMessage(t *testing.T, folderName string, raw []byte, flags ...string) uint32 {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	status, err := client.Select(folderName, false)
	if err != nil {
		t.Fatalf("Failed to select folder %s: %v", folderName, err)
	}
	uid := status.UidNext

	if err := client.Append(folderName, flags, time.Now(), bytes.NewReader(raw)); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}

	return uid
}

// SampleMessage builds a small RFC822 text message.
func SampleMessage(messageID, subject, from, to, body string, sentAt time.Time) []byte {
	return []byte(fmt.Sprintf("Message-ID: %s\r\nDate: %s\r\nFrom: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		messageID, sentAt.Format(time.RFC1123Z), from, to, subject, body))
}
