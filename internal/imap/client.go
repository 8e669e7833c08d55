package imap

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
)

// Config holds what is needed to open a session.
type Config struct {
	Host     string
	Port     int
	SSL      bool
	Username string
	Password string
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Client is one authenticated IMAP session. It is not safe for concurrent use.
type Client struct {
	c    *client.Client
	addr string
}

// Connect dials the server with a 5-second timeout and logs in.
// Any failure is returned as a *ConnectionError.
func Connect(cfg Config) (*Client, error) {
	addr := cfg.Addr()

	c, err := ConnectToIMAP(addr, cfg.SSL, cfg.Host)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	if err := Login(c, cfg.Username, cfg.Password); err != nil {
		_ = c.Logout()
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	return &Client{c: c, addr: addr}, nil
}

// ConnectToIMAP connects to the IMAP server with a 5-second timeout.
// useTLS is false only for local test servers.
func ConnectToIMAP(server string, useTLS bool, serverName string) (*client.Client, error) {
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
	}

	if useTLS {
		c, err := client.DialWithDialerTLS(dialer, server, &tls.Config{ServerName: serverName})
		if err != nil {
			return nil, fmt.Errorf("failed to dial with TLS: %w", err)
		}
		return c, nil
	}

	c, err := client.DialWithDialer(dialer, server)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	return c, nil
}

// Login authenticates with the IMAP server.
func Login(c *client.Client, username, password string) error {
	if err := c.Login(username, password); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	return nil
}

// Close logs out. Errors are only logged since the session is finished anyway.
func (c *Client) Close() error {
	if c == nil || c.c == nil {
		return nil
	}
	if err := c.c.Logout(); err != nil {
		log.Printf("Warning: failed to log out from %s: %v", c.addr, err)
	}
	return nil
}
