package config

import (
	"fmt"

	"github.com/99designs/keyring"
)

const keyringService = "mailvault"

// Keyring reads IMAP passwords from the OS keyring under the "mailvault"
// service, keyed by IMAP username.
type Keyring struct{}

func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailvault/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailvault-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return ring, nil
}

func (Keyring) Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("failed to get credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a password so an account file can use password_keyring.
func (Keyring) Set(key, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("failed to set credential %q: %w", key, err)
	}

	return nil
}
