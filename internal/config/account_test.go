package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/mailvault/internal/crypto"
)

func writeAccountFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write account file: %v", err)
	}
	return path
}

type fakeSecrets map[string]string

func (f fakeSecrets) Get(key string) (string, error) {
	v, ok := f[key]
	if !ok {
		return "", errors.New("not in keyring")
	}
	return v, nil
}

func TestLoadAccount(t *testing.T) {
	t.Run("yaml with defaults", func(t *testing.T) {
		path := writeAccountFile(t, "account.yaml", `
account_email: me@example.com
imap:
  host: imap.example.com
  username: me
  password: secret
`)

		cfg, err := LoadAccount(path)
		require.NoError(t, err)

		assert.Equal(t, "me@example.com", cfg.AccountEmail)
		assert.Equal(t, "generic", cfg.Provider)
		assert.Equal(t, "imap.example.com", cfg.IMAP.Host)
		assert.Equal(t, 993, cfg.IMAP.Port)
		assert.True(t, cfg.IMAP.SSL)
	})

	t.Run("json with explicit values", func(t *testing.T) {
		path := writeAccountFile(t, "account.json", `{
  "account_email": "me@example.com",
  "provider": "fastmail",
  "imap": {"host": "127.0.0.1", "port": 1143, "ssl": false, "username": "me", "password_keyring": true}
}`)

		cfg, err := LoadAccount(path)
		require.NoError(t, err)

		assert.Equal(t, "fastmail", cfg.Provider)
		assert.Equal(t, 1143, cfg.IMAP.Port)
		assert.False(t, cfg.IMAP.SSL)
		assert.True(t, cfg.IMAP.PasswordKeyring)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAccount(filepath.Join(t.TempDir(), "missing.yaml"))

		var configErr *ConfigError
		require.True(t, errors.As(err, &configErr), "expected ConfigError, got %v", err)
	})

	t.Run("missing host", func(t *testing.T) {
		path := writeAccountFile(t, "account.yaml", "account_email: me@example.com\nimap:\n  username: me\n  password: x\n")

		_, err := LoadAccount(path)

		var configErr *ConfigError
		require.True(t, errors.As(err, &configErr))
		assert.Equal(t, "imap.host", configErr.Field)
	})

	t.Run("two password sources", func(t *testing.T) {
		path := writeAccountFile(t, "account.yaml", "account_email: me@example.com\nimap:\n  host: h\n  username: me\n  password: x\n  password_keyring: true\n")

		_, err := LoadAccount(path)

		var configErr *ConfigError
		require.True(t, errors.As(err, &configErr))
		assert.Equal(t, "imap.password", configErr.Field)
	})
}

func TestResolvePassword(t *testing.T) {
	base := AccountConfig{
		AccountEmail: "me@example.com",
		IMAP:         IMAPConfig{Host: "h", Port: 993, Username: "me"},
	}

	t.Run("plain", func(t *testing.T) {
		cfg := base
		cfg.IMAP.Password = "plain"

		password, err := cfg.ResolvePassword(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "plain", password)
	})

	t.Run("sealed", func(t *testing.T) {
		encryptor, err := crypto.NewEncryptor(testKey)
		require.NoError(t, err)
		sealed, err := encryptor.Seal("sealed-secret")
		require.NoError(t, err)

		cfg := base
		cfg.IMAP.PasswordSealed = sealed

		password, err := cfg.ResolvePassword(&Config{EncryptionKeyBase64: testKey}, nil)
		require.NoError(t, err)
		assert.Equal(t, "sealed-secret", password)
	})

	t.Run("sealed without key", func(t *testing.T) {
		cfg := base
		cfg.IMAP.PasswordSealed = "anything"

		_, err := cfg.ResolvePassword(&Config{}, nil)

		var configErr *ConfigError
		require.True(t, errors.As(err, &configErr))
		assert.Equal(t, "MAILVAULT_ENCRYPTION_KEY_BASE64", configErr.Field)
	})

	t.Run("keyring", func(t *testing.T) {
		cfg := base
		cfg.IMAP.PasswordKeyring = true

		password, err := cfg.ResolvePassword(nil, fakeSecrets{"me": "from-keyring"})
		require.NoError(t, err)
		assert.Equal(t, "from-keyring", password)
	})

	t.Run("keyring miss", func(t *testing.T) {
		cfg := base
		cfg.IMAP.PasswordKeyring = true

		_, err := cfg.ResolvePassword(nil, fakeSecrets{})

		var configErr *ConfigError
		require.True(t, errors.As(err, &configErr))
		assert.Equal(t, "imap.password_keyring", configErr.Field)
	})
}
