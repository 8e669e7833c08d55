package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/vdavid/mailvault/internal/crypto"
)

// IMAPConfig is the server section of an account file.
type IMAPConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	SSL             bool   `mapstructure:"ssl"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	PasswordSealed  string `mapstructure:"password_sealed"`
	PasswordKeyring bool   `mapstructure:"password_keyring"`
}

// AccountConfig describes one mailbox account to import.
type AccountConfig struct {
	AccountEmail string     `mapstructure:"account_email"`
	Provider     string     `mapstructure:"provider"`
	IMAP         IMAPConfig `mapstructure:"imap"`
}

// LoadAccount reads an account file. The format (JSON, YAML or TOML) follows
// the file extension.
func LoadAccount(path string) (*AccountConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("provider", "generic")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.ssl", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Field: "account", Msg: fmt.Sprintf("cannot read %s", path), Err: err}
	}

	cfg := &AccountConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &ConfigError{Field: "account", Msg: fmt.Sprintf("cannot parse %s", path), Err: err}
	}

	cfg.AccountEmail = strings.TrimSpace(cfg.AccountEmail)
	cfg.IMAP.Host = strings.TrimSpace(cfg.IMAP.Host)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (a *AccountConfig) Validate() error {
	if a.AccountEmail == "" {
		return &ConfigError{Field: "account_email", Msg: "is required"}
	}
	if a.IMAP.Host == "" {
		return &ConfigError{Field: "imap.host", Msg: "is required"}
	}
	if a.IMAP.Port <= 0 || a.IMAP.Port > 65535 {
		return &ConfigError{Field: "imap.port", Msg: fmt.Sprintf("%d is out of range", a.IMAP.Port)}
	}
	if a.IMAP.Username == "" {
		return &ConfigError{Field: "imap.username", Msg: "is required"}
	}

	sources := 0
	if a.IMAP.Password != "" {
		sources++
	}
	if a.IMAP.PasswordSealed != "" {
		sources++
	}
	if a.IMAP.PasswordKeyring {
		sources++
	}
	if sources != 1 {
		return &ConfigError{Field: "imap.password", Msg: "exactly one of password, password_sealed or password_keyring must be set"}
	}

	return nil
}

// SecretStore looks up a stored secret by key.
type SecretStore interface {
	Get(key string) (string, error)
}

// ResolvePassword returns the IMAP password from whichever source the account
// file names. A sealed password needs MAILVAULT_ENCRYPTION_KEY_BASE64.
func (a *AccountConfig) ResolvePassword(env *Config, secrets SecretStore) (string, error) {
	switch {
	case a.IMAP.Password != "":
		return a.IMAP.Password, nil

	case a.IMAP.PasswordSealed != "":
		if env == nil || env.EncryptionKeyBase64 == "" {
			return "", &ConfigError{Field: "MAILVAULT_ENCRYPTION_KEY_BASE64", Msg: "is required to open imap.password_sealed"}
		}
		encryptor, err := crypto.NewEncryptor(env.EncryptionKeyBase64)
		if err != nil {
			return "", &ConfigError{Field: "MAILVAULT_ENCRYPTION_KEY_BASE64", Msg: "is not a valid key", Err: err}
		}
		password, err := encryptor.Open(a.IMAP.PasswordSealed)
		if err != nil {
			return "", &ConfigError{Field: "imap.password_sealed", Msg: "cannot be opened", Err: err}
		}
		return password, nil

	case a.IMAP.PasswordKeyring:
		if secrets == nil {
			secrets = Keyring{}
		}
		password, err := secrets.Get(a.IMAP.Username)
		if err != nil {
			return "", &ConfigError{Field: "imap.password_keyring", Msg: "lookup failed", Err: err}
		}
		return password, nil
	}

	return "", &ConfigError{Field: "imap.password", Msg: "no password source configured"}
}
