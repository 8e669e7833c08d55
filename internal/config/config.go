package config

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config is the process-level configuration read from the environment.
type Config struct {
	Environment         string
	Backend             string
	EncryptionKeyBase64 string
	DBHost              string
	DBPort              string
	DBUsername          string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	SQLitePath          string
	MetricsAddr         string
}

// NewConfig loads the configuration from the environment and validates it.
func NewConfig() (*Config, error) {
	config := Load()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Load reads the environment without validating, so callers can apply
// command-line overrides first.
func Load() *Config {
	env := os.Getenv("MAILVAULT_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	return &Config{
		Environment:         env,
		Backend:             getEnvOrDefault("MAILVAULT_BACKEND", BackendPostgres),
		EncryptionKeyBase64: os.Getenv("MAILVAULT_ENCRYPTION_KEY_BASE64"),
		DBHost:              getEnvOrDefault("MAILVAULT_DB_HOST", "localhost"),
		DBPort:              getEnvOrDefault("MAILVAULT_DB_PORT", "5432"),
		DBUsername:          getEnvOrDefault("MAILVAULT_DB_USER", "mailvault"),
		DBPassword:          os.Getenv("MAILVAULT_DB_PASSWORD"),
		DBName:              getEnvOrDefault("MAILVAULT_DB_NAME", "mailvault"),
		DBSSLMode:           getEnvOrDefault("MAILVAULT_DB_SSLMODE", "disable"),
		SQLitePath:          getEnvOrDefault("MAILVAULT_SQLITE_PATH", "mailvault.db"),
		MetricsAddr:         os.Getenv("MAILVAULT_METRICS_ADDR"),
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPostgres:
		if c.DBPassword == "" {
			return &ConfigError{Field: "MAILVAULT_DB_PASSWORD", Msg: "is required for the postgres backend"}
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return &ConfigError{Field: "MAILVAULT_SQLITE_PATH", Msg: "is required for the sqlite backend"}
		}
	default:
		return &ConfigError{Field: "MAILVAULT_BACKEND", Msg: fmt.Sprintf("unknown backend %q, want postgres or sqlite", c.Backend)}
	}

	if c.EncryptionKeyBase64 != "" {
		key, err := base64.StdEncoding.DecodeString(c.EncryptionKeyBase64)
		if err != nil {
			return &ConfigError{Field: "MAILVAULT_ENCRYPTION_KEY_BASE64", Msg: "is not valid base64", Err: err}
		}
		if len(key) != 32 {
			return &ConfigError{Field: "MAILVAULT_ENCRYPTION_KEY_BASE64", Msg: fmt.Sprintf("must decode to 32 bytes, got %d", len(key))}
		}
	}

	return nil
}

// GetDatabaseURL returns the PostgreSQL URL with credentials escaped.
func (c *Config) GetDatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUsername, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
