package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vdavid/mailvault/internal/config"
	"github.com/vdavid/mailvault/internal/db"
	"github.com/vdavid/mailvault/internal/sqlite"
	"github.com/vdavid/mailvault/internal/store"
)

// Version is set via ldflags at build time.
var Version = "dev"

// app holds the persistent flags shared by all commands.
type app struct {
	backend    string
	sqlitePath string
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "mailvault",
		Short:         "Archive IMAP mailboxes into a deduplicated store",
		Long:          "mailvault imports messages from IMAP folders, stores each distinct message once and rebuilds conversation threads.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.backend, "backend", "", "Storage backend: postgres or sqlite (default: MAILVAULT_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&a.sqlitePath, "sqlite-path", "", "SQLite database file (default: MAILVAULT_SQLITE_PATH)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newImportCmd(a),
		newRebuildThreadsCmd(a),
		newMigrateCmd(a),
		newSealPasswordCmd(),
		newStatsCmd(a),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mailvault version %s\n", Version)
		},
	}
}

// loadConfig reads the environment, applies flag overrides and validates.
func (a *app) loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if a.backend != "" {
		cfg.Backend = a.backend
	}
	if a.sqlitePath != "" {
		cfg.SQLitePath = a.sqlitePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openBackend opens the configured store. The caller closes it.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	if cfg.Backend == config.BackendSQLite {
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	}

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db.NewStore(pool), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
