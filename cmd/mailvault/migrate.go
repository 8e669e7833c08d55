package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/vdavid/mailvault/internal/config"
	"github.com/vdavid/mailvault/internal/db"
	"github.com/vdavid/mailvault/internal/sqlite"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or roll back the PostgreSQL schema. The SQLite backend migrates
itself when opened, so only "version" applies to it.`,
	}

	cmd.AddCommand(
		newMigrateStepCmd(a, "up", "Apply all pending migrations", (*db.Migrator).Up),
		newMigrateStepCmd(a, "down", "Roll back all migrations", (*db.Migrator).Down),
		newMigrateVersionCmd(a),
	)

	return cmd
}

func newMigrateStepCmd(a *app, use, short string, step func(*db.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Backend == config.BackendSQLite {
				return fmt.Errorf("migrate %s is only available for the postgres backend", use)
			}

			m, err := db.NewMigrator(cmd.Context(), cfg.GetDatabaseURL())
			if err != nil {
				return err
			}
			defer closeMigrator(m)

			if err := step(m); err != nil {
				return err
			}

			return printVersion(cmd, m)
		},
	}
}

func newMigrateVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			if cfg.Backend == config.BackendSQLite {
				s, err := sqlite.Open(cfg.SQLitePath)
				if err != nil {
					return fmt.Errorf("failed to open sqlite store: %w", err)
				}
				defer s.Close()

				version, err := s.SchemaVersion()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
				return nil
			}

			m, err := db.NewMigrator(cmd.Context(), cfg.GetDatabaseURL())
			if err != nil {
				return err
			}
			defer closeMigrator(m)

			return printVersion(cmd, m)
		},
	}
}

func printVersion(cmd *cobra.Command, m *db.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}

	suffix := ""
	if dirty {
		suffix = " (dirty)"
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d%s\n", version, suffix)
	return nil
}

func closeMigrator(m *db.Migrator) {
	if err := m.Close(); err != nil {
		log.Printf("Warning: failed to close migrator: %v", err)
	}
}
