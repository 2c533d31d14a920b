package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vitaliisemenov/streamrouter/internal/business/catalogue"
	"github.com/vitaliisemenov/streamrouter/internal/config"
)

// newMigrateCommand manages the Postgres catalogue schema. Grounded on
// the teacher's migrations.CLI up/status subcommands
// (internal/infrastructure/migrations/cli.go), trimmed to what the
// catalogue's goose-based migrations.go actually exposes: apply and
// report status. The backup/restore/health machinery of the teacher's
// CLI exists to protect a production alert-history database across
// hundreds of migrations; the catalogue's schema is two tables (see
// migrations/00001_create_streams.sql) with no such history to protect.
func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres catalogue schema",
	}
	cmd.AddCommand(newMigrateUpCommand(), newMigrateStatusCommand())
	return cmd
}

func newMigrateUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending catalogue migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := catalogue.RunMigrations(cfg.Catalogue.Postgres, slog.Default()); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			fmt.Println("catalogue migrations applied")
			return nil
		},
	}
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalogue migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return catalogue.MigrationStatus(cfg.Catalogue.Postgres)
		},
	}
}
