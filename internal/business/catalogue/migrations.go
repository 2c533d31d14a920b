package catalogue

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations brings the catalogue schema up to the latest version.
// goose operates on database/sql, so this opens a second, short-lived
// *sql.DB against the same DSN the pgxpool uses rather than the pool
// itself.
func RunMigrations(cfg PostgresConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return fmt.Errorf("catalogue: open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("catalogue: set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("catalogue: run migrations: %w", err)
	}

	logger.Info("catalogue migrations applied")
	return nil
}

// MigrationStatus reports the applied/pending state of every migration,
// for the CLI's `migrate status` subcommand.
func MigrationStatus(cfg PostgresConfig) error {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return fmt.Errorf("catalogue: open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("catalogue: set goose dialect: %w", err)
	}
	return goose.Status(db, "migrations")
}
