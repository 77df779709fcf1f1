package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/phrazzld/gauge/internal/platform/postgres"
)

const migrationTableName = "gauge_schema_migrations"

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or inspect database migrations",
}

func init() {
	migrateCmd.AddCommand(
		newMigrateCommand("up", "Apply all pending migrations", goose.UpContext),
		newMigrateCommand("down", "Roll back the latest migration", goose.DownContext),
		newMigrateCommand("status", "Show the state of every migration", goose.StatusContext),
		newMigrateCommand("version", "Print the current schema version", goose.VersionContext),
	)
}

type migrationFunc func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error

func newMigrateCommand(name, short string, run migrationFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return runMigration(cmd.Context(), db, name, run, log)
		},
	}
}

// runMigration executes one goose command against the embedded migrations.
func runMigration(ctx context.Context, db *sql.DB, name string, run migrationFunc, log *slog.Logger) error {
	log = log.With(slog.String("component", "migrations"), slog.String("migration_command", name))

	goose.SetLogger(&slogGooseLogger{logger: log})
	goose.SetBaseFS(postgres.Migrations)
	goose.SetTableName(migrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	start := time.Now()
	if err := run(ctx, db, postgres.MigrationsDir); err != nil {
		log.Error("migration failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("migration %s failed: %w", name, err)
	}

	log.Info("migration finished", slog.Duration("duration", time.Since(start)))
	return nil
}

// slogGooseLogger forwards goose output to slog. Fatalf does not exit; the
// error reaches the command instead.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}
