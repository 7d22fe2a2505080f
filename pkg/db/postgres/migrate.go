package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const migrationsDir = "migrations"

// Migrate brings the schema up to the latest embedded migration.
func Migrate(ctx context.Context, db *sqlx.DB, log logger.Logger) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	migrations, err := goose.CollectMigrations(migrationsDir, 0, goose.MaxVersion)
	if err != nil {
		return fmt.Errorf("failed to collect migrations: %w", err)
	}
	last, err := migrations.Last()
	if err != nil {
		return fmt.Errorf("no embedded migrations: %w", err)
	}
	if current >= last.Version {
		log.Infof("schema up to date at version %d", current)
		return nil
	}

	log.Infof("migrating schema from version %d to %d", current, last.Version)
	if err := goose.UpContext(ctx, db.DB, migrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
