// Package migrate brings the River queue tables and the tally schema up to date.
package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/cloud-gov/tally/sql/migrations"
)

// versionTable records the applied tally schema version.
const versionTable = "schema_version"

// Migrate runs River's migrations and then the tally schema migrations. Both are no-ops when already at the latest version.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if err := migrateRiver(ctx, pool, logger); err != nil {
		return fmt.Errorf("migrating river: %w", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if err := migrateSchema(ctx, conn.Conn(), logger); err != nil {
		return fmt.Errorf("migrating tally schema: %w", err)
	}
	return nil
}

func migrateRiver(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), &rivermigrate.Config{Logger: logger})
	if err != nil {
		return err
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return err
	}
	logger.DebugContext(ctx, "migrate: river migrations applied", "count", len(res.Versions))
	return nil
}

func migrateSchema(ctx context.Context, conn *pgx.Conn, logger *slog.Logger) error {
	m, err := migrate.NewMigrator(ctx, conn, versionTable)
	if err != nil {
		return err
	}
	if err := m.LoadMigrations(migrations.FS); err != nil {
		return err
	}
	m.OnStart = func(sequence int32, name, direction, _ string) {
		logger.InfoContext(ctx, "migrate: applying", "sequence", sequence, "name", name, "direction", direction)
	}
	return m.Migrate(ctx)
}
