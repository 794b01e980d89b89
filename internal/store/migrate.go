package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Migrate runs all pending schema migrations against db. Safe to call on
// every process start: goose tracks applied versions in its own table.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return &StoreUnavailableError{Cause: fmt.Errorf("set migration dialect: %w", err)}
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return &StoreUnavailableError{Cause: fmt.Errorf("run migrations: %w", err)}
	}
	return nil
}

// SchemaVersion reports the database's current applied migration version
// and the latest version embedded in this binary, so callers (the doctor
// command) can tell "missing file" apart from "stale schema."
func SchemaVersion(ctx context.Context, db *sql.DB) (current, latest int64, err error) {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, 0, err
	}
	current, err = goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, 0, err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, embedMigrations)
	if err != nil {
		return current, 0, err
	}
	sources := provider.ListSources()
	if len(sources) == 0 {
		return current, 0, nil
	}
	latest = sources[len(sources)-1].Version
	return current, latest, nil
}
