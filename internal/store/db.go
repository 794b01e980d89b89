// Package store implements the task-graph backing store: a transactional
// SQLite database with status lifecycle, exclusive assignment, parent/child
// hierarchy, blocking dependencies, full-text search, and an atomic
// claim-next operation.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeoutMS = 5000

// pragmas applied to every connection, in order. journal_mode=WAL and the
// busy timeout are the two load-bearing ones for spec.md's concurrency
// model; the rest tune single-writer throughput.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeoutMS),
	"PRAGMA foreign_keys=ON",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA mmap_size=134217728",
	"PRAGMA cache_size=-16000",
	"PRAGMA wal_autocheckpoint=1000",
}

// DB wraps a *sql.DB opened against the task-graph file.
type DB struct {
	*sql.DB
	path string
}

// Path returns the filesystem path (or ":memory:") this DB was opened
// with, for callers that need to pass it through to a spawned child's
// environment (the $DB variable, spec.md §6).
func (d *DB) Path() string { return d.path }

// Open opens (creating if necessary) the SQLite store at path, applies the
// pragma list, and runs pending migrations. path may be ":memory:" for
// tests, in which case no file locking or WAL mode applies.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := normalizeDSN(path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StoreUnavailableError{Cause: err}
	}
	// A single physical connection avoids the classic modernc.org/sqlite
	// "database is locked" storm under concurrent *Go* goroutines; the
	// store's own savepoint/backoff logic is what serializes writers.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if err := retryWithBackoff(ctx, func() error {
			_, err := sqlDB.ExecContext(ctx, p)
			return err
		}); err != nil {
			sqlDB.Close()
			return nil, &StoreUnavailableError{Cause: fmt.Errorf("pragma %q: %w", p, err)}
		}
	}

	db := &DB{DB: sqlDB, path: path}
	if err := Migrate(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func normalizeDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?cache=shared"
	}
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_txlock=immediate"
}

// Querier is satisfied by both *sql.DB and *sql.Tx, letting store
// operations accept either a bare connection or an in-flight transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transact runs fn inside a transaction, retrying the whole attempt on a
// retryable SQLite contention error and rolling back on any other failure.
func Transact(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return retryWithBackoff(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}
