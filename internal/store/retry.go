package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"modernc.org/sqlite"
)

// newBackoff mirrors the corpus's own retry tuning for SQLite contention:
// short initial interval, capped max interval, bounded total elapsed time
// so a genuinely wedged writer fails fast instead of hanging the CLI.
func newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	b.RandomizationFactor = 0.1
	return b
}

// retryWithBackoff retries operation while isRetryableError(err) is true,
// absorbing SQLITE_BUSY/SQLITE_LOCKED contention per spec.md's "process-wide
// busy timeout" failure semantics rather than surfacing it to the caller.
func retryWithBackoff(ctx context.Context, operation func() error) error {
	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}
		if !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(newBackoff(), ctx))
}

func isRetryableError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code() & 0xFF
		switch code {
		case 5 /* SQLITE_BUSY */, 6 /* SQLITE_LOCKED */ :
			return true
		case 19 /* SQLITE_CONSTRAINT */ :
			return false
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "SQLITE_BUSY"),
		strings.Contains(msg, "SQLITE_LOCKED"):
		return true
	case strings.Contains(msg, "UNIQUE constraint"),
		strings.Contains(msg, "FOREIGN KEY constraint"),
		strings.Contains(msg, "CHECK constraint"):
		return false
	}
	return false
}
