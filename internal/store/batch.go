package store

import (
	"context"
	"database/sql"
)

// The Tx-suffixed functions below are the Querier-based logic behind each
// of this package's *sql.DB operations, exported so internal/batch's exec
// runner can compose many task-graph operations into the single outer
// transaction spec.md §9's exec verb requires, instead of each operation
// opening and committing its own.

// AddTaskTx is AddTask against an open transaction.
func AddTaskTx(ctx context.Context, tx *sql.Tx, name string, parent *string, description string, note *string, claimAs *string, paused bool) error {
	return addTaskTx(ctx, tx, name, parent, description, note, claimAs, paused)
}

// ClaimTx is Claim against an open transaction.
func ClaimTx(ctx context.Context, tx *sql.Tx, name, assignee string) error {
	return claimTx(ctx, tx, name, assignee)
}

// ClaimNextTx is ClaimNext against an open transaction.
func ClaimNextTx(ctx context.Context, tx *sql.Tx, assignee string, prefer *string) (string, error) {
	return claimNextTx(ctx, tx, assignee, prefer)
}

// StealTx is Steal against an open transaction.
func StealTx(ctx context.Context, tx *sql.Tx, name, newAssignee string) (string, error) {
	return stealTx(ctx, tx, name, newAssignee)
}

// ReleaseTx is Release against an open transaction.
func ReleaseTx(ctx context.Context, tx *sql.Tx, name, assignee string) error {
	return releaseTx(ctx, tx, name, assignee)
}

// ForceUnassignTx is ForceUnassign against an open transaction.
func ForceUnassignTx(ctx context.Context, tx *sql.Tx, name string) error {
	return forceUnassignTx(ctx, tx, name)
}

// MarkDoneTx is MarkDone against an open transaction.
func MarkDoneTx(ctx context.Context, tx *sql.Tx, name string) error {
	return markDoneTx(ctx, tx, name)
}

// ReopenTx is Reopen against an open transaction.
func ReopenTx(ctx context.Context, tx *sql.Tx, name string) error {
	return reopenTx(ctx, tx, name)
}

// PauseTx is Pause against an open transaction.
func PauseTx(ctx context.Context, tx *sql.Tx, name string) error {
	return pauseTx(ctx, tx, name)
}

// UnpauseTx is Unpause against an open transaction.
func UnpauseTx(ctx context.Context, tx *sql.Tx, name string) error {
	return unpauseTx(ctx, tx, name)
}

// UpdateDescriptionTx is UpdateDescription against an open transaction.
func UpdateDescriptionTx(ctx context.Context, tx *sql.Tx, name, description string) error {
	return updateDescriptionTx(ctx, tx, name, description)
}

// ReparentTx is Reparent against an open transaction.
func ReparentTx(ctx context.Context, tx *sql.Tx, name string, parent *string) error {
	return reparentTx(ctx, tx, name, parent)
}

// RemoveTx is Remove against an open transaction.
func RemoveTx(ctx context.Context, tx *sql.Tx, name string, recursive bool) error {
	return removeTx(ctx, tx, name, recursive)
}

// GetTaskTx is GetTask against an open transaction.
func GetTaskTx(ctx context.Context, tx *sql.Tx, name string) (Task, error) {
	return readTaskRow(ctx, tx, name)
}

// ListTasksTx is ListTasks against an open transaction.
func ListTasksTx(ctx context.Context, tx *sql.Tx, status *StatusFilter, all bool, root *string) ([]Task, error) {
	return listTasksTx(ctx, tx, status, all, root)
}

// ListChildrenTx is ListChildren against an open transaction.
func ListChildrenTx(ctx context.Context, tx *sql.Tx, parent string, status *StatusFilter, all bool) ([]Task, error) {
	return listChildrenTx(ctx, tx, parent, status, all)
}

// AddNoteTx is AddNote against an open transaction.
func AddNoteTx(ctx context.Context, tx *sql.Tx, taskName, content string) error {
	return addNoteTx(ctx, tx, taskName, content)
}

// ListNotesTx is ListNotes against an open transaction.
func ListNotesTx(ctx context.Context, tx *sql.Tx, taskName string) ([]Note, error) {
	return listNotesTx(ctx, tx, taskName)
}

// AddBlockTx is AddBlock against an open transaction.
func AddBlockTx(ctx context.Context, tx *sql.Tx, blocker, blocked string) error {
	return addBlockTx(ctx, tx, blocker, blocked)
}

// RemoveBlockTx is RemoveBlock against an open transaction.
func RemoveBlockTx(ctx context.Context, tx *sql.Tx, blocker, blocked string) error {
	return removeBlockTx(ctx, tx, blocker, blocked)
}

// SearchTx is Search against an open transaction.
func SearchTx(ctx context.Context, tx *sql.Tx, query string) ([]SearchResult, error) {
	return searchTx(ctx, tx, query)
}

// BeginBatch starts the single transaction an exec script runs inside.
// Callers must Commit on success or Rollback (directly, or via defer) on
// any command's error — there is no partial-apply path.
func BeginBatch(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	return db.BeginTx(ctx, nil)
}
