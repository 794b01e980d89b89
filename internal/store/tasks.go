package store

import (
	"context"
	"database/sql"
	"errors"
)

func taskExists(ctx context.Context, q Querier, name string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func requireTask(ctx context.Context, q Querier, name string) error {
	ok, err := taskExists(ctx, q, name)
	if err != nil {
		return err
	}
	if !ok {
		return &NotFoundError{Name: name}
	}
	return nil
}

func readTaskRow(ctx context.Context, q Querier, name string) (Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE name = ?`, name)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, &NotFoundError{Name: name}
	}
	return t, err
}

// addTaskTx is AddTask's logic against an already-open Querier, so it can
// compose into a broader transaction (internal/batch's exec runner) as well
// as AddTask's own single-operation Transact wrapper.
func addTaskTx(ctx context.Context, q Querier, name string, parent *string, description string, note *string, claimAs *string, paused bool) error {
	if err := validateName(name); err != nil {
		return err
	}
	if paused && claimAs != nil {
		return &InvariantViolationError{Reason: "cannot add a task as both paused and claimed"}
	}
	exists, err := taskExists(ctx, q, name)
	if err != nil {
		return err
	}
	if exists {
		return &ConflictError{Name: name, Reason: "already exists"}
	}
	if parent != nil {
		if err := requireTask(ctx, q, *parent); err != nil {
			return err
		}
	}

	status := StatusOpen
	var assignee *string
	now := "strftime('%Y-%m-%dT%H:%M:%SZ','now')"
	switch {
	case claimAs != nil:
		status = StatusActive
		assignee = claimAs
	case paused:
		status = StatusPaused
	}

	if status != StatusOpen {
		stmt := `INSERT INTO tasks (name, parent, description, status, assignee, status_changed_at) VALUES (?, ?, ?, ?, ?, ` + now + `)`
		if _, err := q.ExecContext(ctx, stmt, name, parent, description, status, assignee); err != nil {
			return err
		}
	} else {
		stmt := `INSERT INTO tasks (name, parent, description, status, assignee) VALUES (?, ?, ?, ?, ?)`
		if _, err := q.ExecContext(ctx, stmt, name, parent, description, status, assignee); err != nil {
			return err
		}
	}

	if note != nil {
		if _, err := q.ExecContext(ctx, `INSERT INTO notes (task, content) VALUES (?, ?)`, name, *note); err != nil {
			return err
		}
	}
	return nil
}

// AddTask inserts a new task. claimAs and paused are mutually exclusive;
// status becomes active/claimAs, paused, or open accordingly. An optional
// note is inserted in the same transaction.
func AddTask(ctx context.Context, db *sql.DB, name string, parent *string, description string, note *string, claimAs *string, paused bool) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return addTaskTx(ctx, tx, name, parent, description, note, claimAs, paused)
	})
}

func claimTx(ctx context.Context, q Querier, name, assignee string) error {
	if err := requireTask(ctx, q, name); err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `UPDATE tasks SET status='active', assignee=?, status_changed_at=strftime('%Y-%m-%dT%H:%M:%SZ','now'), updated_at=strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE name=? AND status='open'`, assignee, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	// Lost the open-row race (or it was never open); check for the
	// idempotent same-assignee reclaim before giving up.
	res, err = q.ExecContext(ctx, `UPDATE tasks SET updated_at=strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE name=? AND status='active' AND assignee=?`, name, assignee)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	t, err := readTaskRow(ctx, q, name)
	if err != nil {
		return err
	}
	switch t.Status {
	case StatusActive:
		who := ""
		if t.Assignee != nil {
			who = *t.Assignee
		}
		return &ConflictError{Name: name, Reason: "already claimed by '" + who + "'"}
	case StatusPaused:
		return &ConflictError{Name: name, Reason: "is paused"}
	case StatusDone:
		return &ConflictError{Name: name, Reason: "is done"}
	default:
		return &ConflictError{Name: name, Reason: "could not be claimed"}
	}
}

// Claim assigns an open task to assignee. Idempotent if the task is
// already active under the same assignee.
func Claim(ctx context.Context, db *sql.DB, name, assignee string) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return claimTx(ctx, tx, name, assignee)
	})
}

const claimNextWithPrefer = `
SELECT t.name
FROM tasks t
LEFT JOIN (
    SELECT tf.rowid AS rowid, tf.rank AS rank FROM tasks_fts tf WHERE tasks_fts MATCH ?
) tfts ON tfts.rowid = t.id
LEFT JOIN (
    SELECT nf.task_name AS task_name, MIN(nf.rank) AS best_rank
    FROM notes_fts nf
    JOIN tasks it ON it.name = nf.task_name AND it.status = 'open'
    WHERE notes_fts MATCH ?
    GROUP BY nf.task_name
) nfts ON nfts.task_name = t.name
LEFT JOIN (
    SELECT td.blocker AS blocker, COUNT(*) AS cnt
    FROM task_deps td
    JOIN tasks bt ON bt.name = td.blocked AND bt.status != 'done'
    GROUP BY td.blocker
) uc ON uc.blocker = t.name
WHERE t.status = 'open'
  AND NOT EXISTS (
      SELECT 1 FROM task_deps td
      JOIN tasks bl ON bl.name = td.blocker AND bl.status != 'done'
      WHERE td.blocked = t.name
  )
GROUP BY t.id
ORDER BY
  CASE WHEN MAX(tfts.rank) IS NOT NULL OR MAX(nfts.best_rank) IS NOT NULL THEN 0 ELSE 1 END,
  MIN(COALESCE(tfts.rank, 0), COALESCE(nfts.best_rank, 0)),
  COALESCE(uc.cnt, 0) DESC,
  t.id ASC
LIMIT 1`

const claimNextNoPrefer = `
SELECT t.name
FROM tasks t
LEFT JOIN (
    SELECT td.blocker AS blocker, COUNT(*) AS cnt
    FROM task_deps td
    JOIN tasks bt ON bt.name = td.blocked AND bt.status != 'done'
    GROUP BY td.blocker
) uc ON uc.blocker = t.name
WHERE t.status = 'open'
  AND NOT EXISTS (
      SELECT 1 FROM task_deps td
      JOIN tasks bl ON bl.name = td.blocker AND bl.status != 'done'
      WHERE td.blocked = t.name
  )
ORDER BY COALESCE(uc.cnt, 0) DESC, t.id ASC
LIMIT 1`

// claimNextTx runs the atomic claim-next selection inside a SAVEPOINT on q
// (a *sql.DB or an in-flight *sql.Tx), so it can be composed either
// standalone or inside a broader exec batch transaction per spec.md §4.1.
// Returns ("", nil) if no eligible task exists or the race was lost.
func claimNextTx(ctx context.Context, q Querier, assignee string, prefer *string) (string, error) {
	if _, err := q.ExecContext(ctx, `SAVEPOINT claim_next`); err != nil {
		return "", err
	}
	name, err := doClaimNext(ctx, q, assignee, prefer)
	if err != nil {
		q.ExecContext(ctx, `ROLLBACK TO claim_next`)
		q.ExecContext(ctx, `RELEASE claim_next`)
		return "", err
	}
	if _, err := q.ExecContext(ctx, `RELEASE claim_next`); err != nil {
		return "", err
	}
	return name, nil
}

func doClaimNext(ctx context.Context, q Querier, assignee string, prefer *string) (string, error) {
	var ftsQuery string
	havePrefer := false
	if prefer != nil {
		if s, ok := sanitizeFTSQuery(*prefer); ok {
			ftsQuery = s
			havePrefer = true
		}
	}

	var row *sql.Row
	if havePrefer {
		row = q.QueryRowContext(ctx, claimNextWithPrefer, ftsQuery, ftsQuery)
	} else {
		row = q.QueryRowContext(ctx, claimNextNoPrefer)
	}

	var name string
	if err := row.Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}

	res, err := q.ExecContext(ctx, `UPDATE tasks SET status='active', assignee=?, status_changed_at=strftime('%Y-%m-%dT%H:%M:%SZ','now'), updated_at=strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE name=? AND status='open'`, assignee, name)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Lost the race boundary: another writer claimed it between our
		// SELECT and UPDATE. Return none rather than retrying.
		return "", nil
	}
	return name, nil
}

// ClaimNext atomically selects and claims one eligible open task, or
// returns ("", nil) if none is eligible or the race was lost.
func ClaimNext(ctx context.Context, db *sql.DB, assignee string, prefer *string) (string, error) {
	var name string
	err := Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		name, err = claimNextTx(ctx, tx, assignee, prefer)
		return err
	})
	return name, err
}

func stealTx(ctx context.Context, q Querier, name, newAssignee string) (string, error) {
	t, err := readTaskRow(ctx, q, name)
	if err != nil {
		return "", err
	}
	if t.Status != StatusActive {
		return "", &ConflictError{Name: name, Reason: "is not active"}
	}
	var prev string
	if t.Assignee != nil {
		prev = *t.Assignee
	}
	_, err = q.ExecContext(ctx, `UPDATE tasks SET assignee=?, status_changed_at=strftime('%Y-%m-%dT%H:%M:%SZ','now'), updated_at=strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE name=?`, newAssignee, name)
	return prev, err
}

// Steal reassigns an active task to newAssignee, returning the previous
// assignee.
func Steal(ctx context.Context, db *sql.DB, name, newAssignee string) (string, error) {
	var prev string
	err := Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		prev, err = stealTx(ctx, tx, name, newAssignee)
		return err
	})
	return prev, err
}

func releaseTx(ctx context.Context, q Querier, name, assignee string) error {
	t, err := readTaskRow(ctx, q, name)
	if err != nil {
		return err
	}
	if t.Status != StatusActive {
		return &ConflictError{Name: name, Reason: "is not assigned"}
	}
	if t.Assignee == nil || *t.Assignee != assignee {
		who := ""
		if t.Assignee != nil {
			who = *t.Assignee
		}
		return &ConflictError{Name: name, Reason: "assigned to '" + who + "', not '" + assignee + "'"}
	}
	_, err = q.ExecContext(ctx, `UPDATE tasks SET status='open', assignee=NULL, updated_at=strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE name=?`, name)
	return err
}

// Release returns an active task to open, requiring the caller be the
// current assignee.
func Release(ctx context.Context, db *sql.DB, name, assignee string) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return releaseTx(ctx, tx, name, assignee)
	})
}

func forceUnassignTx(ctx context.Context, q Querier, name string) error {
	t, err := readTaskRow(ctx, q, name)
	if err != nil {
		return err
	}
	if t.Status != StatusActive {
		return &ConflictError{Name: name, Reason: "is not active"}
	}
	_, err = q.ExecContext(ctx, `UPDATE tasks SET status='open', assignee=NULL, updated_at=strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE name=?`, name)
	return err
}

// ForceUnassign returns an active task to open regardless of assignee.
func ForceUnassign(ctx context.Context, db *sql.DB, name string) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return forceUnassignTx(ctx, tx, name)
	})
}

func markDoneTx(ctx context.Context, q Querier, name string) error {
	if err := requireTask(ctx, q, name); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `UPDATE tasks SET status='done', assignee=NULL, status_changed_at=strftime('%Y-%m-%dT%H:%M:%SZ','now'), updated_at=strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE name=?`, name)
	return err
}

// MarkDone transitions a task to done from any status.
func MarkDone(ctx context.Context, db *sql.DB, name string) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return markDoneTx(ctx, tx, name)
	})
}

func reopenTx(ctx context.Context, q Querier, name string) error {
	t, err := readTaskRow(ctx, q, name)
	if err != nil {
		return err
	}
	if t.Status != StatusDone {
		return &ConflictError{Name: name, Reason: "is not done"}
	}
	_, err = q.ExecContext(ctx, `UPDATE tasks SET status='open', assignee=NULL, updated_at=strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE name=?`, name)
	return err
}

// Reopen returns a done task to open. The only path back from done.
func Reopen(ctx context.Context, db *sql.DB, name string) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return reopenTx(ctx, tx, name)
	})
}

func pauseTx(ctx context.Context, q Querier, name string) error {
	t, err := readTaskRow(ctx, q, name)
	if err != nil {
		return err
	}
	if t.Status == StatusDone {
		return &ConflictError{Name: name, Reason: "is done"}
	}
	if t.Status == StatusPaused {
		return &ConflictError{Name: name, Reason: "is already paused"}
	}
	_, err = q.ExecContext(ctx, `UPDATE tasks SET status='paused', assignee=NULL, status_changed_at=strftime('%Y-%m-%dT%H:%M:%SZ','now'), updated_at=strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE name=?`, name)
	return err
}

// Pause moves a task out of the active rotation. Rejects done and
// already-paused tasks.
func Pause(ctx context.Context, db *sql.DB, name string) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return pauseTx(ctx, tx, name)
	})
}

func unpauseTx(ctx context.Context, q Querier, name string) error {
	t, err := readTaskRow(ctx, q, name)
	if err != nil {
		return err
	}
	if t.Status != StatusPaused {
		return &ConflictError{Name: name, Reason: "is not paused"}
	}
	_, err = q.ExecContext(ctx, `UPDATE tasks SET status='open', updated_at=strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE name=?`, name)
	return err
}

// Unpause returns a paused task to open.
func Unpause(ctx context.Context, db *sql.DB, name string) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return unpauseTx(ctx, tx, name)
	})
}

func updateDescriptionTx(ctx context.Context, q Querier, name, description string) error {
	if err := requireTask(ctx, q, name); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `UPDATE tasks SET description=?, updated_at=strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE name=?`, description, name)
	return err
}

// UpdateDescription overwrites a task's free-text description.
func UpdateDescription(ctx context.Context, db *sql.DB, name, description string) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return updateDescriptionTx(ctx, tx, name, description)
	})
}

func reparentTx(ctx context.Context, q Querier, name string, parent *string) error {
	if err := requireTask(ctx, q, name); err != nil {
		return err
	}
	if parent != nil {
		if err := requireTask(ctx, q, *parent); err != nil {
			return err
		}
		cyclic, err := detectParentCycle(ctx, q, name, *parent)
		if err != nil {
			return err
		}
		if cyclic {
			return &CycleDetectedError{Reason: "setting parent to '" + *parent + "' would create a cycle"}
		}
	}
	_, err := q.ExecContext(ctx, `UPDATE tasks SET parent=?, updated_at=strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE name=?`, parent, name)
	return err
}

// Reparent moves a task to a new parent (or to root if parent is nil),
// rejecting any move that would create a cycle.
func Reparent(ctx context.Context, db *sql.DB, name string, parent *string) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return reparentTx(ctx, tx, name, parent)
	})
}

// collectDescendants returns all descendants of name via a level-by-level
// breadth-first walk of the parent relation.
func collectDescendants(ctx context.Context, q Querier, name string) ([]string, error) {
	var all []string
	queue := []string{name}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		rows, err := q.QueryContext(ctx, `SELECT name FROM tasks WHERE parent = ?`, current)
		if err != nil {
			return nil, err
		}
		var children []string
		for rows.Next() {
			var c string
			if err := rows.Scan(&c); err != nil {
				rows.Close()
				return nil, err
			}
			children = append(children, c)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
		all = append(all, children...)
		queue = append(queue, children...)
	}
	return all, nil
}

func removeTx(ctx context.Context, q Querier, name string, recursive bool) error {
	if err := requireTask(ctx, q, name); err != nil {
		return err
	}
	if recursive {
		descendants, err := collectDescendants(ctx, q, name)
		if err != nil {
			return err
		}
		for i := len(descendants) - 1; i >= 0; i-- {
			if _, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE name=?`, descendants[i]); err != nil {
				return err
			}
		}
		_, err = q.ExecContext(ctx, `DELETE FROM tasks WHERE name=?`, name)
		return err
	}

	var childCount int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE parent=?`, name).Scan(&childCount); err != nil {
		return err
	}
	if childCount > 0 {
		return &ConflictError{Name: name, Reason: "has children; use recursive removal"}
	}
	_, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE name=?`, name)
	return err
}

// Remove deletes a task. Non-recursive removal fails if the task has
// children; recursive removal deletes the whole subtree in one
// transaction, children before parents.
func Remove(ctx context.Context, db *sql.DB, name string, recursive bool) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return removeTx(ctx, tx, name, recursive)
	})
}

// GetTask returns a single task by name.
func GetTask(ctx context.Context, db *sql.DB, name string) (Task, error) {
	return readTaskRow(ctx, db, name)
}

// StatusFilter narrows ListTasks/ListChildren to one lifecycle status.
type StatusFilter string

const (
	FilterOpen   StatusFilter = "open"
	FilterActive StatusFilter = "active"
	FilterPaused StatusFilter = "paused"
	FilterDone   StatusFilter = "done"
)

func matchesFilter(t Task, status *StatusFilter, all bool) bool {
	if all {
		return true
	}
	if status != nil {
		return string(t.Status) == string(*status)
	}
	return t.Status != StatusDone && t.Status != StatusPaused
}

func queryTasks(ctx context.Context, q Querier, where string, args ...any) ([]Task, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func listTasksTx(ctx context.Context, q Querier, status *StatusFilter, all bool, root *string) ([]Task, error) {
	var tasks []Task
	if root != nil {
		if err := requireTask(ctx, q, *root); err != nil {
			return nil, err
		}
		rootTask, err := readTaskRow(ctx, q, *root)
		if err != nil {
			return nil, err
		}
		descendants, err := collectDescendants(ctx, q, *root)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, rootTask)
		for _, name := range descendants {
			t, err := readTaskRow(ctx, q, name)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	} else {
		var err error
		tasks, err = queryTasks(ctx, q, "ORDER BY id")
		if err != nil {
			return nil, err
		}
	}

	out := tasks[:0]
	for _, t := range tasks {
		if matchesFilter(t, status, all) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListTasks lists tasks ordered by insertion id, optionally scoped to a
// subtree rooted at root, optionally filtered by status (default: exclude
// done and paused unless all is set).
func ListTasks(ctx context.Context, db *sql.DB, status *StatusFilter, all bool, root *string) ([]Task, error) {
	return listTasksTx(ctx, db, status, all, root)
}

func listChildrenTx(ctx context.Context, q Querier, parent string, status *StatusFilter, all bool) ([]Task, error) {
	if err := requireTask(ctx, q, parent); err != nil {
		return nil, err
	}
	tasks, err := queryTasks(ctx, q, "WHERE parent=? ORDER BY id", parent)
	if err != nil {
		return nil, err
	}
	out := tasks[:0]
	for _, t := range tasks {
		if matchesFilter(t, status, all) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListChildren lists the immediate children of parent, with the same
// status filtering as ListTasks.
func ListChildren(ctx context.Context, db *sql.DB, parent string, status *StatusFilter, all bool) ([]Task, error) {
	return listChildrenTx(ctx, db, parent, status, all)
}

func addNoteTx(ctx context.Context, q Querier, taskName, content string) error {
	if err := requireTask(ctx, q, taskName); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `INSERT INTO notes (task, content) VALUES (?, ?)`, taskName, content)
	return err
}

// AddNote appends a note to a task.
func AddNote(ctx context.Context, db *sql.DB, taskName, content string) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return addNoteTx(ctx, tx, taskName, content)
	})
}

func listNotesTx(ctx context.Context, q Querier, taskName string) ([]Note, error) {
	if err := requireTask(ctx, q, taskName); err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `SELECT id, task, content, created_at FROM notes WHERE task=? ORDER BY id`, taskName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Task, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListNotes lists a task's notes in insertion order.
func ListNotes(ctx context.Context, db *sql.DB, taskName string) ([]Note, error) {
	return listNotesTx(ctx, db, taskName)
}

func addBlockTx(ctx context.Context, q Querier, blocker, blocked string) error {
	if err := requireTask(ctx, q, blocker); err != nil {
		return err
	}
	if err := requireTask(ctx, q, blocked); err != nil {
		return err
	}
	if blocker == blocked {
		return &InvariantViolationError{Reason: "a task cannot block itself"}
	}
	cyclic, err := detectDepCycle(ctx, q, blocker, blocked)
	if err != nil {
		return err
	}
	if cyclic {
		return &CycleDetectedError{Reason: "adding this dependency would create a cycle"}
	}
	_, err = q.ExecContext(ctx, `INSERT INTO task_deps (blocker, blocked) VALUES (?, ?)`, blocker, blocked)
	return err
}

// AddBlock records that blocker blocks blocked, rejecting self-edges and
// anything that would create a dependency cycle.
func AddBlock(ctx context.Context, db *sql.DB, blocker, blocked string) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return addBlockTx(ctx, tx, blocker, blocked)
	})
}

func removeBlockTx(ctx context.Context, q Querier, blocker, blocked string) error {
	if err := requireTask(ctx, q, blocker); err != nil {
		return err
	}
	if err := requireTask(ctx, q, blocked); err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `DELETE FROM task_deps WHERE blocker=? AND blocked=?`, blocker, blocked)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ConflictError{Name: blocker, Reason: "is not blocking '" + blocked + "'"}
	}
	return nil
}

// RemoveBlock deletes a blocker->blocked edge.
func RemoveBlock(ctx context.Context, db *sql.DB, blocker, blocked string) error {
	return Transact(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return removeBlockTx(ctx, tx, blocker, blocked)
	})
}

// GetBlockers returns the names of tasks that currently block name (only
// non-done blockers count as live blockers).
func GetBlockers(ctx context.Context, q Querier, name string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT td.blocker FROM task_deps td
		INNER JOIN tasks t ON t.name = td.blocker AND t.status != 'done'
		WHERE td.blocked = ? ORDER BY td.blocker`, name)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

// GetDependents returns every task name blocked by name, regardless of
// status.
func GetDependents(ctx context.Context, q Querier, name string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT blocked FROM task_deps WHERE blocker=? ORDER BY blocked`, name)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetAllDeps returns, for every task name, its live (non-done) blockers
// and all of its dependents, in two batch queries.
func GetAllDeps(ctx context.Context, q Querier) (map[string]struct {
	BlockedBy []string
	Blocks    []string
}, error) {
	out := make(map[string]struct {
		BlockedBy []string
		Blocks    []string
	})

	rows, err := q.QueryContext(ctx, `
		SELECT td.blocked, td.blocker FROM task_deps td
		INNER JOIN tasks t ON t.name = td.blocker AND t.status != 'done'`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var blocked, blocker string
		if err := rows.Scan(&blocked, &blocker); err != nil {
			rows.Close()
			return nil, err
		}
		entry := out[blocked]
		entry.BlockedBy = append(entry.BlockedBy, blocker)
		out[blocked] = entry
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = q.QueryContext(ctx, `SELECT blocker, blocked FROM task_deps`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var blocker, blocked string
		if err := rows.Scan(&blocker, &blocked); err != nil {
			return nil, err
		}
		entry := out[blocker]
		entry.Blocks = append(entry.Blocks, blocked)
		out[blocker] = entry
	}
	return out, rows.Err()
}

const searchTasksQuery = `
SELECT DISTINCT ` + taskColumnsPrefixed + `,
       (tfts.rowid IS NOT NULL) AS task_match,
       (nfts.task_name IS NOT NULL) AS note_match,
       MIN(COALESCE(tfts.rank, 1e9), COALESCE(nfts.best_rank, 1e9)) AS best_rank
FROM tasks t
LEFT JOIN tasks_fts tfts ON tfts.rowid = t.id AND tasks_fts MATCH ?
LEFT JOIN (
    SELECT task_name, MIN(rank) AS best_rank FROM notes_fts WHERE notes_fts MATCH ? GROUP BY task_name
) nfts ON nfts.task_name = t.name
WHERE tfts.rowid IS NOT NULL OR nfts.task_name IS NOT NULL
GROUP BY t.id
ORDER BY best_rank ASC, t.id ASC`

const taskColumnsPrefixed = "t.id, t.name, t.parent, t.description, t.status, t.assignee, t.status_changed_at, t.created_at, t.updated_at"

func searchTx(ctx context.Context, q Querier, query string) ([]SearchResult, error) {
	sanitized, ok := sanitizeFTSQuery(query)
	if !ok {
		return nil, &EmptyQueryError{}
	}
	rows, err := q.QueryContext(ctx, searchTasksQuery, sanitized, sanitized)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var t Task
		var taskMatch, noteMatch bool
		var rank float64
		if err := rows.Scan(&t.ID, &t.Name, &t.Parent, &t.Description, &t.Status, &t.Assignee, &t.StatusChangedAt, &t.CreatedAt, &t.UpdatedAt, &taskMatch, &noteMatch, &rank); err != nil {
			return nil, err
		}
		var matchedIn []string
		if taskMatch {
			matchedIn = append(matchedIn, "task")
		}
		if noteMatch {
			matchedIn = append(matchedIn, "notes")
		}
		out = append(out, SearchResult{Task: t, MatchedIn: matchedIn})
	}
	return out, rows.Err()
}

// Search runs the sanitized query against both FTS indexes, returning
// matches across all statuses (including done) ranked by best FTS rank.
func Search(ctx context.Context, db *sql.DB, query string) ([]SearchResult, error) {
	return searchTx(ctx, db, query)
}
