package store

import (
	"context"
	"database/sql"
	"errors"
)

// validateName rejects the empty string and anything outside
// [A-Za-z0-9_-] with a typed error. The schema's own GLOB check
// constrains only the first character, so this is the full name check.
func validateName(name string) error {
	if name == "" {
		return &InvariantViolationError{Reason: "task name must not be empty"}
	}
	for _, c := range name {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-') {
			return &InvariantViolationError{Reason: "task name " + name + " contains invalid characters: only a-z, A-Z, 0-9, _, - allowed"}
		}
	}
	return nil
}

// detectParentCycle reports whether setting task's parent to newParent
// would create a cycle: true if newParent is task itself, or task is
// reachable by walking newParent's parent chain upward.
func detectParentCycle(ctx context.Context, q Querier, task, newParent string) (bool, error) {
	if task == newParent {
		return true, nil
	}
	current := newParent
	for {
		var parent sql.NullString
		err := q.QueryRowContext(ctx, `SELECT parent FROM tasks WHERE name = ?`, current).Scan(&parent)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !parent.Valid {
			return false, nil
		}
		if parent.String == task {
			return true, nil
		}
		current = parent.String
	}
}

// detectDepCycle reports whether adding a blocker->blocked edge would
// create a cycle: true if blocker == blocked, or blocked is reachable by a
// reverse BFS over existing edges starting from blocker (i.e. "does
// something that blocks blocker, transitively, turn out to be blocked").
func detectDepCycle(ctx context.Context, q Querier, blocker, blocked string) (bool, error) {
	if blocker == blocked {
		return true, nil
	}
	visited := map[string]bool{blocker: true}
	queue := []string{blocker}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		rows, err := q.QueryContext(ctx, `SELECT blocker FROM task_deps WHERE blocked = ?`, current)
		if err != nil {
			return false, err
		}
		var next []string
		for rows.Next() {
			var b string
			if err := rows.Scan(&b); err != nil {
				rows.Close()
				return false, err
			}
			next = append(next, b)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return false, err
		}
		rows.Close()

		for _, b := range next {
			if b == blocked {
				return true, nil
			}
			if !visited[b] {
				visited[b] = true
				queue = append(queue, b)
			}
		}
	}
	return false, nil
}
