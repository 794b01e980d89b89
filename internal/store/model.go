package store

// Status is the task lifecycle state. See the transition diagram in
// spec.md §3: open -> active -> {open, done, paused}, paused <-> open,
// done -> open only via Reopen.
type Status string

const (
	StatusOpen   Status = "open"
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusDone   Status = "done"
)

// Icon is the one-character glyph used by the tree view and CLI table
// renderer for a task's status.
func (s Status) Icon() string {
	switch s {
	case StatusDone:
		return "x"
	case StatusActive:
		return "*"
	case StatusPaused:
		return "~"
	default:
		return "."
	}
}

// Task is the only first-class entity in the store.
type Task struct {
	ID              int64
	Name            string
	Parent          *string
	Description     string
	Status          Status
	Assignee        *string
	StatusChangedAt *string
	CreatedAt       string
	UpdatedAt       string
}

// Note is an append-only comment attached to a task.
type Note struct {
	ID        int64
	Task      string
	Content   string
	CreatedAt string
}

// SearchResult pairs a task with which field(s) the query matched.
type SearchResult struct {
	Task      Task
	MatchedIn []string
}

// taskColumns is the fixed column order read_task_row and every SELECT
// below agree on.
const taskColumns = "id, name, parent, description, status, assignee, status_changed_at, created_at, updated_at"

func scanTask(row interface{ Scan(dest ...any) error }) (Task, error) {
	var t Task
	if err := row.Scan(&t.ID, &t.Name, &t.Parent, &t.Description, &t.Status, &t.Assignee, &t.StatusChangedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Task{}, err
	}
	return t, nil
}
