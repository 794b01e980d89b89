// Package output renders tasks, notes, and search results as either
// plain text or JSON, shared by internal/cmd's direct invocations and
// internal/batch's exec runner so both present results identically.
//
// Grounded on src/output.rs's format_task_detail/format_task_list/
// format_task_tree/format_notes, adapted to the store's four-status
// (open/active/paused/done) model and rendered through internal/style's
// Table for the tabular case.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbtz-dev/kbtz/internal/store"
	"github.com/kbtz-dev/kbtz/internal/style"
)

// TaskDetail is the JSON shape for `show`/`claim-next --json`/`add --json`.
type TaskDetail struct {
	store.Task
	Notes     []store.Note `json:"notes"`
	BlockedBy []string     `json:"blocked_by"`
	Blocks    []string     `json:"blocks"`
}

// TaskListItem is the JSON shape for one row of `list --json`.
type TaskListItem struct {
	store.Task
	BlockedBy []string `json:"blocked_by"`
	Blocks    []string `json:"blocks"`
}

// MarshalJSON renders pretty-printed JSON matching serde_json's
// to_string_pretty default (2-space indent), the only JSON style
// present anywhere in the retrieved original source.
func MarshalJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FormatTaskDetail renders one task's full detail view as plain text.
func FormatTaskDetail(t store.Task, notes []store.Note, blockers, dependents []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:        %s\n", t.Name)
	fmt.Fprintf(&b, "Status:      %s\n", t.Status)
	if t.Parent != nil {
		fmt.Fprintf(&b, "Parent:      %s\n", *t.Parent)
	}
	if t.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", t.Description)
	}
	if t.Assignee != nil {
		fmt.Fprintf(&b, "Assignee:    %s\n", *t.Assignee)
	}
	if t.StatusChangedAt != nil {
		fmt.Fprintf(&b, "Status since: %s\n", *t.StatusChangedAt)
	}
	fmt.Fprintf(&b, "Created:     %s\n", t.CreatedAt)
	fmt.Fprintf(&b, "Updated:     %s\n", t.UpdatedAt)

	if len(blockers) > 0 {
		fmt.Fprintf(&b, "Blocked by:  %s\n", strings.Join(blockers, ", "))
	}
	if len(dependents) > 0 {
		fmt.Fprintf(&b, "Blocks:      %s\n", strings.Join(dependents, ", "))
	}

	if len(notes) > 0 {
		b.WriteString("\nNotes:\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "  [%s] %s\n", n.CreatedAt, n.Content)
		}
	}
	return b.String()
}

// FormatTaskList renders a flat task listing, one line per task.
func FormatTaskList(tasks []store.Task) string {
	var b strings.Builder
	for _, t := range tasks {
		parentInfo := ""
		if t.Parent != nil {
			parentInfo = fmt.Sprintf(" (parent: %s)", *t.Parent)
		}
		desc := ""
		if t.Description != "" {
			desc = "  " + t.Description
		}
		fmt.Fprintf(&b, "%s %s%s%s\n", t.Status.Icon(), t.Name, parentInfo, desc)
	}
	return b.String()
}

// FormatTaskTable renders tasks using internal/style's Table, for the
// non-tree, non-JSON `list` rendering.
func FormatTaskTable(tasks []store.Task) string {
	table := style.NewTable(
		style.Column{Name: "", Width: 1},
		style.Column{Name: "NAME", Width: 28},
		style.Column{Name: "ASSIGNEE", Width: 16},
		style.Column{Name: "DESCRIPTION", Width: 40},
	)
	for _, t := range tasks {
		assignee := ""
		if t.Assignee != nil {
			assignee = *t.Assignee
		}
		table.AddRow(t.Status.Icon(), t.Name, assignee, t.Description)
	}
	return table.Render()
}

// FormatTaskTree renders tasks as a parent/child tree. Tasks whose parent
// isn't present in the set are promoted to roots.
func FormatTaskTree(tasks []store.Task) string {
	if len(tasks) == 0 {
		return ""
	}

	names := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		names[t.Name] = true
	}

	children := make(map[string][]store.Task)
	var roots []store.Task
	for _, t := range tasks {
		if t.Parent != nil && names[*t.Parent] {
			children[*t.Parent] = append(children[*t.Parent], t)
		} else {
			roots = append(roots, t)
		}
	}

	var b strings.Builder
	for _, root := range roots {
		writeTreeNode(&b, root, children, "", "")
	}
	return b.String()
}

func writeTreeNode(b *strings.Builder, t store.Task, children map[string][]store.Task, linePrefix, childPrefix string) {
	desc := ""
	if t.Description != "" {
		desc = "  " + t.Description
	}
	fmt.Fprintf(b, "%s%s %s%s\n", linePrefix, t.Status.Icon(), t.Name, desc)

	kids := children[t.Name]
	for i, child := range kids {
		isLast := i == len(kids)-1
		connector, extension := "├── ", "│   "
		if isLast {
			connector, extension = "└── ", "    "
		}
		writeTreeNode(b, child, children, childPrefix+connector, childPrefix+extension)
	}
}

// FormatNotes renders a task's notes, one per line.
func FormatNotes(notes []store.Note) string {
	var b strings.Builder
	for _, n := range notes {
		fmt.Fprintf(&b, "[%s] %s\n", n.CreatedAt, n.Content)
	}
	return b.String()
}

// FormatSearchResults renders search hits as name, matched-in, and status.
func FormatSearchResults(results []store.SearchResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s %s  (matched: %s)\n", r.Task.Status.Icon(), r.Task.Name, strings.Join(r.MatchedIn, ", "))
	}
	return b.String()
}
