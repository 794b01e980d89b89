// Package tree flattens the task graph into an ordered, collapsible
// sequence of rows for the tree view, and interprets navigation/toggle
// input into an Intent the orchestrator acts on.
//
// Grounded on spec.md §4.I's row-shape contract. The original's
// tui/tree.rs (both kbtz and kbtz-workspace copies in original_source/)
// turned out to be ratatui *rendering* code built atop a flattening
// pass that lives elsewhere in the original (ui.rs) — so this is a
// fresh Go re-expression of the contract text rather than a port of
// Rust control flow, using internal/style for the eventual table/row
// rendering instead of ratatui widgets.
package tree

import (
	"sort"

	"github.com/kbtz-dev/kbtz/internal/store"
)

// Row is one flattened line in the tree view.
type Row struct {
	Name               string
	Status             store.Status
	Description        string
	Assignee           string
	Depth              int
	HasChildren        bool
	IsLastAtEachDepth  []bool
	BlockedBy          []string
}

// node is the intermediate tree shape built before flattening.
type node struct {
	task     store.Task
	children []*node
	blockedBy []string
}

// Collapsed tracks which task names are currently collapsed; callers
// own and mutate this set via ToggleCollapse.
type Collapsed map[string]bool

// Flatten builds the ordered row sequence for tasks. Orphans (whose
// parent isn't present in tasks, e.g. it was filtered out by a root
// scope) are promoted to roots. blockedBy maps a task name to the names
// of tasks blocking it (only non-done blockers should be passed in by
// the caller, since a done blocker no longer blocks).
func Flatten(tasks []store.Task, blockedBy map[string][]string, collapsed Collapsed) []Row {
	byName := make(map[string]*node, len(tasks))
	for _, t := range tasks {
		byName[t.Name] = &node{task: t, blockedBy: blockedBy[t.Name]}
	}

	var roots []*node
	for _, t := range tasks {
		n := byName[t.Name]
		if t.Parent != nil {
			if parent, ok := byName[*t.Parent]; ok {
				parent.children = append(parent.children, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	sortSiblings(roots)
	for _, n := range byName {
		sortSiblings(n.children)
	}

	var rows []Row
	for i, r := range roots {
		walk(r, 0, nil, i == len(roots)-1, collapsed, &rows)
	}
	return rows
}

func sortSiblings(nodes []*node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].task.Name < nodes[j].task.Name })
}

func walk(n *node, depth int, isLastStack []bool, isLast bool, collapsed Collapsed, out *[]Row) {
	stack := append(append([]bool{}, isLastStack...), isLast)

	*out = append(*out, Row{
		Name:              n.task.Name,
		Status:            n.task.Status,
		Description:       n.task.Description,
		Assignee:          assigneeOf(n.task),
		Depth:             depth,
		HasChildren:       len(n.children) > 0,
		IsLastAtEachDepth: stack,
		BlockedBy:         n.blockedBy,
	})

	if collapsed[n.task.Name] {
		return
	}
	for i, child := range n.children {
		walk(child, depth+1, stack, i == len(n.children)-1, collapsed, out)
	}
}

func assigneeOf(t store.Task) string {
	if t.Assignee == nil {
		return ""
	}
	return *t.Assignee
}

// ToggleCollapse flips the collapsed state of name.
func (c Collapsed) ToggleCollapse(name string) {
	c[name] = !c[name]
}
