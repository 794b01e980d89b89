package batch

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/kbtz-dev/kbtz/internal/output"
	"github.com/kbtz-dev/kbtz/internal/store"
)

// Run reads an exec script from r, parses every line up front, and — if
// all lines parse and none uses a batch-forbidden verb — runs them
// sequentially inside one transaction, rolling back the entire batch on
// the first runtime error. Progress lines go to out/errOut the same way
// a direct CLI invocation of each verb would write them, since a SQLite
// ROLLBACK does not and cannot undo already-flushed terminal output.
func Run(ctx context.Context, db *sql.DB, r io.Reader, out, errOut io.Writer) error {
	input, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read exec script: %w", err)
	}

	resolved, err := resolveHeredocs(string(input))
	if err != nil {
		return err
	}

	type lineCmd struct {
		lineno int
		raw    string
		cmd    *Command
	}
	var commands []lineCmd
	for _, rl := range resolved {
		cmd, err := parseCommand(rl.Tokens)
		if err != nil {
			return fmt.Errorf("line %d: %w", rl.LineNo, err)
		}
		commands = append(commands, lineCmd{rl.LineNo, rl.Raw, cmd})
	}

	if len(commands) == 0 {
		return nil
	}

	tx, err := store.BeginBatch(ctx, db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, lc := range commands {
		if err := dispatch(ctx, tx, lc.cmd, out, errOut); err != nil {
			return fmt.Errorf("line %d: %s: %w", lc.lineno, lc.raw, err)
		}
	}

	return tx.Commit()
}

// dispatch runs one parsed command against the batch's shared
// transaction, mirroring kbtz/src/main.rs's dispatch() match arms.
func dispatch(ctx context.Context, tx *sql.Tx, c *Command, out, errOut io.Writer) error {
	switch c.Verb {
	case "add":
		if err := store.AddTaskTx(ctx, tx, c.Name, c.Parent, c.Desc, c.Note, c.Claim, c.Paused); err != nil {
			return err
		}
		if c.JSON {
			if err := printTaskDetail(ctx, tx, c.Name, out); err != nil {
				return err
			}
		}
		fmt.Fprintf(errOut, "Added task '%s'\n", c.Name)
		switch {
		case c.Paused:
			fmt.Fprintf(errOut, "Task '%s' created in paused state\n", c.Name)
		case c.Claim != nil:
			fmt.Fprintf(errOut, "Claimed '%s' for '%s'\n", c.Name, *c.Claim)
		}
		return nil

	case "claim":
		if err := store.ClaimTx(ctx, tx, c.Name, c.Assignee); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Claimed '%s' for '%s'\n", c.Name, c.Assignee)
		return nil

	case "claim-next":
		name, err := store.ClaimNextTx(ctx, tx, c.Assignee, c.Prefer)
		if err != nil {
			return err
		}
		if name == "" {
			return fmt.Errorf("no tasks available")
		}
		if c.JSON {
			if err := printTaskDetail(ctx, tx, name, out); err != nil {
				return err
			}
		} else {
			if err := printTaskDetailText(ctx, tx, name, out); err != nil {
				return err
			}
		}
		fmt.Fprintf(errOut, "Claimed '%s' for '%s'\n", name, c.Assignee)
		return nil

	case "steal":
		prev, err := store.StealTx(ctx, tx, c.Name, c.NewAssignee)
		if err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Stole '%s' from '%s' to '%s'\n", c.Name, prev, c.NewAssignee)
		return nil

	case "release":
		if err := store.ReleaseTx(ctx, tx, c.Name, c.Assignee); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Released '%s'\n", c.Name)
		return nil

	case "force-unassign":
		if err := store.ForceUnassignTx(ctx, tx, c.Name); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Force-unassigned '%s'\n", c.Name)
		return nil

	case "done":
		if err := store.MarkDoneTx(ctx, tx, c.Name); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Marked '%s' as done\n", c.Name)
		return nil

	case "reopen":
		if err := store.ReopenTx(ctx, tx, c.Name); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Reopened '%s'\n", c.Name)
		return nil

	case "pause":
		if err := store.PauseTx(ctx, tx, c.Name); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Paused '%s'\n", c.Name)
		return nil

	case "unpause":
		if err := store.UnpauseTx(ctx, tx, c.Name); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Unpaused '%s'\n", c.Name)
		return nil

	case "reparent":
		if err := store.ReparentTx(ctx, tx, c.Name, c.Parent); err != nil {
			return err
		}
		if c.Parent != nil {
			fmt.Fprintf(errOut, "Moved '%s' under '%s'\n", c.Name, *c.Parent)
		} else {
			fmt.Fprintf(errOut, "Moved '%s' to root level\n", c.Name)
		}
		return nil

	case "describe":
		if err := store.UpdateDescriptionTx(ctx, tx, c.Name, c.Desc); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Updated description for '%s'\n", c.Name)
		return nil

	case "rm":
		if err := store.RemoveTx(ctx, tx, c.Name, c.Recursive); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Removed task '%s'\n", c.Name)
		return nil

	case "show":
		if c.JSON {
			return printTaskDetail(ctx, tx, c.Name, out)
		}
		return printTaskDetailText(ctx, tx, c.Name, out)

	case "list":
		return dispatchList(ctx, tx, c, out)

	case "note":
		if c.Content == nil {
			return fmt.Errorf("note content must be provided explicitly (stdin is not available inside exec)")
		}
		if err := store.AddNoteTx(ctx, tx, c.Name, *c.Content); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "Added note to '%s'\n", c.Name)
		return nil

	case "notes":
		notes, err := store.ListNotesTx(ctx, tx, c.Name)
		if err != nil {
			return err
		}
		if c.JSON {
			s, err := output.MarshalJSON(notes)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, s)
		} else {
			fmt.Fprint(out, output.FormatNotes(notes))
		}
		return nil

	case "block":
		if err := store.AddBlockTx(ctx, tx, c.Blocker, c.BlockedName); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "'%s' now blocks '%s'\n", c.Blocker, c.BlockedName)
		return nil

	case "unblock":
		if err := store.RemoveBlockTx(ctx, tx, c.Blocker, c.BlockedName); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "'%s' no longer blocks '%s'\n", c.Blocker, c.BlockedName)
		return nil

	case "search":
		results, err := store.SearchTx(ctx, tx, c.Query)
		if err != nil {
			return err
		}
		if c.JSON {
			s, err := output.MarshalJSON(results)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, s)
		} else {
			fmt.Fprint(out, output.FormatSearchResults(results))
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", c.Verb)
	}
}

func dispatchList(ctx context.Context, tx *sql.Tx, c *Command, out io.Writer) error {
	var status *store.StatusFilter
	if c.Status != nil {
		f := store.StatusFilter(*c.Status)
		status = &f
	}

	var tasks []store.Task
	var err error
	if c.Children != nil {
		tasks, err = store.ListChildrenTx(ctx, tx, *c.Children, status, c.All)
	} else {
		tasks, err = store.ListTasksTx(ctx, tx, status, c.All, c.Root)
	}
	if err != nil {
		return err
	}

	if c.AssigneeFilter != nil {
		tasks = filterByAssignee(tasks, *c.AssigneeFilter)
	}

	var deps map[string]struct {
		BlockedBy []string
		Blocks    []string
	}
	if c.Blocked || c.Unblocked || c.JSON {
		deps, err = store.GetAllDeps(ctx, tx)
		if err != nil {
			return err
		}
	}
	if c.Blocked || c.Unblocked {
		tasks = filterByBlocked(tasks, deps, c.Blocked)
	}

	if c.JSON {
		items := make([]output.TaskListItem, 0, len(tasks))
		for _, t := range tasks {
			d := deps[t.Name]
			items = append(items, output.TaskListItem{Task: t, BlockedBy: d.BlockedBy, Blocks: d.Blocks})
		}
		s, err := output.MarshalJSON(items)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, s)
		return nil
	}

	if c.Tree {
		fmt.Fprint(out, output.FormatTaskTree(tasks))
	} else {
		fmt.Fprint(out, output.FormatTaskTable(tasks))
	}
	return nil
}

// filterByAssignee and filterByBlocked mirror internal/cmd/tasks.go's
// listCmd post-filters, reimplemented here since the batch path queries
// through a *sql.Tx instead of a *sql.DB and has no cobra flag set to
// read from.
func filterByAssignee(tasks []store.Task, assignee string) []store.Task {
	out := make([]store.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Assignee != nil && *t.Assignee == assignee {
			out = append(out, t)
		}
	}
	return out
}

func filterByBlocked(tasks []store.Task, deps map[string]struct {
	BlockedBy []string
	Blocks    []string
}, wantBlocked bool) []store.Task {
	out := make([]store.Task, 0, len(tasks))
	for _, t := range tasks {
		isBlocked := len(deps[t.Name].BlockedBy) > 0
		if isBlocked == wantBlocked {
			out = append(out, t)
		}
	}
	return out
}

func printTaskDetailText(ctx context.Context, tx *sql.Tx, name string, out io.Writer) error {
	t, notes, blockers, dependents, err := loadDetail(ctx, tx, name)
	if err != nil {
		return err
	}
	fmt.Fprint(out, output.FormatTaskDetail(t, notes, blockers, dependents))
	return nil
}

func printTaskDetail(ctx context.Context, tx *sql.Tx, name string, out io.Writer) error {
	t, notes, blockers, dependents, err := loadDetail(ctx, tx, name)
	if err != nil {
		return err
	}
	detail := output.TaskDetail{Task: t, Notes: notes, BlockedBy: blockers, Blocks: dependents}
	s, err := output.MarshalJSON(detail)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, s)
	return nil
}

func loadDetail(ctx context.Context, tx *sql.Tx, name string) (store.Task, []store.Note, []string, []string, error) {
	t, err := store.GetTaskTx(ctx, tx, name)
	if err != nil {
		return store.Task{}, nil, nil, nil, err
	}
	notes, err := store.ListNotesTx(ctx, tx, name)
	if err != nil {
		return store.Task{}, nil, nil, nil, err
	}
	blockers, err := store.GetBlockers(ctx, tx, name)
	if err != nil {
		return store.Task{}, nil, nil, nil, err
	}
	dependents, err := store.GetDependents(ctx, tx, name)
	if err != nil {
		return store.Task{}, nil, nil, nil, err
	}
	return t, notes, blockers, dependents, nil
}
