package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbtz-dev/kbtz/internal/output"
	"github.com/kbtz-dev/kbtz/internal/store"
)

func init() {
	rootCmd.AddCommand(
		addCmd, claimCmd, claimNextCmd, stealCmd, releaseCmd, forceUnassignCmd,
		doneCmd, reopenCmd, pauseCmd, unpauseCmd, reparentCmd, describeCmd,
		rmCmd, showCmd, listCmd, noteCmd, notesCmd, blockCmd, unblockCmd,
		searchCmd,
	)
}

var addCmd = &cobra.Command{
	Use:     "add NAME DESC",
	Short:   "Add a task",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		parent, _ := cmd.Flags().GetString("parent")
		note, _ := cmd.Flags().GetString("note")
		claim, _ := cmd.Flags().GetString("claim")
		paused, _ := cmd.Flags().GetBool("paused")
		asJSON, _ := cmd.Flags().GetBool("json")

		if paused && claim != "" {
			return fmt.Errorf("--paused and --claim are mutually exclusive")
		}

		var parentPtr, notePtr, claimPtr *string
		if cmd.Flags().Changed("parent") {
			parentPtr = &parent
		}
		if cmd.Flags().Changed("note") {
			notePtr = &note
		}
		if cmd.Flags().Changed("claim") {
			claimPtr = &claim
		}

		if err := store.AddTask(ctx, db.DB, args[0], parentPtr, args[1], notePtr, claimPtr, paused); err != nil {
			return err
		}
		if asJSON {
			return printDetail(ctx, db, args[0], cmd.OutOrStdout())
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Added task '%s'\n", args[0])
		return nil
	},
}

func init() {
	addCmd.Flags().StringP("parent", "p", "", "Parent task name")
	addCmd.Flags().StringP("note", "n", "", "Initial note")
	addCmd.Flags().StringP("claim", "c", "", "Create already claimed by this assignee")
	addCmd.Flags().Bool("paused", false, "Create in paused state")
	addCmd.Flags().Bool("json", false, "Output as JSON")
}

var claimCmd = &cobra.Command{
	Use:     "claim NAME ASSIGNEE",
	Short:   "Claim a task (set assignee)",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Claim(ctx, db.DB, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Claimed '%s' for '%s'\n", args[0], args[1])
		return nil
	},
}

var claimNextCmd = &cobra.Command{
	Use:     "claim-next ASSIGNEE",
	Short:   "Claim the best available task",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		var preferPtr *string
		if cmd.Flags().Changed("prefer") {
			prefer, _ := cmd.Flags().GetString("prefer")
			preferPtr = &prefer
		}

		name, err := store.ClaimNext(ctx, db.DB, args[0], preferPtr)
		if err != nil {
			return err
		}
		if name == "" {
			return fmt.Errorf("no tasks available")
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			if err := printDetail(ctx, db, name, cmd.OutOrStdout()); err != nil {
				return err
			}
		} else {
			if err := printDetailText(ctx, db, name, cmd.OutOrStdout()); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Claimed '%s' for '%s'\n", name, args[0])
		return nil
	},
}

func init() {
	claimNextCmd.Flags().String("prefer", "", "Soft preference text for ranking")
	claimNextCmd.Flags().Bool("json", false, "Output as JSON")
}

var stealCmd = &cobra.Command{
	Use:     "steal NAME ASSIGNEE",
	Short:   "Atomically transfer task ownership",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		prev, err := store.Steal(ctx, db.DB, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Stole '%s' from '%s' to '%s'\n", args[0], prev, args[1])
		return nil
	},
}

var releaseCmd = &cobra.Command{
	Use:     "release NAME ASSIGNEE",
	Short:   "Release a task (clear assignee if it matches)",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Release(ctx, db.DB, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Released '%s'\n", args[0])
		return nil
	},
}

var forceUnassignCmd = &cobra.Command{
	Use:     "force-unassign NAME",
	Short:   "Forcibly clear a task's assignee",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.ForceUnassign(ctx, db.DB, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Force-unassigned '%s'\n", args[0])
		return nil
	},
}

var doneCmd = &cobra.Command{
	Use:     "done NAME",
	Short:   "Mark a task as done",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.MarkDone(ctx, db.DB, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Marked '%s' as done\n", args[0])
		return nil
	},
}

var reopenCmd = &cobra.Command{
	Use:     "reopen NAME",
	Short:   "Reopen a completed task",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Reopen(ctx, db.DB, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Reopened '%s'\n", args[0])
		return nil
	},
}

var pauseCmd = &cobra.Command{
	Use:     "pause NAME",
	Short:   "Pause a task",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Pause(ctx, db.DB, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Paused '%s'\n", args[0])
		return nil
	},
}

var unpauseCmd = &cobra.Command{
	Use:     "unpause NAME",
	Short:   "Unpause a paused task",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.Unpause(ctx, db.DB, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Unpaused '%s'\n", args[0])
		return nil
	},
}

var reparentCmd = &cobra.Command{
	Use:     "reparent NAME",
	Short:   "Change a task's parent",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		var parentPtr *string
		if cmd.Flags().Changed("parent") {
			parent, _ := cmd.Flags().GetString("parent")
			parentPtr = &parent
		}
		if err := store.Reparent(ctx, db.DB, args[0], parentPtr); err != nil {
			return err
		}
		if parentPtr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Moved '%s' under '%s'\n", args[0], *parentPtr)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "Moved '%s' to root level\n", args[0])
		}
		return nil
	},
}

func init() {
	reparentCmd.Flags().StringP("parent", "p", "", "New parent task name (omit to make root-level)")
}

var describeCmd = &cobra.Command{
	Use:     "describe NAME DESC",
	Short:   "Update a task's description",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.UpdateDescription(ctx, db.DB, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Updated description for '%s'\n", args[0])
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm NAME",
	Short:   "Remove a task",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		recursive, _ := cmd.Flags().GetBool("recursive")
		if err := store.Remove(ctx, db.DB, args[0], recursive); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Removed task '%s'\n", args[0])
		return nil
	},
}

func init() {
	rmCmd.Flags().Bool("recursive", false, "Remove children recursively")
}

var showCmd = &cobra.Command{
	Use:     "show NAME",
	Short:   "Show task details",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return printDetail(ctx, db, args[0], cmd.OutOrStdout())
		}
		return printDetailText(ctx, db, args[0], cmd.OutOrStdout())
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "Output as JSON")
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List tasks",
	GroupID: GroupTasks,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		fl := cmd.Flags()
		if fl.Changed("root") && fl.Changed("children") {
			return fmt.Errorf("list: --root and --children are mutually exclusive")
		}
		if fl.Changed("blocked") && fl.Changed("unblocked") {
			return fmt.Errorf("list: --blocked and --unblocked are mutually exclusive")
		}

		var statusPtr *store.StatusFilter
		if fl.Changed("status") {
			s, _ := fl.GetString("status")
			f := store.StatusFilter(s)
			statusPtr = &f
		}
		all, _ := fl.GetBool("all")
		tree, _ := fl.GetBool("tree")
		asJSON, _ := fl.GetBool("json")

		var tasks []store.Task
		if fl.Changed("children") {
			children, _ := fl.GetString("children")
			tasks, err = store.ListChildren(ctx, db.DB, children, statusPtr, all)
		} else {
			var rootPtr *string
			if fl.Changed("root") {
				root, _ := fl.GetString("root")
				rootPtr = &root
			}
			tasks, err = store.ListTasks(ctx, db.DB, statusPtr, all, rootPtr)
		}
		if err != nil {
			return err
		}

		if fl.Changed("assignee") {
			assignee, _ := fl.GetString("assignee")
			tasks = filterByAssignee(tasks, assignee)
		}
		if fl.Changed("blocked") || fl.Changed("unblocked") {
			wantBlocked, _ := fl.GetBool("blocked")
			deps, err := store.GetAllDeps(ctx, db.DB)
			if err != nil {
				return err
			}
			tasks = filterByBlocked(tasks, deps, wantBlocked)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			deps, err := store.GetAllDeps(ctx, db.DB)
			if err != nil {
				return err
			}
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

		if tree {
			fmt.Fprint(out, output.FormatTaskTree(tasks))
		} else {
			fmt.Fprint(out, output.FormatTaskTable(tasks))
		}
		return nil
	},
}

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

func init() {
	listCmd.Flags().Bool("tree", false, "Display as tree")
	listCmd.Flags().String("status", "", "Filter by status (open, active, paused, done)")
	listCmd.Flags().Bool("all", false, "Show all tasks including done and paused")
	listCmd.Flags().String("root", "", "Root task for subtree")
	listCmd.Flags().String("children", "", "Show only direct children of the given task")
	listCmd.Flags().String("assignee", "", "Filter by assignee")
	listCmd.Flags().Bool("blocked", false, "Show only blocked tasks")
	listCmd.Flags().Bool("unblocked", false, "Show only unblocked tasks")
	listCmd.Flags().Bool("json", false, "Output as JSON")
}

var noteCmd = &cobra.Command{
	Use:     "note NAME [CONTENT]",
	Short:   "Add a note to a task",
	GroupID: GroupTasks,
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		content := ""
		if len(args) == 2 {
			content = args[1]
		} else {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read note content from stdin: %w", err)
			}
			content = string(b)
		}

		if err := store.AddNote(ctx, db.DB, args[0], content); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Added note to '%s'\n", args[0])
		return nil
	},
}

var notesCmd = &cobra.Command{
	Use:     "notes NAME",
	Short:   "List notes for a task",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		notes, err := store.ListNotes(ctx, db.DB, args[0])
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			s, err := output.MarshalJSON(notes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), output.FormatNotes(notes))
		return nil
	},
}

func init() {
	notesCmd.Flags().Bool("json", false, "Output as JSON")
}

var blockCmd = &cobra.Command{
	Use:     "block BLOCKER BLOCKED",
	Short:   "Mark a task as blocking another",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.AddBlock(ctx, db.DB, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "'%s' now blocks '%s'\n", args[0], args[1])
		return nil
	},
}

var unblockCmd = &cobra.Command{
	Use:     "unblock BLOCKER BLOCKED",
	Short:   "Remove a blocking relationship",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.RemoveBlock(ctx, db.DB, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "'%s' no longer blocks '%s'\n", args[0], args[1])
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:     "search QUERY",
	Short:   "Full-text search across tasks and notes",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		results, err := store.Search(ctx, db.DB, args[0])
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			s, err := output.MarshalJSON(results)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), output.FormatSearchResults(results))
		return nil
	},
}

func init() {
	searchCmd.Flags().Bool("json", false, "Output as JSON")
}

func loadDetail(ctx context.Context, db *store.DB, name string) (store.Task, []store.Note, []string, []string, error) {
	t, err := store.GetTask(ctx, db.DB, name)
	if err != nil {
		return store.Task{}, nil, nil, nil, err
	}
	notes, err := store.ListNotes(ctx, db.DB, name)
	if err != nil {
		return store.Task{}, nil, nil, nil, err
	}
	blockers, err := store.GetBlockers(ctx, db.DB, name)
	if err != nil {
		return store.Task{}, nil, nil, nil, err
	}
	dependents, err := store.GetDependents(ctx, db.DB, name)
	if err != nil {
		return store.Task{}, nil, nil, nil, err
	}
	return t, notes, blockers, dependents, nil
}

func printDetailText(ctx context.Context, db *store.DB, name string, out io.Writer) error {
	t, notes, blockers, dependents, err := loadDetail(ctx, db, name)
	if err != nil {
		return err
	}
	fmt.Fprint(out, output.FormatTaskDetail(t, notes, blockers, dependents))
	return nil
}

func printDetail(ctx context.Context, db *store.DB, name string, out io.Writer) error {
	t, notes, blockers, dependents, err := loadDetail(ctx, db, name)
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
