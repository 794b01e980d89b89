package batch

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Command is a single parsed exec line. Only the fields relevant to Verb
// are populated; this flattens kbtz/src/cli.rs's per-variant Command enum
// into one struct since Go has no tagged-union sugar worth reaching for
// over a fixed, already-specified twenty-verb grammar.
type Command struct {
	Verb string

	Name string

	Parent *string
	Desc   string
	Note   *string
	Claim  *string
	Paused bool
	JSON   bool

	Assignee    string
	Prefer      *string
	NewAssignee string

	Recursive bool

	Tree          bool
	Status        *string
	All           bool
	Root          *string
	Children      *string
	AssigneeFilter *string
	Blocked       bool
	Unblocked     bool

	Content *string

	Blocker string
	BlockedName string

	Query string
}

// rejectedInBatch names the verbs kbtz/src/cli.rs's dispatch() refuses to
// run inside exec, because they block (watch, wait) or would let a script
// recursively open a second transaction (exec).
var rejectedInBatch = map[string]string{
	"watch": "watch cannot be used inside exec",
	"wait":  "wait cannot be used inside exec",
	"exec":  "exec cannot be nested",
}

func newFlagSet(verb string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(verb, pflag.ContinueOnError)
	fs.Usage = func() {}
	fs.SetOutput(discard{})
	return fs
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func requireArgs(fs *pflag.FlagSet, verb string, n int) ([]string, error) {
	args := fs.Args()
	if len(args) < n {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", verb, n, len(args))
	}
	return args, nil
}

// parseCommand parses one exec line's tokens (verb + args, no leading
// program name) into a Command, mirroring kbtz/src/cli.rs's Command
// enum. Verbs not valid inside a batch (exec/watch/wait) return an error
// rather than a Command.
func parseCommand(tokens []string) (*Command, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	verb, rest := tokens[0], tokens[1:]

	if reason, ok := rejectedInBatch[verb]; ok {
		return nil, fmt.Errorf("%s", reason)
	}

	switch verb {
	case "add":
		fs := newFlagSet(verb)
		parent := fs.StringP("parent", "p", "", "")
		note := fs.StringP("note", "n", "", "")
		claim := fs.StringP("claim", "c", "", "")
		paused := fs.Bool("paused", false, "")
		json := fs.Bool("json", false, "")
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 2)
		if err != nil {
			return nil, err
		}
		cmd := &Command{Verb: verb, Name: args[0], Desc: args[1], Paused: *paused, JSON: *json}
		if fs.Changed("parent") {
			cmd.Parent = parent
		}
		if fs.Changed("note") {
			cmd.Note = note
		}
		if fs.Changed("claim") {
			cmd.Claim = claim
		}
		return cmd, nil

	case "claim":
		fs := newFlagSet(verb)
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 2)
		if err != nil {
			return nil, err
		}
		return &Command{Verb: verb, Name: args[0], Assignee: args[1]}, nil

	case "claim-next":
		fs := newFlagSet(verb)
		prefer := fs.String("prefer", "", "")
		json := fs.Bool("json", false, "")
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 1)
		if err != nil {
			return nil, err
		}
		cmd := &Command{Verb: verb, Assignee: args[0], JSON: *json}
		if fs.Changed("prefer") {
			cmd.Prefer = prefer
		}
		return cmd, nil

	case "steal":
		fs := newFlagSet(verb)
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 2)
		if err != nil {
			return nil, err
		}
		return &Command{Verb: verb, Name: args[0], NewAssignee: args[1]}, nil

	case "release":
		fs := newFlagSet(verb)
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 2)
		if err != nil {
			return nil, err
		}
		return &Command{Verb: verb, Name: args[0], Assignee: args[1]}, nil

	case "force-unassign":
		fs := newFlagSet(verb)
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 1)
		if err != nil {
			return nil, err
		}
		return &Command{Verb: verb, Name: args[0]}, nil

	case "done", "reopen", "pause", "unpause":
		fs := newFlagSet(verb)
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 1)
		if err != nil {
			return nil, err
		}
		return &Command{Verb: verb, Name: args[0]}, nil

	case "reparent":
		fs := newFlagSet(verb)
		parent := fs.StringP("parent", "p", "", "")
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 1)
		if err != nil {
			return nil, err
		}
		cmd := &Command{Verb: verb, Name: args[0]}
		if fs.Changed("parent") {
			cmd.Parent = parent
		}
		return cmd, nil

	case "describe":
		fs := newFlagSet(verb)
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 2)
		if err != nil {
			return nil, err
		}
		return &Command{Verb: verb, Name: args[0], Desc: args[1]}, nil

	case "rm":
		fs := newFlagSet(verb)
		recursive := fs.Bool("recursive", false, "")
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 1)
		if err != nil {
			return nil, err
		}
		return &Command{Verb: verb, Name: args[0], Recursive: *recursive}, nil

	case "show":
		fs := newFlagSet(verb)
		json := fs.Bool("json", false, "")
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 1)
		if err != nil {
			return nil, err
		}
		return &Command{Verb: verb, Name: args[0], JSON: *json}, nil

	case "list":
		fs := newFlagSet(verb)
		tree := fs.Bool("tree", false, "")
		status := fs.String("status", "", "")
		all := fs.Bool("all", false, "")
		root := fs.String("root", "", "")
		children := fs.String("children", "", "")
		assignee := fs.String("assignee", "", "")
		blocked := fs.Bool("blocked", false, "")
		unblocked := fs.Bool("unblocked", false, "")
		json := fs.Bool("json", false, "")
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		if fs.Changed("root") && fs.Changed("children") {
			return nil, fmt.Errorf("list: --root and --children are mutually exclusive")
		}
		if fs.Changed("blocked") && fs.Changed("unblocked") {
			return nil, fmt.Errorf("list: --blocked and --unblocked are mutually exclusive")
		}
		cmd := &Command{Verb: verb, Tree: *tree, All: *all, Blocked: *blocked, Unblocked: *unblocked, JSON: *json}
		if fs.Changed("status") {
			cmd.Status = status
		}
		if fs.Changed("root") {
			cmd.Root = root
		}
		if fs.Changed("children") {
			cmd.Children = children
		}
		if fs.Changed("assignee") {
			cmd.AssigneeFilter = assignee
		}
		return cmd, nil

	case "note":
		fs := newFlagSet(verb)
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 1)
		if err != nil {
			return nil, err
		}
		cmd := &Command{Verb: verb, Name: args[0]}
		if len(args) > 1 {
			content := args[1]
			cmd.Content = &content
		}
		return cmd, nil

	case "notes":
		fs := newFlagSet(verb)
		json := fs.Bool("json", false, "")
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 1)
		if err != nil {
			return nil, err
		}
		return &Command{Verb: verb, Name: args[0], JSON: *json}, nil

	case "block", "unblock":
		fs := newFlagSet(verb)
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 2)
		if err != nil {
			return nil, err
		}
		return &Command{Verb: verb, Blocker: args[0], BlockedName: args[1]}, nil

	case "search":
		fs := newFlagSet(verb)
		json := fs.Bool("json", false, "")
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		args, err := requireArgs(fs, verb, 1)
		if err != nil {
			return nil, err
		}
		return &Command{Verb: verb, Query: args[0], JSON: *json}, nil

	default:
		return nil, fmt.Errorf("unknown command %q", verb)
	}
}
