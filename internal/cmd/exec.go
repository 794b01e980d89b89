package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kbtz-dev/kbtz/internal/batch"
)

var execCmd = &cobra.Command{
	Use:     "exec",
	Short:   "Execute commands from stdin atomically (all-or-nothing transaction)",
	GroupID: GroupTasks,
	Long: `Reads commands from stdin, one per line, and runs them in a single
database transaction. If any command fails, all changes are rolled back.

Lines are tokenized with double-quote-only quoting: double quotes delimit
a string (with \" and \\ as escapes inside one), but single quotes are
ordinary characters, so apostrophes in plain text don't need escaping.
Blank lines and lines starting with # are ignored. Do not prefix commands
with "kbtz":

    add my-task "A new task"
    block my-task other-task
    note my-task "A note"

Heredoc syntax is supported for multiline arguments (one per command):

    note my-task <<EOF
    Line one
    Line two
    EOF

The "note" command normally reads from stdin when content is omitted, but
this does not work inside exec. Always pass note content as an argument or
use heredoc syntax.

The exec, watch, and wait commands cannot be used inside exec.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		return batch.Run(ctx, db.DB, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
}
