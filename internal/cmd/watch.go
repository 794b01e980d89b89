package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbtz-dev/kbtz/internal/config"
	"github.com/kbtz-dev/kbtz/internal/notify"
)

// watchCmd is the store-only change-notification verb from spec.md §6:
// it prints one line per coalesced DB-change event until interrupted.
// It does not open the store itself, since a notification carries no
// payload to read — callers re-query with another command.
var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Print a line each time the task store changes, until interrupted",
	GroupID: GroupTasks,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		notifier, err := notify.Watch(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("watch store for changes: %w", err)
		}
		defer notifier.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		for {
			if err := notifier.WaitForChange(ctx); err != nil {
				return nil
			}
			fmt.Fprintln(out, "changed")
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
