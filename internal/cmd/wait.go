package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbtz-dev/kbtz/internal/notify"
	"github.com/kbtz-dev/kbtz/internal/store"
)

// waitCmd blocks until the named task reaches status done, or a
// timeout elapses, per spec.md §6/SUPPLEMENTED FEATURES #4. It polls
// the task row on every coalesced change notification rather than
// busy-looping, since a notification carries no payload to inspect.
var waitCmd = &cobra.Command{
	Use:     "wait NAME",
	Short:   "Block until a task reaches status done, or a timeout elapses",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx := cmd.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		notifier, err := notify.Watch(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("watch store for changes: %w", err)
		}
		defer notifier.Close()

		name := args[0]
		for {
			task, err := store.GetTask(ctx, db.DB, name)
			if err != nil {
				return err
			}
			if task.Status == store.StatusDone {
				return nil
			}
			if err := notifier.WaitForChange(ctx); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return fmt.Errorf("wait: timed out waiting for %q", name)
				}
				return err
			}
		}
	},
}

func init() {
	waitCmd.Flags().Duration("timeout", 0, "Maximum time to wait (0 = no timeout)")
	rootCmd.AddCommand(waitCmd)
}
