// Package cmd implements kbtz's cobra CLI: the store-backed task verbs,
// the exec batch runner, watch/wait, and the mux/shepherd subcommands
// that launch the orchestrator TUI and the detached PTY daemon.
//
// Grounded on the teacher's cmd.Execute()/rootCmd shape (one package,
// one cobra.Command tree, command groups via GroupID), collapsed to
// kbtz's much smaller verb set.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbtz-dev/kbtz/internal/config"
	"github.com/kbtz-dev/kbtz/internal/store"
)

const (
	GroupTasks   = "tasks"
	GroupRuntime = "runtime"
	GroupDiag    = "diagnostics"
)

var rootCmd = &cobra.Command{
	Use:           "kbtz",
	Short:         "A task-graph store and terminal multiplexer for AI coding agents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupTasks, Title: "Task commands:"},
		&cobra.Group{ID: GroupRuntime, Title: "Runtime commands:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostic commands:"},
	)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kbtz:", err)
		return 1
	}
	return 0
}

// openStore loads config and opens the task-graph store, the first
// step of every task-verb command's RunE.
func openStore(ctx context.Context) (*store.DB, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("load config: %w", err)
	}
	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	return db, cfg, nil
}
