package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kbtz-dev/kbtz/internal/backend"
	"github.com/kbtz-dev/kbtz/internal/lifecycle"
	"github.com/kbtz-dev/kbtz/internal/notify"
	"github.com/kbtz-dev/kbtz/internal/orchestrator"
)

// muxCmd launches the orchestrator TUI: the tiling tree/zoom/toplevel
// front-end that owns the session pool. This is the "K — CLI surface"
// entry point named in SPEC_FULL.md, kept distinct from the store-only
// watch/wait verbs (watch.go, wait.go).
var muxCmd = &cobra.Command{
	Use:     "mux",
	Short:   "Launch the interactive session multiplexer TUI",
	GroupID: GroupRuntime,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, cfg, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := cfg.EnsureDirs(); err != nil {
			return fmt.Errorf("prepare workspace: %w", err)
		}

		notifier, err := notify.Watch(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("watch store for changes: %w", err)
		}
		defer notifier.Close()

		statusWatcher, err := notify.Watch(cfg.WorkspaceDir)
		if err != nil {
			return fmt.Errorf("watch workspace for status changes: %w", err)
		}
		defer statusWatcher.Close()

		sessions := map[string]*lifecycle.ManagedSession{}
		claudeBackend := backend.Claude{Prefix: cfg.BackendPrefix, Extra: cfg.BackendExtra}
		m := orchestrator.New(db, claudeBackend, cfg.WorkspaceDir, cfg.MaxConcurrency, sessions, nil, notifier)
		m.SetStatusWatcher(statusWatcher)

		if cmd.Flags().Changed("root") {
			root, _ := cmd.Flags().GetString("root")
			m.SetRoot(&root)
		}
		if ms, _ := cmd.Flags().GetUint64("poll-interval"); ms > 0 {
			m.SetPollInterval(time.Duration(ms) * time.Millisecond)
		}
		if cmd.Flags().Changed("prefer") {
			prefer, _ := cmd.Flags().GetString("prefer")
			m.SetPrefer(&prefer)
		}

		p := tea.NewProgram(m, tea.WithAltScreen())
		_, err = p.Run()
		m.Shutdown(ctx)
		return err
	},
}

func init() {
	muxCmd.Flags().String("root", "", "Root task for subtree")
	muxCmd.Flags().Uint64("poll-interval", 100, "Poll interval in milliseconds")
	muxCmd.Flags().String("prefer", "", "Claim-next FTS preference for newly spawned sessions")
	rootCmd.AddCommand(muxCmd)
}
