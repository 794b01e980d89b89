package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbtz-dev/kbtz/internal/config"
	"github.com/kbtz-dev/kbtz/internal/store"
)

// doctorCmd reports the health of the store file and workspace
// directory: whether the workspace directory exists, whether the store
// opens cleanly (store.Open creates a missing file and applies pending
// migrations), and whether the schema is stale relative to the binary's
// embedded migrations. Grounded on the teacher's own doctor-style "check, print
// pass/fail" command shape, collapsed to the checks SPEC_FULL.md §4.A
// names for this system (store.SchemaVersion's current/latest split).
var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Check the store and workspace for common problems",
	GroupID: GroupDiag,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		fmt.Fprintf(out, "store:     %s\n", cfg.DBPath)
		fmt.Fprintf(out, "workspace: %s\n", cfg.WorkspaceDir)

		if _, err := os.Stat(cfg.WorkspaceDir); err != nil {
			fmt.Fprintf(out, "  [fail] workspace directory missing: %v\n", err)
		} else {
			fmt.Fprintln(out, "  [ok]   workspace directory exists")
		}

		db, err := store.Open(ctx, cfg.DBPath)
		if err != nil {
			fmt.Fprintf(out, "  [fail] open store: %v\n", err)
			return nil
		}
		defer db.Close()
		fmt.Fprintln(out, "  [ok]   store opens")

		current, latest, err := store.SchemaVersion(ctx, db.DB)
		if err != nil {
			fmt.Fprintf(out, "  [fail] read schema version: %v\n", err)
			return nil
		}
		if current < latest {
			fmt.Fprintf(out, "  [fail] schema stale: at version %d, binary expects %d (restart kbtz to migrate)\n", current, latest)
		} else {
			fmt.Fprintf(out, "  [ok]   schema up to date (version %d)\n", current)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
