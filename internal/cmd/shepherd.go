package cmd

import (
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbtz-dev/kbtz/internal/ptysession"
	"github.com/kbtz-dev/kbtz/internal/shepherd"
)

// shepherdCmd is the detached daemon that owns a child's PTY across
// front-end restarts, per spec.md §4.D/§6's launch contract: positional
// socket_path, pid_file, rows, cols, command, args…. It is hidden from
// help. No code in this module launches it: `kbtz mux` runs its sessions
// on local PTYs, and `kbtz attach` connects to a shepherd that was
// started with explicit arguments.
var shepherdCmd = &cobra.Command{
	Use:    "shepherd SOCKET PIDFILE ROWS COLS COMMAND [ARGS...]",
	Short:  "Run the detached PTY shepherd daemon",
	Hidden: true,
	Args:   cobra.MinimumNArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		socketPath, pidFile := args[0], args[1]
		rows, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("parse rows: %w", err)
		}
		cols, err := strconv.Atoi(args[3])
		if err != nil {
			return fmt.Errorf("parse cols: %w", err)
		}
		command := args[4]
		childArgs := args[5:]

		detachFromController()

		sess := ptysession.New(socketPath, rows, cols)
		if err := sess.Start(command, childArgs, "", os.Environ()); err != nil {
			return fmt.Errorf("start session: %w", err)
		}

		return shepherd.NewDaemon(socketPath, pidFile, sess).Run()
	},
}

func init() {
	rootCmd.AddCommand(shepherdCmd)
}

// detachFromController disconnects the shepherd from its controlling
// terminal and redirects stdio to the null device, per spec.md §4.D.
// Best-effort: a failure here does not stop the daemon from starting,
// it just leaves it attached to whatever invoked it.
func detachFromController() {
	_, _ = syscall.Setsid()

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return
	}
	defer devNull.Close()

	fd := int(devNull.Fd())
	_ = syscall.Dup2(fd, int(os.Stdin.Fd()))
	_ = syscall.Dup2(fd, int(os.Stdout.Fd()))
	_ = syscall.Dup2(fd, int(os.Stderr.Fd()))
}
