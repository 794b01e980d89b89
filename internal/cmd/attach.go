package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kbtz-dev/kbtz/internal/shepherd"
)

// attachCmd is the front-end reconnect side of the shepherd protocol
// (spec.md §4.D): it performs the size-first handshake at the current
// terminal's geometry, writes the returned restore sequence so
// scrollback and the live screen repaint immediately, then pumps
// keystrokes and resize events one way and PtyOutput frames the other
// until the connection closes.
var attachCmd = &cobra.Command{
	Use:     "attach SOCKET",
	Short:   "Attach this terminal to a running shepherd-owned session",
	GroupID: GroupRuntime,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		socketPath := args[0]

		fd := int(os.Stdin.Fd())
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("enter raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)

		cols, rows, err := term.GetSize(fd)
		if err != nil {
			return fmt.Errorf("get terminal size: %w", err)
		}

		client, restore, err := shepherd.Connect(socketPath, uint16(rows), uint16(cols))
		if err != nil {
			return fmt.Errorf("connect to shepherd: %w", err)
		}
		kill, _ := cmd.Flags().GetBool("kill")
		defer func() {
			if kill {
				client.Shutdown()
			} else {
				client.Detach()
			}
		}()

		os.Stdout.Write(restore)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGWINCH)
		defer signal.Stop(sigCh)
		go func() {
			for range sigCh {
				if c, r, err := term.GetSize(fd); err == nil {
					_ = client.SendResize(uint16(r), uint16(c))
				}
			}
		}()

		go func() {
			buf := make([]byte, 4096)
			for {
				n, err := os.Stdin.Read(buf)
				if n > 0 {
					_ = client.SendInput(buf[:n])
				}
				if err != nil {
					return
				}
			}
		}()

		return client.PumpOutput(os.Stdout)
	},
}

func init() {
	attachCmd.Flags().Bool("kill", false, "Ask the shepherd to stop the session on detach, instead of leaving it running")
	rootCmd.AddCommand(attachCmd)
}
