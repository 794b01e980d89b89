// Command kbtz is a task-graph store and terminal multiplexer for AI
// coding agents: see internal/cmd for the verb tree.
package main

import (
	"os"

	"github.com/kbtz-dev/kbtz/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
