package backend

import (
	"time"

	"github.com/kbtz-dev/kbtz/internal/ptysession"
)

// Claude is the one concrete Backend: the Claude Code CLI, invoked with
// a system-prompt append carrying the kbtz task protocol text
// (AgentSkill or ToplevelSkill) and, for workers, a trailing positional
// task name.
type Claude struct {
	// Prefix is extra argv inserted before the standard flags (e.g.
	// "--dangerously-skip-permissions"), configurable via config.toml.
	Prefix []string
	// Extra is extra argv appended after the task name.
	Extra []string
}

func (c Claude) Command() string { return "claude" }

func (c Claude) WorkerArgs(protocol, task string) []string {
	args := append([]string{}, c.Prefix...)
	args = append(args, "--append-system-prompt", protocol, task)
	return append(args, c.Extra...)
}

func (c Claude) ToplevelArgs(protocol string) []string {
	args := append([]string{}, c.Prefix...)
	args = append(args, "--append-system-prompt", protocol)
	return append(args, c.Extra...)
}

// RequestExit sends SIGTERM to the session's child and marks it
// Stopping so the lifecycle engine's GRACEFUL_TIMEOUT clock starts.
func (c Claude) RequestExit(session *ptysession.Session) error {
	session.MarkStopping(requestExitTime())
	return session.RequestExit()
}

// requestExitTime is a seam so tests can assert MarkStopping is called
// with a observable timestamp without depending on wall-clock jitter.
var requestExitTime = time.Now
