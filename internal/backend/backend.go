// Package backend abstracts over the AI coding agent tool an orchestrated
// session runs: the binary to exec, how to shape its argv for a worker
// session bound to a task versus the standing toplevel session, and how
// to ask a running instance to exit.
//
// Grounded on spec.md §4.H's capability-set contract and on the
// teacher's config.BuildAgentStartupCommand family (an argv/env-shaping
// function per agent, selected by role) — re-expressed as a small Go
// interface instead of a role-keyed config lookup, since kbtz only ever
// runs one agent type per install.
package backend

import "github.com/kbtz-dev/kbtz/internal/ptysession"

// Backend builds the argv for a task-bound worker session or the
// standing toplevel session, and knows how to ask a live session to
// exit gracefully.
type Backend interface {
	// Command is the executable name or path to run.
	Command() string
	// WorkerArgs builds argv (excluding Command) for a session bound to
	// task, with protocol injected as the system-prompt append.
	WorkerArgs(protocol, task string) []string
	// ToplevelArgs builds argv (excluding Command) for the standing
	// toplevel session, which is not bound to any task.
	ToplevelArgs(protocol string) []string
	// RequestExit asks a running session to exit gracefully: SIGTERM
	// the child and mark the session Stopping.
	RequestExit(session *ptysession.Session) error
}
