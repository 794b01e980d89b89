// Package lifecycle decides what should happen to a pool of sessions
// given their current phase and the task each is working, and carries
// out that decision against real sessions and the task store.
//
// The decision function is pure — given a World it returns a
// slice of Actions and touches nothing else — so it can be tested
// exhaustively without starting a single process. This separation is
// ported verbatim from original_source/kbtz-workspace/src/lifecycle.rs.
package lifecycle

import "time"

// GracefulTimeout is how long a Stopping session is given to exit on
// its own before it is force-killed.
const GracefulTimeout = 5 * time.Second

// SessionPhase is where a session sits in its exit sequence.
type SessionPhase int

const (
	PhaseRunning SessionPhase = iota
	PhaseStopping
	PhaseExited
)

// TaskSnapshot is the subset of task state the reap decision needs.
type TaskSnapshot struct {
	Status   string
	Assignee string // empty means unassigned
}

// SessionSnapshot is one session's state as of World.Now.
type SessionSnapshot struct {
	SessionID string
	Phase     SessionPhase
	// StoppingSince is only meaningful when Phase == PhaseStopping.
	StoppingSince time.Time
	// Task is nil when the session's task was deleted out from under it.
	Task *TaskSnapshot
}

// World is the read-only input to Tick.
type World struct {
	Sessions []SessionSnapshot
	// MaxConcurrency is the most sessions Tick will ask to be spawned.
	// Zero disables auto-spawn (manual mode) while preserving every
	// reaping/cleanup decision.
	MaxConcurrency int
	Now            time.Time
}

// ActionKind identifies what an Action asks the executor to do.
type ActionKind int

const (
	ActionRequestExit ActionKind = iota
	ActionForceKill
	ActionRemove
	ActionSpawnUpTo
)

// Action is one thing the executor should do; WHAT, not HOW.
type Action struct {
	Kind      ActionKind
	SessionID string // RequestExit, ForceKill, Remove
	Count     int    // SpawnUpTo
	// Forced is set on a Remove action that followed a ForceKill, so a
	// caller reporting session outcomes can distinguish a force-killed
	// session from one that exited on its own. Always false on a Remove
	// that followed a bare PhaseExited observation.
	Forced bool
}

// Tick computes the set of actions the executor must carry out this
// iteration. It touches no IO and has no side effects.
func Tick(world World) []Action {
	var actions []Action
	runningCount := 0

	for _, session := range world.Sessions {
		switch session.Phase {
		case PhaseExited:
			actions = append(actions, Action{Kind: ActionRemove, SessionID: session.SessionID})
		case PhaseStopping:
			if world.Now.Sub(session.StoppingSince) >= GracefulTimeout {
				actions = append(actions,
					Action{Kind: ActionForceKill, SessionID: session.SessionID},
					Action{Kind: ActionRemove, SessionID: session.SessionID, Forced: true},
				)
			}
			// Stopping sessions do not count toward concurrency.
		case PhaseRunning:
			if shouldReapSession(session) {
				actions = append(actions, Action{Kind: ActionRequestExit, SessionID: session.SessionID})
				// Will transition to Stopping; doesn't count toward concurrency yet.
			} else {
				runningCount++
			}
		}
	}

	if runningCount < world.MaxConcurrency {
		free := world.MaxConcurrency - runningCount
		actions = append(actions, Action{Kind: ActionSpawnUpTo, Count: free})
	}

	return actions
}

func shouldReapSession(session SessionSnapshot) bool {
	if session.Task == nil {
		return true // task was deleted
	}
	return shouldReapTask(session.SessionID, *session.Task)
}

func shouldReapTask(sessionID string, task TaskSnapshot) bool {
	switch task.Status {
	case "done", "paused":
		return true
	case "active":
		return task.Assignee != sessionID
	case "open":
		return true // agent released it
	default:
		return false
	}
}
