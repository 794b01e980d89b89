package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kbtz-dev/kbtz/internal/ptysession"
	"github.com/kbtz-dev/kbtz/internal/store"
)

// ManagedSession binds a running ptysession.Session to the task it is
// working and the session ID it was assigned under, so Remove can
// release the task under the session's own assignee id rather than
// whoever holds it now (it may already have been stolen).
type ManagedSession struct {
	Session       *ptysession.Session
	TaskID        string
	SessionID     string
	Phase         SessionPhase
	StoppingSince time.Time
}

// StatusFilePath is a session's status-file location: the session id
// with '/' replaced by '-', under the workspace directory.
func StatusFilePath(workspaceDir, sessionID string) string {
	return filepath.Join(workspaceDir, strings.ReplaceAll(sessionID, "/", "-"))
}

// Spawner starts a new session for the next claimable task. It returns
// false if there was nothing to claim.
type Spawner func(ctx context.Context) (bool, error)

// ExitSignaler asks a running session to exit gracefully. The backend
// supplies this (backend.Backend.RequestExit), since the signal an agent
// tool responds to is the backend's business, not the lifecycle's.
type ExitSignaler func(*ptysession.Session) error

// Executor carries out the Actions a Tick call produces against real
// sessions and the task store. Registry access is caller-synchronized:
// Executor does not lock Sessions itself.
type Executor struct {
	DB           *store.DB
	Sessions     map[string]*ManagedSession
	Spawn        Spawner
	ExitSignal   ExitSignaler
	WorkspaceDir string
}

// Snapshot builds the World the pure Tick function consumes, reading
// each session's task state from the store.
func (e *Executor) Snapshot(ctx context.Context, maxConcurrency int, now time.Time) (World, error) {
	w := World{MaxConcurrency: maxConcurrency, Now: now}
	ids := make([]string, 0, len(e.Sessions))
	for id := range e.Sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ms := e.Sessions[id]
		phase := ms.Phase
		if phase != PhaseExited && !ms.Session.IsAlive() {
			phase = PhaseExited
		}
		snap := SessionSnapshot{SessionID: id, Phase: phase, StoppingSince: ms.StoppingSince}
		task, err := store.GetTask(ctx, e.DB.DB, ms.TaskID)
		if err != nil {
			if store.IsNotFound(err) {
				snap.Task = nil
			} else {
				return World{}, fmt.Errorf("snapshot task %s: %w", ms.TaskID, err)
			}
		} else {
			assignee := ""
			if task.Assignee != nil {
				assignee = *task.Assignee
			}
			snap.Task = &TaskSnapshot{Status: string(task.Status), Assignee: assignee}
		}
		w.Sessions = append(w.Sessions, snap)
	}
	return w, nil
}

// Apply runs one Tick over the current snapshot and executes every
// resulting Action. It is safe to call repeatedly on a fixed interval —
// this is the orchestrator's main-loop tick.
func (e *Executor) Apply(ctx context.Context, maxConcurrency int, now time.Time) error {
	world, err := e.Snapshot(ctx, maxConcurrency, now)
	if err != nil {
		return err
	}

	for _, action := range Tick(world) {
		if err := e.execute(ctx, action, now); err != nil {
			log.Printf("lifecycle: action %+v failed: %v", action, err)
		}
	}
	return nil
}

func (e *Executor) execute(ctx context.Context, action Action, now time.Time) error {
	switch action.Kind {
	case ActionRequestExit:
		ms, ok := e.Sessions[action.SessionID]
		if !ok {
			return nil
		}
		ms.Phase = PhaseStopping
		ms.StoppingSince = now
		ms.Session.MarkStopping(now)
		if e.ExitSignal != nil {
			return e.ExitSignal(ms.Session)
		}
		return ms.Session.RequestExit()
	case ActionForceKill:
		ms, ok := e.Sessions[action.SessionID]
		if !ok {
			return nil
		}
		return ms.Session.ForceKill()
	case ActionRemove:
		if action.Forced {
			log.Printf("lifecycle: session %s force-killed", action.SessionID)
		}
		ms, ok := e.Sessions[action.SessionID]
		if !ok {
			return nil
		}
		ms.Session.Detach()
		// Release under the session's own assignee id. The normal reap
		// path (task marked done/paused/open, or stolen) has already
		// cleared or changed the assignee by the time Remove runs, so a
		// Conflict here just means "nothing of ours left to release",
		// not a failure worth logging — only an unexpected store error
		// is.
		if err := store.Release(ctx, e.DB.DB, ms.TaskID, action.SessionID); err != nil &&
			!store.IsNotFound(err) && !errors.Is(err, store.ErrConflict) {
			log.Printf("lifecycle: release %s for %s: %v", ms.TaskID, action.SessionID, err)
		}
		if e.WorkspaceDir != "" {
			if err := os.Remove(StatusFilePath(e.WorkspaceDir, action.SessionID)); err != nil && !os.IsNotExist(err) {
				log.Printf("lifecycle: remove status file for %s: %v", action.SessionID, err)
			}
		}
		delete(e.Sessions, action.SessionID)
		return nil
	case ActionSpawnUpTo:
		for i := 0; i < action.Count; i++ {
			spawned, err := e.Spawn(ctx)
			if err != nil {
				return err
			}
			if !spawned {
				break
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown action kind %v", action.Kind)
	}
}
