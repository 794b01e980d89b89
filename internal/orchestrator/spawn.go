package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kbtz-dev/kbtz/internal/backend"
	"github.com/kbtz-dev/kbtz/internal/lifecycle"
	"github.com/kbtz-dev/kbtz/internal/ptysession"
	"github.com/kbtz-dev/kbtz/internal/store"
)

// sessionSize is the PTY geometry for a newly spawned session: one row
// reserved for the status bar (spec.md §4.C), falling back to a
// reasonable default before the first WindowSizeMsg arrives.
func (m *Model) sessionSize() (rows, cols int) {
	m.mu.RLock()
	w, h := m.width, m.height
	m.mu.RUnlock()
	if w <= 0 || h <= 1 {
		return 24, 80
	}
	return h - 1, w
}

func (m *Model) childEnv(sessionID, taskName string) []string {
	env := append(os.Environ(),
		"DB="+m.db.Path(),
		"SESSION_ID="+sessionID,
		"WORKSPACE_DIR="+m.workspaceDir,
	)
	if taskName != "" {
		env = append(env, "TASK="+taskName)
	}
	return env
}

// spawnNext is the default lifecycle.Spawner: claim the next eligible
// open task under a freshly minted session id and start a backend
// child for it. Grounded on kbtz-mux/src/app.rs's
// spawn_up_to/spawn_session pair (per-session counter, claim then spawn,
// release-and-report on spawn failure).
func (m *Model) spawnNext(ctx context.Context) (bool, error) {
	m.mu.Lock()
	m.sessionCounter++
	sessionID := fmt.Sprintf("ws/%d", m.sessionCounter)
	m.mu.Unlock()

	taskName, err := store.ClaimNext(ctx, m.db.DB, sessionID, m.prefer)
	if err != nil {
		return false, fmt.Errorf("claim next: %w", err)
	}
	if taskName == "" {
		return false, nil
	}

	rows, cols := m.sessionSize()
	sess := ptysession.New(taskName, rows, cols)
	args := m.backend.WorkerArgs(backend.AgentSkill, taskName)
	if err := sess.Start(m.backend.Command(), args, m.workspaceDir, m.childEnv(sessionID, taskName)); err != nil {
		_ = store.Release(ctx, m.db.DB, taskName, sessionID)
		return false, fmt.Errorf("spawn session for %s: %w", taskName, err)
	}

	m.executor.Sessions[sessionID] = &lifecycle.ManagedSession{
		Session:   sess,
		TaskID:    taskName,
		SessionID: sessionID,
		Phase:     lifecycle.PhaseRunning,
	}
	return true, nil
}

// spawnTask claims one specific task (the tree view's spawn intent, as
// opposed to spawnNext's best-available selection) and starts a session
// for it, releasing the claim if the child fails to start.
func (m *Model) spawnTask(ctx context.Context, taskName string) error {
	m.mu.Lock()
	m.sessionCounter++
	sessionID := fmt.Sprintf("ws/%d", m.sessionCounter)
	m.mu.Unlock()

	if err := store.Claim(ctx, m.db.DB, taskName, sessionID); err != nil {
		return err
	}

	rows, cols := m.sessionSize()
	sess := ptysession.New(taskName, rows, cols)
	args := m.backend.WorkerArgs(backend.AgentSkill, taskName)
	if err := sess.Start(m.backend.Command(), args, m.workspaceDir, m.childEnv(sessionID, taskName)); err != nil {
		_ = store.Release(ctx, m.db.DB, taskName, sessionID)
		return fmt.Errorf("spawn session for %s: %w", taskName, err)
	}

	m.executor.Sessions[sessionID] = &lifecycle.ManagedSession{
		Session:   sess,
		TaskID:    taskName,
		SessionID: sessionID,
		Phase:     lifecycle.PhaseRunning,
	}
	return nil
}

// restartTask asks the session working taskName to exit gracefully. The
// removal path releases the task back to open, so the next tick's free
// slot picks it up again with a fresh child.
func (m *Model) restartTask(taskName string) error {
	ms := m.sessionForTask(taskName)
	if ms == nil {
		return fmt.Errorf("no live session for %q", taskName)
	}
	now := time.Now()
	ms.Phase = lifecycle.PhaseStopping
	ms.StoppingSince = now
	ms.Session.MarkStopping(now)
	return m.backend.RequestExit(ms.Session)
}

// ensureToplevel starts the standing toplevel session if it has never
// run, or restarts it if its child has exited — mirroring
// app.rs's ensure_toplevel, called once at startup and again on every
// poll tick.
func (m *Model) ensureToplevel(ctx context.Context) error {
	m.mu.Lock()
	tl := m.toplevel
	m.mu.Unlock()
	if tl != nil && tl.IsAlive() {
		return nil
	}

	rows, cols := m.sessionSize()
	sess := ptysession.New("toplevel", rows, cols)
	args := m.backend.ToplevelArgs(backend.ToplevelSkill)
	// The toplevel session gets only DB: it manipulates the task list as
	// a whole and has no task, session id, or workspace of its own.
	env := append(os.Environ(), "DB="+m.db.Path())
	if err := sess.Start(m.backend.Command(), args, m.workspaceDir, env); err != nil {
		return fmt.Errorf("spawn toplevel session: %w", err)
	}

	m.mu.Lock()
	m.toplevel = sess
	m.mu.Unlock()
	return nil
}
