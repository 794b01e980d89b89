package orchestrator

import (
	"context"
	"os"
	"time"

	"github.com/kbtz-dev/kbtz/internal/lifecycle"
	"github.com/kbtz-dev/kbtz/internal/ptysession"
	"github.com/kbtz-dev/kbtz/internal/store"
)

const shutdownPollInterval = 50 * time.Millisecond

// Shutdown drains every live session after the TUI loop has exited:
// request a graceful exit from all workers and the toplevel session,
// busy-wait up to the graceful timeout, force-kill stragglers, then
// release every task and remove every status file.
func (m *Model) Shutdown(ctx context.Context) {
	for _, ms := range m.executor.Sessions {
		_ = m.backend.RequestExit(ms.Session)
	}
	m.mu.RLock()
	toplevel := m.toplevel
	m.mu.RUnlock()
	if toplevel != nil {
		_ = m.backend.RequestExit(toplevel)
	}

	deadline := time.Now().Add(lifecycle.GracefulTimeout)
	for time.Now().Before(deadline) && m.anySessionAlive(toplevel) {
		time.Sleep(shutdownPollInterval)
	}

	for id, ms := range m.executor.Sessions {
		if ms.Session.IsAlive() {
			_ = ms.Session.ForceKill()
		}
		ms.Session.Detach()
		_ = store.Release(ctx, m.db.DB, ms.TaskID, id)
		_ = os.Remove(lifecycle.StatusFilePath(m.workspaceDir, id))
		delete(m.executor.Sessions, id)
	}
	if toplevel != nil && toplevel.IsAlive() {
		_ = toplevel.ForceKill()
	}
}

func (m *Model) anySessionAlive(toplevel *ptysession.Session) bool {
	for _, ms := range m.executor.Sessions {
		if ms.Session.IsAlive() {
			return true
		}
	}
	return toplevel != nil && toplevel.IsAlive()
}
