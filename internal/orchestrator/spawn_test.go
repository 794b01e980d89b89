package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kbtz-dev/kbtz/internal/lifecycle"
	"github.com/kbtz-dev/kbtz/internal/ptysession"
	"github.com/kbtz-dev/kbtz/internal/store"
)

// shBackend is a fake backend.Backend that execs /bin/sh instead of a
// real agent CLI, so spawn tests don't depend on any external binary.
type shBackend struct{}

func (shBackend) Command() string                        { return "/bin/sh" }
func (shBackend) WorkerArgs(_, _ string) []string         { return []string{"-c", "sleep 5"} }
func (shBackend) ToplevelArgs(_ string) []string          { return []string{"-c", "sleep 5"} }
func (shBackend) RequestExit(s *ptysession.Session) error { return s.RequestExit() }

func newTestModel(t *testing.T) *Model {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := New(db, shBackend{}, t.TempDir(), 2, map[string]*lifecycle.ManagedSession{}, nil, nil)
	t.Cleanup(func() {
		for _, ms := range m.executor.Sessions {
			_ = ms.Session.ForceKill()
		}
		if m.toplevel != nil {
			_ = m.toplevel.ForceKill()
		}
	})
	return m
}

func TestSpawnNextClaimsAndStartsASession(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()
	require.NoError(t, store.AddTask(ctx, m.db.DB, "task-1", nil, "desc", nil, nil, false))

	spawned, err := m.spawnNext(ctx)
	require.NoError(t, err)
	require.True(t, spawned)

	require.Len(t, m.executor.Sessions, 1)
	ms, ok := m.executor.Sessions["ws/1"]
	require.True(t, ok)
	require.Equal(t, "task-1", ms.TaskID)
	require.True(t, ms.Session.IsAlive())

	task, err := store.GetTask(ctx, m.db.DB, "task-1")
	require.NoError(t, err)
	require.Equal(t, store.StatusActive, task.Status)
	require.NotNil(t, task.Assignee)
	require.Equal(t, "ws/1", *task.Assignee)
}

func TestSpawnNextReturnsFalseWhenNothingClaimable(t *testing.T) {
	m := newTestModel(t)
	spawned, err := m.spawnNext(context.Background())
	require.NoError(t, err)
	require.False(t, spawned)
	require.Empty(t, m.executor.Sessions)
}

func TestSpawnNextSessionIDsAreMonotone(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()
	require.NoError(t, store.AddTask(ctx, m.db.DB, "task-1", nil, "d", nil, nil, false))
	require.NoError(t, store.AddTask(ctx, m.db.DB, "task-2", nil, "d", nil, nil, false))

	_, err := m.spawnNext(ctx)
	require.NoError(t, err)
	_, err = m.spawnNext(ctx)
	require.NoError(t, err)

	_, ok1 := m.executor.Sessions["ws/1"]
	_, ok2 := m.executor.Sessions["ws/2"]
	require.True(t, ok1)
	require.True(t, ok2)
}

func TestEnsureToplevelStartsOnceAndRespawnsAfterExit(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()

	require.NoError(t, m.ensureToplevel(ctx))
	require.NotNil(t, m.toplevel)
	first := m.toplevel

	// Calling again while still alive must not replace the session.
	require.NoError(t, m.ensureToplevel(ctx))
	require.Same(t, first, m.toplevel)

	require.NoError(t, first.ForceKill())
	require.Eventually(t, func() bool { return !first.IsAlive() }, time.Second, 10*time.Millisecond)

	require.NoError(t, m.ensureToplevel(ctx))
	require.NotSame(t, first, m.toplevel)
	require.True(t, m.toplevel.IsAlive())
}
