package lifecycle

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kbtz-dev/kbtz/internal/ptysession"
	"github.com/kbtz-dev/kbtz/internal/store"
)

func newTestExecutor(t *testing.T) (*Executor, context.Context) {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Executor{
		DB:           db,
		Sessions:     map[string]*ManagedSession{},
		WorkspaceDir: t.TempDir(),
	}, ctx
}

func newRunningSession(t *testing.T, taskID string) *ptysession.Session {
	t.Helper()
	s := ptysession.New(taskID, 24, 80)
	require.NoError(t, s.Start("/bin/sh", []string{"-c", "sleep 5"}, "", []string{"TERM=xterm-256color"}))
	t.Cleanup(func() { _ = s.ForceKill() })
	return s
}

// TestExecuteRemoveAlreadyDoneTaskSwallowsConflict exercises the fix to
// the ActionRemove branch: once MarkDone has cleared the task's
// assignee, Release under the session's own id returns a ConflictError,
// not NotFound, and that must not be logged as a failure.
func TestExecuteRemoveAlreadyDoneTaskSwallowsConflict(t *testing.T) {
	e, ctx := newTestExecutor(t)

	require.NoError(t, store.AddTask(ctx, e.DB.DB, "task-1", nil, "desc", nil, nil, false))
	require.NoError(t, store.Claim(ctx, e.DB.DB, "task-1", "sess-1"))
	require.NoError(t, store.MarkDone(ctx, e.DB.DB, "task-1"))

	sess := newRunningSession(t, "task-1")
	statusFile := StatusFilePath(e.WorkspaceDir, "sess-1")
	require.NoError(t, os.WriteFile(statusFile, []byte("running"), 0o644))

	e.Sessions["sess-1"] = &ManagedSession{
		Session:   sess,
		TaskID:    "task-1",
		SessionID: "sess-1",
		Phase:     PhaseRunning,
	}

	err := e.execute(ctx, Action{Kind: ActionRemove, SessionID: "sess-1"}, time.Now())
	require.NoError(t, err)

	_, stillTracked := e.Sessions["sess-1"]
	require.False(t, stillTracked)

	_, err = os.Stat(statusFile)
	require.True(t, os.IsNotExist(err))
}

// TestExecuteRemoveReleasesClaimedTask covers the ordinary path: the
// session's task is still open and claimed under the session's own id,
// so Remove must actually release it back to the store.
func TestExecuteRemoveReleasesClaimedTask(t *testing.T) {
	e, ctx := newTestExecutor(t)

	require.NoError(t, store.AddTask(ctx, e.DB.DB, "task-1", nil, "desc", nil, nil, false))
	require.NoError(t, store.Claim(ctx, e.DB.DB, "task-1", "sess-1"))

	sess := newRunningSession(t, "task-1")
	e.Sessions["sess-1"] = &ManagedSession{
		Session:   sess,
		TaskID:    "task-1",
		SessionID: "sess-1",
		Phase:     PhaseRunning,
	}

	require.NoError(t, e.execute(ctx, Action{Kind: ActionRemove, SessionID: "sess-1"}, time.Now()))

	task, err := store.GetTask(ctx, e.DB.DB, "task-1")
	require.NoError(t, err)
	require.Equal(t, store.StatusOpen, task.Status)
	require.Nil(t, task.Assignee)
}

// TestExecuteRequestExitThenForceKill walks a session through the full
// Stopping -> ForceKill -> Remove sequence Tick would schedule once the
// graceful timeout elapses, and confirms the process is actually dead
// by the end of it.
func TestExecuteRequestExitThenForceKill(t *testing.T) {
	e, ctx := newTestExecutor(t)

	require.NoError(t, store.AddTask(ctx, e.DB.DB, "task-1", nil, "desc", nil, nil, false))
	require.NoError(t, store.Claim(ctx, e.DB.DB, "task-1", "sess-1"))

	sess := newRunningSession(t, "task-1")
	ms := &ManagedSession{Session: sess, TaskID: "task-1", SessionID: "sess-1", Phase: PhaseRunning}
	e.Sessions["sess-1"] = ms

	now := time.Now()
	require.NoError(t, e.execute(ctx, Action{Kind: ActionRequestExit, SessionID: "sess-1"}, now))
	require.Equal(t, PhaseStopping, ms.Phase)

	require.NoError(t, e.execute(ctx, Action{Kind: ActionForceKill, SessionID: "sess-1"}, now))
	require.NoError(t, e.execute(ctx, Action{Kind: ActionRemove, SessionID: "sess-1", Forced: true}, now))

	_, stillTracked := e.Sessions["sess-1"]
	require.False(t, stillTracked)
	require.Eventually(t, func() bool { return !sess.IsAlive() }, time.Second, 10*time.Millisecond)
}

// TestApplySpawnsUpToCapacity confirms Apply invokes Spawn until it
// reports nothing left to claim, without touching any session map entry.
func TestApplySpawnsUpToCapacity(t *testing.T) {
	e, ctx := newTestExecutor(t)

	calls := 0
	e.Spawn = func(ctx context.Context) (bool, error) {
		calls++
		return calls < 3, nil
	}

	require.NoError(t, e.Apply(ctx, 5, time.Now()))
	require.Equal(t, 3, calls)
}

func TestStatusFilePathReplacesSlashes(t *testing.T) {
	got := StatusFilePath("/tmp/ws", "a/b/c")
	require.Equal(t, filepath.Join("/tmp/ws", "a-b-c"), got)
}
