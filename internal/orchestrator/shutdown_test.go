package orchestrator

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kbtz-dev/kbtz/internal/lifecycle"
	"github.com/kbtz-dev/kbtz/internal/store"
)

func TestShutdownDrainsSessionsAndReleasesTasks(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()

	require.NoError(t, store.AddTask(ctx, m.db.DB, "task-1", nil, "desc", nil, nil, false))
	spawned, err := m.spawnNext(ctx)
	require.NoError(t, err)
	require.True(t, spawned)
	require.NoError(t, m.ensureToplevel(ctx))

	statusFile := lifecycle.StatusFilePath(m.workspaceDir, "ws/1")
	require.NoError(t, os.WriteFile(statusFile, []byte("active"), 0o644))

	worker := m.executor.Sessions["ws/1"].Session
	toplevel := m.toplevel

	m.Shutdown(ctx)

	require.Empty(t, m.executor.Sessions)
	require.False(t, worker.IsAlive())
	require.False(t, toplevel.IsAlive())

	task, err := store.GetTask(ctx, m.db.DB, "task-1")
	require.NoError(t, err)
	require.Equal(t, store.StatusOpen, task.Status)
	require.Nil(t, task.Assignee)

	_, err = os.Stat(statusFile)
	require.True(t, os.IsNotExist(err))
}
