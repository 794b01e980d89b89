package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func snapshot(id string, phase SessionPhase, task *TaskSnapshot) SessionSnapshot {
	return SessionSnapshot{SessionID: id, Phase: phase, Task: task}
}

func activeTask(assignee string) *TaskSnapshot {
	return &TaskSnapshot{Status: "active", Assignee: assignee}
}

func taskWithStatus(status string) *TaskSnapshot {
	return &TaskSnapshot{Status: status, Assignee: "ws/1"}
}

func world(sessions []SessionSnapshot, maxConcurrency int) World {
	return World{Sessions: sessions, MaxConcurrency: maxConcurrency, Now: time.Now()}
}

func TestExitedSessionRemovedAndSlotFilled(t *testing.T) {
	w := world([]SessionSnapshot{snapshot("ws/1", PhaseExited, activeTask("ws/1"))}, 2)
	actions := Tick(w)
	require.Equal(t, []Action{
		{Kind: ActionRemove, SessionID: "ws/1"},
		{Kind: ActionSpawnUpTo, Count: 2},
	}, actions)
}

func TestDoneTaskTriggersRequestExit(t *testing.T) {
	w := world([]SessionSnapshot{snapshot("ws/1", PhaseRunning, taskWithStatus("done"))}, 2)
	actions := Tick(w)
	require.Contains(t, actions, Action{Kind: ActionRequestExit, SessionID: "ws/1"})
}

func TestHealthySessionNoAction(t *testing.T) {
	w := world([]SessionSnapshot{snapshot("ws/1", PhaseRunning, activeTask("ws/1"))}, 2)
	actions := Tick(w)
	require.Equal(t, []Action{{Kind: ActionSpawnUpTo, Count: 1}}, actions)
}

func TestStoppingWithinTimeoutNoForceKill(t *testing.T) {
	s := snapshot("ws/1", PhaseStopping, activeTask("ws/1"))
	s.StoppingSince = time.Now()
	actions := Tick(world([]SessionSnapshot{s}, 2))
	require.Equal(t, []Action{{Kind: ActionSpawnUpTo, Count: 2}}, actions)
}

func TestStoppingPastTimeoutForceKilled(t *testing.T) {
	s := snapshot("ws/1", PhaseStopping, activeTask("ws/1"))
	s.StoppingSince = time.Now().Add(-10 * time.Second)
	actions := Tick(world([]SessionSnapshot{s}, 2))
	require.Contains(t, actions, Action{Kind: ActionForceKill, SessionID: "ws/1"})
	require.Contains(t, actions, Action{Kind: ActionRemove, SessionID: "ws/1", Forced: true})
}

func TestStoppingSessionsDontCountTowardConcurrency(t *testing.T) {
	stopping := snapshot("ws/2", PhaseStopping, activeTask("ws/2"))
	stopping.StoppingSince = time.Now()
	running := snapshot("ws/1", PhaseRunning, activeTask("ws/1"))
	actions := Tick(world([]SessionSnapshot{running, stopping}, 2))
	require.Contains(t, actions, Action{Kind: ActionSpawnUpTo, Count: 1})
}

func TestSpawnAfterForceKill(t *testing.T) {
	s := snapshot("ws/1", PhaseStopping, activeTask("ws/1"))
	s.StoppingSince = time.Now().Add(-10 * time.Second)
	actions := Tick(world([]SessionSnapshot{s}, 1))
	require.Contains(t, actions, Action{Kind: ActionForceKill, SessionID: "ws/1"})
	require.Contains(t, actions, Action{Kind: ActionSpawnUpTo, Count: 1})
}

func TestAtCapacityNoSpawn(t *testing.T) {
	w := world([]SessionSnapshot{
		snapshot("ws/1", PhaseRunning, activeTask("ws/1")),
		snapshot("ws/2", PhaseRunning, activeTask("ws/2")),
	}, 2)
	require.Empty(t, Tick(w))
}

func TestDeletedTaskTriggersRequestExit(t *testing.T) {
	w := world([]SessionSnapshot{snapshot("ws/1", PhaseRunning, nil)}, 2)
	require.Contains(t, Tick(w), Action{Kind: ActionRequestExit, SessionID: "ws/1"})
}

func TestReassignedTaskTriggersRequestExit(t *testing.T) {
	w := world([]SessionSnapshot{snapshot("ws/1", PhaseRunning, activeTask("ws/2"))}, 2)
	require.Contains(t, Tick(w), Action{Kind: ActionRequestExit, SessionID: "ws/1"})
}

func TestManualModeNoAutoSpawn(t *testing.T) {
	require.Empty(t, Tick(world(nil, 0)))
}

func TestManualModeStillReapsExited(t *testing.T) {
	w := world([]SessionSnapshot{snapshot("ws/1", PhaseExited, activeTask("ws/1"))}, 0)
	require.Equal(t, []Action{{Kind: ActionRemove, SessionID: "ws/1"}}, Tick(w))
}

func TestManualModeStillReapsDone(t *testing.T) {
	w := world([]SessionSnapshot{snapshot("ws/1", PhaseRunning, taskWithStatus("done"))}, 0)
	actions := Tick(w)
	require.Contains(t, actions, Action{Kind: ActionRequestExit, SessionID: "ws/1"})
	for _, a := range actions {
		require.NotEqual(t, ActionSpawnUpTo, a.Kind)
	}
}

func TestPausedTaskTriggersRequestExit(t *testing.T) {
	w := world([]SessionSnapshot{snapshot("ws/1", PhaseRunning, taskWithStatus("paused"))}, 2)
	require.Contains(t, Tick(w), Action{Kind: ActionRequestExit, SessionID: "ws/1"})
}

func TestOpenTaskTriggersRequestExit(t *testing.T) {
	w := world([]SessionSnapshot{snapshot("ws/1", PhaseRunning, taskWithStatus("open"))}, 2)
	require.Contains(t, Tick(w), Action{Kind: ActionRequestExit, SessionID: "ws/1"})
}
