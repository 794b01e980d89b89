package backend

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkerArgsIncludesProtocolAndTask(t *testing.T) {
	c := Claude{}
	args := c.WorkerArgs("you are in kbtz...", "fix-login-bug")
	require.Equal(t, []string{"--append-system-prompt", "you are in kbtz...", "fix-login-bug"}, args)
}

func TestToplevelArgsOmitsTask(t *testing.T) {
	c := Claude{}
	args := c.ToplevelArgs("you are in kbtz...")
	require.Equal(t, []string{"--append-system-prompt", "you are in kbtz..."}, args)
}

func TestPrefixAndExtraAreOrderedAroundCoreFlags(t *testing.T) {
	c := Claude{Prefix: []string{"--dangerously-skip-permissions"}, Extra: []string{"--model", "sonnet"}}
	args := c.WorkerArgs("proto", "task-1")
	require.Equal(t, []string{
		"--dangerously-skip-permissions",
		"--append-system-prompt", "proto", "task-1",
		"--model", "sonnet",
	}, args)
}
