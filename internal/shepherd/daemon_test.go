package shepherd

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kbtz-dev/kbtz/internal/ptysession"
)

// startTestDaemon runs a daemon over a real Unix socket with a /bin/sh
// child that prints 20 numbered lines and then lingers, mirroring the
// reconnect-and-restore scenario a front-end restart exercises.
func startTestDaemon(t *testing.T) (socketPath string, sess *ptysession.Session) {
	t.Helper()
	dir := t.TempDir()
	socketPath = filepath.Join(dir, "s.sock")
	pidFile := filepath.Join(dir, "s.pid")

	sess = ptysession.New("restore-test", 6, 40)
	script := "i=0; while [ $i -lt 20 ]; do echo line $i; i=$((i+1)); done; sleep 5"
	require.NoError(t, sess.Start("/bin/sh", []string{"-c", script}, "", []string{"TERM=xterm-256color"}))
	t.Cleanup(func() { _ = sess.ForceKill() })

	d := NewDaemon(socketPath, pidFile, sess)
	go func() { _ = d.Run() }()

	// Wait for both the listener and the child's output to settle so the
	// restore sequence is deterministic.
	require.Eventually(t, func() bool {
		return strings.Contains(string(sess.Passthrough().RawBuffer()), "line 19")
	}, 3*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		c, err := DialTimeout(socketPath, 100*time.Millisecond)
		if err != nil {
			return false
		}
		c.Close()
		return true
	}, 3*time.Second, 10*time.Millisecond)
	return socketPath, sess
}

func TestHandshakeRestoresScrollbackAndScreen(t *testing.T) {
	socketPath, _ := startTestDaemon(t)

	client, restore, err := Connect(socketPath, 6, 40)
	require.NoError(t, err)
	defer client.Detach()

	text := string(restore)
	require.Contains(t, text, "line 0", "scrollback rows come first")
	require.Contains(t, text, "line 19", "the visible screen is repainted")
}

func TestReconnectPreemptsAttachedClient(t *testing.T) {
	socketPath, _ := startTestDaemon(t)

	first, _, err := Connect(socketPath, 6, 40)
	require.NoError(t, err)

	second, restore, err := Connect(socketPath, 6, 40)
	require.NoError(t, err)
	defer second.Detach()
	require.Contains(t, string(restore), "line 19")

	// The first client's connection is closed by the daemon; its next
	// read observes EOF (ok == false) or a connection error.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, ok, err := first.Recv()
			if err != nil || !ok {
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("first client was not disconnected by the reconnect")
	}
}

func TestHandshakeRejectsNonResizeFirstFrame(t *testing.T) {
	socketPath, _ := startTestDaemon(t)

	conn, err := DialTimeout(socketPath, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, WriteMessage(conn, PtyInput([]byte("x"))))

	// The daemon drops the connection without sending InitialState.
	_, ok, err := ReadMessage(conn)
	if err == nil {
		require.False(t, ok)
	}
}
