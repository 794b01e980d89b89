package notify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchFileReceivesWriteEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.db")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	w, err := Watch(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("xy"), 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.WaitForChange(ctx))
}

func TestWatchFileReceivesWALSiblingEvent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.db")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	w, err := Watch(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path+"-wal", []byte("w"), 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.WaitForChange(ctx))
}

func TestWatchFileIgnoresUnrelatedSibling(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.db")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	w, err := Watch(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("y"), 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, w.WaitForChange(ctx), context.DeadlineExceeded)
}

func TestDrainEventsNonBlockingWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	w, err := Watch(dir)
	require.NoError(t, err)
	defer w.Close()

	require.False(t, w.DrainEvents())
}

func TestCoalescesBurstIntoSinglePending(t *testing.T) {
	w := &Watcher{events: make(chan struct{}, 1), stopCh: make(chan struct{})}
	w.notify()
	w.notify()
	w.notify()
	require.True(t, w.DrainEvents())
	require.False(t, w.DrainEvents())
}
