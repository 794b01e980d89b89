// Package ptysession owns one local PTY-backed child process: starting
// it, tee-ing its output through a vte.Passthrough, accepting input and
// resize requests, and tracking its liveness for the lifecycle engine.
//
// Grounded on the PTY-allocation and reader-goroutine idiom of
// other_examples' grove daemon instance (pty.Start, a dedicated reader
// goroutine draining the master into a buffer, process-group kill on
// stop) and on spec.md §4.C's session-object contract.
package ptysession

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/kbtz-dev/kbtz/internal/vte"
)

// ErrAlreadyStarted is returned by Start on a session that has already
// been started.
var ErrAlreadyStarted = errors.New("ptysession: already started")

// Session is one local child process attached to a PTY, with a
// vte.Passthrough recording and replaying its screen.
type Session struct {
	TaskID string
	Cols   int
	Rows   int

	mu      sync.Mutex
	cmd     *exec.Cmd
	ptmx    *os.File
	pass    *vte.Passthrough
	started bool
	exited  bool
	exitErr error

	stopping   bool
	stopSince  time.Time
	exitedChan chan struct{}

	tee teeTarget
}

// New creates a session for taskID that will run command (with args) at
// the given terminal geometry once Start is called.
func New(taskID string, rows, cols int) *Session {
	return &Session{
		TaskID:     taskID,
		Rows:       rows,
		Cols:       cols,
		pass:       vte.NewPassthrough(rows, cols),
		exitedChan: make(chan struct{}),
	}
}

// Start launches command in a new PTY, in its own session (pty.Start
// sets Setsid), and begins the background reader goroutine that feeds
// the passthrough and, when active, tees to stdout.
func (s *Session) Start(command string, args []string, dir string, env []string) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	cmd := exec.Command(command, args...)
	cmd.Dir = dir
	cmd.Env = env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(s.Rows), Cols: uint16(s.Cols)})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("start pty: %w", err)
	}
	s.cmd = cmd
	s.ptmx = ptmx
	s.started = true
	s.mu.Unlock()

	go s.readLoop()
	return nil
}

// readLoop drains the PTY master into the passthrough until the process
// exits or the master closes.
func (s *Session) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.pass.Process(s.stdoutWriter(), append([]byte(nil), buf[:n]...))
		}
		if err != nil {
			break
		}
	}

	waitErr := s.cmd.Wait()

	s.mu.Lock()
	s.exited = true
	s.exitErr = waitErr
	s.ptmx.Close()
	s.mu.Unlock()
	close(s.exitedChan)
}

// stdoutWriter returns the io.Writer to tee to while the session is
// attached to a front-end; Attach sets it (the shepherd daemon calls
// Attach for each client).
func (s *Session) stdoutWriter() *teeTarget {
	return &s.tee
}

// WriteInput forwards client keystrokes to the child.
func (s *Session) WriteInput(data []byte) error {
	s.mu.Lock()
	ptmx := s.ptmx
	s.mu.Unlock()
	if ptmx == nil {
		return fmt.Errorf("ptysession: not started")
	}
	_, err := ptmx.Write(data)
	return err
}

// Resize changes the PTY's terminal geometry and the passthrough's
// matching grid geometry.
func (s *Session) Resize(rows, cols int) error {
	s.mu.Lock()
	ptmx := s.ptmx
	s.Rows, s.Cols = rows, cols
	s.mu.Unlock()
	s.pass.SetSize(rows, cols)
	if ptmx == nil {
		return nil
	}
	return pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// IsAlive reports whether the child process has not yet exited.
func (s *Session) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.exited
}

// MarkStopping records the start of a graceful shutdown window, used by
// the lifecycle engine's GRACEFUL_TIMEOUT reap decision. Idempotent:
// the window is measured from the first call, so re-requests within it
// never reset the clock.
func (s *Session) MarkStopping(since time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return
	}
	s.stopping = true
	s.stopSince = since
}

// StoppingSince returns when MarkStopping was called and whether it ever
// was.
func (s *Session) StoppingSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopSince, s.stopping
}

// RequestExit sends SIGTERM to the child's process group.
func (s *Session) RequestExit() error {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}

// ForceKill sends SIGKILL to the child's process group.
func (s *Session) ForceKill() error {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

// ProcessID returns the child's PID, or 0 if not started.
func (s *Session) ProcessID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Passthrough exposes the underlying VTE passthrough for attach/detach
// and restore-sequence building.
func (s *Session) Passthrough() *vte.Passthrough {
	return s.pass
}

// Wait blocks until the child process has exited.
func (s *Session) Wait() error {
	<-s.exitedChan
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitErr
}
