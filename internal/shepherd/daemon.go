package shepherd

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/kbtz-dev/kbtz/internal/ptysession"
)

// Daemon owns one child session across front-end connect/disconnect
// cycles. It listens on a Unix domain socket, accepts at most one
// attached client at a time, and forwards SIGTERM to the child so
// `kill <shepherd-pid>` cleanly tears down the session it shepherds.
//
// Grounded on spec.md §4.D's event-loop/handshake contract; the overall
// attach/detach daemon shape follows other_examples' grove daemon
// (Instance.Attach), adapted to the length-prefixed framing of
// protocol.go instead of grove's own framing.
type Daemon struct {
	SocketPath string
	PIDFile    string
	Session    *ptysession.Session

	mu       sync.Mutex
	listener net.Listener
	conn     net.Conn
}

// NewDaemon wires a daemon around an already-constructed session.
func NewDaemon(socketPath, pidFile string, session *ptysession.Session) *Daemon {
	return &Daemon{SocketPath: socketPath, PIDFile: pidFile, Session: session}
}

// Run acquires an exclusive lock guaranteeing at most one shepherd per
// task, listens on SocketPath, installs a SIGTERM handler that forwards
// to the child and shuts the daemon down, and serves client connections
// one at a time until the session exits or SIGTERM arrives.
func (d *Daemon) Run() error {
	fl := flock.New(d.PIDFile + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return fmt.Errorf("shepherd already running for this task (lock held on %s)", fl.Path())
	}
	defer fl.Unlock()

	_ = os.Remove(d.SocketPath)
	ln, err := net.Listen("unix", d.SocketPath)
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.SocketPath, err)
	}
	d.listener = ln
	defer ln.Close()
	defer os.Remove(d.SocketPath)

	if err := WritePIDFile(d.PIDFile, os.Getpid()); err != nil {
		return fmt.Errorf("write pidfile: %w", err)
	}
	defer RemovePIDFile(d.PIDFile)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("shepherd: SIGTERM received, forwarding to session %s", d.Session.TaskID)
		d.Session.RequestExit()
	}()

	connCh := make(chan net.Conn)
	go d.acceptLoop(connCh)
	exited := exitedSignal(d.Session)

	for {
		select {
		case conn, ok := <-connCh:
			if !ok {
				return nil
			}
			d.serveClient(conn)
		case <-exited:
			return nil
		}
	}
}

// acceptLoop hands each accepted connection to Run. A new connection
// preempts whichever client is currently attached: the old conn is
// closed here, which errors serveClient's blocking read so Run comes
// back around to pick the new client off the channel.
func (d *Daemon) acceptLoop(out chan<- net.Conn) {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			close(out)
			return
		}
		d.mu.Lock()
		if d.conn != nil {
			d.conn.Close()
		}
		d.mu.Unlock()
		out <- conn
	}
}

// exitedSignal adapts Session.Wait to a channel usable in a select,
// without blocking Run's accept loop.
func exitedSignal(s *ptysession.Session) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		s.Wait()
		close(ch)
	}()
	return ch
}

// serveClient runs the size-first handshake and then pumps frames until
// the client disconnects (or is preempted by a newer one) or the session
// exits. At most one client is attached at a time.
func (d *Daemon) serveClient(conn net.Conn) {
	defer conn.Close()

	msg, ok, err := ReadMessage(conn)
	if err != nil {
		log.Printf("shepherd: handshake read error: %v", err)
		return
	}
	if !ok {
		return
	}
	if msg.Type != TypeResize {
		log.Printf("shepherd: handshake failed: first frame was type 0x%02x, want Resize", msg.Type)
		return
	}

	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		if d.conn == conn {
			d.conn = nil
		}
		d.mu.Unlock()
	}()

	d.Session.Resize(int(msg.Rows), int(msg.Cols))

	restore := d.Session.Passthrough().Screen().BuildRestoreSequence()
	if err := WriteMessage(conn, InitialState(restore)); err != nil {
		return
	}

	d.Session.Attach(&frameWriter{conn: conn})
	defer d.Session.Detach()

	for {
		msg, ok, err := ReadMessage(conn)
		if err != nil {
			log.Printf("shepherd: client frame error: %v", err)
			return
		}
		if !ok {
			return
		}
		switch msg.Type {
		case TypePtyInput:
			d.Session.WriteInput(msg.Data)
		case TypeResize:
			d.Session.Resize(int(msg.Rows), int(msg.Cols))
		case TypeShutdown:
			log.Printf("shepherd: shutdown requested, forwarding SIGTERM to session %s", d.Session.TaskID)
			d.Session.RequestExit()
			return
		default:
			log.Printf("shepherd: unexpected client frame type 0x%02x", msg.Type)
		}
	}
}

// frameWriter adapts a net.Conn to the plain io.Writer the passthrough
// tees output to, wrapping each write as a PtyOutput frame.
type frameWriter struct {
	conn net.Conn
}

func (f *frameWriter) Write(p []byte) (int, error) {
	if err := WriteMessage(f.conn, PtyOutput(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// DialTimeout connects to a running shepherd's socket, for front-end
// reconnects.
func DialTimeout(socketPath string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", socketPath, timeout)
}

var _ io.Writer = (*frameWriter)(nil)
