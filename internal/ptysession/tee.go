package ptysession

import (
	"io"
	"sync"
)

// teeTarget is a swappable io.Writer: nil while no front-end is
// attached (writes are silently dropped), set to the attached
// connection's writer otherwise. Swapping happens under its own mutex
// so Attach/Detach never race with the PTY reader goroutine's writes.
type teeTarget struct {
	mu sync.Mutex
	w  io.Writer
}

func (t *teeTarget) Write(p []byte) (int, error) {
	t.mu.Lock()
	w := t.w
	t.mu.Unlock()
	if w == nil {
		return len(p), nil
	}
	return w.Write(p)
}

func (t *teeTarget) set(w io.Writer) {
	t.mu.Lock()
	t.w = w
	t.mu.Unlock()
}

// Attach starts tee-ing live output to w and performs the replay/repaint
// handshake via the passthrough's Start.
func (s *Session) Attach(w io.Writer) {
	s.tee.set(w)
	s.pass.Start(w)
}

// Detach stops tee-ing output and writes the passthrough's teardown
// sequence to the (still-attached) writer before clearing it.
func (s *Session) Detach() {
	s.pass.Stop(&s.tee)
	s.tee.set(nil)
}
