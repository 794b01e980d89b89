package vte

import (
	"io"
	"sync"
)

// Passthrough is the per-session object from spec.md §4.E: a virtual
// terminal plus a bounded output buffer plus a live-tee flag, all guarded
// by one mutex so the reader thread (vte.Process) and the main loop
// (Start/Stop/SetSize) never interleave a partial write to stdout.
type Passthrough struct {
	mu     sync.Mutex
	screen *Screen
	parser *Parser
	out    outputBuffer
	active bool

	scrolling    bool
	scrollOffset int
}

// NewPassthrough creates a passthrough at (rows, cols).
func NewPassthrough(rows, cols int) *Passthrough {
	screen := NewScreen(rows, cols)
	return &Passthrough{
		screen: screen,
		parser: NewParser(screen),
	}
}

// Process feeds data to the VTE parser, appends it to the bounded output
// buffer (trimming if it exceeds cap), and — if active — tees it to
// stdout.
func (p *Passthrough) Process(stdout io.Writer, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parser.Feed(data)
	p.out.append(data)
	if p.active && stdout != nil {
		stdout.Write(data)
	}
}

// Start replays the output buffer through the query-stripping filter (to
// repopulate host terminal scrollback), repaints the visible screen via
// StateFormatted, and marks the passthrough active. Atomic with Process
// via the shared mutex.
func (p *Passthrough) Start(stdout io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	Replay(stdout, p.out.bytes())
	stdout.Write(p.screen.StateFormatted())
	p.active = true
}

// Stop writes the canonical reset-input-modes tail and marks the
// passthrough inactive.
func (p *Passthrough) Stop(stdout io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stdout != nil {
		stdout.Write(resetInputModesTail())
	}
	p.active = false
}

// SetSize resizes both the main and alt grids.
func (p *Passthrough) SetSize(rows, cols int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.screen.SetSize(rows, cols)
}

// RawBuffer returns a copy of the bounded raw output buffer, for the
// shepherd's local-replay and restore-sequence paths.
func (p *Passthrough) RawBuffer() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]byte, len(p.out.buf))
	copy(out, p.out.buf)
	return out
}

// Screen exposes the underlying screen for restore-sequence building.
func (p *Passthrough) Screen() *Screen {
	return p.screen
}

// EnterScrollMode begins scrollback navigation at the bottom (offset 0 =
// live screen).
func (p *Passthrough) EnterScrollMode() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolling = true
	p.scrollOffset = 0
}

// ExitScrollMode returns to live passthrough.
func (p *Passthrough) ExitScrollMode() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolling = false
	p.scrollOffset = 0
}

// ScrollbackAvailable reports how many scrollback rows exist.
func (p *Passthrough) ScrollbackAvailable() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.screen.Scrollback)
}

// HasMouseTracking reports whether the child has enabled a mouse-tracking
// mode, which the orchestrator uses to decide whether to forward raw
// mouse escape sequences instead of intercepting them for scroll.
func (p *Passthrough) HasMouseTracking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.screen.MouseTracking
}

// RenderScrollback renders scrollback rows visible at the given offset
// from the bottom (0 = most recent scrollback row), `rows` rows tall,
// each row rendered at width cols.
func (p *Passthrough) RenderScrollback(offset, rows, cols int) [][]Cell {
	p.mu.Lock()
	defer p.mu.Unlock()
	sb := p.screen.Scrollback
	n := len(sb)
	if n == 0 {
		return nil
	}
	end := n - offset
	if end > n {
		end = n
	}
	start := end - rows
	if start < 0 {
		start = 0
	}
	out := make([][]Cell, 0, rows)
	for i := start; i < end; i++ {
		row := sb[i]
		if len(row) < cols {
			padded := make([]Cell, cols)
			copy(padded, row)
			for j := len(row); j < cols; j++ {
				padded[j] = blankCell()
			}
			row = padded
		}
		out = append(out, row)
	}
	return out
}
