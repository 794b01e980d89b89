package vte

import (
	"bytes"
	"fmt"
)

// StateFormatted renders the active grid as a byte stream that, written
// to a terminal, reproduces the visible screen: text, SGR attributes,
// cursor position, and the input-mode flags the VTE is tracking. It does
// not touch scrollback.
func (s *Screen) StateFormatted() []byte {
	var buf bytes.Buffer
	g := s.active()

	buf.WriteString("\x1b[H")
	var cur SGRAttrs
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			cell := g.Cells[r][c]
			if cell.Attrs != cur {
				writeSGR(&buf, cell.Attrs)
				cur = cell.Attrs
			}
			if cell.Ch == 0 {
				buf.WriteByte(' ')
			} else {
				buf.WriteRune(cell.Ch)
			}
		}
		if r != g.Rows-1 {
			buf.WriteString("\r\n")
		}
	}
	writeSGR(&buf, SGRAttrs{})

	fmt.Fprintf(&buf, "\x1b[%d;%dH", g.CurRow+1, g.CurCol+1)
	writeModes(&buf, s)
	return buf.Bytes()
}

func writeSGR(buf *bytes.Buffer, a SGRAttrs) {
	if a.isDefault() {
		buf.WriteString("\x1b[0m")
		return
	}
	buf.WriteString("\x1b[0")
	if a.Bold {
		buf.WriteString(";1")
	}
	if a.Dim {
		buf.WriteString(";2")
	}
	if a.Italic {
		buf.WriteString(";3")
	}
	if a.Underline {
		buf.WriteString(";4")
	}
	if a.Blink {
		buf.WriteString(";5")
	}
	if a.Reverse {
		buf.WriteString(";7")
	}
	if a.Hidden {
		buf.WriteString(";8")
	}
	if a.Strike {
		buf.WriteString(";9")
	}
	if a.HasFg {
		switch {
		case a.Fg >= 0 && a.Fg < 8:
			fmt.Fprintf(buf, ";%d", 30+a.Fg)
		case a.Fg >= 8 && a.Fg < 16:
			fmt.Fprintf(buf, ";%d", 90+a.Fg-8)
		case a.Fg >= 256:
			fmt.Fprintf(buf, ";38;5;%d", a.Fg-256)
		}
	}
	if a.HasBg {
		switch {
		case a.Bg >= 0 && a.Bg < 8:
			fmt.Fprintf(buf, ";%d", 40+a.Bg)
		case a.Bg >= 8 && a.Bg < 16:
			fmt.Fprintf(buf, ";%d", 100+a.Bg-8)
		case a.Bg >= 256:
			fmt.Fprintf(buf, ";48;5;%d", a.Bg-256)
		}
	}
	buf.WriteByte('m')
}

func writeModes(buf *bytes.Buffer, s *Screen) {
	if s.CursorVisible {
		buf.WriteString("\x1b[?25h")
	} else {
		buf.WriteString("\x1b[?25l")
	}
	if s.MouseTracking {
		buf.WriteString("\x1b[?1000h\x1b[?1002h\x1b[?1006h")
	} else {
		buf.WriteString("\x1b[?1000l\x1b[?1002l\x1b[?1003l\x1b[?1006l")
	}
	if s.BracketedPaste {
		buf.WriteString("\x1b[?2004h")
	} else {
		buf.WriteString("\x1b[?2004l")
	}
}

// resetInputModesTail is the canonical teardown sequence written when a
// passthrough session stops: disable mouse tracking variants and
// bracketed paste, restore normal cursor/keypad modes, show the cursor.
// Grounded on spec.md §4.E's stop() contract.
func resetInputModesTail() []byte {
	return []byte("\x1b[?1000l\x1b[?1002l\x1b[?1003l\x1b[?1006l\x1b[?2004l\x1b[?1l\x1b>\x1b[?25h")
}

// BuildRestoreSequence produces the synthetic byte stream the shepherd
// sends as InitialState right after a client's Resize handshake: oldest-
// first scrollback rows (each followed by CRLF), the main screen's
// StateFormatted, and — if the child is on the alt screen — a
// non-clearing DECSET 47 switch followed by the alt screen's
// StateFormatted. Building it at the client's geometry (the caller must
// have already called SetSize) means reflow happens server-side against
// real history instead of embedding outdated widths in a byte replay.
func (s *Screen) BuildRestoreSequence() []byte {
	var buf bytes.Buffer
	for _, row := range s.Scrollback {
		writeRowText(&buf, row)
		buf.WriteString("\r\n")
	}

	wasAlt := s.UseAlt
	s.UseAlt = false
	buf.Write(s.StateFormatted())

	if wasAlt {
		buf.WriteString("\x1b[?47h")
		s.UseAlt = true
		buf.Write(s.StateFormatted())
	}
	return buf.Bytes()
}

func writeRowText(buf *bytes.Buffer, row []Cell) {
	var cur SGRAttrs
	for _, cell := range row {
		if cell.Attrs != cur {
			writeSGR(buf, cell.Attrs)
			cur = cell.Attrs
		}
		if cell.Ch == 0 {
			buf.WriteByte(' ')
		} else {
			buf.WriteRune(cell.Ch)
		}
	}
	if !cur.isDefault() {
		writeSGR(buf, SGRAttrs{})
	}
}
