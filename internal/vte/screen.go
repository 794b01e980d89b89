// Package vte is an original, stdlib-only virtual-terminal emulator:
// a parser that turns raw child-process output into a screen grid plus
// scrollback, with a query-stripping replay filter and a restore-sequence
// builder for shepherd reconnects. No terminal-emulator parsing library
// exists anywhere in the reference corpus this module was grounded on, so
// this piece is original code rather than an adaptation of a teacher file.
package vte

const defaultScrollbackCap = 10000

// Cell is one screen position: a rune plus the SGR attributes it was
// written with.
type Cell struct {
	Ch    rune
	Attrs SGRAttrs
}

func blankCell() Cell { return Cell{Ch: ' '} }

// Grid is one rectangular buffer of cells plus its own cursor. The VTE
// holds one physical geometry shared by main and alt grids, per spec.md
// §4.C ("both alternate and main grids must be resized since the emulator
// holds one physical geometry").
type Grid struct {
	Rows    int
	Cols    int
	Cells   [][]Cell
	CurRow  int
	CurCol  int
	Attrs   SGRAttrs
}

func newGrid(rows, cols int) *Grid {
	g := &Grid{Rows: rows, Cols: cols}
	g.Cells = make([][]Cell, rows)
	for i := range g.Cells {
		g.Cells[i] = newBlankRow(cols)
	}
	return g
}

func newBlankRow(cols int) []Cell {
	row := make([]Cell, cols)
	for i := range row {
		row[i] = blankCell()
	}
	return row
}

func (g *Grid) clampCursor() {
	if g.CurRow < 0 {
		g.CurRow = 0
	}
	if g.CurRow >= g.Rows {
		g.CurRow = g.Rows - 1
	}
	if g.CurCol < 0 {
		g.CurCol = 0
	}
	if g.CurCol >= g.Cols {
		g.CurCol = g.Cols - 1
	}
}

// Screen holds the main grid, the alternate grid, a flag for which is
// live, and the scrollback ring fed by lines pushed off the top of the
// main grid.
type Screen struct {
	Main    *Grid
	Alt     *Grid
	UseAlt  bool
	CursorVisible bool

	Scrollback    [][]Cell
	ScrollbackCap int

	MouseTracking  bool
	BracketedPaste bool
}

// NewScreen creates a screen at (rows, cols) with the default scrollback
// capacity.
func NewScreen(rows, cols int) *Screen {
	return &Screen{
		Main:          newGrid(rows, cols),
		Alt:           newGrid(rows, cols),
		CursorVisible: true,
		ScrollbackCap: defaultScrollbackCap,
	}
}

func (s *Screen) active() *Grid {
	if s.UseAlt {
		return s.Alt
	}
	return s.Main
}

// SetSize resizes both grids, per spec.md §4.C/§4.E: the emulator holds
// one physical geometry, so both alternate and main must resize together.
// Content is preserved top-left-anchored; shrinking truncates.
func (s *Screen) SetSize(rows, cols int) {
	s.Main = resizeGrid(s.Main, rows, cols)
	s.Alt = resizeGrid(s.Alt, rows, cols)
}

func resizeGrid(old *Grid, rows, cols int) *Grid {
	g := newGrid(rows, cols)
	for r := 0; r < rows && r < old.Rows; r++ {
		for c := 0; c < cols && c < old.Cols; c++ {
			g.Cells[r][c] = old.Cells[r][c]
		}
	}
	g.Attrs = old.Attrs
	g.CurRow, g.CurCol = old.CurRow, old.CurCol
	g.clampCursor()
	return g
}

// scrollMainUp pushes the top row of the main grid into scrollback and
// shifts the remaining rows up by one, per standard terminal scroll
// behavior on a linefeed at the bottom margin. Only the main grid feeds
// scrollback; the alt grid (full-screen apps) does not.
func (s *Screen) scrollMainUp() {
	g := s.Main
	pushed := g.Cells[0]
	s.Scrollback = append(s.Scrollback, pushed)
	if len(s.Scrollback) > s.ScrollbackCap {
		s.Scrollback = s.Scrollback[len(s.Scrollback)-s.ScrollbackCap:]
	}
	copy(g.Cells, g.Cells[1:])
	g.Cells[g.Rows-1] = newBlankRow(g.Cols)
}

func (s *Screen) writeRune(r rune) {
	g := s.active()
	if g.CurCol >= g.Cols {
		g.CurCol = 0
		s.lineFeed()
		g = s.active()
	}
	g.Cells[g.CurRow][g.CurCol] = Cell{Ch: r, Attrs: g.Attrs}
	g.CurCol++
}

func (s *Screen) lineFeed() {
	g := s.active()
	if g.CurRow == g.Rows-1 {
		if !s.UseAlt {
			s.scrollMainUp()
		} else {
			copy(g.Cells, g.Cells[1:])
			g.Cells[g.Rows-1] = newBlankRow(g.Cols)
		}
	} else {
		g.CurRow++
	}
}

func (s *Screen) carriageReturn() {
	s.active().CurCol = 0
}

func (s *Screen) backspace() {
	g := s.active()
	if g.CurCol > 0 {
		g.CurCol--
	}
}

func (s *Screen) tab() {
	g := s.active()
	next := (g.CurCol/8 + 1) * 8
	if next >= g.Cols {
		next = g.Cols - 1
	}
	g.CurCol = next
}

// eraseInDisplay implements CSI J: 0 = cursor to end, 1 = start to cursor,
// 2 (and 3) = whole screen.
func (s *Screen) eraseInDisplay(mode int) {
	g := s.active()
	switch mode {
	case 0:
		eraseRow(g, g.CurRow, g.CurCol, g.Cols)
		for r := g.CurRow + 1; r < g.Rows; r++ {
			g.Cells[r] = newBlankRow(g.Cols)
		}
	case 1:
		eraseRow(g, g.CurRow, 0, g.CurCol+1)
		for r := 0; r < g.CurRow; r++ {
			g.Cells[r] = newBlankRow(g.Cols)
		}
	default:
		for r := 0; r < g.Rows; r++ {
			g.Cells[r] = newBlankRow(g.Cols)
		}
	}
}

// eraseInLine implements CSI K with the same mode semantics as J, scoped
// to the cursor's row.
func (s *Screen) eraseInLine(mode int) {
	g := s.active()
	switch mode {
	case 0:
		eraseRow(g, g.CurRow, g.CurCol, g.Cols)
	case 1:
		eraseRow(g, g.CurRow, 0, g.CurCol+1)
	default:
		g.Cells[g.CurRow] = newBlankRow(g.Cols)
	}
}

func eraseRow(g *Grid, row, from, to int) {
	if from < 0 {
		from = 0
	}
	if to > g.Cols {
		to = g.Cols
	}
	for c := from; c < to; c++ {
		g.Cells[row][c] = blankCell()
	}
}

func (s *Screen) moveCursor(rows, cols int) {
	g := s.active()
	g.CurRow, g.CurCol = rows, cols
	g.clampCursor()
}

func (s *Screen) moveCursorRel(dRow, dCol int) {
	g := s.active()
	g.CurRow += dRow
	g.CurCol += dCol
	g.clampCursor()
}

// EnterAltScreen switches to the alternate grid without clearing it
// (DECSET 47 semantics per spec.md §4.E's restore-sequence builder note —
// "the variant that does not clear the alt grid").
func (s *Screen) EnterAltScreen() { s.UseAlt = true }

// ExitAltScreen switches back to the main grid.
func (s *Screen) ExitAltScreen() { s.UseAlt = false }
