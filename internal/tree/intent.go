package tree

// IntentKind is the action a tree-view keypress resolves to; the
// orchestrator interprets and carries these out against the store and
// live sessions.
type IntentKind int

const (
	IntentNone IntentKind = iota
	IntentSpawn
	IntentRestart
	IntentPause
	IntentDone
	IntentForceUnassign
	IntentZoomIn
)

// Intent names an action and the row it targets.
type Intent struct {
	Kind IntentKind
	Name string
}

// Cursor tracks the tree view's current selection and collapsed set
// across renders.
type Cursor struct {
	Collapsed Collapsed
	Selected  int
}

// NewCursor returns a cursor with nothing collapsed and the first row
// selected.
func NewCursor() *Cursor {
	return &Cursor{Collapsed: make(Collapsed)}
}

// MoveDown/MoveUp clamp the selection to the row count.
func (c *Cursor) MoveDown(rowCount int) {
	if rowCount == 0 {
		c.Selected = 0
		return
	}
	if c.Selected < rowCount-1 {
		c.Selected++
	}
}

func (c *Cursor) MoveUp() {
	if c.Selected > 0 {
		c.Selected--
	}
}

// ToggleSelected collapses/expands the currently selected row.
func (c *Cursor) ToggleSelected(rows []Row) {
	if c.Selected < 0 || c.Selected >= len(rows) {
		return
	}
	row := rows[c.Selected]
	if row.HasChildren {
		c.Collapsed.ToggleCollapse(row.Name)
	}
}

// Resolve maps a keypress byte to an Intent against the currently
// selected row. Keys follow spec.md §4.I's navigation/intent contract:
// s=spawn, r=restart, p=pause, d=done, u=force-unassign, z=zoom-in.
func (c *Cursor) Resolve(rows []Row, key byte) Intent {
	if c.Selected < 0 || c.Selected >= len(rows) {
		return Intent{Kind: IntentNone}
	}
	name := rows[c.Selected].Name
	switch key {
	case 's':
		return Intent{Kind: IntentSpawn, Name: name}
	case 'r':
		return Intent{Kind: IntentRestart, Name: name}
	case 'p':
		return Intent{Kind: IntentPause, Name: name}
	case 'd':
		return Intent{Kind: IntentDone, Name: name}
	case 'u':
		return Intent{Kind: IntentForceUnassign, Name: name}
	case 'z':
		return Intent{Kind: IntentZoomIn, Name: name}
	default:
		return Intent{Kind: IntentNone}
	}
}
