package orchestrator

import "github.com/charmbracelet/bubbles/key"

// KeyMap binds the tree view's navigation and intent keys.
// Grounded on internal/tui/convoy.Model's key.Binding-based KeyMap idiom.
type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	Toggle       key.Binding
	ZoomIn       key.Binding
	ZoomOut      key.Binding
	Spawn        key.Binding
	Restart      key.Binding
	Pause        key.Binding
	Done         key.Binding
	ForceUnassign key.Binding
	Toplevel     key.Binding
	Help         key.Binding
	Quit         key.Binding
}

// DefaultKeyMap returns the tree view's standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:           key.NewBinding(key.WithKeys("up", "k")),
		Down:         key.NewBinding(key.WithKeys("down", "j")),
		Top:          key.NewBinding(key.WithKeys("g")),
		Bottom:       key.NewBinding(key.WithKeys("G")),
		Toggle:       key.NewBinding(key.WithKeys(" ", "enter")),
		ZoomIn:       key.NewBinding(key.WithKeys("z")),
		ZoomOut:      key.NewBinding(key.WithKeys("esc")),
		Spawn:        key.NewBinding(key.WithKeys("s")),
		Restart:      key.NewBinding(key.WithKeys("r")),
		Pause:        key.NewBinding(key.WithKeys("p")),
		Done:         key.NewBinding(key.WithKeys("d")),
		ForceUnassign: key.NewBinding(key.WithKeys("u")),
		Toplevel:     key.NewBinding(key.WithKeys("T")),
		Help:         key.NewBinding(key.WithKeys("?")),
		Quit:         key.NewBinding(key.WithKeys("ctrl+c", "q")),
	}
}
