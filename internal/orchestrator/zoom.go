package orchestrator

import (
	tea "github.com/charmbracelet/bubbletea"
)

// resizeZoomed propagates a terminal resize to whichever session is
// currently zoomed in on (one row reserved for the status bar, per
// spec.md §4.C).
func (m *Model) resizeZoomed(width, height int) {
	rows := height - 1
	if rows < 1 {
		rows = 1
	}
	m.mu.RLock()
	mode := m.mode
	name := m.zoomedName
	m.mu.RUnlock()

	switch mode {
	case ModeZoomed:
		if ms := m.sessionForTask(name); ms != nil {
			_ = ms.Session.Resize(rows, width)
		}
	case ModeTopLevel:
		if m.toplevel != nil {
			_ = m.toplevel.Resize(rows, width)
		}
	}
}

// forwardKeyToSession writes the bytes a key press would produce on a
// real terminal to the zoomed session's PTY. The ratatui/ANSI rendering
// and key-binding tables are out of scope per spec.md §1; this is the
// minimal translation needed to make a zoomed session usable.
func (m *Model) forwardKeyToSession(taskName string, msg tea.KeyMsg) tea.Cmd {
	return func() tea.Msg {
		ms := m.sessionForTask(taskName)
		if ms == nil {
			return statusMsg{text: "no live session to forward input to", isError: true}
		}
		if err := ms.Session.WriteInput(keyToBytes(msg)); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		return nil
	}
}

// forwardKeyToToplevel is the TopLevel-mode analogue of
// forwardKeyToSession, writing to the standing toplevel session instead
// of a task-bound one.
func (m *Model) forwardKeyToToplevel(msg tea.KeyMsg) tea.Cmd {
	return func() tea.Msg {
		m.mu.RLock()
		tl := m.toplevel
		m.mu.RUnlock()
		if tl == nil {
			return statusMsg{text: "toplevel session not started", isError: true}
		}
		if err := tl.WriteInput(keyToBytes(msg)); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		return nil
	}
}
