package orchestrator

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/kbtz-dev/kbtz/internal/lifecycle"
	"github.com/kbtz-dev/kbtz/internal/tree"
)

var (
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	statusOKStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	statusErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
)

// View renders the current mode: Tree, Zoomed, or TopLevel. Grounded on
// internal/tui/convoy.Model's View, which likewise branches on a mode
// field read under the model's mutex before formatting.
func (m *Model) View() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch m.mode {
	case ModeZoomed:
		return m.viewZoomed()
	case ModeTopLevel:
		return m.viewToplevel()
	default:
		return m.viewTree()
	}
}

func (m *Model) viewTree() string {
	var b strings.Builder
	b.WriteString("kbtz — task tree\n\n")
	for i, row := range m.rows {
		line := renderRow(row, m.sessionStatusSuffix(row.Assignee))
		if i == m.cursor.Selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString(dimStyle.Render("  (no tasks)\n"))
	}
	b.WriteString("\n")
	b.WriteString(m.viewStatusLine())
	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.help.View(helpKeyMap{m.keys}))
	}
	return b.String()
}

// sessionStatusSuffix renders an assignee's self-reported agent status
// (from its status file) for display after the assignee id. Caller must
// hold m.mu.
func (m *Model) sessionStatusSuffix(assignee string) string {
	if assignee == "" {
		return ""
	}
	st, ok := m.statuses[assignee]
	if !ok {
		return ""
	}
	return " (" + st.String() + ")"
}

func renderRow(row tree.Row, statusSuffix string) string {
	indent := strings.Repeat("  ", row.Depth)
	branch := ""
	if row.Depth > 0 {
		if row.IsLastAtEachDepth[len(row.IsLastAtEachDepth)-1] {
			branch = "└─ "
		} else {
			branch = "├─ "
		}
		indent = strings.Repeat("  ", row.Depth-1)
	}
	assignee := ""
	if row.Assignee != "" {
		assignee = " @" + row.Assignee + statusSuffix
	}
	blocked := ""
	if len(row.BlockedBy) > 0 {
		blocked = " (blocked by " + strings.Join(row.BlockedBy, ", ") + ")"
	}
	return fmt.Sprintf("%s%s[%s] %s%s%s%s", indent, branch, row.Status.Icon(), row.Name, assignee, blocked, descSuffix(row.Description))
}

func descSuffix(desc string) string {
	if desc == "" {
		return ""
	}
	return "  " + dimStyle.Render(desc)
}

func (m *Model) viewStatusLine() string {
	if m.err != nil {
		return statusErrStyle.Render(m.err.Error())
	}
	if m.status != "" {
		return statusOKStyle.Render(m.status)
	}
	return dimStyle.Render("ctrl+c quit · ? help · z zoom-in · s spawn · d done · p pause · u unassign")
}

func (m *Model) viewZoomed() string {
	ms := m.sessionForTask(m.zoomedName)
	if ms == nil {
		return fmt.Sprintf("no live session for %q (ctrl+o to return)\n", m.zoomedName)
	}
	screen := ms.Session.Passthrough().Screen().StateFormatted()
	bar := dimStyle.Render(fmt.Sprintf("[%s · %s%s] ctrl+o: back to tree", ms.SessionID, m.zoomedName, m.sessionStatusSuffix(ms.SessionID)))
	return string(screen) + "\r\n" + bar
}

func (m *Model) viewToplevel() string {
	if m.toplevel == nil {
		return "toplevel session not started\n"
	}
	screen := m.toplevel.Passthrough().Screen().StateFormatted()
	bar := dimStyle.Render("[toplevel] ctrl+o: back to tree")
	return string(screen) + "\r\n" + bar
}

// sessionForTask finds the live session bound to the given task name, if
// any. Session IDs ("ws/N") aren't task names, so this scans the small
// managed-session set the executor owns.
func (m *Model) sessionForTask(taskName string) *lifecycle.ManagedSession {
	for _, ms := range m.executor.Sessions {
		if ms.TaskID == taskName {
			return ms
		}
	}
	return nil
}

// helpKeyMap adapts KeyMap to bubbles/help's key.Map interface.
type helpKeyMap struct{ k KeyMap }

func (h helpKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{h.k.Up, h.k.Down, h.k.Toggle, h.k.ZoomIn, h.k.Spawn, h.k.Restart, h.k.Pause, h.k.Done, h.k.ForceUnassign, h.k.Quit}
}

func (h helpKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{h.ShortHelp()}
}
