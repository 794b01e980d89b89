package style

import "github.com/charmbracelet/lipgloss"

// Bold and Dim are the two text styles the CLI's table renderer and
// status output share; kept minimal rather than a full theme since this
// is a single-binary CLI, not a themeable product.
var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	Green = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	Red   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	Yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)
