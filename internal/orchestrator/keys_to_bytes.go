package orchestrator

import tea "github.com/charmbracelet/bubbletea"

// keyToBytes turns a bubbletea KeyMsg into the raw bytes a real terminal
// would have sent, so a zoomed session's agent sees ordinary keystrokes
// rather than bubbletea's internal key representation.
func keyToBytes(msg tea.KeyMsg) []byte {
	switch msg.Type {
	case tea.KeyRunes:
		return []byte(string(msg.Runes))
	case tea.KeySpace:
		return []byte(" ")
	case tea.KeyEnter:
		return []byte("\r")
	case tea.KeyTab:
		return []byte("\t")
	case tea.KeyBackspace:
		return []byte{0x7f}
	case tea.KeyEsc:
		return []byte{0x1b}
	case tea.KeyUp:
		return []byte("\x1b[A")
	case tea.KeyDown:
		return []byte("\x1b[B")
	case tea.KeyRight:
		return []byte("\x1b[C")
	case tea.KeyLeft:
		return []byte("\x1b[D")
	case tea.KeyHome:
		return []byte("\x1b[H")
	case tea.KeyEnd:
		return []byte("\x1b[F")
	case tea.KeyPgUp:
		return []byte("\x1b[5~")
	case tea.KeyPgDown:
		return []byte("\x1b[6~")
	case tea.KeyDelete:
		return []byte("\x1b[3~")
	default:
		if b, ok := ctrlBytes[msg.Type]; ok {
			return []byte{b}
		}
		return []byte(msg.String())
	}
}

// ctrlBytes maps bubbletea's named Ctrl-key types to the ASCII control
// byte a real terminal driver would have sent, independent of whatever
// underlying int value bubbletea assigns each KeyType constant.
var ctrlBytes = map[tea.KeyType]byte{
	tea.KeyCtrlA: 1, tea.KeyCtrlB: 2, tea.KeyCtrlC: 3, tea.KeyCtrlD: 4,
	tea.KeyCtrlE: 5, tea.KeyCtrlF: 6, tea.KeyCtrlG: 7, tea.KeyCtrlH: 8,
	tea.KeyCtrlJ: 10, tea.KeyCtrlK: 11, tea.KeyCtrlL: 12, tea.KeyCtrlN: 14,
	tea.KeyCtrlO: 15, tea.KeyCtrlP: 16, tea.KeyCtrlQ: 17, tea.KeyCtrlR: 18,
	tea.KeyCtrlS: 19, tea.KeyCtrlT: 20, tea.KeyCtrlU: 21, tea.KeyCtrlV: 22,
	tea.KeyCtrlW: 23, tea.KeyCtrlX: 24, tea.KeyCtrlY: 25, tea.KeyCtrlZ: 26,
}
