package orchestrator

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kbtz-dev/kbtz/internal/store"
	"github.com/kbtz-dev/kbtz/internal/tree"
)

func fmtErr(text string) error { return errors.New(text) }

// Update handles bubbletea messages, following convoy.Model's
// lock-mutate-unlock-then-return convention.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.mu.Lock()
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.mu.Unlock()
		m.resizeZoomed(msg.Width, msg.Height)
		return m, nil

	case tickMsg:
		if err := m.reload(context.Background()); err != nil {
			m.mu.Lock()
			m.err = err
			m.mu.Unlock()
		}
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case statusMsg:
		m.mu.Lock()
		m.status = msg.text
		if msg.isError {
			m.err = fmtErr(msg.text)
		} else {
			m.err = nil
		}
		m.mu.Unlock()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mu.RLock()
	mode := m.mode
	m.mu.RUnlock()

	switch mode {
	case ModeZoomed:
		return m.handleZoomedKey(msg)
	case ModeTopLevel:
		return m.handleToplevelKey(msg)
	default:
		return m.handleTreeKey(msg)
	}
}

func (m *Model) handleTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.mu.Lock()
		m.showHelp = !m.showHelp
		m.mu.Unlock()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.mu.Lock()
		m.cursor.MoveUp()
		m.mu.Unlock()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.mu.Lock()
		m.cursor.MoveDown(len(m.rows))
		m.mu.Unlock()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.mu.Lock()
		m.cursor.Selected = 0
		m.mu.Unlock()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.mu.Lock()
		if len(m.rows) > 0 {
			m.cursor.Selected = len(m.rows) - 1
		}
		m.mu.Unlock()
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		m.mu.Lock()
		m.cursor.ToggleSelected(m.rows)
		m.mu.Unlock()
		return m, nil

	case key.Matches(msg, m.keys.Toplevel):
		m.mu.Lock()
		m.mode = ModeTopLevel
		m.mu.Unlock()
		return m, nil

	default:
		return m.resolveIntent(msg)
	}
}

func (m *Model) resolveIntent(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r := msg.Runes
	if len(r) != 1 {
		return m, nil
	}

	m.mu.Lock()
	intent := m.cursor.Resolve(m.rows, byte(r[0]))
	m.mu.Unlock()

	if intent.Kind == tree.IntentNone {
		return m, nil
	}
	return m, m.applyIntent(intent)
}

// applyIntent carries out a resolved tree Intent against the store.
func (m *Model) applyIntent(intent tree.Intent) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		switch intent.Kind {
		case tree.IntentDone:
			err = store.MarkDone(ctx, m.db.DB, intent.Name)
		case tree.IntentPause:
			err = store.Pause(ctx, m.db.DB, intent.Name)
		case tree.IntentForceUnassign:
			err = store.ForceUnassign(ctx, m.db.DB, intent.Name)
		case tree.IntentZoomIn:
			m.mu.Lock()
			m.mode = ModeZoomed
			m.zoomedName = intent.Name
			m.mu.Unlock()
			return nil
		case tree.IntentSpawn:
			err = m.spawnTask(ctx, intent.Name)
		case tree.IntentRestart:
			err = m.restartTask(intent.Name)
		}
		if err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		return statusMsg{text: "ok"}
	}
}

type statusMsg struct {
	text    string
	isError bool
}

func (m *Model) handleZoomedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+o" {
		m.mu.Lock()
		m.mode = ModeTree
		m.zoomedName = ""
		m.mu.Unlock()
		return m, nil
	}

	m.mu.RLock()
	name := m.zoomedName
	m.mu.RUnlock()
	return m, m.forwardKeyToSession(name, msg)
}

// handleToplevelKey routes keystrokes to the standing toplevel session
// while in ModeTopLevel, returning to the tree on ctrl+o exactly like
// the zoomed-session view.
func (m *Model) handleToplevelKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+o" {
		m.mu.Lock()
		m.mode = ModeTree
		m.mu.Unlock()
		return m, nil
	}
	return m, m.forwardKeyToToplevel(msg)
}
