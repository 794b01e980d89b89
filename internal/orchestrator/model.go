// Package orchestrator implements the main-loop bubbletea.Model that
// drives the store, the lifecycle engine, and the tree/zoomed views.
//
// Grounded directly on internal/tui/convoy.Model's shape: a mutex
// guarding every field View() reads, Init returning a tea.Cmd that
// kicks off the first fetch, and a ticking tea.Cmd pattern
// (fetchConvoys/fetchConvoysMsg here becomes a 100ms poll tick that
// reloads tasks, drains the change notifier, and runs one lifecycle
// Tick) — adapted to spec.md §5's concurrency model (poll(stdin,100ms),
// recv_timeout(change-notifier)) instead of convoy's on-demand bd CLI
// fetch.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kbtz-dev/kbtz/internal/backend"
	"github.com/kbtz-dev/kbtz/internal/lifecycle"
	"github.com/kbtz-dev/kbtz/internal/notify"
	"github.com/kbtz-dev/kbtz/internal/ptysession"
	"github.com/kbtz-dev/kbtz/internal/store"
	"github.com/kbtz-dev/kbtz/internal/tree"
)

const pollInterval = 100 * time.Millisecond

// ViewMode selects what the TUI currently renders.
type ViewMode int

const (
	ModeTree ViewMode = iota
	ModeZoomed
	ModeTopLevel
)

// Model is the orchestrator's bubbletea model.
type Model struct {
	db             *store.DB
	backend        backend.Backend
	workspaceDir   string
	maxConcurrency int

	executor       *lifecycle.Executor
	notifier       *notify.Watcher
	statusNotifier *notify.Watcher
	pollInterval   time.Duration
	root           *string

	mu             sync.RWMutex
	mode           ViewMode
	rows           []tree.Row
	loaded         bool
	cursor         *tree.Cursor
	zoomedName     string
	toplevel       *ptysession.Session
	sessionCounter int
	prefer         *string
	statuses       map[string]lifecycle.SessionStatus
	status         string
	err            error

	keys     KeyMap
	help     help.Model
	showHelp bool
	width    int
	height   int
}

// New builds an orchestrator model. sessions is the caller's session
// registry (normally empty at startup). spawn overrides the default
// claim-next-and-start-a-session wiring (Model.spawnNext); pass nil to
// use it — the override exists only so tests can substitute a fake
// Spawner without starting real child processes.
func New(db *store.DB, be backend.Backend, workspaceDir string, maxConcurrency int, sessions map[string]*lifecycle.ManagedSession, spawn lifecycle.Spawner, notifier *notify.Watcher) *Model {
	m := &Model{
		db:             db,
		backend:        be,
		workspaceDir:   workspaceDir,
		maxConcurrency: maxConcurrency,
		executor:       &lifecycle.Executor{DB: db, Sessions: sessions, WorkspaceDir: workspaceDir},
		notifier:       notifier,
		pollInterval:   pollInterval,
		cursor:         tree.NewCursor(),
		statuses:       map[string]lifecycle.SessionStatus{},
		keys:           DefaultKeyMap(),
		help:           help.New(),
		mode:           ModeTree,
	}
	if spawn != nil {
		m.executor.Spawn = spawn
	} else {
		m.executor.Spawn = m.spawnNext
	}
	m.executor.ExitSignal = be.RequestExit
	return m
}

// SetStatusWatcher supplies the workspace-directory change stream that
// tells the model when to reread per-session status files. Without one,
// statuses are reread on every poll tick.
func (m *Model) SetStatusWatcher(w *notify.Watcher) {
	m.statusNotifier = w
}

// SetPrefer sets the claim-next FTS preference (kbtz mux --prefer),
// applied to every subsequent spawn this model performs.
func (m *Model) SetPrefer(prefer *string) {
	m.mu.Lock()
	m.prefer = prefer
	m.mu.Unlock()
}

// SetPollInterval overrides the default 100ms poll tick, for callers
// that expose it as a CLI flag (kbtz mux --poll-interval).
func (m *Model) SetPollInterval(d time.Duration) {
	m.pollInterval = d
}

// SetRoot scopes the tree view to root's subtree (kbtz mux --root).
func (m *Model) SetRoot(root *string) {
	m.root = root
}

// Init starts the standing toplevel session and kicks off the first
// poll tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.startToplevelCmd(), m.tick())
}

// startToplevelCmd runs ensureToplevel as a tea.Cmd so Init doesn't
// block the first render on the child's fork/exec.
func (m *Model) startToplevelCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.ensureToplevel(context.Background()); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		return nil
	}
}

type tickMsg struct{}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

// reload drains the change notifiers, refreshes tree rows from the
// store on a DB event, rereads per-session status files on a workspace
// event, and runs one lifecycle tick. The tick itself is unconditional:
// graceful-timeout escalation must fire even when nothing changed on
// disk. Caller must not hold m.mu.
func (m *Model) reload(ctx context.Context) error {
	m.mu.RLock()
	loaded := m.loaded
	m.mu.RUnlock()

	dbChanged := m.notifier == nil || m.notifier.DrainEvents()
	statusChanged := m.statusNotifier == nil || m.statusNotifier.DrainEvents()

	now := time.Now()
	if err := m.executor.Apply(ctx, m.maxConcurrency, now); err != nil {
		return fmt.Errorf("lifecycle tick: %w", err)
	}
	if err := m.ensureToplevel(ctx); err != nil {
		return fmt.Errorf("ensure toplevel: %w", err)
	}

	if statusChanged || !loaded {
		statuses := make(map[string]lifecycle.SessionStatus, len(m.executor.Sessions))
		for id := range m.executor.Sessions {
			statuses[id] = lifecycle.ReadSessionStatus(m.workspaceDir, id)
		}
		m.mu.Lock()
		m.statuses = statuses
		m.mu.Unlock()
	}

	if !dbChanged && loaded {
		return nil
	}

	tasks, err := store.ListTasks(ctx, m.db.DB, nil, true, m.root)
	if err != nil {
		return fmt.Errorf("reload tasks: %w", err)
	}

	blockedBy := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		blockers, err := store.GetBlockers(ctx, m.db.DB, t.Name)
		if err != nil {
			continue
		}
		blockedBy[t.Name] = blockers
	}

	m.mu.Lock()
	m.rows = tree.Flatten(tasks, blockedBy, m.cursor.Collapsed)
	m.loaded = true
	m.mu.Unlock()
	return nil
}
