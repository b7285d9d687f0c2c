package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/scriptgate/internal/infrastructure/logging"
	"github.com/GriffinCanCode/scriptgate/internal/providers/browser/bridge"
	"github.com/GriffinCanCode/scriptgate/internal/providers/browser/sandbox"
	"github.com/GriffinCanCode/scriptgate/internal/shared/id"
)

// ErrLimitReached is returned when no more workspaces can be opened.
var ErrLimitReached = errors.New("workspace limit reached")

// Workspace is one participant's execution context: a runner holding at
// most one live realm, the host page it transplants into, and the debug
// console both write to.
type Workspace struct {
	ID        id.SessionID
	Runner    *sandbox.Runner
	Host      *bridge.Host
	Console   *logging.RingLog
	CreatedAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
}

// Touch marks the workspace as used now.
func (w *Workspace) Touch() {
	w.mu.Lock()
	w.lastUsed = time.Now()
	w.mu.Unlock()
}

// LastUsed returns the time of the last Touch.
func (w *Workspace) LastUsed() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

// Close disposes any live realm.
func (w *Workspace) Close() {
	w.Runner.Close()
}

// Info is a read-only view of a workspace
type Info struct {
	ID            id.SessionID `json:"session_id"`
	CreatedAt     time.Time    `json:"created_at"`
	LastUsed      time.Time    `json:"last_used"`
	Active        bool         `json:"active"`
	Transplants   int          `json:"transplants"`
	ConsoleLength int          `json:"console_entries"`
}

// Stats summarizes the manager
type Stats struct {
	Workspaces int `json:"workspaces"`
	Active     int `json:"active_realms"`
	Limit      int `json:"limit"`
}

// Builder creates the parts of a new workspace.
type Builder func(sid id.SessionID) (*Workspace, error)

// Manager owns participant workspaces
type Manager struct {
	mu         sync.RWMutex
	workspaces map[id.SessionID]*Workspace // Protected by mu
	build      Builder
	limit      int
}

// NewManager creates a manager. limit <= 0 means unbounded.
func NewManager(build Builder, limit int) *Manager {
	return &Manager{
		workspaces: make(map[id.SessionID]*Workspace),
		build:      build,
		limit:      limit,
	}
}

// Open returns the workspace for sid, creating it on first use.
func (m *Manager) Open(sid id.SessionID) (*Workspace, error) {
	m.mu.RLock()
	ws, ok := m.workspaces[sid]
	m.mu.RUnlock()
	if ok {
		ws.Touch()
		return ws, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if ws, ok := m.workspaces[sid]; ok {
		ws.Touch()
		return ws, nil
	}
	if m.limit > 0 && len(m.workspaces) >= m.limit {
		return nil, ErrLimitReached
	}

	ws, err := m.build(sid)
	if err != nil {
		return nil, fmt.Errorf("open workspace %s: %w", sid, err)
	}
	ws.ID = sid
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = time.Now()
	}
	ws.Touch()
	m.workspaces[sid] = ws
	return ws, nil
}

// Get retrieves an existing workspace
func (m *Manager) Get(sid id.SessionID) (*Workspace, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, ok := m.workspaces[sid]
	return ws, ok
}

// Close disposes and forgets a workspace
func (m *Manager) Close(sid id.SessionID) bool {
	m.mu.Lock()
	ws, ok := m.workspaces[sid]
	delete(m.workspaces, sid)
	m.mu.Unlock()

	if ok {
		ws.Close()
	}
	return ok
}

// Sweep closes workspaces idle for longer than idle and returns how many
// were removed.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	m.mu.Lock()
	var stale []*Workspace
	for sid, ws := range m.workspaces {
		if ws.LastUsed().Before(cutoff) {
			stale = append(stale, ws)
			delete(m.workspaces, sid)
		}
	}
	m.mu.Unlock()

	for _, ws := range stale {
		ws.Close()
	}
	return len(stale)
}

// CloseAll disposes every workspace
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.workspaces
	m.workspaces = make(map[id.SessionID]*Workspace)
	m.mu.Unlock()

	for _, ws := range all {
		ws.Close()
	}
}

// List returns workspace views ordered by creation time
func (m *Manager) List() []Info {
	m.mu.RLock()
	infos := make([]Info, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		infos = append(infos, Info{
			ID:            ws.ID,
			CreatedAt:     ws.CreatedAt,
			LastUsed:      ws.LastUsed(),
			Active:        ws.Runner.Active() != nil,
			Transplants:   ws.Host.Transplants(),
			ConsoleLength: ws.Console.Len(),
		})
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Stats returns manager statistics
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{Workspaces: len(m.workspaces), Limit: m.limit}
	for _, ws := range m.workspaces {
		if ws.Runner.Active() != nil {
			stats.Active++
		}
	}
	return stats
}
