// Package store implements the state store (§4.1): the single source of
// truth for the pane list and layered settings, persisted to a watched
// JSON file so a daemon restart and an external edit both converge back
// to the same in-memory picture.
package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samuelreed/dmux/internal/analyzer"
	"github.com/samuelreed/dmux/internal/pane"
)

// TerminalLister reports the terminal pane ids currently alive in the
// host multiplexer, used to reconcile persisted panes against reality on
// load: a pane whose TerminalPaneID no longer exists is marked orphaned
// rather than dropped.
type TerminalLister interface {
	ListPaneIDs(ctx context.Context) ([]string, error)
}

// Snapshot is what Subscribe handlers and HTTP/SSE consumers receive.
type Snapshot struct {
	Panes    []*pane.Pane
	Settings Settings
}

// Config parameterizes New.
type Config struct {
	// Dir is the project's .dmux directory; state.json and the project
	// settings layer both live here. Empty disables persistence (an
	// in-memory-only store, used by tests and the welcome-only daemon
	// state before a project is attached).
	Dir string
	// GlobalSettingsPath overrides the global settings file location.
	// Empty resolves to DefaultGlobalSettingsPath().
	GlobalSettingsPath string
	// Terminal reports live terminal pane ids for load-time
	// reconciliation. Nil disables reconciliation.
	Terminal TerminalLister
	// Debounce bounds how long a burst of updates is coalesced into a
	// single broadcast. Defaults to 150ms.
	Debounce time.Duration
}

// DefaultGlobalSettingsPath returns ~/.dmux/settings.json.
func DefaultGlobalSettingsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dmux", "settings.json"), nil
}

// Store is the single source of truth for the pane list and layered
// settings (§4.1). One Store per project.
type Store struct {
	mu    sync.RWMutex
	panes map[string]*pane.Pane

	dir      string
	settings *settingsStore
	terminal TerminalLister

	subMu       sync.Mutex
	nextSubID   int
	subscribers map[int]func(Snapshot)

	broadcastMu    sync.Mutex
	broadcastTimer *time.Timer
	debounce       time.Duration

	// OnPersistError is told about every failed write, in addition to the
	// mutator that triggered it returning the same error (§4.1 failure
	// semantics: "write failures are surfaced to the caller"). Left nil,
	// the error is only returned. The in-memory state keeps the change
	// either way.
	OnPersistError func(error)
}

// New constructs a Store and loads any persisted pane/settings state from
// disk. A missing state file is not an error (first run).
func New(cfg Config) (*Store, error) {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}
	globalPath := cfg.GlobalSettingsPath
	if globalPath == "" {
		if p, err := DefaultGlobalSettingsPath(); err == nil {
			globalPath = p
		}
	}
	var projectPath string
	if cfg.Dir != "" {
		projectPath = filepath.Join(cfg.Dir, "settings.json")
	}

	s := &Store{
		panes:       make(map[string]*pane.Pane),
		dir:         cfg.Dir,
		settings:    newSettingsStore(globalPath, projectPath),
		terminal:    cfg.Terminal,
		subscribers: make(map[int]func(Snapshot)),
		debounce:    debounce,
	}

	if cfg.Dir != "" {
		if err := s.reload(context.Background()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register adds a newly created pane, persists, and schedules a broadcast.
func (s *Store) Register(p *pane.Pane) error {
	s.mu.Lock()
	s.panes[p.ID] = p
	s.mu.Unlock()
	return s.persistAndBroadcast()
}

// Remove deletes a pane (closed, or reconciled away) by id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	delete(s.panes, id)
	s.mu.Unlock()
	return s.persistAndBroadcast()
}

// ListPanes returns every currently known pane. Order is unspecified
// (map iteration order).
func (s *Store) ListPanes() []*pane.Pane {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*pane.Pane, 0, len(s.panes))
	for _, p := range s.panes {
		out = append(out, p)
	}
	return out
}

// ApplyPanes atomically replaces the entire in-memory pane set, persists,
// and broadcasts.
func (s *Store) ApplyPanes(panes []*pane.Pane) error {
	next := make(map[string]*pane.Pane, len(panes))
	for _, p := range panes {
		next[p.ID] = p
	}
	s.mu.Lock()
	s.panes = next
	s.mu.Unlock()
	return s.persistAndBroadcast()
}

// UpdatePaneStatus performs the shallow analyzer-field merge a per-pane
// worker publishes after every pass. An unknown paneId is rejected
// silently: a worker racing a concurrent close should not resurrect a
// removed pane or surface an error on its hot path.
func (s *Store) UpdatePaneStatus(paneID string, status pane.AgentStatus, question string, options []analyzer.Option, harm analyzer.PotentialHarm, summary string) error {
	s.mu.RLock()
	p, ok := s.panes[paneID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	p.SetStatus(status, question, options, harm, summary)
	return s.persistAndBroadcast()
}

// Touch persists and broadcasts the current state after a caller has
// mutated a known pane directly (e.g. the action dispatcher's
// TOGGLE_AUTOPILOT, or a rename) through one of pane.Pane's own locked
// mutators. An unknown id is rejected silently, matching UpdatePaneStatus.
func (s *Store) Touch(paneID string) error {
	s.mu.RLock()
	_, ok := s.panes[paneID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return s.persistAndBroadcast()
}

// Snapshot returns the current pane list and resolved settings together.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{Panes: s.ListPanes(), Settings: s.settings.resolved()}
}

// Subscribe registers handler to receive a Snapshot after every debounced
// change. The returned func unregisters it.
func (s *Store) Subscribe(handler func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = handler
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

// GetSettings returns the fully-resolved settings.
func (s *Store) GetSettings() Settings {
	return s.settings.resolved()
}

// SetSetting overrides key at scope, persists that scope's layer, and
// schedules a broadcast so subscribers see the new resolved value.
func (s *Store) SetSetting(scope SettingsScope, key string, value any) error {
	if err := s.settings.set(scope, key, value); err != nil {
		return err
	}
	s.scheduleBroadcast()
	return nil
}

func (s *Store) persistAndBroadcast() error {
	if err := s.persist(); err != nil {
		if s.OnPersistError != nil {
			s.OnPersistError(err)
		}
		return err
	}
	s.scheduleBroadcast()
	return nil
}

func (s *Store) persist() error {
	if s.dir == "" {
		return nil
	}
	s.mu.RLock()
	saved := make([]SavedPane, 0, len(s.panes))
	for _, p := range s.panes {
		saved = append(saved, toSaved(p.Fields()))
	}
	s.mu.RUnlock()
	state := AppState{Version: 1, Panes: saved, SavedAt: time.Now()}
	return atomicWriteJSON(StateFilePath(s.dir), state)
}

// scheduleBroadcast coalesces bursts of mutations (e.g. a worker updating
// five panes in quick succession) into a single notification, the same
// reset-a-pending-timer debounce shape the file watcher uses for disk
// events.
func (s *Store) scheduleBroadcast() {
	s.broadcastMu.Lock()
	defer s.broadcastMu.Unlock()
	if s.broadcastTimer != nil {
		s.broadcastTimer.Stop()
	}
	s.broadcastTimer = time.AfterFunc(s.debounce, s.broadcastNow)
}

func (s *Store) broadcastNow() {
	snap := s.Snapshot()
	s.subMu.Lock()
	handlers := make([]func(Snapshot), 0, len(s.subscribers))
	for _, h := range s.subscribers {
		handlers = append(handlers, h)
	}
	s.subMu.Unlock()
	for _, h := range handlers {
		h(snap)
	}
}

// reload re-reads persisted pane state from disk, replacing in-memory
// state, reconciling against live terminal panes when a TerminalLister is
// configured, and emitting exactly one broadcast. Read failures fall back
// to the existing in-memory state rather than propagating, per §4.1's
// failure semantics.
func (s *Store) reload(ctx context.Context) error {
	state, err := loadState(s.dir)
	if err != nil {
		return nil
	}

	var live map[string]bool
	if s.terminal != nil {
		live = make(map[string]bool)
		if ids, err := s.terminal.ListPaneIDs(ctx); err == nil {
			for _, id := range ids {
				live[id] = true
			}
		}
	}

	next := make(map[string]*pane.Pane, len(state.Panes))
	for _, sp := range state.Panes {
		p := fromSaved(sp)
		if live != nil && p.TerminalPaneID != "" && !live[p.TerminalPaneID] {
			p.MarkOrphaned()
		}
		next[p.ID] = p
	}

	s.mu.Lock()
	s.panes = next
	s.mu.Unlock()
	s.scheduleBroadcast()
	return nil
}

// Reload re-reads persisted state, exported for the file watcher and for
// a daemon to call once before attaching the watcher.
func (s *Store) Reload(ctx context.Context) error {
	return s.reload(ctx)
}
