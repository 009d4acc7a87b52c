// Package pane implements the pane manager: the authoritative create/close
// paths for worktree-backed terminal panes, plus orphan reconciliation and
// the welcome-pane policy.
package pane

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samuelreed/dmux/internal/analyzer"
	"github.com/samuelreed/dmux/internal/harness"
)

// Kind distinguishes the four pane flavors the manager knows how to create
// and reconcile.
type Kind string

const (
	KindWorktree           Kind = "worktree"
	KindShell              Kind = "shell"
	KindWelcome            Kind = "welcome"
	KindConflictResolution Kind = "conflict-resolution"
)

// AgentStatus is the latest classification of a pane's agent activity.
type AgentStatus string

const (
	StatusWorking   AgentStatus = "working"
	StatusWaiting   AgentStatus = "waiting"
	StatusIdle      AgentStatus = "idle"
	StatusAnalyzing AgentStatus = "analyzing"
	StatusUnknown   AgentStatus = "unknown"
)

var idCounter atomic.Uint64

// NextID returns a stable, process-generated, never-reused pane id.
func NextID(prefix string) string {
	n := idCounter.Add(1)
	return fmt.Sprintf("%s-%d", prefix, n)
}

// Pane is the central entity of the engine: a terminal pane paired with a
// git worktree (or, for shell/welcome panes, no worktree at all) and an
// optional coding agent.
type Pane struct {
	mu sync.RWMutex

	ID     string
	Slug   string
	Kind   Kind
	Prompt string

	// TerminalPaneID is the host multiplexer's opaque pane identifier.
	// Empty iff the pane is orphaned.
	TerminalPaneID string
	WorktreePath   string
	Branch         string

	Agent harness.AgentName

	ProjectRoot string
	ProjectName string

	AgentStatus     AgentStatus
	OptionsQuestion string
	Options         []analyzer.Option
	PotentialHarm   analyzer.PotentialHarm
	AgentSummary    string

	Autopilot bool

	DevWindowID  string
	TestWindowID string
	DevStatus    string
	TestStatus   string
	DevURL       string

	Orphaned bool

	CreatedAt    time.Time
	LastActivity time.Time
}

// New constructs a pane in its initial state. Callers fill in
// TerminalPaneID/WorktreePath once the create algorithm's later steps
// succeed.
func New(id string, kind Kind, slug, prompt string) *Pane {
	now := time.Now()
	return &Pane{
		ID:           id,
		Slug:         slug,
		Kind:         kind,
		Prompt:       prompt,
		AgentStatus:  StatusUnknown,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// SetStatus performs the shallow status-field merge the per-pane worker
// publishes after every analyzer pass. Only the owning worker goroutine
// calls this; the store treats it as an opaque event to persist.
func (p *Pane) SetStatus(status AgentStatus, question string, options []analyzer.Option, harm analyzer.PotentialHarm, summary string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AgentStatus = status
	p.OptionsQuestion = question
	p.Options = options
	p.PotentialHarm = harm
	p.AgentSummary = summary
	p.LastActivity = time.Now()
}

// Status returns the current classification fields (thread-safe read).
func (p *Pane) Status() (AgentStatus, string, []analyzer.Option, analyzer.PotentialHarm, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.AgentStatus, p.OptionsQuestion, p.Options, p.PotentialHarm, p.AgentSummary
}

// SetSlug renames the pane's display label (an action-dispatcher-driven,
// user-facing field; does not rename the underlying git branch).
func (p *Pane) SetSlug(slug string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Slug = slug
}

// SetAutopilot toggles autopilot (an action-dispatcher-driven, user-facing
// field).
func (p *Pane) SetAutopilot(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Autopilot = on
}

// IsAutopilot reports the current autopilot setting (thread-safe read).
func (p *Pane) IsAutopilot() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Autopilot
}

// MarkOrphaned records that the terminal pane is gone but the worktree
// survives; TerminalPaneID is cleared so a later re-open assigns a fresh one.
func (p *Pane) MarkOrphaned() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Orphaned = true
	p.TerminalPaneID = ""
}

// BindTerminal attaches a (possibly new) terminal pane id to an existing
// pane, clearing its orphaned flag. Used both at creation and when
// re-opening an orphan.
func (p *Pane) BindTerminal(terminalPaneID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TerminalPaneID = terminalPaneID
	p.Orphaned = false
}

// Fields is a point-in-time, thread-safe copy of every exported field,
// used by the store for persistence and subscriber snapshots. Taking a
// copy under the read lock means a concurrent SetStatus never produces a
// torn read in a JSON-encoded snapshot.
type Fields struct {
	ID     string
	Slug   string
	Kind   Kind
	Prompt string

	TerminalPaneID string
	WorktreePath   string
	Branch         string

	Agent harness.AgentName

	ProjectRoot string
	ProjectName string

	AgentStatus     AgentStatus
	OptionsQuestion string
	Options         []analyzer.Option
	PotentialHarm   analyzer.PotentialHarm
	AgentSummary    string

	Autopilot bool

	DevWindowID  string
	TestWindowID string
	DevStatus    string
	TestStatus   string
	DevURL       string

	Orphaned bool

	CreatedAt    time.Time
	LastActivity time.Time
}

// Fields returns a thread-safe snapshot of the pane's exported state.
func (p *Pane) Fields() Fields {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Fields{
		ID:              p.ID,
		Slug:            p.Slug,
		Kind:            p.Kind,
		Prompt:          p.Prompt,
		TerminalPaneID:  p.TerminalPaneID,
		WorktreePath:    p.WorktreePath,
		Branch:          p.Branch,
		Agent:           p.Agent,
		ProjectRoot:     p.ProjectRoot,
		ProjectName:     p.ProjectName,
		AgentStatus:     p.AgentStatus,
		OptionsQuestion: p.OptionsQuestion,
		Options:         p.Options,
		PotentialHarm:   p.PotentialHarm,
		AgentSummary:    p.AgentSummary,
		Autopilot:       p.Autopilot,
		DevWindowID:     p.DevWindowID,
		TestWindowID:    p.TestWindowID,
		DevStatus:       p.DevStatus,
		TestStatus:      p.TestStatus,
		DevURL:          p.DevURL,
		Orphaned:        p.Orphaned,
		CreatedAt:       p.CreatedAt,
		LastActivity:    p.LastActivity,
	}
}

// FromFields reconstructs a live Pane from a previously taken snapshot, as
// done when the store loads persisted state back into memory.
func FromFields(f Fields) *Pane {
	return &Pane{
		ID:              f.ID,
		Slug:            f.Slug,
		Kind:            f.Kind,
		Prompt:          f.Prompt,
		TerminalPaneID:  f.TerminalPaneID,
		WorktreePath:    f.WorktreePath,
		Branch:          f.Branch,
		Agent:           f.Agent,
		ProjectRoot:     f.ProjectRoot,
		ProjectName:     f.ProjectName,
		AgentStatus:     f.AgentStatus,
		OptionsQuestion: f.OptionsQuestion,
		Options:         f.Options,
		PotentialHarm:   f.PotentialHarm,
		AgentSummary:    f.AgentSummary,
		Autopilot:       f.Autopilot,
		DevWindowID:     f.DevWindowID,
		TestWindowID:    f.TestWindowID,
		DevStatus:       f.DevStatus,
		TestStatus:      f.TestStatus,
		DevURL:          f.DevURL,
		Orphaned:        f.Orphaned,
		CreatedAt:       f.CreatedAt,
		LastActivity:    f.LastActivity,
	}
}
