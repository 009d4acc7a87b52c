package pane

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samuelreed/dmux/internal/git"
	"github.com/samuelreed/dmux/internal/harness"
)

// Tmux is the subset of the tmux service (see internal/tmux.RetryingClient)
// the pane manager drives directly. Layout application is delegated to
// LayoutEngine instead of being called here.
type Tmux interface {
	SplitWindow(ctx context.Context, session, command string) (string, error)
	SelectPane(ctx context.Context, paneID string) error
	SetPaneTitle(ctx context.Context, paneID, title string) error
	KillPane(ctx context.Context, paneID string) error
	InjectText(ctx context.Context, paneID, bufferName, text string) error
}

// LayoutEngine recomputes and applies a multiplexer layout across the
// control pane and the current set of content panes (see §4.4, built
// separately in internal/layout).
type LayoutEngine interface {
	Recompute(ctx context.Context, session, controlPaneID string, contentPaneIDs []string) error
}

// Store is the subset of the state store (internal/store) the manager
// needs: registering/removing panes and listing the current set for
// layout recomputation and orphan reconciliation.
type Store interface {
	Register(p *Pane) error
	Remove(id string) error
	ListPanes() []*Pane
}

// Hooks fires the user-configured lifecycle hooks named in step 11 of the
// create algorithm. Nil fields are no-ops.
type Hooks struct {
	PaneCreated     func(p *Pane)
	WorktreeCreated func(p *Pane)
}

// AmbiguousAgentError is returned by Create when the requested agent is not
// registered, or when none was requested and the registry does not hold
// exactly one agent. The settings' default agent is not consulted. The
// caller (action dispatcher) must turn this into an ActionResult asking
// the user to pick.
type AmbiguousAgentError struct {
	Choices []harness.AgentName
}

func (e *AmbiguousAgentError) Error() string {
	return fmt.Sprintf("ambiguous agent: choose one of %v", e.Choices)
}

// Manager is the authoritative create/close path for worktree-backed panes
// (§4.3). One Manager serves one project/repository.
type Manager struct {
	Git      git.GitClient
	Tmux     Tmux
	Layout   LayoutEngine
	Store    Store
	Harnesses *harness.Registry
	Hooks    Hooks

	Session       string // tmux session name panes are split into
	ControlPaneID string // terminal id to restore focus to after create

	ProjectRoot string
	ProjectName string

	// BranchPrefix and PermissionMode come from settings (§3); both have
	// sane defaults when left zero.
	BranchPrefix   string
	PermissionMode string

	IDPrefix string

	// WorktreeSettleAttempts/Interval bound the poll in step 7 waiting for
	// the worktree directory to appear. Defaults applied if zero.
	WorktreeSettleAttempts int
	WorktreeSettleInterval time.Duration

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Manager) branchPrefix() string {
	if m.BranchPrefix != "" {
		return m.BranchPrefix
	}
	return "dmux/"
}

func (m *Manager) permissionMode() string {
	if m.PermissionMode != "" {
		return m.PermissionMode
	}
	return "default"
}

func (m *Manager) idPrefix() string {
	if m.IDPrefix != "" {
		return m.IDPrefix
	}
	return "pane"
}

// CreateRequest parameterizes the create algorithm.
type CreateRequest struct {
	Prompt       string
	ExplicitAgent harness.AgentName
}

// worktreesDir is the fixed location under the project root panes' worktrees
// live in: <projectRoot>/.dmux/worktrees.
func (m *Manager) worktreesDir() string {
	return filepath.Join(m.ProjectRoot, ".dmux", "worktrees")
}

// Create runs the full §4.3 create algorithm: resolve the agent, compute a
// slug, split a terminal pane, create its worktree, launch the agent, and
// register the pane in the store.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Pane, error) {
	// Step 1: resolve the agent.
	agentName, ok := m.Harnesses.Default(req.ExplicitAgent)
	if !ok {
		return nil, &AmbiguousAgentError{Choices: m.Harnesses.Names()}
	}
	h, _ := m.Harnesses.Get(agentName)

	// Step 2: compute slug.
	slug := ResolveSlug(ctx, h, req.Prompt, m.now())

	// Step 3: compute worktree path.
	worktreePath := filepath.Join(m.worktreesDir(), slug)
	branchName := m.branchPrefix() + slug

	id := NextID(m.idPrefix())
	p := New(id, KindWorktree, slug, req.Prompt)
	p.Agent = agentName
	p.ProjectRoot = m.ProjectRoot
	p.ProjectName = m.ProjectName
	p.WorktreePath = worktreePath
	p.Branch = branchName

	// Step 4: capture control pane id for focus restore (already held in
	// m.ControlPaneID; nothing to do but keep the step explicit in naming).
	controlPaneID := m.ControlPaneID

	// Step 5: split a new terminal pane running the agent's shell, then
	// set its title to the slug immediately so it's identifiable while the
	// worktree is still being created.
	terminalPaneID, err := m.Tmux.SplitWindow(ctx, m.Session, "")
	if err != nil {
		return nil, fmt.Errorf("split terminal pane: %w", err)
	}
	if err := m.Tmux.SetPaneTitle(ctx, terminalPaneID, slug); err != nil {
		return nil, fmt.Errorf("set pane title: %w", err)
	}
	p.BindTerminal(terminalPaneID)

	// Step 6: recompute layout across the control pane and every live
	// content pane, including the one just created.
	if m.Layout != nil {
		contentIDs := m.contentPaneIDs(terminalPaneID)
		if err := m.Layout.Recompute(ctx, m.Session, controlPaneID, contentIDs); err != nil {
			return nil, fmt.Errorf("recompute layout: %w", err)
		}
	}

	// Step 7: create the worktree in the new pane and poll for it to
	// settle. git worktree add is issued directly (not through the pane's
	// shell) so creation failures surface here instead of silently failing
	// inside the terminal.
	if err := m.Git.CreateWorktree(ctx, worktreePath, branchName); err != nil {
		_ = m.Tmux.KillPane(ctx, terminalPaneID)
		return nil, fmt.Errorf("create worktree: %w", err)
	}
	if err := m.waitForWorktree(worktreePath); err != nil {
		_ = m.Tmux.KillPane(ctx, terminalPaneID)
		_ = m.Git.RemoveWorktree(ctx, worktreePath)
		return nil, fmt.Errorf("worktree did not settle: %w", err)
	}
	if err := m.Tmux.InjectText(ctx, terminalPaneID, "dmux-cd-"+id, "cd "+worktreePath+"\n"); err != nil {
		return nil, fmt.Errorf("cd into worktree: %w", err)
	}

	// Step 8: launch the agent, then inject the prompt via the paste-buffer
	// path rather than the shell so it is delivered byte-for-byte.
	launchArgs := h.LaunchArgs(m.permissionMode())
	launchCmd := h.Binary()
	for _, a := range launchArgs {
		launchCmd += " " + a
	}
	if err := m.Tmux.InjectText(ctx, terminalPaneID, "dmux-launch-"+id, launchCmd+"\n"); err != nil {
		return nil, fmt.Errorf("launch agent: %w", err)
	}
	if req.Prompt != "" {
		if err := m.Tmux.InjectText(ctx, terminalPaneID, "dmux-prompt-"+id, h.InjectPrompt(req.Prompt)); err != nil {
			return nil, fmt.Errorf("inject prompt: %w", err)
		}
	}

	// Step 9: the trust/consent auto-acknowledger is started by the worker
	// once the pane is registered (internal/worker), not here.

	// Step 10: register, restore focus, re-title.
	if err := m.Store.Register(p); err != nil {
		return nil, fmt.Errorf("register pane: %w", err)
	}
	if controlPaneID != "" {
		_ = m.Tmux.SelectPane(ctx, controlPaneID)
		_ = m.Tmux.SetPaneTitle(ctx, controlPaneID, m.ProjectName)
	}

	// Step 11: fire lifecycle hooks.
	if m.Hooks.PaneCreated != nil {
		m.Hooks.PaneCreated(p)
	}
	if m.Hooks.WorktreeCreated != nil {
		m.Hooks.WorktreeCreated(p)
	}

	return p, nil
}

func (m *Manager) contentPaneIDs(newest string) []string {
	var ids []string
	for _, p := range m.Store.ListPanes() {
		if p.TerminalPaneID != "" && p.TerminalPaneID != newest {
			ids = append(ids, p.TerminalPaneID)
		}
	}
	ids = append(ids, newest)
	return ids
}

func (m *Manager) waitForWorktree(path string) error {
	attempts := m.WorktreeSettleAttempts
	if attempts <= 0 {
		attempts = 20
	}
	interval := m.WorktreeSettleInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	for i := 0; i < attempts; i++ {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return nil
		}
		time.Sleep(interval)
	}
	return fmt.Errorf("worktree directory %q did not appear after %d attempts", path, attempts)
}

// CloseOutcome is the user's choice among the four CLOSE outcomes (§4.3).
type CloseOutcome string

const (
	CloseKillOnly        CloseOutcome = "kill_only"
	CloseRemoveWorktree  CloseOutcome = "remove_worktree"
	CloseDeleteEverything CloseOutcome = "delete_everything"
	CloseCancel          CloseOutcome = "cancel"
)

// DirtyWorktreeHandler is invoked when delete_everything targets a
// worktree with uncommitted changes; it routes through the commit-message
// handler (§4.6, internal/merge) before Close proceeds. Returning an error
// aborts the close.
type DirtyWorktreeHandler func(ctx context.Context, p *Pane) error

// Close implements the §4.3 close algorithm for one of the four outcomes.
func (m *Manager) Close(ctx context.Context, p *Pane, outcome CloseOutcome, onDirty DirtyWorktreeHandler) error {
	switch outcome {
	case CloseCancel:
		return nil
	case CloseKillOnly:
		if err := m.killTerminal(ctx, p); err != nil {
			return err
		}
		p.MarkOrphaned()
		return nil
	case CloseRemoveWorktree:
		if err := m.killTerminal(ctx, p); err != nil {
			return err
		}
		if err := m.Git.RemoveWorktree(ctx, p.WorktreePath); err != nil {
			return fmt.Errorf("remove worktree: %w", err)
		}
		return m.Store.Remove(p.ID)
	case CloseDeleteEverything:
		if p.WorktreePath != "" {
			dirty, err := m.Git.HasUncommittedChanges(ctx)
			if err != nil {
				return fmt.Errorf("check uncommitted changes: %w", err)
			}
			if dirty && onDirty != nil {
				if err := onDirty(ctx, p); err != nil {
					return fmt.Errorf("dirty worktree handler: %w", err)
				}
			}
		}
		if err := m.killTerminal(ctx, p); err != nil {
			return err
		}
		if p.WorktreePath != "" {
			if err := m.Git.RemoveWorktree(ctx, p.WorktreePath); err != nil {
				return fmt.Errorf("remove worktree: %w", err)
			}
			branchName := p.Branch
			if branchName == "" {
				branchName = m.branchPrefix() + p.Slug
			}
			if err := m.Git.DeleteBranch(ctx, branchName); err != nil {
				return fmt.Errorf("delete branch: %w", err)
			}
		}
		return m.Store.Remove(p.ID)
	default:
		return fmt.Errorf("unknown close outcome %q", outcome)
	}
}

// ConflictResolutionRequest parameterizes CreateConflictResolution.
type ConflictResolutionRequest struct {
	TargetRepoPath string
	TargetBranch   string
	SourceBranch   string
	Agent          harness.AgentName
}

// CreateConflictResolution creates a specialized conflict-resolution pane
// (§4.6): unlike Create, it cd's into an existing repository path instead
// of provisioning a new worktree, aborts any leftover in-progress merge,
// starts a fresh `git merge --no-edit` so conflict markers exist, then
// launches the agent with a canned resolution prompt. The merge
// orchestrator's ConflictMonitor is responsible for detecting completion
// and closing this pane; Manager does not poll for it here.
func (m *Manager) CreateConflictResolution(ctx context.Context, req ConflictResolutionRequest) (*Pane, error) {
	agentName, ok := m.Harnesses.Default(req.Agent)
	if !ok {
		return nil, &AmbiguousAgentError{Choices: m.Harnesses.Names()}
	}
	h, _ := m.Harnesses.Get(agentName)

	id := NextID(m.idPrefix())
	slug := "resolve-" + req.SourceBranch
	p := New(id, KindConflictResolution, slug, "")
	p.Agent = agentName
	p.ProjectRoot = m.ProjectRoot
	p.ProjectName = m.ProjectName
	p.WorktreePath = req.TargetRepoPath
	p.Branch = req.TargetBranch

	controlPaneID := m.ControlPaneID
	terminalPaneID, err := m.Tmux.SplitWindow(ctx, m.Session, "")
	if err != nil {
		return nil, fmt.Errorf("split terminal pane: %w", err)
	}
	if err := m.Tmux.SetPaneTitle(ctx, terminalPaneID, slug); err != nil {
		return nil, fmt.Errorf("set pane title: %w", err)
	}
	p.BindTerminal(terminalPaneID)

	if m.Layout != nil {
		contentIDs := m.contentPaneIDs(terminalPaneID)
		if err := m.Layout.Recompute(ctx, m.Session, controlPaneID, contentIDs); err != nil {
			return nil, fmt.Errorf("recompute layout: %w", err)
		}
	}

	if err := m.Tmux.InjectText(ctx, terminalPaneID, "dmux-cd-"+id, "cd "+req.TargetRepoPath+"\n"); err != nil {
		return nil, fmt.Errorf("cd into target repo: %w", err)
	}
	_ = m.Git.AbortMerge(ctx)
	mergeCmd := fmt.Sprintf("git merge %s --no-edit\n", req.SourceBranch)
	if err := m.Tmux.InjectText(ctx, terminalPaneID, "dmux-merge-"+id, mergeCmd); err != nil {
		return nil, fmt.Errorf("start merge: %w", err)
	}

	launchArgs := h.LaunchArgs(m.permissionMode())
	launchCmd := h.Binary()
	for _, a := range launchArgs {
		launchCmd += " " + a
	}
	if err := m.Tmux.InjectText(ctx, terminalPaneID, "dmux-launch-"+id, launchCmd+"\n"); err != nil {
		return nil, fmt.Errorf("launch agent: %w", err)
	}
	prompt := conflictResolutionPrompt(req.SourceBranch, req.TargetBranch)
	if err := m.Tmux.InjectText(ctx, terminalPaneID, "dmux-prompt-"+id, h.InjectPrompt(prompt)); err != nil {
		return nil, fmt.Errorf("inject prompt: %w", err)
	}

	if err := m.Store.Register(p); err != nil {
		return nil, fmt.Errorf("register pane: %w", err)
	}
	if controlPaneID != "" {
		_ = m.Tmux.SelectPane(ctx, controlPaneID)
		_ = m.Tmux.SetPaneTitle(ctx, controlPaneID, m.ProjectName)
	}
	if m.Hooks.PaneCreated != nil {
		m.Hooks.PaneCreated(p)
	}
	return p, nil
}

func conflictResolutionPrompt(sourceBranch, targetBranch string) string {
	return fmt.Sprintf(
		"Resolve the git merge conflicts from merging %q into %q in this repository. "+
			"Inspect the conflict markers, decide the correct resolution for each file, "+
			"stage the results, and complete the merge commit.",
		sourceBranch, targetBranch,
	)
}

func (m *Manager) killTerminal(ctx context.Context, p *Pane) error {
	if p.TerminalPaneID == "" {
		return nil
	}
	if err := m.Tmux.KillPane(ctx, p.TerminalPaneID); err != nil {
		return fmt.Errorf("kill pane: %w", err)
	}
	return nil
}

// ReconcileOrphans enumerates .dmux/worktrees/* and registers any directory
// that is a valid git worktree but unreferenced by a live pane, with
// Orphaned = true and no TerminalPaneID. Called once at daemon startup;
// store reloads do not call it.
func (m *Manager) ReconcileOrphans(ctx context.Context) error {
	entries, err := os.ReadDir(m.worktreesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read worktrees dir: %w", err)
	}

	known := make(map[string]bool)
	for _, p := range m.Store.ListPanes() {
		if p.WorktreePath != "" {
			known[p.WorktreePath] = true
		}
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(m.worktreesDir(), entry.Name())
		if known[path] {
			continue
		}
		if _, exists := m.Git.WorktreeExistsForBranch(ctx, m.branchPrefix()+entry.Name()); !exists {
			continue
		}
		p := New(NextID(m.idPrefix()), KindWorktree, entry.Name(), "")
		p.ProjectRoot = m.ProjectRoot
		p.ProjectName = m.ProjectName
		p.WorktreePath = path
		p.MarkOrphaned()
		if err := m.Store.Register(p); err != nil {
			return fmt.Errorf("register orphaned pane %q: %w", entry.Name(), err)
		}
	}
	return nil
}

// ReopenOrphan creates a fresh terminal pane bound to an existing orphan's
// worktree without re-cloning, per the orphan reconciliation contract.
func (m *Manager) ReopenOrphan(ctx context.Context, p *Pane) error {
	if !p.Orphaned {
		return fmt.Errorf("pane %q is not orphaned", p.ID)
	}
	terminalPaneID, err := m.Tmux.SplitWindow(ctx, m.Session, "cd "+p.WorktreePath)
	if err != nil {
		return fmt.Errorf("split terminal pane: %w", err)
	}
	if err := m.Tmux.SetPaneTitle(ctx, terminalPaneID, p.Slug); err != nil {
		return fmt.Errorf("set pane title: %w", err)
	}
	p.BindTerminal(terminalPaneID)
	if m.Layout != nil {
		if err := m.Layout.Recompute(ctx, m.Session, m.ControlPaneID, m.contentPaneIDs(terminalPaneID)); err != nil {
			return fmt.Errorf("recompute layout: %w", err)
		}
	}
	return nil
}

// SyncWelcome applies the welcome-pane transitions described in §4.3: a
// welcome pane is spawned when the live (non-welcome) pane count drops to
// zero, and killed the moment it rises back to one. SyncWelcome is
// idempotent and safe to call after every create/close.
func (m *Manager) SyncWelcome(ctx context.Context, createWelcome func(ctx context.Context) (*Pane, error)) error {
	var welcome *Pane
	liveNonWelcome := 0
	for _, p := range m.Store.ListPanes() {
		if p.Kind == KindWelcome {
			welcome = p
			continue
		}
		if p.TerminalPaneID != "" {
			liveNonWelcome++
		}
	}

	switch {
	case liveNonWelcome == 0 && welcome == nil:
		if createWelcome == nil {
			return nil
		}
		w, err := createWelcome(ctx)
		if err != nil {
			return fmt.Errorf("create welcome pane: %w", err)
		}
		return m.Store.Register(w)
	case liveNonWelcome > 0 && welcome != nil:
		if err := m.killTerminal(ctx, welcome); err != nil {
			return err
		}
		return m.Store.Remove(welcome.ID)
	default:
		return nil
	}
}
