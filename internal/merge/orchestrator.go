// Package merge implements the per-pane merge orchestrator (§4.6): a state
// machine that validates a worktree branch is mergeable, resolves dirty
// working trees and conflicts along the way with AI-assisted or manual
// commit messages, runs the merge, and cleans up.
package merge

import (
	"context"
	"fmt"
	"time"

	"github.com/samuelreed/dmux/internal/action"
	"github.com/samuelreed/dmux/internal/git"
	"github.com/samuelreed/dmux/internal/pane"
)

// DefaultCommitDeadline bounds the commit-message generation agent call
// (§4.6: "bounded deadline ~15s").
const DefaultCommitDeadline = 15 * time.Second

// CommitQuery runs an ephemeral agent query for commit-message generation,
// already bound to the acting pane's harness. Returning an error or
// exceeding the deadline the caller applies via context falls back to a
// manual input prompt.
type CommitQuery func(ctx context.Context, prompt string) (string, error)

// GitFactory returns a GitClient rooted at path — typically git.New(path).
// The orchestrator needs this rather than a single GitClient because it
// operates on two different repository roots: the project's main checkout
// and the pane's worktree.
type GitFactory func(path string) git.GitClient

// ConflictPaneSpawner creates the specialized conflict-resolution pane
// (§4.6): cd into the target repo, abort any leftover merge, start
// `git merge <source> --no-edit`, launch the agent. internal/pane.Manager's
// CreateConflictResolution satisfies this through a small adapter at wiring
// time.
type ConflictPaneSpawner interface {
	SpawnConflictResolution(ctx context.Context, targetRepoPath, targetBranch, sourceBranch string) (*pane.Pane, error)
}

// ConflictMonitor blocks until the conflict-resolution pane's target repo
// has a clean tree and the merge commit has been made, or ctx is
// cancelled.
type ConflictMonitor func(ctx context.Context, repoPath string) error

// ClosePane kills a pane's terminal once its conflict-resolution work is
// done; internal/pane.Manager.Close (kill_only outcome) satisfies this.
type ClosePane func(ctx context.Context, p *pane.Pane) error

// Orchestrator drives the §4.6 state machine for one pane at a time.
// Start is re-entrant: every RESOLVE_* continuation it returns re-enters
// the machine at VALIDATE, matching the spec's RESOLVE_* -> VALIDATE edge.
type Orchestrator struct {
	GitFor         GitFactory
	Commit         CommitQuery
	CommitDeadline time.Duration
	Spawner        ConflictPaneSpawner
	Monitor        ConflictMonitor
	Close          ClosePane
	Now            func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) commitDeadline() time.Duration {
	if o.CommitDeadline > 0 {
		return o.CommitDeadline
	}
	return DefaultCommitDeadline
}

// Start runs VALIDATE for p and returns the first ActionResult.
func (o *Orchestrator) Start(ctx context.Context, p *pane.Pane) action.Result {
	return o.validate(ctx, p)
}

// validate implements the VALIDATE state: nothing_to_merge, main_dirty,
// wt_uncommitted, conflict_ahead, or clean (§4.6).
func (o *Orchestrator) validate(ctx context.Context, p *pane.Pane) action.Result {
	if p.WorktreePath == "" || p.Branch == "" {
		return action.Err("pane has no worktree to merge")
	}
	wtGit := o.GitFor(p.WorktreePath)
	mainGit := o.GitFor(p.ProjectRoot)

	hasCommits, err := wtGit.BranchHasCommits(ctx, p.Branch)
	if err != nil {
		return action.Err(fmt.Sprintf("check branch commits: %v", err))
	}
	if !hasCommits {
		return action.Info("nothing to merge: branch has no commits ahead of base")
	}

	mainDirty, err := mainGit.HasUncommittedChanges(ctx)
	if err != nil {
		return action.Err(fmt.Sprintf("check main worktree: %v", err))
	}
	if mainDirty {
		return o.resolveMain(ctx, p, mainGit)
	}

	wtDirty, err := wtGit.HasUncommittedChanges(ctx)
	if err != nil {
		return action.Err(fmt.Sprintf("check pane worktree: %v", err))
	}
	if wtDirty {
		return o.resolveWorktree(ctx, p, wtGit)
	}

	// conflict_ahead: the base branch has moved since this branch forked
	// far enough that a merge would likely need manual untangling rather
	// than a clean fast path; offer the conflict-resolution pane
	// preemptively instead of discovering the conflict mid-RUN.
	diverged, err := wtGit.GetDivergedCommitCount(ctx, p.Branch)
	if err != nil {
		return action.Err(fmt.Sprintf("check divergence: %v", err))
	}
	if diverged > 0 {
		return o.resolveConflict(ctx, p, "Target Branch Has Moved")
	}

	return o.confirm(ctx, p)
}

// confirm implements CONFIRM -> RUN.
func (o *Orchestrator) confirm(ctx context.Context, p *pane.Pane) action.Result {
	return action.Result{
		Type:         action.KindConfirm,
		Title:        fmt.Sprintf("Merge %q", p.Slug),
		Message:      fmt.Sprintf("Merge branch %q into the target branch?", p.Branch),
		ConfirmLabel: "Merge",
		CancelLabel:  "Cancel",
		OnConfirm: func(ctx context.Context) action.Result {
			return o.run(ctx, p)
		},
		OnCancel: func(ctx context.Context) action.Result {
			return action.Success("cancelled")
		},
	}
}

// run implements RUN: merge ok -> CLEANUP, conflict during -> RESOLVE_CONFLICT.
func (o *Orchestrator) run(ctx context.Context, p *pane.Pane) action.Result {
	mainGit := o.GitFor(p.ProjectRoot)
	err := mainGit.MergeBranch(ctx, p.Branch)
	if err == nil {
		return o.cleanup(ctx, p)
	}
	if _, ok := err.(*git.MergeConflictError); ok {
		return o.resolveConflict(ctx, p, "Merge Conflict")
	}
	return action.Err(fmt.Sprintf("merge failed: %v", err))
}

// cleanup implements CLEANUP -> DONE(success): merge succeeded, offer to
// close the now-merged pane.
func (o *Orchestrator) cleanup(ctx context.Context, p *pane.Pane) action.Result {
	return action.Result{
		Type:         action.KindConfirm,
		Title:        "Merge Complete",
		Message:      fmt.Sprintf("%q merged successfully. Close the pane?", p.Slug),
		ConfirmLabel: "Close pane",
		CancelLabel:  "Keep open",
		OnConfirm: func(ctx context.Context) action.Result {
			if o.Close != nil {
				if err := o.Close(ctx, p); err != nil {
					return action.Err(fmt.Sprintf("close pane: %v", err))
				}
			}
			return action.Success("merged and closed")
		},
		OnCancel: func(ctx context.Context) action.Result {
			return action.Success("merged")
		},
	}
}
