package action

import (
	"context"
	"fmt"

	"github.com/samuelreed/dmux/internal/pane"
)

// view focuses the pane's terminal; the TUI/HTTP layer reads TargetPaneID
// off the Result and does the actual focus switch.
func (d *Dispatcher) view(ctx context.Context, p *pane.Pane, params map[string]string) Result {
	return Navigate(p.ID)
}

// close presents the four CLOSE outcomes (§4.3) as a choice dialog.
// Selecting delete_everything with a dirty worktree is routed through
// onDirty (the merge orchestrator's commit-message handler, §4.6) before
// the manager actually deletes anything; Manager.Close itself decides
// whether onDirty needs to run.
func (d *Dispatcher) close(ctx context.Context, p *pane.Pane, params map[string]string) Result {
	if d.Closer == nil {
		return Err("close is not available")
	}
	return Result{
		Type:  KindChoice,
		Title: fmt.Sprintf("Close %q", p.Slug),
		Choices: []Choice{
			{ID: string(pane.CloseKillOnly), Label: "Kill pane only", Description: "Leaves the worktree and branch in place."},
			{ID: string(pane.CloseRemoveWorktree), Label: "Remove worktree", Description: "Kills the pane and removes the worktree, keeps the branch."},
			{ID: string(pane.CloseDeleteEverything), Label: "Delete everything", Description: "Kills the pane and deletes the worktree and branch.", Danger: true},
			{ID: string(pane.CloseCancel), Label: "Cancel", Default: true},
		},
		OnSelect: func(ctx context.Context, id string) Result {
			outcome := pane.CloseOutcome(id)
			if outcome == pane.CloseCancel {
				return Success("cancelled")
			}
			if err := d.Closer.Close(ctx, p, outcome, d.onDirtyWorktree); err != nil {
				return Err(fmt.Sprintf("close: %v", err))
			}
			return Success("closed")
		},
	}
}

// onDirtyWorktree is the DirtyWorktreeHandler passed to Closer.Close. It
// defers to the merge orchestrator when one is wired, since committing
// uncommitted work before a destructive delete is exactly what §4.6's
// commit-message handler already does; without a Merger the delete simply
// proceeds uncommitted.
func (d *Dispatcher) onDirtyWorktree(ctx context.Context, p *pane.Pane) error {
	if d.Merger == nil {
		return nil
	}
	d.Merger.Start(ctx, p)
	return nil
}

// merge hands off to the merge orchestrator's state machine (§4.6).
func (d *Dispatcher) merge(ctx context.Context, p *pane.Pane, params map[string]string) Result {
	if d.Merger == nil {
		return Err("merge is not available")
	}
	return d.Merger.Start(ctx, p)
}

// rename prompts for a new display label and applies it through the
// pane's own locked mutator, then persists via Store.Touch.
func (d *Dispatcher) rename(ctx context.Context, p *pane.Pane, params map[string]string) Result {
	return Result{
		Type:         KindInput,
		Title:        "Rename pane",
		DefaultValue: p.Slug,
		OnSubmit: func(ctx context.Context, value string) Result {
			if value == "" {
				return Err("name cannot be empty")
			}
			p.SetSlug(value)
			if d.Store != nil {
				if err := d.Store.Touch(p.ID); err != nil {
					return Err(fmt.Sprintf("rename: %v", err))
				}
			}
			return Success("renamed")
		},
	}
}

// duplicate creates a new pane derived from p: same prompt and agent, a
// fresh slug/branch/worktree of its own.
func (d *Dispatcher) duplicate(ctx context.Context, p *pane.Pane, params map[string]string) Result {
	if d.Dup == nil {
		return Err("duplicate is not available")
	}
	dup, err := d.Dup.Duplicate(ctx, p)
	if err != nil {
		return Err(fmt.Sprintf("duplicate: %v", err))
	}
	return Navigate(dup.ID)
}

// copyPath copies the worktree's filesystem path to the clipboard when a
// ClipCopy func is wired, otherwise just surfaces it for the caller to
// display.
func (d *Dispatcher) copyPath(ctx context.Context, p *pane.Pane, params map[string]string) Result {
	if p.WorktreePath == "" {
		return Err("pane has no worktree")
	}
	if d.ClipCopy != nil {
		if err := d.ClipCopy(p.WorktreePath); err != nil {
			return Err(fmt.Sprintf("copy path: %v", err))
		}
		return Success("path copied")
	}
	return Info(p.WorktreePath)
}

// openEditor launches the configured editor against the pane's worktree.
func (d *Dispatcher) openEditor(ctx context.Context, p *pane.Pane, params map[string]string) Result {
	if d.Editor == nil {
		return Err("open editor is not available")
	}
	if p.WorktreePath == "" {
		return Err("pane has no worktree")
	}
	if err := d.Editor.Open(ctx, p.WorktreePath); err != nil {
		return Err(fmt.Sprintf("open editor: %v", err))
	}
	return Success("editor opened")
}

// toggleAutopilot flips the pane's autopilot flag and persists it.
func (d *Dispatcher) toggleAutopilot(ctx context.Context, p *pane.Pane, params map[string]string) Result {
	p.SetAutopilot(!p.IsAutopilot())
	if d.Store != nil {
		if err := d.Store.Touch(p.ID); err != nil {
			return Err(fmt.Sprintf("toggle autopilot: %v", err))
		}
	}
	if p.IsAutopilot() {
		return Success("autopilot on")
	}
	return Success("autopilot off")
}

// openPR creates or looks up the pull request for the pane's branch.
// title/body come from params, matching the dispatcher's general
// contract that RENAME-style string inputs travel through params rather
// than a dedicated Result field.
func (d *Dispatcher) openPR(ctx context.Context, p *pane.Pane, params map[string]string) Result {
	if d.PR == nil {
		return Err("open PR is not available")
	}
	if p.WorktreePath == "" || p.Branch == "" {
		return Err("pane has no worktree")
	}
	url, err := d.PR.OpenOrCreatePR(ctx, p.WorktreePath, p.Branch, params["title"], params["body"])
	if err != nil {
		return Err(fmt.Sprintf("open PR: %v", err))
	}
	return Success(url)
}
