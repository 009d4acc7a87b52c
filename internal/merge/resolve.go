package merge

import (
	"context"
	"fmt"

	"github.com/samuelreed/dmux/internal/action"
	"github.com/samuelreed/dmux/internal/git"
	"github.com/samuelreed/dmux/internal/pane"
)

const (
	choiceCommitAutomatic = "commit_automatic"
	choiceCommitEditable  = "commit_editable"
	choiceCommitManual    = "commit_manual"
	choiceCancel          = "cancel"
)

// resolveChoices is the four options every RESOLVE_MAIN/RESOLVE_WT dialog
// offers, per §4.6.
func resolveChoices() []action.Choice {
	return []action.Choice{
		{ID: choiceCommitAutomatic, Label: "Commit automatically", Description: "Generate a commit message with AI and commit.", Default: true},
		{ID: choiceCommitEditable, Label: "Commit with editable message", Description: "Generate a commit message with AI, then edit it before committing."},
		{ID: choiceCommitManual, Label: "Enter commit message manually"},
		{ID: choiceCancel, Label: "Cancel", Danger: false},
	}
}

// resolveMain implements RESOLVE_MAIN: the main branch has uncommitted
// changes that must be committed (or cancel) before VALIDATE can re-run.
func (o *Orchestrator) resolveMain(ctx context.Context, p *pane.Pane, mainGit git.GitClient) action.Result {
	return action.Result{
		Type:    action.KindChoice,
		Title:   "Main Branch Has Uncommitted Changes",
		Message: "The main branch has uncommitted changes that must be committed before merging.",
		Choices: resolveChoices(),
		OnSelect: func(ctx context.Context, id string) action.Result {
			return o.handleResolveChoice(ctx, p, mainGit, id, p.Branch)
		},
	}
}

// resolveWorktree implements RESOLVE_WT: same four options, against the
// pane's own worktree instead of main.
func (o *Orchestrator) resolveWorktree(ctx context.Context, p *pane.Pane, wtGit git.GitClient) action.Result {
	return action.Result{
		Type:    action.KindChoice,
		Title:   "Worktree Has Uncommitted Changes",
		Message: "This pane's worktree has uncommitted changes that must be committed before merging.",
		Choices: resolveChoices(),
		OnSelect: func(ctx context.Context, id string) action.Result {
			return o.handleResolveChoice(ctx, p, wtGit, id, p.Branch)
		},
	}
}

// handleResolveChoice dispatches one of the four RESOLVE_MAIN/RESOLVE_WT
// options against repoGit, re-entering VALIDATE once a commit (or cancel)
// completes.
func (o *Orchestrator) handleResolveChoice(ctx context.Context, p *pane.Pane, repoGit git.GitClient, id, branch string) action.Result {
	switch id {
	case choiceCancel:
		return action.Success("cancelled")
	case choiceCommitManual:
		return o.manualCommitInput(ctx, p, repoGit, "")
	case choiceCommitAutomatic, choiceCommitEditable:
		return o.aiCommit(ctx, p, repoGit, branch, id == choiceCommitEditable)
	default:
		return action.Err(fmt.Sprintf("unknown resolution option %q", id))
	}
}

// aiCommit stages all changes, builds a diff summary, and asks the agent
// harness (bounded by commitDeadline) for a conventional-commit message. A
// nil Commit func, an error, or a timeout falls back to a manual input
// prompt pre-filled with the diff summary (§4.6's commit-message
// generation paragraph). In "editable" mode the generated message is
// opened as an input default instead of committed directly.
func (o *Orchestrator) aiCommit(ctx context.Context, p *pane.Pane, repoGit git.GitClient, branch string, editable bool) action.Result {
	if err := repoGit.StageAll(ctx); err != nil {
		return action.Err(fmt.Sprintf("stage changes: %v", err))
	}
	diff, _ := repoGit.DiffSummary(ctx)

	if o.Commit == nil {
		return o.manualCommitInput(ctx, p, repoGit, diff)
	}

	queryCtx, cancel := context.WithTimeout(ctx, o.commitDeadline())
	defer cancel()
	prompt := commitMessagePrompt(branch, diff)
	message, err := o.Commit(queryCtx, prompt)
	if err != nil || message == "" {
		return o.manualCommitInput(ctx, p, repoGit, diff)
	}

	if editable {
		return action.Result{
			Type:         action.KindInput,
			Title:        "Edit Commit Message",
			DefaultValue: message,
			OnSubmit: func(ctx context.Context, value string) action.Result {
				return o.commitAndRevalidate(ctx, p, repoGit, value)
			},
		}
	}
	return o.commitAndRevalidate(ctx, p, repoGit, message)
}

// manualCommitInput implements the plain "enter a message yourself" path,
// and the fallback every aiCommit failure converges to.
func (o *Orchestrator) manualCommitInput(ctx context.Context, p *pane.Pane, repoGit git.GitClient, diffSummary string) action.Result {
	return action.Result{
		Type:         action.KindInput,
		Title:        "Commit Message",
		Placeholder:  "Describe these changes...",
		DefaultValue: diffSummary,
		OnSubmit: func(ctx context.Context, value string) action.Result {
			if value == "" {
				return action.Err("commit message cannot be empty")
			}
			return o.commitAndRevalidate(ctx, p, repoGit, value)
		},
	}
}

func (o *Orchestrator) commitAndRevalidate(ctx context.Context, p *pane.Pane, repoGit git.GitClient, message string) action.Result {
	if err := repoGit.Commit(ctx, message); err != nil {
		return action.Err(fmt.Sprintf("commit: %v", err))
	}
	return o.validate(ctx, p)
}

func commitMessagePrompt(branch, diffSummary string) string {
	return fmt.Sprintf(
		"Write a single conventional-commit message (type: short summary) for the following staged changes on branch %q. Reply with only the commit message, no commentary.\n\n%s",
		branch, diffSummary,
	)
}

// resolveConflict implements RESOLVE_CONFLICT: offer AI-assisted
// (spawn a conflict-resolution pane) or manual (jump to the worktree)
// resolution. AI-assisted blocks on Monitor until the conflict pane's
// repo is clean and the merge commit exists, then re-enters VALIDATE;
// manual simply returns a navigation Result pointing at the pane.
func (o *Orchestrator) resolveConflict(ctx context.Context, p *pane.Pane, title string) action.Result {
	return action.Result{
		Type:    action.KindChoice,
		Title:   title,
		Message: fmt.Sprintf("Merging %q will require conflict resolution.", p.Branch),
		Choices: []action.Choice{
			{ID: "ai_assisted", Label: "Resolve with AI", Description: "Spawn a resolution pane with an agent.", Default: true},
			{ID: "manual", Label: "Resolve manually", Description: "Jump to the worktree and resolve by hand."},
			{ID: choiceCancel, Label: "Cancel"},
		},
		OnSelect: func(ctx context.Context, id string) action.Result {
			switch id {
			case choiceCancel:
				return action.Success("cancelled")
			case "manual":
				return action.Navigate(p.ID)
			case "ai_assisted":
				return o.runConflictResolution(ctx, p)
			default:
				return action.Err(fmt.Sprintf("unknown resolution option %q", id))
			}
		},
	}
}

func (o *Orchestrator) runConflictResolution(ctx context.Context, p *pane.Pane) action.Result {
	if o.Spawner == nil {
		return action.Err("conflict resolution is not available")
	}
	baseBranch, err := o.GitFor(p.ProjectRoot).GetBaseBranch(ctx)
	if err != nil {
		baseBranch = "main"
	}
	resolutionPane, err := o.Spawner.SpawnConflictResolution(ctx, p.ProjectRoot, baseBranch, p.Branch)
	if err != nil {
		return action.Err(fmt.Sprintf("spawn conflict resolution pane: %v", err))
	}
	if o.Monitor != nil {
		if err := o.Monitor(ctx, p.ProjectRoot); err != nil {
			return action.Err(fmt.Sprintf("conflict resolution: %v", err))
		}
	}
	if o.Close != nil {
		_ = o.Close(ctx, resolutionPane)
	}
	return o.validate(ctx, p)
}
