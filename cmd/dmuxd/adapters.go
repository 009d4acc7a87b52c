package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/samuelreed/dmux/internal/git"
	"github.com/samuelreed/dmux/internal/harness"
	"github.com/samuelreed/dmux/internal/pane"
	"github.com/samuelreed/dmux/internal/tmux"
)

// terminalLister adapts a RetryingClient + fixed session name to
// internal/store.TerminalLister.
type terminalLister struct {
	tmux    *tmux.RetryingClient
	session string
}

func (t *terminalLister) ListPaneIDs(ctx context.Context) ([]string, error) {
	infos, err := t.tmux.ListPanes(ctx, t.session)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.ID)
	}
	return ids, nil
}

// duplicator adapts pane.Manager.Create to action.Duplicator: DUPLICATE
// re-runs the create path with the source pane's prompt and agent.
type duplicator struct {
	mgr *pane.Manager
}

func (d *duplicator) Duplicate(ctx context.Context, p *pane.Pane) (*pane.Pane, error) {
	return d.mgr.Create(ctx, pane.CreateRequest{Prompt: p.Prompt, ExplicitAgent: p.Agent})
}

// editorOpener shells out to $EDITOR (falling back to $VISUAL, then vi) to
// satisfy action.EditorOpener.
type editorOpener struct{}

func (editorOpener) Open(ctx context.Context, path string) error {
	bin := os.Getenv("EDITOR")
	if bin == "" {
		bin = os.Getenv("VISUAL")
	}
	if bin == "" {
		bin = "vi"
	}
	cmd := exec.CommandContext(ctx, bin, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// ghPROpener adapts git.GH to action.PROpener: look up an existing PR for
// the branch before creating a new one, so OPEN_PR is idempotent across
// repeated calls.
type ghPROpener struct {
	gh *git.GH
}

func (p *ghPROpener) OpenOrCreatePR(ctx context.Context, worktreePath, branch, title, body string) (string, error) {
	if exists, resp, err := p.gh.PRExists(ctx, worktreePath); err == nil && exists {
		return resp.URL, nil
	}
	resp, err := p.gh.CreatePR(ctx, worktreePath, &git.PRRequest{
		Title: title,
		Body:  body,
		Head:  branch,
	})
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

// conflictSpawner adapts pane.Manager.CreateConflictResolution to
// merge.ConflictPaneSpawner. An ambiguous default agent falls back to the
// registry's first preference rather than failing the merge outright,
// since a conflict-resolution pane has no prior pane to inherit an agent
// choice from.
type conflictSpawner struct {
	mgr       *pane.Manager
	harnesses *harness.Registry
}

func (s *conflictSpawner) SpawnConflictResolution(ctx context.Context, targetRepoPath, targetBranch, sourceBranch string) (*pane.Pane, error) {
	req := pane.ConflictResolutionRequest{
		TargetRepoPath: targetRepoPath,
		TargetBranch:   targetBranch,
		SourceBranch:   sourceBranch,
	}
	p, err := s.mgr.CreateConflictResolution(ctx, req)
	var ambiguous *pane.AmbiguousAgentError
	if err != nil && asAmbiguous(err, &ambiguous) && len(ambiguous.Choices) > 0 {
		req.Agent = ambiguous.Choices[0]
		return s.mgr.CreateConflictResolution(ctx, req)
	}
	return p, err
}

func asAmbiguous(err error, target **pane.AmbiguousAgentError) bool {
	a, ok := err.(*pane.AmbiguousAgentError)
	if ok {
		*target = a
	}
	return ok
}

// commitQuery builds a merge.CommitQuery bound to whichever agent the
// registry resolves as default. It returns an error when no single default
// agent is configured or the query fails; callers supply their own fallback.
func commitQuery(harnesses *harness.Registry) func(ctx context.Context, prompt string) (string, error) {
	return func(ctx context.Context, prompt string) (string, error) {
		name, ok := harnesses.Default("")
		if !ok {
			return "", fmt.Errorf("no single default agent configured for commit message generation")
		}
		h, _ := harnesses.Get(name)
		return h.Query(ctx, prompt, harness.QueryOptions{Tier: harness.TierCheap})
	}
}

// conflictMonitor polls repoPath until its working tree is clean (the
// conflict-resolution agent has staged and committed the merge) or ctx is
// cancelled.
func conflictMonitor(gitFor func(path string) git.GitClient) func(ctx context.Context, repoPath string) error {
	return func(ctx context.Context, repoPath string) error {
		g := gitFor(repoPath)
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				dirty, err := g.HasUncommittedChanges(ctx)
				if err != nil {
					continue
				}
				if !dirty {
					return nil
				}
			}
		}
	}
}

// closeKillOnly adapts pane.Manager.Close(CloseKillOnly) to
// merge.ClosePane, used to tear down the conflict-resolution pane once
// the monitor observes a clean tree.
func closeKillOnly(mgr *pane.Manager) func(ctx context.Context, p *pane.Pane) error {
	return func(ctx context.Context, p *pane.Pane) error {
		return mgr.Close(ctx, p, pane.CloseKillOnly, nil)
	}
}

// commitBeforeDelete is the pane.DirtyWorktreeHandler used by CLOSE's
// delete_everything outcome: stage and commit whatever is dirty so the
// worktree removal that follows doesn't silently discard work, trying an
// agent-authored commit message before falling back to a canned one.
func commitBeforeDelete(gitFor func(path string) git.GitClient, harnesses *harness.Registry) pane.DirtyWorktreeHandler {
	query := commitQuery(harnesses)
	return func(ctx context.Context, p *pane.Pane) error {
		g := gitFor(p.WorktreePath)
		if err := g.StageAll(ctx); err != nil {
			return fmt.Errorf("stage changes before delete: %w", err)
		}
		msg, err := query(ctx, "Write a short, conventional commit message summarizing the staged diff.")
		if err != nil || msg == "" {
			msg = fmt.Sprintf("dmux: snapshot before deleting pane %s", p.Slug)
		}
		if err := g.Commit(ctx, msg); err != nil {
			return fmt.Errorf("commit before delete: %w", err)
		}
		return nil
	}
}
