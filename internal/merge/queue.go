package merge

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samuelreed/dmux/internal/action"
	"github.com/samuelreed/dmux/internal/pane"
)

// QueueSummary tallies how a merge queue run finished, per §4.6's
// "Final summary reports counts per outcome."
type QueueSummary struct {
	Completed int // items that ended in any success or info result (including a cancel)
	Skipped   int
	Failed    int
	Aborted   int // remaining items left unprocessed after abort-all
}

// QueueRunner drives a sequence of panes through an Orchestrator one at a
// time, deepest-worktree-first, so a sub-worktree merges into its parent
// before the parent merges into its own ancestor (§4.6's multi-repository
// mode). It wraps every ActionResult the per-pane machine produces so that
// a terminal success/info advances to the next item and a terminal error
// offers skip/retry/abort-all, without the caller needing to know it is
// driving more than one pane.
type QueueRunner struct {
	Orchestrator *Orchestrator

	items   []*pane.Pane
	idx     int
	summary QueueSummary
}

// NewQueue builds a QueueRunner over panes, sorted deepest-worktree-first.
func NewQueue(o *Orchestrator, panes []*pane.Pane) *QueueRunner {
	return &QueueRunner{Orchestrator: o, items: sortDeepestFirst(panes)}
}

func sortDeepestFirst(panes []*pane.Pane) []*pane.Pane {
	sorted := make([]*pane.Pane, len(panes))
	copy(sorted, panes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return worktreeDepth(sorted[i].WorktreePath) > worktreeDepth(sorted[j].WorktreePath)
	})
	return sorted
}

func worktreeDepth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(filepath.Clean(path), string(filepath.Separator))
}

// Start begins processing the queue's first item.
func (q *QueueRunner) Start(ctx context.Context) action.Result {
	if len(q.items) == 0 {
		return action.Info("no panes to merge")
	}
	q.idx = 0
	return q.wrap(ctx, q.Orchestrator.Start(ctx, q.items[q.idx]))
}

// wrap re-homes every continuation in r so that it re-enters the queue
// driver instead of simply returning to the caller, leaving non-terminal
// dialog shapes (Confirm/Choice/Input) otherwise untouched.
func (q *QueueRunner) wrap(ctx context.Context, r action.Result) action.Result {
	switch r.Type {
	case action.KindSuccess, action.KindInfo:
		q.summary.Completed++
		return q.advance(ctx)
	case action.KindError:
		return q.onItemFailed(r.Message)
	case action.KindConfirm:
		onConfirm, onCancel := r.OnConfirm, r.OnCancel
		r.OnConfirm = func(ctx context.Context) action.Result { return q.wrap(ctx, onConfirm(ctx)) }
		if onCancel != nil {
			r.OnCancel = func(ctx context.Context) action.Result { return q.wrap(ctx, onCancel(ctx)) }
		}
		return r
	case action.KindChoice:
		onSelect := r.OnSelect
		r.OnSelect = func(ctx context.Context, id string) action.Result { return q.wrap(ctx, onSelect(ctx, id)) }
		return r
	case action.KindInput:
		onSubmit := r.OnSubmit
		r.OnSubmit = func(ctx context.Context, value string) action.Result { return q.wrap(ctx, onSubmit(ctx, value)) }
		return r
	default:
		return r
	}
}

func (q *QueueRunner) advance(ctx context.Context) action.Result {
	q.idx++
	if q.idx >= len(q.items) {
		return q.finish()
	}
	return q.wrap(ctx, q.Orchestrator.Start(ctx, q.items[q.idx]))
}

// onItemFailed offers the skip/retry/abort-all choice the spec calls for
// when one queue item's merge fails.
func (q *QueueRunner) onItemFailed(message string) action.Result {
	current := q.items[q.idx]
	return action.Result{
		Type:    action.KindChoice,
		Title:   "Merge Failed",
		Message: fmt.Sprintf("Merging %q failed: %s", current.Slug, message),
		Choices: []action.Choice{
			{ID: "retry", Label: "Retry", Default: true},
			{ID: "skip", Label: "Skip"},
			{ID: "abort_all", Label: "Abort remaining", Danger: true},
		},
		OnSelect: func(ctx context.Context, id string) action.Result {
			switch id {
			case "retry":
				return q.wrap(ctx, q.Orchestrator.Start(ctx, current))
			case "skip":
				q.summary.Skipped++
				return q.advance(ctx)
			case "abort_all":
				q.summary.Failed++
				q.summary.Aborted = len(q.items) - q.idx - 1
				return q.finish()
			default:
				return action.Err(fmt.Sprintf("unknown queue option %q", id))
			}
		},
	}
}

func (q *QueueRunner) finish() action.Result {
	return action.Success(fmt.Sprintf(
		"merge queue complete: %d completed, %d skipped, %d failed, %d aborted",
		q.summary.Completed, q.summary.Skipped, q.summary.Failed, q.summary.Aborted,
	))
}

// Summary returns the queue's running tally, usable once Start's returned
// continuation chain reaches a terminal Result.
func (q *QueueRunner) Summary() QueueSummary { return q.summary }
