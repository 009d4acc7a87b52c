package action

import (
	"context"
	"fmt"

	"github.com/samuelreed/dmux/internal/pane"
)

// Name is one of the fixed registered action enumeration (§4.7).
type Name string

const (
	ActionView            Name = "VIEW"
	ActionClose           Name = "CLOSE"
	ActionMerge           Name = "MERGE"
	ActionRename          Name = "RENAME"
	ActionDuplicate       Name = "DUPLICATE"
	ActionCopyPath        Name = "COPY_PATH"
	ActionOpenEditor      Name = "OPEN_EDITOR"
	ActionToggleAutopilot Name = "TOGGLE_AUTOPILOT"
	ActionOpenPR          Name = "OPEN_PR"
)

// AllActions is the fixed enumeration in display order.
var AllActions = []Name{
	ActionView, ActionClose, ActionMerge, ActionRename, ActionDuplicate,
	ActionCopyPath, ActionOpenEditor, ActionToggleAutopilot, ActionOpenPR,
}

// Func is one registered action: given the target pane and optional
// params (e.g. RENAME's new label), produce the first Result in what may
// be a continuation chain.
type Func func(ctx context.Context, p *pane.Pane, params map[string]string) Result

// Store is the narrow slice of the state store the dispatcher needs:
// looking a pane up by id and persisting a direct in-place mutation.
type Store interface {
	ListPanes() []*pane.Pane
	Touch(paneID string) error
}

// Merger starts the merge orchestrator's state machine for a pane (§4.6),
// returning its first Result — usually CONFIRM or a resolution dialog.
// internal/merge implements this; the dispatcher only needs the one
// entry point.
type Merger interface {
	Start(ctx context.Context, p *pane.Pane) Result
}

// Duplicator creates a new pane derived from an existing one (DUPLICATE):
// same prompt and agent, a fresh slug/branch/worktree. internal/pane's
// Manager.Create, given a CreateRequest built from the source pane,
// satisfies this through a small adapter at wiring time.
type Duplicator interface {
	Duplicate(ctx context.Context, p *pane.Pane) (*pane.Pane, error)
}

// Closer runs the §4.3 close algorithm; internal/pane.Manager satisfies it
// directly.
type Closer interface {
	Close(ctx context.Context, p *pane.Pane, outcome pane.CloseOutcome, onDirty pane.DirtyWorktreeHandler) error
}

// EditorOpener launches an editor for a filesystem path (OPEN_EDITOR).
type EditorOpener interface {
	Open(ctx context.Context, path string) error
}

// PROpener creates or looks up a pull request for a pane's branch
// (OPEN_PR); internal/git.GH satisfies this through a small adapter.
type PROpener interface {
	OpenOrCreatePR(ctx context.Context, worktreePath, branch, title, body string) (url string, err error)
}

// Dispatcher wires the fixed action set to the collaborators each action
// needs. Every field may be left nil except Store; an action whose
// collaborator is nil returns a KindError Result instead of panicking, so
// a partially-wired dispatcher (e.g. in a daemon still starting up) stays
// safe to call.
type Dispatcher struct {
	Store    Store
	Closer   Closer
	Merger   Merger
	Dup      Duplicator
	Editor   EditorOpener
	PR       PROpener
	ClipCopy func(text string) error

	handlers map[Name]Func
}

// New builds a Dispatcher with the fixed action set registered.
func New() *Dispatcher {
	d := &Dispatcher{handlers: make(map[Name]Func, len(AllActions))}
	d.handlers[ActionView] = d.view
	d.handlers[ActionClose] = d.close
	d.handlers[ActionMerge] = d.merge
	d.handlers[ActionRename] = d.rename
	d.handlers[ActionDuplicate] = d.duplicate
	d.handlers[ActionCopyPath] = d.copyPath
	d.handlers[ActionOpenEditor] = d.openEditor
	d.handlers[ActionToggleAutopilot] = d.toggleAutopilot
	d.handlers[ActionOpenPR] = d.openPR
	return d
}

// Actions returns the action names valid for p. Every action in the fixed
// set applies to every non-welcome pane except OPEN_PR and MERGE, which
// require a worktree.
func (d *Dispatcher) Actions(p *pane.Pane) []Name {
	if p.Kind == pane.KindWelcome {
		return []Name{ActionClose}
	}
	out := make([]Name, 0, len(AllActions))
	for _, n := range AllActions {
		if (n == ActionOpenPR || n == ActionMerge) && p.WorktreePath == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Dispatch runs the named action against p. An unregistered name (should
// not happen given the fixed enumeration, but params can arrive from an
// untrusted HTTP body) returns a KindError Result rather than panicking.
func (d *Dispatcher) Dispatch(ctx context.Context, name Name, p *pane.Pane, params map[string]string) Result {
	h, ok := d.handlers[name]
	if !ok {
		return Err(fmt.Sprintf("unknown action %q", name))
	}
	return h(ctx, p, params)
}

// DispatchOption routes a pattern-detected option dialog's selected option
// by sending its keystrokes directly through tmux, bypassing the named
// action set entirely — per §4.7's note that the dispatcher also routes
// option dialogs this way.
func (d *Dispatcher) DispatchOption(ctx context.Context, sendKeys func(ctx context.Context, keys ...string) error, keys []string) Result {
	if err := sendKeys(ctx, keys...); err != nil {
		return Err(fmt.Sprintf("send keys: %v", err))
	}
	return Success("sent")
}
