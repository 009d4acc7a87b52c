// Package callback implements the HTTP continuation registry backing
// `POST /api/callbacks/{kind}/{id}` (§4.8): every non-terminal ActionResult
// a dispatcher or the merge orchestrator produces is parked here under an
// opaque id until the HTTP client resolves it, instead of requiring the
// transport to hold the Go closures itself between requests.
package callback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samuelreed/dmux/internal/action"
)

// Kind identifies which continuation field of an ActionResult a pending
// entry resolves through.
type Kind string

const (
	KindConfirm Kind = "confirm"
	KindChoice  Kind = "choice"
	KindInput   Kind = "input"
)

// kindFor maps a non-terminal ActionResult's Type to the callback Kind a
// client must address it by. Terminal results (success/error/info/
// navigation/progress) never enter the registry.
func kindFor(t action.Kind) (Kind, bool) {
	switch t {
	case action.KindConfirm:
		return KindConfirm, true
	case action.KindChoice:
		return KindChoice, true
	case action.KindInput:
		return KindInput, true
	default:
		return "", false
	}
}

// entry is one pending continuation, the registry's unit of bookkeeping.
type entry struct {
	kind      Kind
	paneID    string
	result    action.Result
	createdAt time.Time
}

// Registry holds pending ActionResult continuations keyed by an opaque id,
// mirroring internal/store.Store's mutex-guarded map shape but keyed by
// callback id rather than pane id, and swept on a TTL instead of kept for
// the life of the process.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

// DefaultTTL bounds how long an unresolved dialog (a client that never
// calls back) is kept in memory before the sweep reclaims it.
const DefaultTTL = 30 * time.Minute

// New builds a Registry. ttl <= 0 uses DefaultTTL.
func New(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Register parks result under a fresh id if it is a continuable dialog
// shape (confirm/choice/input), returning ("", "", false) for anything
// else — the caller should return the terminal result to its client
// directly instead of minting a callback for it.
func (r *Registry) Register(paneID string, result action.Result) (id string, kind Kind, ok bool) {
	k, ok := kindFor(result.Type)
	if !ok {
		return "", "", false
	}
	id = uuid.NewString()
	r.mu.Lock()
	r.entries[id] = &entry{kind: k, paneID: paneID, result: result, createdAt: r.now()}
	r.mu.Unlock()
	return id, k, true
}

// RegisterIfContinuable either parks result and returns its callback id/
// kind, or — for a terminal result — returns ok=false so the caller knows
// to hand the result straight back with no callback attached.
func (r *Registry) RegisterIfContinuable(paneID string, result action.Result) (id string, kind Kind, ok bool) {
	return r.Register(paneID, result)
}

// ErrNotFound is returned by Resolve when id is unknown or expired.
var ErrNotFound = fmt.Errorf("callback not found")

// ErrKindMismatch is returned when the kind in the request path does not
// match the kind the callback was registered under.
var ErrKindMismatch = fmt.Errorf("callback kind mismatch")

// Confirm resolves a KindConfirm callback. confirmed selects OnConfirm vs.
// OnCancel; a nil OnCancel degrades to a plain cancelled success, matching
// the dispatcher's own nil-collaborator degradation convention.
func (r *Registry) Confirm(ctx context.Context, id string, confirmed bool) (action.Result, error) {
	e, err := r.take(id, KindConfirm)
	if err != nil {
		return action.Result{}, err
	}
	if confirmed {
		return e.result.OnConfirm(ctx), nil
	}
	if e.result.OnCancel != nil {
		return e.result.OnCancel(ctx), nil
	}
	return action.Success("cancelled"), nil
}

// Select resolves a KindChoice callback with the chosen option's id.
func (r *Registry) Select(ctx context.Context, id, choiceID string) (action.Result, error) {
	e, err := r.take(id, KindChoice)
	if err != nil {
		return action.Result{}, err
	}
	return e.result.OnSelect(ctx, choiceID), nil
}

// Submit resolves a KindInput callback with the entered value.
func (r *Registry) Submit(ctx context.Context, id, value string) (action.Result, error) {
	e, err := r.take(id, KindInput)
	if err != nil {
		return action.Result{}, err
	}
	return e.result.OnSubmit(ctx, value), nil
}

// take removes and returns the entry for id, validating kind matches.
// Every resolution consumes its callback: a dialog answered twice returns
// ErrNotFound the second time, the same one-shot contract a Bubble Tea
// dialog message has (it is acted on once, then the model moves on).
func (r *Registry) take(id string, kind Kind) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, found := r.entries[id]
	if !found {
		return nil, ErrNotFound
	}
	if e.kind != kind {
		return nil, ErrKindMismatch
	}
	delete(r.entries, id)
	return e, nil
}

// Sweep removes every entry older than the registry's ttl, returning how
// many were reclaimed. Intended to be called from a ticker loop (see Run).
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.entries {
		if e.createdAt.Before(cutoff) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on interval until ctx is cancelled, the same single-purpose
// ticker-loop-per-concern shape internal/worker.Worker.Run and
// internal/store's reconciliation ticker both use.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len reports how many callbacks are currently pending, for tests and
// diagnostics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
