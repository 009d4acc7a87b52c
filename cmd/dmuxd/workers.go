package main

import (
	"context"
	"sync"

	"github.com/samuelreed/dmux/internal/analyzer"
	"github.com/samuelreed/dmux/internal/pane"
	"github.com/samuelreed/dmux/internal/store"
	"github.com/samuelreed/dmux/internal/tmux"
	"github.com/samuelreed/dmux/internal/worker"
)

// workerPool runs one worker.Worker goroutine per live agent pane,
// starting one whenever pane.Manager's PaneCreated hook fires and
// stopping it when the pane closes or is reconciled away.
type workerPool struct {
	tmux     *tmux.RetryingClient
	analyzer *analyzer.LLMAnalyzer
	store    *store.Store

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newWorkerPool(t *tmux.RetryingClient, a *analyzer.LLMAnalyzer, s *store.Store) *workerPool {
	return &workerPool{
		tmux:     t,
		analyzer: a,
		store:    s,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// spawn starts a worker for p, tailing its terminal pane. A pane with no
// live terminal (orphaned, or a welcome pane) is not worth tailing.
func (wp *workerPool) spawn(ctx context.Context, p *pane.Pane) {
	if p.TerminalPaneID == "" || p.Kind == pane.KindWelcome {
		return
	}

	wp.mu.Lock()
	if _, exists := wp.cancels[p.ID]; exists {
		wp.mu.Unlock()
		return
	}
	workerCtx, cancel := context.WithCancel(ctx)
	wp.cancels[p.ID] = cancel
	wp.mu.Unlock()

	w := worker.New(worker.Config{
		PaneID:         p.ID,
		TerminalPaneID: p.TerminalPaneID,
		Tmux:           wp.tmux,
		Analyzer:       wp.analyzer,
		IsAutopilot:    p.IsAutopilot,
		Publish:        wp.publisher(p.ID),
	})
	go w.Run(workerCtx)
}

func (wp *workerPool) publisher(paneID string) worker.Publisher {
	return func(status worker.Status) {
		_ = wp.store.UpdatePaneStatus(paneID, mapWorkerState(status.State), status.Question, status.Options, status.PotentialHarm, status.Summary)
	}
}

// stop cancels the worker for paneID, if any. Safe to call for a pane
// that was never spawned.
func (wp *workerPool) stop(paneID string) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if cancel, ok := wp.cancels[paneID]; ok {
		cancel()
		delete(wp.cancels, paneID)
	}
}

// stopAll cancels every running worker, used on daemon shutdown.
func (wp *workerPool) stopAll() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	for id, cancel := range wp.cancels {
		cancel()
		delete(wp.cancels, id)
	}
}

// mapWorkerState translates the analyzer's pattern classification into the
// pane's coarser agent-status enumeration the store and HTTP API expose.
func mapWorkerState(state analyzer.PatternType) pane.AgentStatus {
	switch state {
	case analyzer.PatternInProgress:
		return pane.StatusWorking
	case analyzer.PatternOptionDialog, analyzer.PatternOpenPrompt:
		return pane.StatusWaiting
	case worker.StateUnknown:
		return pane.StatusUnknown
	default:
		return pane.StatusIdle
	}
}
