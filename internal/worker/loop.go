package worker

import (
	"context"
	"time"

	"github.com/samuelreed/dmux/internal/analyzer"
)

// defaultKeys is what the worker sends when an option_dialog's first
// option doesn't carry its own keystrokes (should not happen in practice —
// ClassifyPattern always attaches Keys — but guards against a zero-value
// Option reaching here).
var defaultKeys = []string{"1", "Enter"}

// Run executes the trust-prompt auto-acknowledger (§4.5.1) followed by the
// single-threaded cooperative execution-model loop (§4.5), until ctx is
// cancelled. It returns promptly on cancellation and publishes no further
// status once it does.
func (w *Worker) Run(ctx context.Context) {
	w.runTrustWindow(ctx)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sleep := w.step(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		case <-ticker.C:
		}
	}
}

// step runs one execution-model iteration and returns how long to sleep
// before the next one.
func (w *Worker) step(ctx context.Context) time.Duration {
	raw, err := w.cfg.Tmux.CapturePane(ctx, w.cfg.TerminalPaneID, -captureLines)
	if err != nil {
		w.logf("worker %s: capture failed: %v", w.cfg.PaneID, err)
		return tickInterval
	}
	lines := trimToLines(raw)

	if result, ok := analyzer.ClassifyPattern(lines); ok {
		return w.handlePattern(ctx, result)
	}

	return w.handleLLM(ctx, lines)
}

// handlePattern publishes a deterministic classification and, for an
// option_dialog only, applies the autopilot decision. Only this path may
// ever send a keystroke — the load-bearing rule from §4.5.2.
func (w *Worker) handlePattern(ctx context.Context, result analyzer.PatternResult) time.Duration {
	if result.Type == analyzer.PatternInProgress {
		w.cfg.Publish(Status{State: analyzer.PatternInProgress})
		return workingBackoff
	}

	w.cfg.Publish(Status{
		State:    result.Type,
		Question: result.Question,
		Options:  result.Options,
	})

	if result.Type == analyzer.PatternOptionDialog && w.cfg.IsAutopilot() && len(result.Options) > 0 {
		w.applyAutopilot(ctx, result.Options[0])
	}

	return tickInterval
}

// applyAutopilot sends the chosen option's keystrokes. Called only from
// handlePattern, and only when the classification came from the
// deterministic analyzer with no potential-harm flag — the analyzer never
// attaches one, by construction, so there is nothing further to check
// here; the LLM path below can never reach this function.
func (w *Worker) applyAutopilot(ctx context.Context, option analyzer.Option) {
	keys := option.Keys
	if len(keys) == 0 {
		keys = defaultKeys
	}
	if err := w.cfg.Tmux.SendKeys(ctx, w.cfg.TerminalPaneID, keys...); err != nil {
		w.logf("worker %s: autopilot keystroke failed: %v", w.cfg.PaneID, err)
		return
	}
	w.logf("worker %s: autopilot selected %q (%v)", w.cfg.PaneID, option.Action, keys)
}

// handleLLM runs the display-only LLM analyzer when nothing deterministic
// matched. Its Options[].Keys must never drive autopilot — they are
// published for a human to click and nothing else reads them.
func (w *Worker) handleLLM(ctx context.Context, lines []string) time.Duration {
	if w.cfg.Analyzer == nil {
		w.cfg.Publish(Status{State: StateUnknown})
		return tickInterval
	}

	contentHash := analyzer.ContentHash(lines)
	result, err := w.cfg.Analyzer.Analyze(ctx, w.cfg.PaneID, contentHash, lines)
	if err != nil {
		w.logf("worker %s: LLM analyzer failed: %v", w.cfg.PaneID, err)
		w.cfg.Publish(Status{State: StateUnknown})
		return tickInterval
	}

	w.cfg.Publish(Status{
		State:         analyzer.PatternType(result.State),
		Question:      result.Question,
		Options:       result.Options,
		PotentialHarm: result.PotentialHarm,
		Summary:       result.Summary,
	})
	return tickInterval
}
