package worker

import (
	"context"
	"regexp"
	"time"
)

// trustWindow bounds the auto-acknowledger (§4.5.1): it only runs for this
// long after launch and is never retried once the main loop has started.
const trustWindow = 10 * time.Second

// trustPollInterval is how often the window re-captures the pane while
// watching for a stable first-run dialog.
const trustPollInterval = 300 * time.Millisecond

// trustPatterns catalog common first-run consent/trust phrasings across
// agent CLIs. Matching any of these is not itself sufficient to submit a
// keystroke — the match must also be stable across two consecutive polls,
// so a dialog still mid-render doesn't get a premature keypress.
var trustPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)trust the (files|code) in this (folder|directory)`),
	regexp.MustCompile(`(?i)do you trust`),
	regexp.MustCompile(`(?i)\[y/n\]`),
	regexp.MustCompile(`(?i)yes,?\s*(proceed|continue)`),
	regexp.MustCompile(`(?i)enter to confirm`),
}

// yesNoPattern distinguishes a bare y/n prompt (needs "y" then Enter) from
// a numbered menu (needs "1" then Enter, handled by the default branch).
var yesNoPattern = regexp.MustCompile(`(?i)\[y/n\]`)

func looksLikeTrustPrompt(lines []string) bool {
	if len(lines) == 0 {
		return false
	}
	tail := lastN(lines, captureLines)
	joined := joinLines(tail)
	for _, re := range trustPatterns {
		if re.MatchString(joined) {
			return true
		}
	}
	return false
}

// runTrustWindow polls the pane for up to trustWindow looking for a
// first-run trust/consent dialog. It only submits a keystroke once the
// same prompt content is observed on two consecutive polls, then re-
// verifies on the next poll that the prompt cleared, logging if it did
// not. It never runs again after returning.
func (w *Worker) runTrustWindow(ctx context.Context) {
	deadline := time.Now().Add(trustWindow)
	var lastContent string
	var stableSeen bool

	ticker := time.NewTicker(trustPollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		raw, err := w.cfg.Tmux.CapturePane(ctx, w.cfg.TerminalPaneID, -captureLines)
		if err != nil {
			w.logf("worker %s: trust window capture failed: %v", w.cfg.PaneID, err)
			continue
		}
		lines := trimToLines(raw)

		if !looksLikeTrustPrompt(lines) {
			if stableSeen {
				// Prompt cleared on its own (e.g. agent resolved it by
				// config); nothing left to acknowledge.
				return
			}
			lastContent = ""
			continue
		}

		joined := joinLines(lines)
		if stableSeen && joined == lastContent {
			keys := []string{"1", "Enter"}
			if yesNoPattern.MatchString(joined) {
				keys = []string{"y", "Enter"}
			}
			if err := w.cfg.Tmux.SendKeys(ctx, w.cfg.TerminalPaneID, keys...); err != nil {
				w.logf("worker %s: trust acknowledge failed: %v", w.cfg.PaneID, err)
				return
			}
			w.logf("worker %s: auto-acknowledged trust prompt with %v", w.cfg.PaneID, keys)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if raw, err := w.cfg.Tmux.CapturePane(ctx, w.cfg.TerminalPaneID, -captureLines); err == nil && looksLikeTrustPrompt(trimToLines(raw)) {
				w.logf("worker %s: trust prompt still present after acknowledge", w.cfg.PaneID)
			}
			return
		}

		lastContent = joined
		stableSeen = true
	}
}

func lastN(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
