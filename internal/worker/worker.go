// Package worker implements the per-pane analyzer + autopilot loop (§4.5):
// one goroutine per live agent pane, tailing its rendered buffer,
// classifying state, and — only when explicitly authorized, and only ever
// from the deterministic pattern analyzer — sending keystrokes to auto-
// advance safe prompts. Modeled on the teacher's goroutine-per-background-
// task shape in internal/daemon.Run, narrowed to one goroutine per pane
// instead of one per daemon-wide concern, and on the agent-state precedence
// rule in other_examples' houston server.go (deterministic source first,
// richer/slower source only as a fallback).
package worker

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/samuelreed/dmux/internal/analyzer"
)

// Tmux is the subset of the tmux service a worker needs: read the pane's
// rendered buffer and, only from the autopilot path, send keystrokes.
type Tmux interface {
	CapturePane(ctx context.Context, paneID string, startLine int) (string, error)
	SendKeys(ctx context.Context, paneID string, keys ...string) error
}

const (
	// tickInterval is the cooperative loop's base polling cadence.
	tickInterval = 400 * time.Millisecond
	// workingBackoff is how long the loop sleeps after classifying
	// "working" — there is nothing new to report while an agent is still
	// producing output.
	workingBackoff = 1200 * time.Millisecond
	// captureLines bounds how much of the pane's scrollback the loop
	// re-reads each iteration.
	captureLines = 15
)

// Status is what a worker publishes once per loop iteration.
type Status struct {
	State         analyzer.PatternType
	Question      string
	Options       []analyzer.Option
	PotentialHarm analyzer.PotentialHarm
	Summary       string
}

// StateUnknown is published when the LLM analyzer isn't configured or its
// call failed; Status.State otherwise carries either a PatternType from the
// deterministic analyzer or the LLM's own state string verbatim, so this is
// the one sentinel value this package needs of its own.
const StateUnknown analyzer.PatternType = "unknown"

// Publisher hands a Status to whatever owns the pane — normally a small
// closure over internal/pane.Pane.SetStatus — so this package never needs
// to import internal/pane.
type Publisher func(Status)

// Config wires one Worker to its pane. Tmux is required; with a nil
// Analyzer the worker publishes StateUnknown whenever no pattern matches.
// IsAutopilot/Publish default to conservative no-ops when nil, and Logf
// to the standard log package.
type Config struct {
	PaneID         string
	TerminalPaneID string

	Tmux     Tmux
	Analyzer *analyzer.LLMAnalyzer

	// IsAutopilot is polled once per loop iteration so a user toggling
	// autopilot mid-session takes effect on the very next classification.
	IsAutopilot func() bool
	Publish     Publisher

	// Logf receives one line per classification/autopilot decision/error.
	// Nil logs through the standard log package.
	Logf func(format string, args ...any)
}

// Worker runs the single-threaded cooperative loop for one pane.
type Worker struct {
	cfg Config
}

// New builds a Worker. Call Run in its own goroutine; cancel the context to
// stop it (Run returns promptly and publishes no further updates).
func New(cfg Config) *Worker {
	if cfg.IsAutopilot == nil {
		cfg.IsAutopilot = func() bool { return false }
	}
	if cfg.Publish == nil {
		cfg.Publish = func(Status) {}
	}
	if cfg.Logf == nil {
		cfg.Logf = func(format string, args ...any) { log.Printf(format, args...) }
	}
	return &Worker{cfg: cfg}
}

func (w *Worker) logf(format string, args ...any) {
	w.cfg.Logf(format, args...)
}

func trimToLines(content string) []string {
	trimmed := strings.TrimRight(content, "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
