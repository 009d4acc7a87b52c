// Package layout implements the sidebar+grid terminal layout engine
// (§4.4): given a control pane, a set of content panes, and the window's
// size, it computes a tmux custom select-layout string and applies it,
// falling back to a built-in layout and then direct resizing if the
// multiplexer rejects the custom string.
package layout

import (
	"context"
	"fmt"
)

// Tunable constants, following the spec's recommended defaults.
const (
	DefaultSidebarWidth      = 40
	DefaultMinContentWidth   = 60
	DefaultMaxContentWidth   = 120
	DefaultMinPaneHeight     = 15
	builtinFallbackLayout    = "main-vertical"
)

// Tmux is the subset of the tmux service the layout engine drives. Kept
// narrow (same pattern as internal/pane's local interfaces) so this
// package doesn't need a concrete internal/tmux import.
type Tmux interface {
	WindowSize(ctx context.Context, session string) (width, height int, err error)
	PaneIndexes(ctx context.Context, session string) (map[string]int, error)
	SelectLayout(ctx context.Context, session, layoutString string) error
	ResizePane(ctx context.Context, paneID string, width, height int) error
}

// Engine computes and applies layouts for one session.
type Engine struct {
	Tmux Tmux

	SidebarWidth    int
	MinContentWidth int
	MaxContentWidth int
	MinPaneHeight   int

	// Logf receives one line per application step (custom string tried,
	// fallback engaged, resize-only last resort), nil discards.
	Logf func(format string, args ...any)
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logf != nil {
		e.Logf(format, args...)
	}
}

func (e *Engine) sidebarWidth() int {
	if e.SidebarWidth > 0 {
		return e.SidebarWidth
	}
	return DefaultSidebarWidth
}

func (e *Engine) minContentWidth() int {
	if e.MinContentWidth > 0 {
		return e.MinContentWidth
	}
	return DefaultMinContentWidth
}

func (e *Engine) maxContentWidth() int {
	if e.MaxContentWidth > 0 {
		return e.MaxContentWidth
	}
	return DefaultMaxContentWidth
}

func (e *Engine) minPaneHeight() int {
	if e.MinPaneHeight > 0 {
		return e.MinPaneHeight
	}
	return DefaultMinPaneHeight
}

// Plan is the computed geometry for one Recompute call, returned alongside
// the error so callers (and tests) can inspect it without re-deriving it.
type Plan struct {
	Width, Height int
	Choice        ColumnChoice
	Cells         []Cell
	LayoutString  string
}

// Compute runs §4.4 steps 1-2 (column selection + tree construction)
// without touching tmux, so it can be unit tested deterministically.
func (e *Engine) Compute(width, height int, sidebarPaneID string, contentPaneIDs []string, paneIndexes map[string]int) Plan {
	indexOf := func(id string) int { return paneIndexes[id] }

	if len(contentPaneIDs) == 0 {
		return Plan{Width: width, Height: height}
	}

	contentWidth := width - e.sidebarWidth() - 1
	contentHeight := height
	choice := SelectColumns(len(contentPaneIDs), contentWidth, contentHeight, e.minContentWidth(), e.maxContentWidth(), e.minPaneHeight())
	cells := ComputeGrid(contentPaneIDs, choice, e.sidebarWidth()+1, 0, contentWidth, contentHeight)
	layoutString := buildLayoutString(width, height, e.sidebarWidth(), sidebarPaneID, cells, choice.Columns, indexOf)

	return Plan{Width: width, Height: height, Choice: choice, Cells: cells, LayoutString: layoutString}
}

// Recompute implements internal/pane.LayoutEngine: compute the layout for
// the current window size and pane set, then apply it with the §4.4 step
// 3 fallback chain (custom string -> main-vertical + pinned sidebar ->
// direct resize).
func (e *Engine) Recompute(ctx context.Context, session, controlPaneID string, contentPaneIDs []string) error {
	width, height, err := e.Tmux.WindowSize(ctx, session)
	if err != nil {
		return fmt.Errorf("window size: %w", err)
	}

	if len(contentPaneIDs) == 0 {
		e.logf("layout: no content panes, pinning sidebar width only")
		return e.Tmux.ResizePane(ctx, controlPaneID, e.sidebarWidth(), height)
	}

	indexes, err := e.Tmux.PaneIndexes(ctx, session)
	if err != nil {
		return fmt.Errorf("pane indexes: %w", err)
	}

	plan := e.Compute(width, height, controlPaneID, contentPaneIDs, indexes)

	if err := e.Tmux.SelectLayout(ctx, session, plan.LayoutString); err == nil {
		e.logf("layout: applied custom layout %q", plan.LayoutString)
		return nil
	} else {
		e.logf("layout: custom layout rejected, falling back to %s: %v", builtinFallbackLayout, err)
	}

	if err := e.Tmux.SelectLayout(ctx, session, builtinFallbackLayout); err == nil {
		if err := e.Tmux.ResizePane(ctx, controlPaneID, e.sidebarWidth(), height); err != nil {
			e.logf("layout: pinning sidebar after %s failed: %v", builtinFallbackLayout, err)
		}
		return nil
	} else {
		e.logf("layout: %s rejected, resizing sidebar directly as last resort: %v", builtinFallbackLayout, err)
	}

	if err := e.Tmux.ResizePane(ctx, controlPaneID, e.sidebarWidth(), height); err != nil {
		return fmt.Errorf("resize sidebar pane: %w", err)
	}
	return nil
}
