package layout

import (
	"context"
	"errors"
	"testing"
)

type fakeTmux struct {
	width, height int
	indexes       map[string]int

	selectLayoutErr  error
	rejectBuiltin    bool
	selectLayoutCall []string
	resizeCalls      []string
}

func (f *fakeTmux) WindowSize(ctx context.Context, session string) (int, int, error) {
	return f.width, f.height, nil
}

func (f *fakeTmux) PaneIndexes(ctx context.Context, session string) (map[string]int, error) {
	return f.indexes, nil
}

func (f *fakeTmux) SelectLayout(ctx context.Context, session, layoutString string) error {
	f.selectLayoutCall = append(f.selectLayoutCall, layoutString)
	if layoutString == builtinFallbackLayout {
		if f.rejectBuiltin {
			return errors.New("invalid layout")
		}
		return nil
	}
	return f.selectLayoutErr
}

func (f *fakeTmux) ResizePane(ctx context.Context, paneID string, width, height int) error {
	f.resizeCalls = append(f.resizeCalls, paneID)
	return nil
}

func newEngine(tm *fakeTmux) *Engine {
	return &Engine{Tmux: tm}
}

func TestEngine_Recompute_HappyPath(t *testing.T) {
	tm := &fakeTmux{
		width: 215, height: 50,
		indexes: map[string]int{"%1": 0, "%2": 1, "%3": 2},
	}
	e := newEngine(tm)

	err := e.Recompute(context.Background(), "dmux", "%1", []string{"%2", "%3"})
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if len(tm.selectLayoutCall) != 1 {
		t.Fatalf("expected exactly one select-layout call on happy path, got %d: %v", len(tm.selectLayoutCall), tm.selectLayoutCall)
	}
	if tm.selectLayoutCall[0] == builtinFallbackLayout {
		t.Fatalf("expected custom layout string to be tried first, got builtin fallback")
	}
}

func TestEngine_Recompute_NoContentPanesPinsSidebar(t *testing.T) {
	tm := &fakeTmux{width: 100, height: 40}
	e := newEngine(tm)

	if err := e.Recompute(context.Background(), "dmux", "%1", nil); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if len(tm.selectLayoutCall) != 0 {
		t.Fatalf("expected no select-layout call when there are no content panes")
	}
	if len(tm.resizeCalls) != 1 || tm.resizeCalls[0] != "%1" {
		t.Fatalf("expected a single resize of the control pane, got %v", tm.resizeCalls)
	}
}

func TestEngine_Recompute_FallsBackToBuiltinLayout(t *testing.T) {
	tm := &fakeTmux{
		width: 215, height: 50,
		indexes:         map[string]int{"%1": 0, "%2": 1},
		selectLayoutErr: errors.New("custom layout rejected"),
	}
	var logs []string
	e := newEngine(tm)
	e.Logf = func(format string, args ...any) { logs = append(logs, format) }

	if err := e.Recompute(context.Background(), "dmux", "%1", []string{"%2"}); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if len(tm.selectLayoutCall) != 2 {
		t.Fatalf("expected custom string then builtin fallback, got %v", tm.selectLayoutCall)
	}
	if tm.selectLayoutCall[1] != builtinFallbackLayout {
		t.Fatalf("expected second call to be builtin fallback, got %q", tm.selectLayoutCall[1])
	}
	if len(tm.resizeCalls) != 1 {
		t.Fatalf("expected sidebar pinned after builtin fallback, got %v", tm.resizeCalls)
	}
	if len(logs) == 0 {
		t.Fatalf("expected fallback to be logged")
	}
}

func TestEngine_Recompute_FallsBackToDirectResizeAsLastResort(t *testing.T) {
	tm := &fakeTmux{
		width: 215, height: 50,
		indexes:         map[string]int{"%1": 0, "%2": 1},
		selectLayoutErr: errors.New("custom layout rejected"),
		rejectBuiltin:   true,
	}
	e := newEngine(tm)

	if err := e.Recompute(context.Background(), "dmux", "%1", []string{"%2"}); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if len(tm.selectLayoutCall) != 2 {
		t.Fatalf("expected both custom and builtin attempts, got %v", tm.selectLayoutCall)
	}
	if len(tm.resizeCalls) != 1 || tm.resizeCalls[0] != "%1" {
		t.Fatalf("expected a final direct resize of the control pane, got %v", tm.resizeCalls)
	}
}
