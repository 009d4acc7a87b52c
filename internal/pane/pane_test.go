package pane

import (
	"testing"

	"github.com/samuelreed/dmux/internal/analyzer"
)

func TestNextID_NeverRepeats(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NextID("pane")
		if seen[id] {
			t.Fatalf("NextID() repeated id %q", id)
		}
		seen[id] = true
	}
}

func TestPane_SetStatus_RequiresOptionsWhenWaiting(t *testing.T) {
	p := New("pane-1", KindWorktree, "slug", "do the thing")
	opts := []analyzer.Option{{Action: "Yes", Keys: []string{"y"}}}
	p.SetStatus(StatusWaiting, "Proceed?", opts, analyzer.PotentialHarm{}, "")

	status, question, options, _, _ := p.Status()
	if status != StatusWaiting {
		t.Errorf("Status() = %v, want waiting", status)
	}
	if question != "Proceed?" || len(options) != 1 {
		t.Errorf("expected question and options to be set, got %q %v", question, options)
	}
}

func TestPane_MarkOrphaned_ClearsTerminalID(t *testing.T) {
	p := New("pane-1", KindWorktree, "slug", "")
	p.BindTerminal("%3")
	p.MarkOrphaned()

	if !p.Orphaned || p.TerminalPaneID != "" {
		t.Errorf("MarkOrphaned() left Orphaned=%v TerminalPaneID=%q", p.Orphaned, p.TerminalPaneID)
	}
}

func TestPane_BindTerminal_ClearsOrphaned(t *testing.T) {
	p := New("pane-1", KindWorktree, "slug", "")
	p.MarkOrphaned()
	p.BindTerminal("%5")

	if p.Orphaned || p.TerminalPaneID != "%5" {
		t.Errorf("BindTerminal() left Orphaned=%v TerminalPaneID=%q", p.Orphaned, p.TerminalPaneID)
	}
}

func TestPane_SetAutopilot(t *testing.T) {
	p := New("pane-1", KindWorktree, "slug", "")
	if p.IsAutopilot() {
		t.Fatal("expected autopilot to default to false")
	}
	p.SetAutopilot(true)
	if !p.IsAutopilot() {
		t.Error("expected autopilot to be true after SetAutopilot(true)")
	}
}
