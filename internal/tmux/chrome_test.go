package tmux

import (
	"context"
	"testing"
)

func TestFormatPrefixHint(t *testing.T) {
	cases := map[string]string{
		"C-b": "^b",
		"C-a": "^a",
		"M-x": "M-x",
	}
	for in, want := range cases {
		if got := FormatPrefixHint(in); got != want {
			t.Errorf("FormatPrefixHint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAbbreviatePath(t *testing.T) {
	got := AbbreviatePath("/Users/sam/git/oss/dmux")
	want := "/U/s/g/o/dmux"
	if got != want {
		t.Errorf("AbbreviatePath = %q, want %q", got, want)
	}
}

func TestFormatStatusLineCounts(t *testing.T) {
	panes := []StatusPane{
		{Slug: "fix-login", Status: "working"},
		{Slug: "add-tests", Status: "waiting"},
	}
	line := FormatStatusLine(panes, "C-b", true)
	if line == "" {
		t.Fatal("expected non-empty status line")
	}
}

func TestTmuxVersionAtLeast(t *testing.T) {
	c := NewClient("test-socket")
	// With an already-cancelled context Version() cannot run tmux, whether
	// or not it is installed; tmuxVersionAtLeast must fail closed (false),
	// never panic.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if tmuxVersionAtLeast(c, ctx, 3, 0) {
		t.Error("expected false when the tmux version cannot be read")
	}
}
