package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeCapturer struct {
	mu      sync.Mutex
	content string
	width   int
	height  int
	row     int
	col     int
	err     error
}

func (f *fakeCapturer) CapturePane(ctx context.Context, paneID string, startLine int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content, f.err
}

func (f *fakeCapturer) CursorPosition(ctx context.Context, paneID string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.row, f.col, f.err
}

func (f *fakeCapturer) PaneDimensions(ctx context.Context, paneID string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.width, f.height, f.err
}

func (f *fakeCapturer) set(content string, width, height int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content, f.width, f.height = content, width, height
}

func TestSubscribe_EmitsInitFirst(t *testing.T) {
	capturer := &fakeCapturer{content: "hello", width: 80, height: 24}
	s := &Streamer{Capturer: capturer, TickInterval: time.Hour, HeartbeatInterval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := s.Subscribe(ctx, "pane-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	evt := <-events
	if evt.Kind != EventInit || evt.Content != "hello" || evt.Width != 80 || evt.Height != 24 {
		t.Fatalf("want INIT with full content, got %+v", evt)
	}
}

func TestSubscribe_CaptureErrorFails(t *testing.T) {
	capturer := &fakeCapturer{err: errors.New("boom")}
	s := &Streamer{Capturer: capturer}
	_, err := s.Subscribe(context.Background(), "pane-1")
	if err == nil {
		t.Fatal("want error from failing capturer")
	}
}

func TestRun_EmitsPatchOnContentChange(t *testing.T) {
	capturer := &fakeCapturer{content: "hello", width: 80, height: 24}
	s := &Streamer{Capturer: capturer, TickInterval: 5 * time.Millisecond, HeartbeatInterval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := s.Subscribe(ctx, "pane-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-events // INIT

	capturer.set("hello world", 80, 24)
	evt := waitFor(t, events, EventPatch)
	if len(evt.Diffs) == 0 {
		t.Fatal("want non-empty diff ops")
	}
}

func TestRun_EmitsResizeOnDimensionChange(t *testing.T) {
	capturer := &fakeCapturer{content: "hello", width: 80, height: 24}
	s := &Streamer{Capturer: capturer, TickInterval: 5 * time.Millisecond, HeartbeatInterval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := s.Subscribe(ctx, "pane-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-events // INIT

	capturer.set("hello", 100, 30)
	evt := waitFor(t, events, EventResize)
	if evt.Width != 100 || evt.Height != 30 {
		t.Fatalf("want resized dimensions, got %+v", evt)
	}
}

func TestRun_EmitsHeartbeat(t *testing.T) {
	capturer := &fakeCapturer{content: "hello", width: 80, height: 24}
	s := &Streamer{Capturer: capturer, TickInterval: time.Hour, HeartbeatInterval: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := s.Subscribe(ctx, "pane-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-events // INIT
	waitFor(t, events, EventHeartbeat)
}

func TestRun_ClosesChannelOnContextCancel(t *testing.T) {
	capturer := &fakeCapturer{content: "hello", width: 80, height: 24}
	s := &Streamer{Capturer: capturer, TickInterval: time.Hour, HeartbeatInterval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	events, err := s.Subscribe(ctx, "pane-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-events // INIT
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("want channel drained then closed")
		}
	case <-time.After(time.Second):
		t.Fatal("want channel closed after context cancellation")
	}
}

func waitFor(t *testing.T, events <-chan Event, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-events:
			if evt.Kind == kind {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %q", kind)
		}
	}
}
