package tmux

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RetryClass selects a retry budget for a tmux operation.
type RetryClass int

const (
	// ClassNone never retries. Use for destructive operations (kill-pane,
	// kill-session) where a retried call after partial success could
	// double-apply.
	ClassNone RetryClass = iota
	// ClassFast retries UI mutations (split, resize, layout) up to twice
	// with a short total budget.
	ClassFast
	// ClassIdempotent retries reads (list-panes, capture-pane, dimensions)
	// up to three times with a longer total budget.
	ClassIdempotent
)

var retryBudgets = map[RetryClass]struct {
	attempts int
	total    time.Duration
}{
	ClassNone:       {attempts: 1, total: 0},
	ClassFast:       {attempts: 3, total: 200 * time.Millisecond},
	ClassIdempotent: {attempts: 4, total: 500 * time.Millisecond},
}

// permanentPhrases are substrings of tmux stderr output that indicate the
// command can never succeed by retrying. Matched case-insensitively.
var permanentPhrases = []string{
	"no such session",
	"can't find pane",
	"can't find window",
	"command not found",
	"permission denied",
	"invalid",
	"unknown option",
	"ambiguous",
}

// PermanentError wraps a tmux error classified as non-retryable.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent reports whether err is (or wraps) a classified permanent
// host error.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range permanentPhrases {
		if strings.Contains(msg, phrase) {
			return &PermanentError{Err: err}
		}
	}
	return err
}

// RetryingClient wraps Client with the three-class retry policy from the
// spec: permanent-host errors are never retried regardless of class; other
// errors are retried up to the class's attempt/budget cap with a small
// linear backoff between attempts. All attempts of a command together are
// bounded by the class's total budget (ClassNone commands still get a
// generous fixed deadline since "no retry" does not mean "no timeout").
type RetryingClient struct {
	*Client
	// Logf receives one line per retry/failure/fallback for diagnostics.
	// Nil discards.
	Logf func(format string, args ...any)
}

// NewRetrying wraps an existing Client.
func NewRetrying(c *Client) *RetryingClient {
	return &RetryingClient{Client: c}
}

func (r *RetryingClient) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

// Do runs op under the given retry class, applying backoff between
// attempts and never retrying a classified-permanent error.
func (r *RetryingClient) Do(ctx context.Context, class RetryClass, op func(ctx context.Context) error) error {
	budget := retryBudgets[class]
	if budget.attempts <= 0 {
		budget.attempts = 1
	}

	deadline := 5 * time.Second
	if budget.total > 0 {
		deadline = budget.total
	}
	parent := ctx
	ctx, cancelAll := context.WithTimeout(parent, deadline)
	defer cancelAll()

	var lastErr error
	for attempt := 0; attempt < budget.attempts; attempt++ {
		err := op(ctx)

		if err == nil {
			return nil
		}

		classified := classify(err)
		if IsPermanent(classified) {
			r.logf("tmux: permanent error, not retrying: %v", classified)
			return classified
		}
		lastErr = classified

		if class == ClassNone {
			return lastErr
		}
		if attempt < budget.attempts-1 {
			r.logf("tmux: attempt %d failed, retrying: %v", attempt+1, err)
			select {
			case <-time.After(time.Duration(attempt+1) * 20 * time.Millisecond):
			case <-ctx.Done():
				if parent.Err() != nil {
					return parent.Err()
				}
				return lastErr
			}
		}
	}
	return lastErr
}

// SplitWindow is the retrying form of Client.SplitWindow (ClassFast).
func (r *RetryingClient) SplitWindow(ctx context.Context, session, command string) (string, error) {
	var paneID string
	err := r.Do(ctx, ClassFast, func(ctx context.Context) error {
		id, err := r.Client.SplitWindow(ctx, session, command)
		if err != nil {
			return err
		}
		paneID = id
		return nil
	})
	return paneID, err
}

// KillPane is the retrying form of Client.KillPane (ClassNone: destructive).
func (r *RetryingClient) KillPane(ctx context.Context, paneID string) error {
	return r.Do(ctx, ClassNone, func(ctx context.Context) error {
		return r.Client.KillPane(ctx, paneID)
	})
}

// SelectLayout is the retrying form of Client.SelectLayout (ClassFast).
func (r *RetryingClient) SelectLayout(ctx context.Context, session, layout string) error {
	return r.Do(ctx, ClassFast, func(ctx context.Context) error {
		return r.Client.SelectLayout(ctx, session, layout)
	})
}

// ResizePane is the retrying form of Client.ResizePane (ClassFast).
func (r *RetryingClient) ResizePane(ctx context.Context, paneID string, width, height int) error {
	return r.Do(ctx, ClassFast, func(ctx context.Context) error {
		return r.Client.ResizePane(ctx, paneID, width, height)
	})
}

// ListPanes is the retrying form of Client.ListPanes (ClassIdempotent: read).
func (r *RetryingClient) ListPanes(ctx context.Context, session string) ([]PaneInfo, error) {
	var panes []PaneInfo
	err := r.Do(ctx, ClassIdempotent, func(ctx context.Context) error {
		p, err := r.Client.ListPanes(ctx, session)
		if err != nil {
			return err
		}
		panes = p
		return nil
	})
	return panes, err
}

// CapturePane is the retrying form of Client.CapturePane (ClassIdempotent).
func (r *RetryingClient) CapturePane(ctx context.Context, paneID string, startLine int) (string, error) {
	var content string
	err := r.Do(ctx, ClassIdempotent, func(ctx context.Context) error {
		c, err := r.Client.CapturePane(ctx, paneID, startLine)
		if err != nil {
			return err
		}
		content = c
		return nil
	})
	return content, err
}

// PaneDimensions is the retrying form of Client.PaneDimensions (ClassIdempotent).
func (r *RetryingClient) PaneDimensions(ctx context.Context, paneID string) (int, int, error) {
	var w, h int
	err := r.Do(ctx, ClassIdempotent, func(ctx context.Context) error {
		cw, ch, err := r.Client.PaneDimensions(ctx, paneID)
		if err != nil {
			return err
		}
		w, h = cw, ch
		return nil
	})
	return w, h, err
}

// WindowSize is the retrying form of Client.WindowSize (ClassIdempotent).
func (r *RetryingClient) WindowSize(ctx context.Context, session string) (int, int, error) {
	var w, h int
	err := r.Do(ctx, ClassIdempotent, func(ctx context.Context) error {
		cw, ch, err := r.Client.WindowSize(ctx, session)
		if err != nil {
			return err
		}
		w, h = cw, ch
		return nil
	})
	return w, h, err
}

// PaneIndexes is the retrying form of Client.PaneIndexes (ClassIdempotent).
func (r *RetryingClient) PaneIndexes(ctx context.Context, session string) (map[string]int, error) {
	var out map[string]int
	err := r.Do(ctx, ClassIdempotent, func(ctx context.Context) error {
		m, err := r.Client.PaneIndexes(ctx, session)
		if err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

// SendKeys is the retrying form of Client.SendKeys (ClassFast).
func (r *RetryingClient) SendKeys(ctx context.Context, paneID string, keys ...string) error {
	return r.Do(ctx, ClassFast, func(ctx context.Context) error {
		return r.Client.SendKeys(ctx, paneID, keys...)
	})
}

// InjectText is the retrying form of Client.InjectText (ClassFast).
func (r *RetryingClient) InjectText(ctx context.Context, paneID, bufferName, text string) error {
	return r.Do(ctx, ClassFast, func(ctx context.Context) error {
		return r.Client.InjectText(ctx, paneID, bufferName, text)
	})
}
