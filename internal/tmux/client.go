// Package tmux wraps the tmux CLI: pane/layout/status commands plus a
// retrying command layer (see retry.go) that centralizes error
// classification and retry policy for every caller in the engine.
package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client wraps tmux CLI commands for a specific server socket.
type Client struct {
	socket string
}

// NewClient creates a tmux client targeting the given socket name.
func NewClient(socket string) *Client {
	return &Client{socket: socket}
}

// Socket returns the socket name.
func (c *Client) Socket() string {
	return c.socket
}

// run executes a tmux command with the socket flag.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-L", c.socket}, args...)
	cmd := exec.CommandContext(ctx, "tmux", fullArgs...)
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// ServerRunning checks if a tmux server is running on this socket.
func (c *Client) ServerRunning(ctx context.Context) (bool, error) {
	_, err := c.run(ctx, "list-sessions")
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			if exitErr.ExitCode() == 1 {
				return false, nil
			}
		}
		if strings.Contains(err.Error(), "executable file not found") {
			return false, fmt.Errorf("tmux not installed: %w", err)
		}
		return false, nil
	}
	return true, nil
}

// Version returns the tmux version string (e.g., "3.4").
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "tmux", "-V").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tmux not installed: %w", err)
	}
	parts := strings.Fields(strings.TrimSpace(string(out)))
	if len(parts) >= 2 {
		return parts[1], nil
	}
	return strings.TrimSpace(string(out)), nil
}

// Prefix returns the user's configured tmux prefix key (e.g., "C-b").
func (c *Client) Prefix(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "show-option", "-gv", "prefix")
	if err != nil {
		return "C-b", nil
	}
	return out, nil
}

// PaneInfo describes a tmux pane.
type PaneInfo struct {
	ID      string // e.g., "%0"
	Index   int
	Active  bool
	Dead    bool
	Width   int
	Height  int
	Command string
}

// SplitWindow creates a new pane in the session running the given command.
// Returns the pane ID (e.g., "%3"). tmux's -P -F form blocks until the pane
// exists and prints its ID, so no additional settle sleep is needed.
func (c *Client) SplitWindow(ctx context.Context, session, command string) (string, error) {
	out, err := c.run(ctx, "split-window", "-t", session, "-P", "-F", "#{pane_id}", command)
	if err != nil {
		return "", fmt.Errorf("split-window: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ListPanes returns all panes in a session.
func (c *Client) ListPanes(ctx context.Context, session string) ([]PaneInfo, error) {
	format := "#{pane_id}\t#{pane_index}\t#{pane_active}\t#{pane_width}\t#{pane_height}\t#{pane_current_command}\t#{pane_dead}"
	out, err := c.run(ctx, "list-panes", "-t", session, "-F", format)
	if err != nil {
		return nil, fmt.Errorf("list-panes: %w", err)
	}
	var panes []PaneInfo
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 7)
		if len(fields) < 6 {
			continue
		}
		p := PaneInfo{
			ID:      fields[0],
			Active:  fields[2] == "1",
			Command: fields[5],
		}
		if len(fields) >= 7 {
			p.Dead = fields[6] == "1"
		}
		fmt.Sscanf(fields[1], "%d", &p.Index)
		fmt.Sscanf(fields[3], "%d", &p.Width)
		fmt.Sscanf(fields[4], "%d", &p.Height)
		panes = append(panes, p)
	}
	return panes, nil
}

// KillPane destroys a pane by ID.
func (c *Client) KillPane(ctx context.Context, paneID string) error {
	_, err := c.run(ctx, "kill-pane", "-t", paneID)
	return err
}

// SelectPane focuses a pane by ID.
func (c *Client) SelectPane(ctx context.Context, paneID string) error {
	_, err := c.run(ctx, "select-pane", "-t", paneID)
	return err
}

// SetPaneTitle sets a pane's display title.
func (c *Client) SetPaneTitle(ctx context.Context, paneID, title string) error {
	_, err := c.run(ctx, "select-pane", "-t", paneID, "-T", title)
	return err
}

// SetPaneOption sets a user-defined pane option (e.g., @dmux-pane-id).
func (c *Client) SetPaneOption(ctx context.Context, paneID, key, value string) error {
	_, err := c.run(ctx, "set-option", "-p", "-t", paneID, key, value)
	return err
}

// GetPaneOption reads a user-defined pane option.
func (c *Client) GetPaneOption(ctx context.Context, paneID, key string) (string, error) {
	out, err := c.run(ctx, "show-option", "-p", "-t", paneID, "-v", key)
	if err != nil {
		return "", err
	}
	return out, nil
}

// SelectLayout sets the layout for panes in a session, either a named
// built-in layout ("main-vertical", "tiled", ...) or a custom layout
// string produced by internal/layout.
func (c *Client) SelectLayout(ctx context.Context, session, layout string) error {
	_, err := c.run(ctx, "select-layout", "-t", session, layout)
	return err
}

// ResizePane resizes a pane to an absolute width/height, used as the
// layout engine's last-resort fallback.
func (c *Client) ResizePane(ctx context.Context, paneID string, width, height int) error {
	if width > 0 {
		if _, err := c.run(ctx, "resize-pane", "-t", paneID, "-x", fmt.Sprintf("%d", width)); err != nil {
			return fmt.Errorf("resize-pane -x: %w", err)
		}
	}
	if height > 0 {
		if _, err := c.run(ctx, "resize-pane", "-t", paneID, "-y", fmt.Sprintf("%d", height)); err != nil {
			return fmt.Errorf("resize-pane -y: %w", err)
		}
	}
	return nil
}

// SendKeys sends keystrokes to a pane.
func (c *Client) SendKeys(ctx context.Context, paneID string, keys ...string) error {
	args := append([]string{"send-keys", "-t", paneID}, keys...)
	_, err := c.run(ctx, args...)
	return err
}

// CapturePane captures the pane's visible content (or scrollback with
// startLine < 0) as a single newline-joined string.
func (c *Client) CapturePane(ctx context.Context, paneID string, startLine int) (string, error) {
	args := []string{"capture-pane", "-t", paneID, "-p"}
	if startLine != 0 {
		args = append(args, "-S", fmt.Sprintf("%d", startLine))
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("capture-pane: %w", err)
	}
	return out, nil
}

// CursorPosition returns the 0-indexed cursor row/column within the pane.
func (c *Client) CursorPosition(ctx context.Context, paneID string) (row, col int, err error) {
	out, runErr := c.run(ctx, "display-message", "-p", "-t", paneID, "#{cursor_y} #{cursor_x}")
	if runErr != nil {
		return 0, 0, fmt.Errorf("cursor position: %w", runErr)
	}
	fmt.Sscanf(out, "%d %d", &row, &col)
	return row, col, nil
}

// PaneDimensions returns the pane's width and height in cells.
func (c *Client) PaneDimensions(ctx context.Context, paneID string) (width, height int, err error) {
	out, runErr := c.run(ctx, "display-message", "-p", "-t", paneID, "#{pane_width} #{pane_height}")
	if runErr != nil {
		return 0, 0, fmt.Errorf("pane dimensions: %w", runErr)
	}
	fmt.Sscanf(out, "%d %d", &width, &height)
	return width, height, nil
}

// WindowSize returns the active window's width and height in cells, used
// by the layout engine to size the sidebar+grid composition.
func (c *Client) WindowSize(ctx context.Context, session string) (width, height int, err error) {
	out, runErr := c.run(ctx, "display-message", "-p", "-t", session, "#{window_width} #{window_height}")
	if runErr != nil {
		return 0, 0, fmt.Errorf("window size: %w", runErr)
	}
	fmt.Sscanf(out, "%d %d", &width, &height)
	return width, height, nil
}

// PaneIndexes maps every live pane id in the session to its tmux-assigned
// numeric index, the form a custom select-layout string's leaves address
// panes by (tmux never accepts a %pane-id inside a layout string).
func (c *Client) PaneIndexes(ctx context.Context, session string) (map[string]int, error) {
	panes, err := c.ListPanes(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("pane indexes: %w", err)
	}
	out := make(map[string]int, len(panes))
	for _, p := range panes {
		out[p.ID] = p.Index
	}
	return out, nil
}

// SetBuffer loads data into a tmux paste buffer.
func (c *Client) SetBuffer(ctx context.Context, bufferName, data string) error {
	args := []string{"set-buffer", "-b", bufferName, data}
	_, err := c.run(ctx, args...)
	return err
}

// PasteBuffer pastes a named buffer into a pane.
func (c *Client) PasteBuffer(ctx context.Context, paneID, bufferName string) error {
	_, err := c.run(ctx, "paste-buffer", "-b", bufferName, "-t", paneID)
	return err
}

// DeleteBuffer removes a named paste buffer.
func (c *Client) DeleteBuffer(ctx context.Context, bufferName string) error {
	_, err := c.run(ctx, "delete-buffer", "-b", bufferName)
	return err
}

// InjectText loads text into a scratch paste buffer and pastes it into the
// pane, then deletes the buffer. This is the only prompt-injection path:
// it never relies on the shell interpreting the text, so prompts containing
// quotes, newlines, or shell metacharacters are delivered byte-for-byte.
func (c *Client) InjectText(ctx context.Context, paneID, bufferName, text string) error {
	if err := c.SetBuffer(ctx, bufferName, text); err != nil {
		return fmt.Errorf("set-buffer: %w", err)
	}
	if err := c.PasteBuffer(ctx, paneID, bufferName); err != nil {
		c.DeleteBuffer(ctx, bufferName)
		return fmt.Errorf("paste-buffer: %w", err)
	}
	return c.DeleteBuffer(ctx, bufferName)
}

// RefreshClient forces tmux to redraw attached clients.
func (c *Client) RefreshClient(ctx context.Context) error {
	_, err := c.run(ctx, "refresh-client")
	return err
}

// SetOption sets a session-level option on the tmux session.
func (c *Client) SetOption(ctx context.Context, session, option, value string) error {
	_, err := c.run(ctx, "set-option", "-t", session, option, value)
	return err
}

// SetHook sets a tmux hook on a session. hookName includes the index (e.g.,
// "pane-focus-in[99]") so multiple hooks can coexist.
func (c *Client) SetHook(ctx context.Context, session, hookName, command string) error {
	_, err := c.run(ctx, "set-hook", "-t", session, hookName, command)
	return err
}

// NewSession creates a detached tmux session with a single initial pane.
func (c *Client) NewSession(ctx context.Context, session, startDir string) error {
	_, err := c.run(ctx, "new-session", "-d", "-s", session, "-c", startDir)
	return err
}

// KillSession destroys an entire tmux session.
func (c *Client) KillSession(ctx context.Context, session string) error {
	_, err := c.run(ctx, "kill-session", "-t", session)
	return err
}
