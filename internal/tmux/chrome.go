package tmux

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// tmux color constants for the status line and pane borders.
const (
	colorGreen    = "colour46"
	colorYellow   = "colour226"
	colorGray     = "colour240"
	colorMagenta  = "colour201"
	colorHintGray = "colour244"
	colorCyan     = "colour38"
	colorBarBg    = "colour236"
	colorWhite    = "colour255"

	colorPathBg   = "colour34"
	colorBranchBg = "colour142"
	colorDarkText = "colour234"

	powerlineSep = ""
	branchIcon   = ""
)

// StatusPane is the data needed to render a pane in the status line.
type StatusPane struct {
	Slug     string
	Status   string // "working", "waiting", "idle", "analyzing", "unknown"
	HasPR    bool
	PRMerged bool
}

// FormatStatusLine renders the tmux status line content with color formatting.
func FormatStatusLine(panes []StatusPane, prefix string, multiLine bool) string {
	var items []string
	for _, p := range panes {
		var indicator string
		switch p.Status {
		case "waiting":
			indicator = fmt.Sprintf("#[fg=%s]●#[default] ", colorYellow)
		case "unknown":
			indicator = fmt.Sprintf("#[fg=%s]●#[default] ", colorGray)
		default:
			indicator = fmt.Sprintf("#[fg=%s]●#[default] ", colorGreen)
		}
		indicator += fmt.Sprintf("#[fg=%s]%s#[default]", colorMagenta, p.Slug)
		if p.HasPR && p.PRMerged {
			indicator += fmt.Sprintf(" #[fg=%s]✓#[default]", colorGreen)
		} else if p.HasPR {
			indicator += fmt.Sprintf(" #[fg=%s]●#[default]", colorCyan)
		}
		items = append(items, indicator)
	}

	panesPart := strings.Join(items, "  ")
	countPart := fmt.Sprintf("#[fg=%s]%d#[default] pane", colorGreen, len(panes))
	if len(panes) != 1 {
		countPart += "s"
	}

	if multiLine {
		return fmt.Sprintf("%s  %s", panesPart, countPart)
	}
	hint := FormatPrefixHint(prefix)
	return fmt.Sprintf("%s  %s | %s", panesPart, countPart, formatColoredKeyhints(hint))
}

func formatColoredKeyhints(hint string) string {
	keys := []struct{ key, label string }{
		{"n", "new"},
		{"x", "close"},
		{"m", "merge"},
		{"?", "help"},
	}
	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("#[fg=%s]%s+%s#[fg=%s] %s#[default]",
			colorMagenta, hint, k.key, colorHintGray, k.label))
	}
	return strings.Join(parts, "  ")
}

// FormatPaneBorder renders the text for a pane's top border.
func FormatPaneBorder(slug, status string, prNumber int, synopsis string) string {
	var parts []string
	switch status {
	case "waiting":
		parts = append(parts, fmt.Sprintf("#[fg=%s]●#[default]", colorYellow))
	case "unknown":
		parts = append(parts, fmt.Sprintf("#[fg=%s]●#[default]", colorGray))
	default:
		parts = append(parts, fmt.Sprintf("#[fg=%s]●#[default]", colorGreen))
	}
	parts = append(parts, fmt.Sprintf("#[fg=%s]%s#[default]", colorMagenta, slug))
	if prNumber > 0 {
		parts = append(parts, fmt.Sprintf("#[fg=%s]PR#%d#[default]", colorCyan, prNumber))
	}
	if synopsis != "" {
		parts = append(parts, fmt.Sprintf("#[fg=%s]- %s#[default]", colorHintGray, synopsis))
	}
	return "─── " + strings.Join(parts, " ") + " ───"
}

// FormatPrefixHint converts a tmux prefix like "C-b" to a display hint like "^b".
func FormatPrefixHint(prefix string) string {
	if strings.HasPrefix(prefix, "C-") {
		return "^" + strings.TrimPrefix(prefix, "C-")
	}
	return prefix
}

func tmuxVersionAtLeast(c *Client, ctx context.Context, major, minor int) bool {
	ver, err := c.Version(ctx)
	if err != nil {
		return false
	}
	parts := strings.SplitN(ver, ".", 3)
	if len(parts) < 1 {
		return false
	}
	maj, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	if maj != major {
		return maj > major
	}
	if len(parts) < 2 {
		return minor == 0
	}
	minStr := strings.TrimRight(parts[1], "abcdefghijklmnopqrstuvwxyz")
	min, err := strconv.Atoi(minStr)
	if err != nil {
		return false
	}
	return min >= minor
}

func escapeShellArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}

// AbbreviatePath shortens a path, abbreviating all but the last component.
func AbbreviatePath(path string) string {
	home, _ := os.UserHomeDir()
	if home != "" && strings.HasPrefix(path, home) {
		path = "~" + path[len(home):]
	}
	parts := strings.Split(path, "/")
	if len(parts) <= 1 {
		return path
	}
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "" || parts[i] == "~" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(parts[i])
		if r != utf8.RuneError {
			parts[i] = string(r)
		}
	}
	return strings.Join(parts, "/")
}

// FormatPowerlineLeft builds a powerline-style tmux status-left string.
func FormatPowerlineLeft(repoPath, branch string) string {
	abbrev := AbbreviatePath(repoPath)
	var b strings.Builder
	b.WriteString(fmt.Sprintf("#[bg=%s,fg=%s,bold] %s ", colorPathBg, colorWhite, abbrev))
	b.WriteString(fmt.Sprintf("#[fg=%s,bg=%s,nobold]%s", colorPathBg, colorBranchBg, powerlineSep))
	b.WriteString(fmt.Sprintf("#[fg=%s,bg=%s] %s %s ", colorDarkText, colorBranchBg, branchIcon, branch))
	b.WriteString(fmt.Sprintf("#[fg=%s,bg=%s]%s", colorBranchBg, colorBarBg, powerlineSep))
	b.WriteString("#[default]")
	return b.String()
}

// ConfigureChrome sets up tmux status line, pane borders, and keybindings
// for the dmux session. dmuxBin is the path to the control binary invoked
// by tmux keybindings (create in a split, close/merge/help in popups,
// status-right).
func (c *Client) ConfigureChrome(ctx context.Context, session, dmuxBin, repoPath, branch string) error {
	bin := escapeShellArg(dmuxBin)

	sets := [][3]string{
		{"pane-border-format", " #{@dmux-border-text} ", ""},
		{"pane-border-status", "top", ""},
		{"pane-active-border-style", fmt.Sprintf("fg=%s", colorCyan), ""},
		{"pane-border-style", fmt.Sprintf("fg=%s", colorGray), ""},
		{"status-style", fmt.Sprintf("bg=%s,fg=%s", colorBarBg, colorWhite), ""},
		{"status-left", FormatPowerlineLeft(repoPath, branch), ""},
		{"status-left-length", "80", ""},
		{"status-right", fmt.Sprintf("#(%s status --format=tmux)", bin), ""},
		{"status-right-length", "200", ""},
		{"status-interval", "5", ""},
		{"window-status-format", "", ""},
		{"window-status-current-format", "", ""},
	}
	for _, s := range sets {
		if _, err := c.run(ctx, "set-option", "-t", session, "-g", s[0], s[1]); err != nil {
			return fmt.Errorf("set %s: %w", s[0], err)
		}
	}

	createCmd := fmt.Sprintf("split-window %s create --interactive", bin)
	bindings := map[string]string{
		"n": createCmd,
		"N": createCmd,
		`"`: createCmd,
		"%": createCmd,
		"x": fmt.Sprintf("display-popup -E -w 60 -h 15 %s close --interactive", bin),
		"m": fmt.Sprintf("display-popup -E -w 70 -h 20 %s merge --interactive", bin),
		"?": fmt.Sprintf("display-popup -E -w 55 -h 22 %s help --keybindings", bin),
	}
	for key, cmd := range bindings {
		if _, err := c.run(ctx, "bind-key", key, cmd); err != nil {
			return fmt.Errorf("bind-key %s: %w", key, err)
		}
	}

	resizeBindings := map[string]string{
		"M-Up":    "resize-pane -U 5",
		"M-Down":  "resize-pane -D 5",
		"M-Left":  "resize-pane -L 5",
		"M-Right": "resize-pane -R 5",
	}
	for key, cmd := range resizeBindings {
		if _, err := c.run(ctx, "bind-key", "-n", key, cmd); err != nil {
			return fmt.Errorf("bind-key %s: %w", key, err)
		}
	}
	return nil
}
