// Package analyzer classifies an agent pane's rendered terminal output.
// Two analyzers share the package: the deterministic pattern analyzer
// (regex-only, the only source of autopilot keystrokes) and the LLM
// analyzer (display-only enrichment, never wired to autopilot). Keeping
// them in one package makes the asymmetry between "can drive keys" and
// "cannot drive keys" visible at a glance rather than spread across
// files that could quietly grow the same privileges.
package analyzer

import (
	"regexp"
	"strings"
)

// PatternType is the result class the deterministic analyzer can produce.
type PatternType string

const (
	PatternInProgress   PatternType = "in_progress"
	PatternOptionDialog PatternType = "option_dialog"
	PatternOpenPrompt   PatternType = "open_prompt"
)

// Option is one selectable choice in an option dialog, with the keystrokes
// that select it.
type Option struct {
	Action string
	Keys   []string
}

// PatternResult is what the deterministic analyzer produces. Only a
// PatternResult may authorize an autopilot keystroke.
type PatternResult struct {
	Type     PatternType
	Question string
	Options  []Option
}

// inProgressPatterns match a "still working" indicator: an interrupt hint
// or a spinner glyph anywhere in the last 15 lines. These never authorize a keystroke,
// they just short-circuit the worker loop before it bothers with an LLM
// call.
var inProgressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)esc to interrupt`),
	regexp.MustCompile(`(?i)press esc to cancel`),
	regexp.MustCompile(`[⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏]`),
	regexp.MustCompile(`(?i)^\s*(working|thinking|generating)\.{0,3}\s*$`),
}

// claudeYesNoOption matches Claude Code's numbered "Yes, proceed" style
// option dialog, the most common autopilot-eligible shape in the pack.
var claudeYesNoOption = regexp.MustCompile(`(?i)❯?\s*1\.\s*yes,?\s*(proceed|continue)[\s\S]{0,80}?2\.\s*no,?\s*(exit|cancel)`)

// genericNumberedMenu matches a "1. ... 2. ..." numbered menu without
// assuming the exact wording, used as a fallback option_dialog detector.
var genericNumberedMenu = regexp.MustCompile(`(?m)^\s*[❯>]?\s*1\.\s+(.+)$`)
var genericNumberedMenuSecond = regexp.MustCompile(`(?m)^\s*2\.\s+(.+)$`)

// The pattern analyzer reports what it sees, not a risk verdict: it sets
// no PotentialHarm, and the worker's autopilot path applies no keyword
// check of its own, so a matched option dialog is autopilot-eligible
// whatever its wording.

// ClassifyPattern applies the deterministic regex catalog to the last
// lines of a pane's rendered buffer. It returns ok=false when nothing
// matches, signaling the caller to fall through to the LLM analyzer.
func ClassifyPattern(lines []string) (PatternResult, bool) {
	tail := lastN(lines, 15)
	joined := strings.Join(tail, "\n")

	for _, re := range inProgressPatterns {
		if re.MatchString(joined) {
			return PatternResult{Type: PatternInProgress}, true
		}
	}

	if claudeYesNoOption.MatchString(joined) {
		return PatternResult{
			Type:     PatternOptionDialog,
			Question: firstNonEmptyLine(tail),
			Options: []Option{
				{Action: "Yes, proceed", Keys: []string{"1", "Enter"}},
				{Action: "No, exit", Keys: []string{"2", "Enter"}},
			},
		}, true
	}

	if m1 := genericNumberedMenu.FindStringSubmatch(joined); m1 != nil {
		if m2 := genericNumberedMenuSecond.FindStringSubmatch(joined); m2 != nil {
			return PatternResult{
				Type:     PatternOptionDialog,
				Question: firstNonEmptyLine(tail),
				Options: []Option{
					{Action: m1[1], Keys: []string{"1", "Enter"}},
					{Action: m2[1], Keys: []string{"2", "Enter"}},
				},
			}, true
		}
	}

	if openPromptPattern.MatchString(joined) {
		return PatternResult{Type: PatternOpenPrompt}, true
	}

	return PatternResult{}, false
}

// openPromptPattern matches a bare input prompt (no options, just "›" or
// "> " waiting for free text) distinct from a numbered menu.
var openPromptPattern = regexp.MustCompile(`(?m)^\s*[›>]\s*$`)

func lastN(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func firstNonEmptyLine(lines []string) string {
	for _, l := range lines {
		if trimmed := strings.TrimSpace(l); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
