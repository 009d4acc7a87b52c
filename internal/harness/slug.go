package harness

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashes       = regexp.MustCompile(`-+`)
)

const slugPrompt = "Summarize this coding task as a 2-4 word kebab-case slug " +
	"suitable for a git branch name. Respond with only the slug, no " +
	"punctuation besides hyphens, no explanation.\n\nTask: %s"

// QuerySlug asks h for a short kebab-case label describing prompt and
// sanitizes the result to a safe branch/filesystem name. ok is false if h
// is nil, the harness call failed, or the response sanitized to nothing —
// callers fall back to a deterministic slug generator in that case.
func QuerySlug(ctx context.Context, h Harness, prompt string) (slug string, ok bool) {
	if h == nil || strings.TrimSpace(prompt) == "" {
		return "", false
	}
	resp, err := h.Query(ctx, fmt.Sprintf(slugPrompt, prompt), QueryOptions{Tier: TierCheap})
	if err != nil {
		return "", false
	}
	slug = SanitizeSlug(resp)
	return slug, slug != ""
}

// SanitizeSlug normalizes arbitrary text into a safe kebab-case
// branch/filesystem label.
func SanitizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = slugInvalidChars.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	const maxLen = 40
	if len(s) > maxLen {
		s = strings.Trim(s[:maxLen], "-")
	}
	return s
}
