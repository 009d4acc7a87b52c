package pane

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/samuelreed/dmux/internal/harness"
)

// stopWords are stripped from the deterministic fallback slug so branch
// names stay short and readable.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "to": true, "for": true,
	"with": true, "and": true, "or": true, "in": true, "on": true,
	"at": true, "by": true, "of": true, "is": true, "it": true, "that": true,
}

const maxSlugLength = 50
const defaultSlugName = "pane"

var slugNonAlphaNum = regexp.MustCompile(`[^a-z0-9\s-]`)

// DeterministicSlug derives a filesystem/branch-safe slug from prompt
// without calling an agent: lowercase, strip punctuation, drop stop words,
// hyphenate, truncate. Falls back to defaultSlugName when the prompt
// reduces to nothing (e.g. it was empty or pure punctuation).
func DeterministicSlug(prompt string) string {
	name := strings.ToLower(prompt)
	name = slugNonAlphaNum.ReplaceAllString(name, " ")

	words := strings.Fields(name)
	filtered := words[:0]
	for _, word := range words {
		if !stopWords[word] && word != "" {
			filtered = append(filtered, word)
		}
	}
	if len(filtered) == 0 {
		return defaultSlugName
	}

	name = strings.Join(filtered, "-")
	if len(name) > maxSlugLength {
		name = name[:maxSlugLength]
	}
	return strings.TrimRight(name, "-")
}

// TimestampSlug is the final, always-succeeds fallback: dmux-<unix seconds>.
func TimestampSlug(now time.Time) string {
	return fmt.Sprintf("dmux-%d", now.Unix())
}

// ResolveSlug implements spec step 2 of pane creation: prefer an
// agent-generated label (via h, may be nil), fall back to a deterministic
// stop-word-stripped label derived from prompt, and finally to a
// timestamp-based label that can never fail. h may be nil (no agent chosen
// yet, or the agent step is being skipped for a shell pane).
func ResolveSlug(ctx context.Context, h harness.Harness, prompt string, now time.Time) string {
	if slug, ok := harness.QuerySlug(ctx, h, prompt); ok {
		return slug
	}
	if slug := DeterministicSlug(prompt); slug != defaultSlugName {
		return slug
	}
	return TimestampSlug(now)
}
