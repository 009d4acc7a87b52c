package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash fingerprints the tail of a pane's rendered buffer so the
// worker can recognize unchanged content (skip re-analysis), dedupe
// concurrent LLM calls, and tie an autopilot keystroke back to the
// deterministic result that authorized it.
func ContentHash(lines []string) string {
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
