package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/samuelreed/dmux/internal/harness"
)

// PotentialHarm flags an LLM-judged risk in an option dialog. Only the
// worker's autopilot gate reads HasRisk; it is never set by the pattern
// analyzer.
type PotentialHarm struct {
	HasRisk     bool
	Description string
}

// LLMResult is the richer, display-only classification the LLM analyzer
// produces when the deterministic patterns don't match. Its Options[].Keys
// may be rendered for a human to click but must never drive an autopilot
// keystroke.
type LLMResult struct {
	State         string // working, waiting, idle, analyzing, unknown
	Question      string
	Options       []Option
	PotentialHarm PotentialHarm
	Summary       string
}

const (
	cacheTTL        = 5 * time.Second
	cacheCleanup    = 1 * time.Minute
	cacheMaxEntries = 100
	overallDeadline = 10 * time.Second
)

var llmPrompt = `You are classifying the state of a coding agent's terminal pane from its
last lines of output. Respond with ONLY a JSON object of the shape:
{"state":"working|waiting|idle|analyzing|unknown","question":"...","options":[{"action":"...","keys":["..."]}],"potentialHarm":{"hasRisk":false,"description":""},"summary":"..."}
Only set "waiting" with non-empty options if you see a clear menu or
confirmation prompt. Set potentialHarm.hasRisk=true for anything touching
deletion, force-push, credentials, or irreversible changes. summary is a
single sentence, only populated when state is "idle".

Terminal output:
%s`

// LLMAnalyzer enriches pane classification using an agent harness as a
// zero-shot classifier, bounded by a content-hash cache and in-flight
// request dedup so a burst of identical frames never triggers more than
// one call.
type LLMAnalyzer struct {
	harnesses []harness.Harness
	cache     *gocache.Cache

	mu      sync.Mutex
	inFlight map[string]*inflightCall
}

type inflightCall struct {
	done   chan struct{}
	result LLMResult
	err    error
}

// NewLLMAnalyzer builds an analyzer that tries each harness in order,
// first success wins, bounded by overallDeadline.
func NewLLMAnalyzer(harnesses ...harness.Harness) *LLMAnalyzer {
	return &LLMAnalyzer{
		harnesses: harnesses,
		cache:     gocache.New(cacheTTL, cacheCleanup),
		inFlight:  make(map[string]*inflightCall),
	}
}

// Analyze classifies lines for the given pane. key should be
// paneID+contentHash so concurrent calls for the same pane and same
// content are deduplicated, and results are cached by contentHash alone so
// two panes rendering identical content share a cache entry.
func (a *LLMAnalyzer) Analyze(ctx context.Context, paneID, contentHash string, lines []string) (LLMResult, error) {
	if cached, found := a.cache.Get(contentHash); found {
		return cached.(LLMResult), nil
	}

	key := paneID + ":" + contentHash
	a.mu.Lock()
	if call, ok := a.inFlight[key]; ok {
		a.mu.Unlock()
		<-call.done
		return call.result, call.err
	}
	call := &inflightCall{done: make(chan struct{})}
	a.inFlight[key] = call
	a.mu.Unlock()

	result, err := a.query(ctx, lines)

	a.mu.Lock()
	delete(a.inFlight, key)
	a.mu.Unlock()

	call.result, call.err = result, err
	close(call.done)

	if err == nil {
		a.cache.Set(contentHash, result, cacheTTL)
		a.evictIfOverCapacity()
	}
	return result, err
}

// query tries each configured harness in turn, first success wins. This is
// the simpler sequential-with-early-abort policy chosen over a fan-out
// race: it avoids paying for concurrent calls to a paid API in the common
// case where the first endpoint answers.
func (a *LLMAnalyzer) query(ctx context.Context, lines []string) (LLMResult, error) {
	ctx, cancel := context.WithTimeout(ctx, overallDeadline)
	defer cancel()

	prompt := fmt.Sprintf(llmPrompt, strings.Join(lines, "\n"))

	var lastErr error
	for _, h := range a.harnesses {
		out, err := h.Query(ctx, prompt, harness.QueryOptions{Tier: harness.TierMid})
		if err != nil {
			lastErr = err
			continue
		}
		result, parseErr := parseLLMResult(out)
		if parseErr != nil {
			lastErr = parseErr
			continue
		}
		return result, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no harness configured")
	}
	return LLMResult{}, lastErr
}

type llmWireResult struct {
	State    string `json:"state"`
	Question string `json:"question"`
	Options  []struct {
		Action string   `json:"action"`
		Keys   []string `json:"keys"`
	} `json:"options"`
	PotentialHarm struct {
		HasRisk     bool   `json:"hasRisk"`
		Description string `json:"description"`
	} `json:"potentialHarm"`
	Summary string `json:"summary"`
}

func parseLLMResult(raw string) (LLMResult, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return LLMResult{}, fmt.Errorf("no JSON object in LLM response")
	}
	var wire llmWireResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &wire); err != nil {
		return LLMResult{}, fmt.Errorf("parse LLM response: %w", err)
	}
	result := LLMResult{
		State:    wire.State,
		Question: wire.Question,
		Summary:  wire.Summary,
		PotentialHarm: PotentialHarm{
			HasRisk:     wire.PotentialHarm.HasRisk,
			Description: wire.PotentialHarm.Description,
		},
	}
	for _, o := range wire.Options {
		result.Options = append(result.Options, Option{Action: o.Action, Keys: o.Keys})
	}
	return result, nil
}

// evictIfOverCapacity enforces the ~100-entry bound go-cache's TTL alone
// doesn't guarantee under a burst of distinct content hashes within one
// TTL window.
func (a *LLMAnalyzer) evictIfOverCapacity() {
	items := a.cache.Items()
	if len(items) <= cacheMaxEntries {
		return
	}
	var oldestKey string
	var oldestExpiry int64 = -1
	for k, item := range items {
		if oldestExpiry == -1 || item.Expiration < oldestExpiry {
			oldestExpiry = item.Expiration
			oldestKey = k
		}
	}
	if oldestKey != "" {
		a.cache.Delete(oldestKey)
	}
}
