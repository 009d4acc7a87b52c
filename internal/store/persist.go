package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samuelreed/dmux/internal/harness"
	"github.com/samuelreed/dmux/internal/pane"
)

const stateFileName = "state.json"

// SavedPane is the on-disk projection of a pane's Fields snapshot.
// Options and PotentialHarm are intentionally dropped: they are
// worker-recomputed on the next analyzer pass and would otherwise just be
// stale UI hints a moment after load.
type SavedPane struct {
	ID     string    `json:"id"`
	Slug   string    `json:"slug"`
	Kind   pane.Kind `json:"kind"`
	Prompt string    `json:"prompt,omitempty"`

	TerminalPaneID string `json:"terminal_pane_id,omitempty"`
	WorktreePath   string `json:"worktree_path,omitempty"`
	Branch         string `json:"branch,omitempty"`

	Agent harness.AgentName `json:"agent,omitempty"`

	ProjectRoot string `json:"project_root,omitempty"`
	ProjectName string `json:"project_name,omitempty"`

	AgentStatus     pane.AgentStatus `json:"agent_status,omitempty"`
	OptionsQuestion string           `json:"options_question,omitempty"`
	AgentSummary    string           `json:"agent_summary,omitempty"`

	Autopilot bool `json:"autopilot"`

	DevWindowID  string `json:"dev_window_id,omitempty"`
	TestWindowID string `json:"test_window_id,omitempty"`
	DevStatus    string `json:"dev_status,omitempty"`
	TestStatus   string `json:"test_status,omitempty"`
	DevURL       string `json:"dev_url,omitempty"`

	Orphaned bool `json:"orphaned"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// AppState is the full persisted snapshot written to state.json.
type AppState struct {
	Version int         `json:"version"`
	Panes   []SavedPane `json:"panes"`
	SavedAt time.Time   `json:"saved_at"`
}

func toSaved(f pane.Fields) SavedPane {
	return SavedPane{
		ID:              f.ID,
		Slug:            f.Slug,
		Kind:            f.Kind,
		Prompt:          f.Prompt,
		TerminalPaneID:  f.TerminalPaneID,
		WorktreePath:    f.WorktreePath,
		Branch:          f.Branch,
		Agent:           f.Agent,
		ProjectRoot:     f.ProjectRoot,
		ProjectName:     f.ProjectName,
		AgentStatus:     f.AgentStatus,
		OptionsQuestion: f.OptionsQuestion,
		AgentSummary:    f.AgentSummary,
		Autopilot:       f.Autopilot,
		DevWindowID:     f.DevWindowID,
		TestWindowID:    f.TestWindowID,
		DevStatus:       f.DevStatus,
		TestStatus:      f.TestStatus,
		DevURL:          f.DevURL,
		Orphaned:        f.Orphaned,
		CreatedAt:       f.CreatedAt,
		LastActivity:    f.LastActivity,
	}
}

func fromSaved(s SavedPane) *pane.Pane {
	return pane.FromFields(pane.Fields{
		ID:              s.ID,
		Slug:            s.Slug,
		Kind:            s.Kind,
		Prompt:          s.Prompt,
		TerminalPaneID:  s.TerminalPaneID,
		WorktreePath:    s.WorktreePath,
		Branch:          s.Branch,
		Agent:           s.Agent,
		ProjectRoot:     s.ProjectRoot,
		ProjectName:     s.ProjectName,
		AgentStatus:     s.AgentStatus,
		OptionsQuestion: s.OptionsQuestion,
		AgentSummary:    s.AgentSummary,
		Autopilot:       s.Autopilot,
		DevWindowID:     s.DevWindowID,
		TestWindowID:    s.TestWindowID,
		DevStatus:       s.DevStatus,
		TestStatus:      s.TestStatus,
		DevURL:          s.DevURL,
		Orphaned:        s.Orphaned,
		CreatedAt:       s.CreatedAt,
		LastActivity:    s.LastActivity,
	})
}

// StateFilePath returns the path to the pane-state file inside dir.
func StateFilePath(dir string) string {
	return filepath.Join(dir, stateFileName)
}

// atomicWriteJSON writes to a unique temp file alongside path, then
// renames it into place, matching the teacher's write-temp-then-rename
// convention for eliminating torn reads.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir %q: %w", dir, err)
	}
	tempPath := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func loadState(dir string) (*AppState, error) {
	data, err := os.ReadFile(StateFilePath(dir))
	if err != nil {
		return nil, err
	}
	var state AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return &state, nil
}
