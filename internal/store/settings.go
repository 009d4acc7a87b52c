package store

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/spf13/viper"
)

// SettingsScope is one of the three layers a setting resolves through,
// narrowest-wins: project overrides global overrides the built-in default.
type SettingsScope string

const (
	ScopeDefault SettingsScope = "default"
	ScopeGlobal  SettingsScope = "global"
	ScopeProject SettingsScope = "project"
)

// Setting keys, shared between callers of GetSettings/SetSetting and the
// JSON layer files on disk.
const (
	KeyDefaultAgent             = "default_agent"
	KeyPermissionMode           = "permission_mode"
	KeyEnableAutopilotByDefault = "enable_autopilot_by_default"
	KeyBaseBranch               = "base_branch"
	KeyBranchPrefix             = "branch_prefix"
	KeyUseTmuxHooks             = "use_tmux_hooks"
)

// Settings is the typed, fully-resolved view of every setting key (§3).
// The mapstructure tags let viper's Unmarshal decode straight into this
// struct from the merged layer maps.
type Settings struct {
	DefaultAgent             string `json:"default_agent" mapstructure:"default_agent"`
	PermissionMode           string `json:"permission_mode" mapstructure:"permission_mode"`
	EnableAutopilotByDefault bool   `json:"enable_autopilot_by_default" mapstructure:"enable_autopilot_by_default"`
	BaseBranch               string `json:"base_branch" mapstructure:"base_branch"`
	BranchPrefix             string `json:"branch_prefix" mapstructure:"branch_prefix"`
	UseTmuxHooks             bool   `json:"use_tmux_hooks" mapstructure:"use_tmux_hooks"`
}

func builtinDefaults() map[string]any {
	return map[string]any{
		KeyPermissionMode: "default",
		KeyBaseBranch:     "main",
		KeyBranchPrefix:   "dmux/",
	}
}

// settingsLayer is one scope's sparse key/value overlay; a scope only
// records the keys it overrides.
type settingsLayer map[string]any

// settingsStore holds the global and project layers in memory and
// resolves a typed Settings value on demand through viper, the same
// layering library zjrosen-perles uses for its own config resolution.
// ScopeDefault has no layer of its own — it is the SetDefault baseline
// resolved() starts every viper instance from.
type settingsStore struct {
	mu      sync.RWMutex
	global  settingsLayer
	project settingsLayer

	globalPath  string
	projectPath string
}

func newSettingsStore(globalPath, projectPath string) *settingsStore {
	s := &settingsStore{
		global:      make(settingsLayer),
		project:     make(settingsLayer),
		globalPath:  globalPath,
		projectPath: projectPath,
	}
	readLayer(globalPath, &s.global)
	readLayer(projectPath, &s.project)
	return s
}

func readLayer(path string, into *settingsLayer) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, into)
}

// resolved synthesizes the typed Settings. It hands viper the built-in
// baseline via SetDefault and the two on-disk layers via MergeConfigMap,
// narrowest-wins (global first, project last), then Unmarshal decodes the
// merged view into Settings — the same SetDefault-then-merge-then-
// Unmarshal idiom zjrosen-perles's cmd/root.go uses for its own layered
// config, applied here across two config files instead of flags/env/file.
func (s *settingsStore) resolved() Settings {
	s.mu.RLock()
	global := cloneLayer(s.global)
	project := cloneLayer(s.project)
	s.mu.RUnlock()

	v := viper.New()
	for k, val := range builtinDefaults() {
		v.SetDefault(k, val)
	}
	_ = v.MergeConfigMap(global)
	_ = v.MergeConfigMap(project)

	var out Settings
	_ = v.Unmarshal(&out)
	return out
}

// set records an override at scope and persists that scope's layer to
// disk. ScopeDefault is not settable; it exists only as resolved()'s
// zero-override baseline.
func (s *settingsStore) set(scope SettingsScope, key string, value any) error {
	s.mu.Lock()
	var path string
	var layer settingsLayer
	switch scope {
	case ScopeGlobal:
		s.global[key] = value
		path, layer = s.globalPath, cloneLayer(s.global)
	case ScopeProject:
		s.project[key] = value
		path, layer = s.projectPath, cloneLayer(s.project)
	default:
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	if path == "" {
		return nil
	}
	return atomicWriteJSON(path, layer)
}

func cloneLayer(l settingsLayer) settingsLayer {
	out := make(settingsLayer, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}
