package harness

import (
	"context"
	"strings"
)

var modelsOpenCode = map[ModelTier]string{
	TierCheap: "anthropic/claude-3-5-haiku",
	TierMid:   "anthropic/claude-sonnet-4",
}

// OpenCode drives the opencode CLI.
type OpenCode struct {
	Executor CommandExecutor
}

// NewOpenCode returns an OpenCode harness using the real CLI.
func NewOpenCode() *OpenCode {
	return &OpenCode{Executor: defaultExecutor}
}

func (o *OpenCode) Name() AgentName { return AgentOpenCode }
func (o *OpenCode) Binary() string  { return "opencode" }

func (o *OpenCode) LaunchArgs(permissionMode string) []string {
	// opencode has no separate interactive permission-mode flag; modes are
	// expressed via its own config file, so permissionMode is advisory
	// only here and ignored at the CLI boundary.
	return nil
}

func (o *OpenCode) InjectPrompt(prompt string) string {
	return prompt + "\n"
}

// Query shells out to "opencode run" in non-interactive mode, which prints
// its answer to stdout with no session persisted.
func (o *OpenCode) Query(ctx context.Context, prompt string, opts QueryOptions) (string, error) {
	ctx, cancel := withTimeout(ctx, opts)
	defer cancel()

	model := modelsOpenCode[opts.Tier]
	if model == "" {
		model = modelsOpenCode[TierCheap]
	}

	args := []string{"run", "--model", model, prompt}

	exec := o.Executor
	if exec == nil {
		exec = defaultExecutor
	}
	out, err := exec(ctx, o.Binary(), args, baseEnv())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
