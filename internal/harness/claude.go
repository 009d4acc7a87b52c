package harness

import "context"

// modelsClaude maps a ModelTier to a concrete Claude model name. Haiku is
// fast and cheap, ideal for slugs and commit messages; sonnet is used for
// anything that benefits from more reasoning (PR descriptions, the LLM
// analyzer).
var modelsClaude = map[ModelTier]string{
	TierCheap: "haiku",
	TierMid:   "sonnet",
}

// Claude drives the claude CLI.
type Claude struct {
	Executor CommandExecutor
}

// NewClaude returns a Claude harness using the real CLI.
func NewClaude() *Claude {
	return &Claude{Executor: defaultExecutor}
}

func (c *Claude) Name() AgentName { return AgentClaude }
func (c *Claude) Binary() string  { return "claude" }

func (c *Claude) LaunchArgs(permissionMode string) []string {
	args := []string{}
	if permissionMode != "" {
		args = append(args, "--permission-mode", permissionMode)
	}
	return args
}

func (c *Claude) InjectPrompt(prompt string) string {
	return prompt + "\n"
}

// Query builds the same flag set the teacher's internal/claude/query.go
// used for ephemeral calls: no tools, no slash commands, no MCP, a minimal
// system prompt, JSON output (so the envelope isolates the answer from any
// stray hook output), and hooks disabled.
func (c *Claude) Query(ctx context.Context, prompt string, opts QueryOptions) (string, error) {
	ctx, cancel := withTimeout(ctx, opts)
	defer cancel()

	model := modelsClaude[opts.Tier]
	if model == "" {
		model = modelsClaude[TierCheap]
	}

	args := []string{
		"-p", prompt,
		"--no-session-persistence",
		"--tools", "",
		"--disable-slash-commands",
		"--strict-mcp-config",
		"--system-prompt", "You are a helpful assistant. Be concise.",
		"--output-format", "json",
		"--settings", `{"disableAllHooks":true}`,
		"--model", model,
	}

	exec := c.Executor
	if exec == nil {
		exec = defaultExecutor
	}
	out, err := exec(ctx, c.Binary(), args, baseEnv())
	if err != nil {
		return "", err
	}
	return trimmedEnvelope(out), nil
}
