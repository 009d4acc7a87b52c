package harness

import (
	"context"
	"strings"
)

var modelsCodex = map[ModelTier]string{
	TierCheap: "gpt-5-mini",
	TierMid:   "gpt-5",
}

// Codex drives the codex CLI.
type Codex struct {
	Executor CommandExecutor
}

// NewCodex returns a Codex harness using the real CLI.
func NewCodex() *Codex {
	return &Codex{Executor: defaultExecutor}
}

func (c *Codex) Name() AgentName { return AgentCodex }
func (c *Codex) Binary() string  { return "codex" }

func (c *Codex) LaunchArgs(permissionMode string) []string {
	args := []string{}
	switch permissionMode {
	case "bypassPermissions":
		args = append(args, "--dangerously-bypass-approvals-and-sandbox")
	case "acceptEdits":
		args = append(args, "--ask-for-approval", "on-failure")
	}
	return args
}

func (c *Codex) InjectPrompt(prompt string) string {
	return prompt + "\n"
}

// Query uses "codex exec" for a single non-interactive turn with no
// sandboxed tool access, mirroring the other harnesses' toolless ephemeral
// calls.
func (c *Codex) Query(ctx context.Context, prompt string, opts QueryOptions) (string, error) {
	ctx, cancel := withTimeout(ctx, opts)
	defer cancel()

	model := modelsCodex[opts.Tier]
	if model == "" {
		model = modelsCodex[TierCheap]
	}

	args := []string{"exec", "--model", model, "--sandbox", "read-only", prompt}

	exec := c.Executor
	if exec == nil {
		exec = defaultExecutor
	}
	out, err := exec(ctx, c.Binary(), args, baseEnv())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
