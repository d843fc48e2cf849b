package executor

import (
	"context"
	"fmt"
)

// Codex drives the codex-cli binary. Codex sessions always need an initial
// prompt; it has no empty-chat mode.
type Codex struct {
	// Bin is the codex binary; defaults to "codex".
	Bin string
}

// NewCodex returns a codex-cli executor.
func NewCodex(bin string) *Codex {
	if bin == "" {
		bin = "codex"
	}
	return &Codex{Bin: bin}
}

func (c *Codex) Name() string { return "codex-cli" }

func (c *Codex) Capabilities() Capabilities {
	return Capabilities{TerminalInput: false, Batch: true, Review: true}
}

func (c *Codex) Execute(ctx context.Context, prompt *string, ec ExecContext) (*Result, error) {
	if prompt == nil {
		return nil, fmt.Errorf("codex-cli: %w", ErrPromptRequired)
	}
	args := []string{"exec"}
	if ec.Mode == ModeReview {
		args = append(args, "--json")
	}
	args = append(args, *prompt)
	return runCaptured(ctx, ec, c.Bin, args...)
}
