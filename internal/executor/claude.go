package executor

import (
	"context"
	"fmt"
)

// Claude drives the claude-code CLI.
type Claude struct {
	// Bin is the claude binary; defaults to "claude".
	Bin string
}

// NewClaude returns a claude-code executor.
func NewClaude(bin string) *Claude {
	if bin == "" {
		bin = "claude"
	}
	return &Claude{Bin: bin}
}

func (c *Claude) Name() string { return "claude-code" }

func (c *Claude) Capabilities() Capabilities {
	return Capabilities{TerminalInput: true, Batch: true, Review: true}
}

// Execute runs one claude-code session. A nil prompt is only valid for an
// interactive (KeepOpen) session; a captured session has nothing to send and
// fails fast.
func (c *Claude) Execute(ctx context.Context, prompt *string, ec ExecContext) (*Result, error) {
	if ec.KeepOpen {
		var args []string
		if prompt != nil {
			args = append(args, *prompt)
		}
		return runInteractive(ctx, ec, c.Bin, args...)
	}

	if prompt == nil {
		return nil, fmt.Errorf("claude-code single-shot session: %w", ErrPromptRequired)
	}

	args := []string{"-p", *prompt}
	if ec.Mode == ModeReview {
		// Structured findings only; plain text would not merge.
		args = append(args, "--output-format", "json")
	}
	return runCaptured(ctx, ec, c.Bin, args...)
}
