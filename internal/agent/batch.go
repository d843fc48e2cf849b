package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/musterdev/muster/internal/executor"
	"github.com/musterdev/muster/internal/types"
)

// batchAdapter turns a plain executor into a tasks.BatchExecutor: it renders
// the whole incomplete task list into one prompt and parses the completion
// report out of the executor's output.
type batchAdapter struct {
	exec executor.Executor
	ec   executor.ExecContext
}

// completionReport is the contract the batch prompt asks the executor to emit.
type completionReport struct {
	Completed []int  `json:"completed"`
	Notes     string `json:"notes,omitempty"`
}

func (a *batchAdapter) ExecuteBatch(ctx context.Context, plan *types.Plan, incomplete []int) ([]int, error) {
	prompt := batchPrompt(plan, incomplete)
	res, err := a.exec.Execute(ctx, &prompt, a.ec)
	if err != nil {
		return nil, err
	}
	report, err := parseCompletionReport(res.Output)
	if err != nil {
		return nil, fmt.Errorf("executor %s: %w", a.exec.Name(), err)
	}
	return report.Completed, nil
}

func batchPrompt(plan *types.Plan, incomplete []int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are working on plan %d: %s\n", plan.ID, plan.Title)
	if plan.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", plan.Goal)
	}
	b.WriteString("\nComplete as many of these tasks as you can:\n")
	for _, ti := range incomplete {
		task := plan.Tasks[ti]
		fmt.Fprintf(&b, "[%d] %s", ti, task.Title)
		if task.Description != "" {
			fmt.Fprintf(&b, ": %s", task.Description)
		}
		b.WriteString("\n")
		for _, file := range task.Files {
			fmt.Fprintf(&b, "    file: %s\n", file)
		}
	}
	b.WriteString("\nWhen finished, emit a single JSON object as the last line of output:\n" +
		`{"completed": [<task numbers you fully finished>]}` + "\n" +
		"Only list a task if it is completely done.\n")
	return b.String()
}

// parseCompletionReport extracts the report from the executor's raw output.
// Executors chat around their JSON, so we scan lines from the end for the
// first parseable object rather than requiring the whole output to be JSON.
func parseCompletionReport(output string) (*completionReport, error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var report completionReport
		if err := json.Unmarshal([]byte(line), &report); err != nil {
			continue
		}
		return &report, nil
	}
	return nil, fmt.Errorf("no completion report found in output")
}
