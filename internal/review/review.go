// Package review runs one or more executors in review mode concurrently and
// merges their structured findings into a single ordered report.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/musterdev/muster/internal/debug"
	"github.com/musterdev/muster/internal/executor"
	"github.com/musterdev/muster/internal/types"
)

// ErrAllExecutorsFailed is fatal: not one requested executor produced a
// valid structured result.
var ErrAllExecutorsFailed = errors.New("all review executors failed")

// Issue is a single review finding. File and Line may be absent for
// repository-wide observations.
type Issue struct {
	ID       int    `json:"id"`
	Executor string `json:"executor,omitempty"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Severity string `json:"severity,omitempty"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
}

// Result is the merged review report.
type Result struct {
	PlanID   int      `json:"plan_id"`
	Summary  string   `json:"summary"`
	Issues   []Issue  `json:"issues"`
	Warnings []string `json:"warnings,omitempty"`
}

// executorReport is the schema each executor must emit on stdout.
type executorReport struct {
	Summary string `json:"summary"`
	Issues  []struct {
		File     string `json:"file,omitempty"`
		Line     int    `json:"line,omitempty"`
		Severity string `json:"severity,omitempty"`
		Title    string `json:"title"`
		Body     string `json:"body,omitempty"`
	} `json:"issues"`
}

// parseReport strictly decodes an executor's stdout. Unknown fields,
// trailing garbage, or an issue without a title all fail the parse.
func parseReport(output string) (*executorReport, error) {
	dec := json.NewDecoder(strings.NewReader(output))
	dec.DisallowUnknownFields()
	var report executorReport
	if err := dec.Decode(&report); err != nil {
		return nil, fmt.Errorf("invalid review output: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid review output: trailing data after report")
	}
	for i, issue := range report.Issues {
		if strings.TrimSpace(issue.Title) == "" {
			return nil, fmt.Errorf("invalid review output: issue %d has no title", i)
		}
	}
	return &report, nil
}

// Options carries dispatch settings for a review run.
type Options struct {
	// WorkspaceDir is the checkout the executors review.
	WorkspaceDir string
	// InactivityTimeout is forwarded to each executor.
	InactivityTimeout time.Duration
}

// Run reviews a plan with the given executors. With several executors they
// run concurrently; an individual failure degrades to a partial result with
// a warning, and only the failure of every executor is fatal.
func Run(ctx context.Context, plan *types.Plan, executors []executor.Executor, filter *TaskFilter, opts Options) (*Result, error) {
	if len(executors) == 0 {
		return nil, fmt.Errorf("no executors given for review")
	}

	prompt, err := BuildPrompt(plan, filter)
	if err != nil {
		return nil, err
	}

	reports := make([]*executorReport, len(executors))
	failures := make([]error, len(executors))

	g, gctx := errgroup.WithContext(ctx)
	for i, exec := range executors {
		g.Go(func() error {
			ec := executor.ExecContext{
				PlanID:            plan.ID,
				PlanTitle:         plan.Title,
				WorkspaceDir:      opts.WorkspaceDir,
				Mode:              executor.ModeReview,
				InactivityTimeout: opts.InactivityTimeout,
			}
			res, err := exec.Execute(gctx, &prompt, ec)
			if err != nil {
				failures[i] = fmt.Errorf("%s: %w", exec.Name(), err)
				return nil
			}
			report, err := parseReport(res.Output)
			if err != nil {
				failures[i] = fmt.Errorf("%s: %w", exec.Name(), err)
				return nil
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{PlanID: plan.ID}
	succeeded := 0
	for i, report := range reports {
		if report == nil {
			warning := failures[i].Error()
			result.Warnings = append(result.Warnings, warning)
			debug.Warnf("review: %s\n", warning)
			continue
		}
		succeeded++
		for _, raw := range report.Issues {
			result.Issues = append(result.Issues, Issue{
				Executor: executors[i].Name(),
				File:     raw.File,
				Line:     raw.Line,
				Severity: raw.Severity,
				Title:    raw.Title,
				Body:     raw.Body,
			})
		}
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAllExecutorsFailed, strings.Join(result.Warnings, "; "))
	}

	sortIssues(result.Issues)
	for i := range result.Issues {
		result.Issues[i].ID = i + 1
	}
	result.Summary = summarize(result.Issues)
	return result, nil
}

// sortIssues orders findings by file path ascending, then line ascending.
// Issues without a file (or without a line within a file) sort last, so the
// actionable, location-specific findings lead the report.
func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if (a.File == "") != (b.File == "") {
			return a.File != ""
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if (a.Line == 0) != (b.Line == 0) {
			return a.Line != 0
		}
		return a.Line < b.Line
	})
}

func summarize(issues []Issue) string {
	if len(issues) == 0 {
		return "no issues found"
	}
	files := make(map[string]bool)
	bySeverity := make(map[string]int)
	for _, issue := range issues {
		if issue.File != "" {
			files[issue.File] = true
		}
		sev := issue.Severity
		if sev == "" {
			sev = "unspecified"
		}
		bySeverity[sev]++
	}

	sevNames := make([]string, 0, len(bySeverity))
	for sev := range bySeverity {
		sevNames = append(sevNames, sev)
	}
	sort.Strings(sevNames)
	parts := make([]string, 0, len(sevNames))
	for _, sev := range sevNames {
		parts = append(parts, fmt.Sprintf("%d %s", bySeverity[sev], sev))
	}

	return fmt.Sprintf("%d issue(s) across %d file(s): %s",
		len(issues), len(files), strings.Join(parts, ", "))
}
