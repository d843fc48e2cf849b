package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/musterdev/muster/internal/executor"
	"github.com/musterdev/muster/internal/types"
)

// fakeExecutor returns canned output or an error.
type fakeExecutor struct {
	name   string
	output string
	err    error
}

func (f *fakeExecutor) Name() string { return f.name }
func (f *fakeExecutor) Capabilities() executor.Capabilities {
	return executor.Capabilities{Review: true}
}
func (f *fakeExecutor) Execute(_ context.Context, prompt *string, _ executor.ExecContext) (*executor.Result, error) {
	if prompt == nil || *prompt == "" {
		return nil, fmt.Errorf("fake executor needs the review prompt")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &executor.Result{Output: f.output}, nil
}

func reviewPlan() *types.Plan {
	return &types.Plan{
		ID:    7,
		Title: "Tighten validation",
		Tasks: []types.Task{
			{Title: "Validate ids", Files: []string{"ids.go"}},
			{Title: "Validate names"},
			{Title: "Wire errors"},
		},
	}
}

func TestRunSingleExecutor(t *testing.T) {
	out := `{"summary": "ok", "issues": [
		{"file": "b.ts", "line": 5, "title": "shadowed var"},
		{"file": "a.ts", "line": 10, "title": "missing check"}
	]}`
	res, err := Run(context.Background(), reviewPlan(),
		[]executor.Executor{&fakeExecutor{name: "claude-code", output: out}}, nil, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(res.Issues))
	}
	if res.Issues[0].File != "a.ts" || res.Issues[1].File != "b.ts" {
		t.Errorf("issues not sorted by file: %+v", res.Issues)
	}
	if res.Issues[0].ID != 1 || res.Issues[1].ID != 2 {
		t.Errorf("ids not reindexed: %+v", res.Issues)
	}
}

func TestRunMergeOrdering(t *testing.T) {
	// executor A: [(b.ts,5), (a.ts,10)]; executor B: [(a.ts,2)]
	// merged must be [a.ts:2, a.ts:10, b.ts:5]
	a := &fakeExecutor{name: "claude-code", output: `{"summary": "a", "issues": [
		{"file": "b.ts", "line": 5, "title": "one"},
		{"file": "a.ts", "line": 10, "title": "two"}
	]}`}
	b := &fakeExecutor{name: "codex-cli", output: `{"summary": "b", "issues": [
		{"file": "a.ts", "line": 2, "title": "three"}
	]}`}

	res, err := Run(context.Background(), reviewPlan(), []executor.Executor{a, b}, nil, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := make([]string, len(res.Issues))
	for i, issue := range res.Issues {
		got[i] = fmt.Sprintf("%s:%d", issue.File, issue.Line)
	}
	want := []string{"a.ts:2", "a.ts:10", "b.ts:5"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("merge order wrong: got %v, want %v", got, want)
		}
	}
	// no dedup, ids unique and sequential
	for i, issue := range res.Issues {
		if issue.ID != i+1 {
			t.Errorf("issue %d has id %d", i, issue.ID)
		}
	}
}

func TestRunLocationlessIssuesSortLast(t *testing.T) {
	out := `{"summary": "s", "issues": [
		{"title": "global concern"},
		{"file": "z.go", "title": "file but no line"},
		{"file": "z.go", "line": 3, "title": "precise"}
	]}`
	res, err := Run(context.Background(), reviewPlan(),
		[]executor.Executor{&fakeExecutor{name: "claude-code", output: out}}, nil, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Issues[0].Line != 3 || res.Issues[1].File != "z.go" || res.Issues[2].File != "" {
		t.Errorf("locationless ordering wrong: %+v", res.Issues)
	}
}

func TestRunPartialFailure(t *testing.T) {
	ok := &fakeExecutor{name: "claude-code", output: `{"summary": "fine", "issues": []}`}
	bad := &fakeExecutor{name: "codex-cli", err: errors.New("crashed")}

	res, err := Run(context.Background(), reviewPlan(), []executor.Executor{ok, bad}, nil, Options{})
	if err != nil {
		t.Fatalf("partial failure must not be fatal: %v", err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "codex-cli") {
		t.Errorf("expected a warning naming the failed executor, got %v", res.Warnings)
	}
}

func TestRunMalformedOutputIsFailure(t *testing.T) {
	ok := &fakeExecutor{name: "claude-code", output: `{"summary": "fine", "issues": []}`}
	bad := &fakeExecutor{name: "codex-cli", output: `{"summary": "x", "extra_field": true}`}

	res, err := Run(context.Background(), reviewPlan(), []executor.Executor{ok, bad}, nil, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("schema violation should be a per-executor failure, got %v", res.Warnings)
	}
}

func TestRunAllFailFatal(t *testing.T) {
	a := &fakeExecutor{name: "claude-code", err: errors.New("boom")}
	b := &fakeExecutor{name: "codex-cli", output: "not json"}

	_, err := Run(context.Background(), reviewPlan(), []executor.Executor{a, b}, nil, Options{})
	if !errors.Is(err, ErrAllExecutorsFailed) {
		t.Fatalf("expected ErrAllExecutorsFailed, got %v", err)
	}
}

func TestSummaryRecomputed(t *testing.T) {
	out := `{"summary": "executor-written summary must be discarded", "issues": [
		{"file": "a.go", "line": 1, "severity": "error", "title": "x"},
		{"file": "b.go", "line": 2, "severity": "warn", "title": "y"},
		{"file": "a.go", "line": 9, "severity": "warn", "title": "z"}
	]}`
	res, err := Run(context.Background(), reviewPlan(),
		[]executor.Executor{&fakeExecutor{name: "claude-code", output: out}}, nil, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(res.Summary, "3 issue(s) across 2 file(s)") {
		t.Errorf("summary not recomputed from merged issues: %q", res.Summary)
	}
	if !strings.Contains(res.Summary, "1 error") || !strings.Contains(res.Summary, "2 warn") {
		t.Errorf("severity counts missing: %q", res.Summary)
	}
}

func TestParseReportStrict(t *testing.T) {
	cases := map[string]string{
		"unknown field":  `{"summary": "s", "bogus": 1}`,
		"trailing data":  `{"summary": "s", "issues": []} {"again": true}`,
		"untitled issue": `{"summary": "s", "issues": [{"file": "a.go"}]}`,
		"not json":       `I reviewed the code and it looks great!`,
	}
	for name, output := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseReport(output); err == nil {
				t.Errorf("expected parse failure for %s", name)
			}
		})
	}
}

func TestTaskFilter(t *testing.T) {
	plan := reviewPlan()

	t.Run("nil filter selects all", func(t *testing.T) {
		tasks, err := (*TaskFilter)(nil).Resolve(plan)
		if err != nil || len(tasks) != 3 {
			t.Fatalf("got %d tasks, err %v", len(tasks), err)
		}
	})

	t.Run("union of indices and titles in plan order", func(t *testing.T) {
		f := &TaskFilter{Indices: []int{2}, Titles: []string{"validate IDS"}}
		tasks, err := f.Resolve(plan)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if len(tasks) != 2 || tasks[0].Title != "Validate ids" || tasks[1].Title != "Wire errors" {
			t.Errorf("got %+v", tasks)
		}
	})

	t.Run("unmatched enumerated separately", func(t *testing.T) {
		f := &TaskFilter{Indices: []int{0, 9}, Titles: []string{"Validate names", "nope"}}
		_, err := f.Resolve(plan)
		if err == nil {
			t.Fatal("expected error")
		}
		msg := err.Error()
		if !strings.Contains(msg, "indices: [9]") || !strings.Contains(msg, `"nope"`) {
			t.Errorf("error should list unmatched index and title: %v", err)
		}
		if strings.Contains(msg, "Validate names") {
			t.Errorf("matched title must not be reported: %v", err)
		}
	})

	t.Run("bad filter fails before dispatch", func(t *testing.T) {
		exec := &fakeExecutor{name: "claude-code", output: `{"summary": "s", "issues": []}`}
		_, err := Run(context.Background(), plan, []executor.Executor{exec},
			&TaskFilter{Indices: []int{42}}, Options{})
		if err == nil || !strings.Contains(err.Error(), "42") {
			t.Errorf("expected pre-dispatch filter error, got %v", err)
		}
	})
}
