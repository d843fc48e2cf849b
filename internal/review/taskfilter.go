package review

import (
	"fmt"
	"strings"

	"github.com/musterdev/muster/internal/types"
)

// TaskFilter scopes a review to a subset of a plan's tasks, selected by
// zero-based index or exact case-insensitive title. A nil filter means the
// whole plan.
type TaskFilter struct {
	Indices []int
	Titles  []string
}

// Resolve returns the selected tasks in original plan order: the union of
// index matches and title matches. Any index or title that matches nothing
// fails the whole resolution, enumerating every unmatched index and title.
func (f *TaskFilter) Resolve(plan *types.Plan) ([]types.Task, error) {
	if f == nil || (len(f.Indices) == 0 && len(f.Titles) == 0) {
		return plan.Tasks, nil
	}

	selected := make([]bool, len(plan.Tasks))
	var badIndices []int
	for _, idx := range f.Indices {
		if idx < 0 || idx >= len(plan.Tasks) {
			badIndices = append(badIndices, idx)
			continue
		}
		selected[idx] = true
	}

	var badTitles []string
	for _, title := range f.Titles {
		found := false
		for ti := range plan.Tasks {
			if strings.EqualFold(strings.TrimSpace(plan.Tasks[ti].Title), strings.TrimSpace(title)) {
				selected[ti] = true
				found = true
			}
		}
		if !found {
			badTitles = append(badTitles, title)
		}
	}

	if len(badIndices) > 0 || len(badTitles) > 0 {
		var parts []string
		if len(badIndices) > 0 {
			parts = append(parts, fmt.Sprintf("unmatched task indices: %v", badIndices))
		}
		if len(badTitles) > 0 {
			parts = append(parts, fmt.Sprintf("unmatched task titles: %q", badTitles))
		}
		return nil, fmt.Errorf("plan %d: %s", plan.ID, strings.Join(parts, "; "))
	}

	var tasks []types.Task
	for ti := range plan.Tasks {
		if selected[ti] {
			tasks = append(tasks, plan.Tasks[ti])
		}
	}
	return tasks, nil
}

// BuildPrompt renders the review prompt for the selected tasks. Filter
// resolution happens before any executor is dispatched, so a bad filter
// never launches a subprocess.
func BuildPrompt(plan *types.Plan, filter *TaskFilter) (string, error) {
	tasks, err := filter.Resolve(plan)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Review the implementation of plan %d: %s\n", plan.ID, plan.Title)
	if plan.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", plan.Goal)
	}
	b.WriteString("\nTasks under review:\n")
	for _, task := range tasks {
		fmt.Fprintf(&b, "- %s", task.Title)
		if task.Description != "" {
			fmt.Fprintf(&b, ": %s", task.Description)
		}
		b.WriteString("\n")
		for _, file := range task.Files {
			fmt.Fprintf(&b, "  file: %s\n", file)
		}
	}
	b.WriteString("\nReport findings as a single JSON object: " +
		`{"summary": string, "issues": [{"file", "line", "severity", "title", "body"}]}. ` +
		"Emit only the JSON object on stdout.\n")
	return b.String(), nil
}
