package types

import (
	"strings"
	"testing"
)

func TestPlanValidate(t *testing.T) {
	valid := func() *Plan {
		return &Plan{ID: 1, Title: "Implement widget", Status: StatusPending, Priority: PriorityMedium}
	}

	t.Run("valid plan", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Fatalf("expected valid plan, got %v", err)
		}
	})

	t.Run("non-positive id", func(t *testing.T) {
		p := valid()
		p.ID = 0
		if err := p.Validate(); err == nil {
			t.Error("expected error for id 0")
		}
	})

	t.Run("missing title", func(t *testing.T) {
		p := valid()
		p.Title = "   "
		if err := p.Validate(); err == nil {
			t.Error("expected error for blank title")
		}
	})

	t.Run("unknown status names the value", func(t *testing.T) {
		p := valid()
		p.Status = "paused"
		err := p.Validate()
		if err == nil || !strings.Contains(err.Error(), "paused") {
			t.Errorf("expected error naming the bad status, got %v", err)
		}
	})

	t.Run("unknown priority", func(t *testing.T) {
		p := valid()
		p.Priority = "critical"
		if err := p.Validate(); err == nil {
			t.Error("expected error for unknown priority")
		}
	})

	t.Run("self dependency", func(t *testing.T) {
		p := valid()
		p.Dependencies = []int{1}
		if err := p.Validate(); err == nil {
			t.Error("expected error for self-dependency")
		}
	})

	t.Run("duplicate dependency", func(t *testing.T) {
		p := valid()
		p.Dependencies = []int{2, 3, 2}
		if err := p.Validate(); err == nil {
			t.Error("expected error for duplicate dependency")
		}
	})

	t.Run("empty status and priority are fine", func(t *testing.T) {
		p := valid()
		p.Status = ""
		p.Priority = ""
		if err := p.Validate(); err != nil {
			t.Errorf("empty enums should default, got %v", err)
		}
	})
}

func TestTaskIsComplete(t *testing.T) {
	t.Run("stepless task uses done flag", func(t *testing.T) {
		task := Task{Title: "a"}
		if task.IsComplete() {
			t.Error("undone stepless task should be incomplete")
		}
		task.Done = true
		if !task.IsComplete() {
			t.Error("done stepless task should be complete")
		}
	})

	t.Run("task with steps ignores own done flag", func(t *testing.T) {
		task := Task{Title: "a", Done: true, Steps: []Step{{Prompt: "x"}, {Prompt: "y", Done: true}}}
		if task.IsComplete() {
			t.Error("task with an undone step is incomplete regardless of Done")
		}
		task.Steps[0].Done = true
		if !task.IsComplete() {
			t.Error("all steps done means complete")
		}
	})
}

func TestNormalizeTags(t *testing.T) {
	p := &Plan{ID: 1, Title: "t", Tags: []string{" Backend", "API", "backend", "", "api "}}
	p.NormalizeTags()
	want := []string{"api", "backend"}
	if len(p.Tags) != len(want) {
		t.Fatalf("got %v, want %v", p.Tags, want)
	}
	for i := range want {
		if p.Tags[i] != want[i] {
			t.Fatalf("got %v, want %v", p.Tags, want)
		}
	}
	if !p.HasTag("Backend") {
		t.Error("HasTag should match case-insensitively")
	}
}
