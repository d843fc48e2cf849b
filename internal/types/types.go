// Package types defines the core data structures for the muster orchestration engine.
package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status represents the lifecycle state of a plan.
type Status string

// Plan status values
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
	StatusDeferred   Status = "deferred"
)

// IsValid checks if the status is a known value. Empty is treated as pending.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusCancelled, StatusDeferred, "":
		return true
	}
	return false
}

// IsActionable returns true for statuses that permit execution.
func (s Status) IsActionable() bool {
	return s == StatusPending || s == StatusInProgress || s == ""
}

// Priority represents the scheduling weight of a plan.
type Priority string

// Plan priority values, highest first
const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityMaybe  Priority = "maybe"
)

// IsValid checks if the priority is a known value. Empty defaults to medium.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow, PriorityMaybe, "":
		return true
	}
	return false
}

// Rank returns a numeric weight for sorting; higher means more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium, "":
		return 2
	case PriorityLow:
		return 1
	case PriorityMaybe:
		return 0
	}
	return -1
}

// Step is the smallest unit of work: a single prompt handed to an executor.
// Done is terminal; a finished step is never reverted.
type Step struct {
	Prompt string `yaml:"prompt" json:"prompt"`
	Done   bool   `yaml:"done,omitempty" json:"done,omitempty"`
}

// Task groups steps under one deliverable. A task with no steps is completed
// directly via Done; a task with steps is complete only when every step is done.
type Task struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Files       []string `yaml:"files,omitempty" json:"files,omitempty"`
	Done        bool     `yaml:"done,omitempty" json:"done,omitempty"`
	Steps       []Step   `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// IsComplete returns true when the task counts as finished.
func (t *Task) IsComplete() bool {
	if len(t.Steps) == 0 {
		return t.Done
	}
	for i := range t.Steps {
		if !t.Steps[i].Done {
			return false
		}
	}
	return true
}

// Plan is a trackable unit of work with dependencies, hierarchy, and an
// ordered task list.
type Plan struct {
	ID             int       `yaml:"id" json:"id"`
	UUID           string    `yaml:"uuid,omitempty" json:"uuid,omitempty"`
	Title          string    `yaml:"title" json:"title"`
	Goal           string    `yaml:"goal,omitempty" json:"goal,omitempty"`
	Details        string    `yaml:"-" json:"details,omitempty"`
	Status         Status    `yaml:"status,omitempty" json:"status,omitempty"`
	Priority       Priority  `yaml:"priority,omitempty" json:"priority,omitempty"`
	Dependencies   []int     `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Parent         *int      `yaml:"parent,omitempty" json:"parent,omitempty"`
	DiscoveredFrom *int      `yaml:"discoveredFrom,omitempty" json:"discovered_from,omitempty"`
	Epic           bool      `yaml:"epic,omitempty" json:"epic,omitempty"`
	Tags           []string  `yaml:"tags,omitempty" json:"tags,omitempty"`
	Branch         string    `yaml:"branch,omitempty" json:"branch,omitempty"`
	Tasks          []Task    `yaml:"tasks,omitempty" json:"tasks,omitempty"`
	CreatedAt      time.Time `yaml:"createdAt,omitempty" json:"created_at,omitempty"`
	UpdatedAt      time.Time `yaml:"updatedAt,omitempty" json:"updated_at,omitempty"`

	// Path records which file the plan was loaded from. Not serialized.
	Path string `yaml:"-" json:"-"`
}

// Validate checks the plan for structural problems. Dependency ids pointing at
// plans that do not exist are a store-level concern, not checked here.
func (p *Plan) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("plan id must be a positive integer (got %d)", p.ID)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("plan %d: title is required", p.ID)
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("plan %d: invalid status: %q", p.ID, p.Status)
	}
	if !p.Priority.IsValid() {
		return fmt.Errorf("plan %d: invalid priority: %q", p.ID, p.Priority)
	}
	seen := make(map[int]bool, len(p.Dependencies))
	for _, dep := range p.Dependencies {
		if dep == p.ID {
			return fmt.Errorf("plan %d: depends on itself", p.ID)
		}
		if seen[dep] {
			return fmt.Errorf("plan %d: duplicate dependency %d", p.ID, dep)
		}
		seen[dep] = true
	}
	if p.Parent != nil && *p.Parent == p.ID {
		return fmt.Errorf("plan %d: is its own parent", p.ID)
	}
	return nil
}

// IsComplete returns true when every task in the plan is complete.
// An empty task list counts as complete (nothing left to do).
func (p *Plan) IsComplete() bool {
	for i := range p.Tasks {
		if !p.Tasks[i].IsComplete() {
			return false
		}
	}
	return true
}

// CountDoneTasks returns (done, total) over the plan's task list.
func (p *Plan) CountDoneTasks() (int, int) {
	done := 0
	for i := range p.Tasks {
		if p.Tasks[i].IsComplete() {
			done++
		}
	}
	return done, len(p.Tasks)
}

// NormalizeTags lowercases, trims, dedupes and sorts the plan's tags in place.
func (p *Plan) NormalizeTags() {
	if len(p.Tags) == 0 {
		return
	}
	seen := make(map[string]bool, len(p.Tags))
	out := p.Tags[:0]
	for _, tag := range p.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	sort.Strings(out)
	p.Tags = out
}

// HasTag reports whether the plan carries the given tag (case-insensitive).
func (p *Plan) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
