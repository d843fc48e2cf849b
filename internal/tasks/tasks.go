// Package tasks implements the task/step completion state machine: finding
// the next actionable item in a plan, recording completion, and cascading
// plan and epic completion upward.
package tasks

import (
	"fmt"

	"github.com/musterdev/muster/internal/debug"
	"github.com/musterdev/muster/internal/store"
	"github.com/musterdev/muster/internal/types"
)

// ItemKind distinguishes the two actionable granularities.
type ItemKind string

const (
	KindStep ItemKind = "step"
	KindTask ItemKind = "task"
)

// Item identifies the next piece of work inside a plan.
type Item struct {
	Kind      ItemKind
	TaskIndex int
	// StepIndex is meaningful only when Kind == KindStep.
	StepIndex int
}

// NextActionableItem scans tasks in order and returns the first undone step of
// the first incomplete task, or the task itself if it has no steps. A nil
// return means the plan is complete; this doubles as the completion predicate.
func NextActionableItem(plan *types.Plan) *Item {
	for ti := range plan.Tasks {
		task := &plan.Tasks[ti]
		if task.IsComplete() {
			continue
		}
		if len(task.Steps) == 0 {
			return &Item{Kind: KindTask, TaskIndex: ti}
		}
		for si := range task.Steps {
			if !task.Steps[si].Done {
				return &Item{Kind: KindStep, TaskIndex: ti, StepIndex: si}
			}
		}
	}
	return nil
}

// Machine records completions against the plan store.
type Machine struct {
	store *store.Store
}

// NewMachine returns a state machine bound to the given store.
func NewMachine(s *store.Store) *Machine {
	return &Machine{store: s}
}

// MarkStepDone flips one step to done, persists the plan, and runs the
// completion cascade if nothing actionable remains.
func (m *Machine) MarkStepDone(plan *types.Plan, taskIndex, stepIndex int) error {
	if taskIndex < 0 || taskIndex >= len(plan.Tasks) {
		return fmt.Errorf("plan %d: task index %d out of range", plan.ID, taskIndex)
	}
	task := &plan.Tasks[taskIndex]
	if stepIndex < 0 || stepIndex >= len(task.Steps) {
		return fmt.Errorf("plan %d task %d: step index %d out of range", plan.ID, taskIndex, stepIndex)
	}
	task.Steps[stepIndex].Done = true
	return m.finishOrSave(plan)
}

// MarkTaskDone completes a task that has no steps. Tasks with steps complete
// through their steps only.
func (m *Machine) MarkTaskDone(plan *types.Plan, taskIndex int) error {
	if taskIndex < 0 || taskIndex >= len(plan.Tasks) {
		return fmt.Errorf("plan %d: task index %d out of range", plan.ID, taskIndex)
	}
	task := &plan.Tasks[taskIndex]
	if len(task.Steps) > 0 {
		return fmt.Errorf("plan %d task %d has steps; mark steps done instead", plan.ID, taskIndex)
	}
	task.Done = true
	return m.finishOrSave(plan)
}

// MarkPlanDone sets a plan's status to done directly and runs the epic
// cascade, for status changes made outside the item-level completion flow.
func (m *Machine) MarkPlanDone(plan *types.Plan) error {
	plan.Status = types.StatusDone
	if err := m.store.Save(plan); err != nil {
		return err
	}
	return m.cascadeEpics(plan)
}

func (m *Machine) finishOrSave(plan *types.Plan) error {
	if NextActionableItem(plan) != nil {
		return m.store.Save(plan)
	}

	plan.Status = types.StatusDone
	if err := m.store.Save(plan); err != nil {
		return err
	}
	debug.Logf("tasks: plan %d complete\n", plan.ID)
	return m.cascadeEpics(plan)
}

// cascadeEpics walks Parent links upward; whenever a parent is an epic whose
// children are all done, the epic is marked done too. The walk is
// visited-set guarded because the parent graph is not guaranteed acyclic.
func (m *Machine) cascadeEpics(plan *types.Plan) error {
	visited := map[int]bool{plan.ID: true}
	cur := plan
	for cur.Parent != nil {
		pid := *cur.Parent
		if visited[pid] {
			break
		}
		visited[pid] = true

		all, _, err := m.store.LoadAll()
		if err != nil {
			return err
		}
		parent, ok := all[pid]
		if !ok || !parent.Epic || parent.Status == types.StatusDone {
			break
		}
		if !allChildrenDone(pid, all) {
			break
		}
		parent.Status = types.StatusDone
		if err := m.store.Save(parent); err != nil {
			return err
		}
		debug.Logf("tasks: epic %d auto-completed\n", pid)
		cur = parent
	}
	return nil
}

func allChildrenDone(epicID int, all map[int]*types.Plan) bool {
	hasChild := false
	for _, p := range all {
		if p.Parent != nil && *p.Parent == epicID {
			hasChild = true
			if p.Status != types.StatusDone {
				return false
			}
		}
	}
	return hasChild
}
