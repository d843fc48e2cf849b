package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/musterdev/muster/internal/debug"
	"github.com/musterdev/muster/internal/types"
)

// ErrBatchNoProgress is returned when two consecutive batch rounds finish
// without completing a single task. The loop aborts instead of spinning.
var ErrBatchNoProgress = errors.New("batch made no progress for two consecutive rounds")

// maxStallRounds is the number of consecutive zero-progress rounds tolerated
// before the batch loop aborts.
const maxStallRounds = 2

// BatchExecutor is handed every incomplete task in one dispatch and reports
// which of them it finished, by task index into the plan's task list.
type BatchExecutor interface {
	ExecuteBatch(ctx context.Context, plan *types.Plan, incomplete []int) (done []int, err error)
}

// ApplyBatchCompletion validates and applies a set of task completions in one
// persisted write. Every index is checked before anything is mutated: out of
// range or already-done indices fail the whole call with no partial write.
func (m *Machine) ApplyBatchCompletion(planID int, doneTaskIndices []int) error {
	plan, err := m.store.Load(planID)
	if err != nil {
		return err
	}

	seen := make(map[int]bool, len(doneTaskIndices))
	for _, ti := range doneTaskIndices {
		if ti < 0 || ti >= len(plan.Tasks) {
			return fmt.Errorf("plan %d: batch completion index %d out of range", planID, ti)
		}
		if seen[ti] {
			return fmt.Errorf("plan %d: batch completion index %d repeated", planID, ti)
		}
		if plan.Tasks[ti].IsComplete() {
			return fmt.Errorf("plan %d: task %d already complete", planID, ti)
		}
		seen[ti] = true
	}

	for _, ti := range doneTaskIndices {
		task := &plan.Tasks[ti]
		task.Done = true
		for si := range task.Steps {
			task.Steps[si].Done = true
		}
	}
	return m.finishOrSave(plan)
}

// RunBatch drives a plan to completion in batch mode: each round hands the
// executor all currently-incomplete tasks, applies whatever subset it
// reports finished, and re-reads the plan from the store. Terminates when
// nothing actionable remains, or fails with ErrBatchNoProgress after
// maxStallRounds rounds that complete nothing.
func (m *Machine) RunBatch(ctx context.Context, planID int, exec BatchExecutor) error {
	stalls := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		plan, err := m.store.Load(planID)
		if err != nil {
			return err
		}
		if NextActionableItem(plan) == nil {
			return nil
		}

		incomplete := incompleteTaskIndices(plan)
		done, err := exec.ExecuteBatch(ctx, plan, incomplete)
		if err != nil {
			return fmt.Errorf("batch round for plan %d: %w", planID, err)
		}

		applied := filterNewlyDone(plan, done)
		if len(applied) == 0 {
			stalls++
			debug.Logf("tasks: batch round completed nothing (%d/%d)\n", stalls, maxStallRounds)
			if stalls >= maxStallRounds {
				return fmt.Errorf("plan %d: %w", planID, ErrBatchNoProgress)
			}
			continue
		}
		stalls = 0

		if err := m.ApplyBatchCompletion(planID, applied); err != nil {
			return err
		}
	}
}

func incompleteTaskIndices(plan *types.Plan) []int {
	var out []int
	for ti := range plan.Tasks {
		if !plan.Tasks[ti].IsComplete() {
			out = append(out, ti)
		}
	}
	return out
}

// filterNewlyDone drops indices the executor claimed but which are out of
// range or already complete, so a confused executor degrades to a stall
// rather than an apply error.
func filterNewlyDone(plan *types.Plan, done []int) []int {
	seen := make(map[int]bool, len(done))
	var out []int
	for _, ti := range done {
		if ti < 0 || ti >= len(plan.Tasks) || seen[ti] {
			continue
		}
		if plan.Tasks[ti].IsComplete() {
			continue
		}
		seen[ti] = true
		out = append(out, ti)
	}
	sort.Ints(out)
	return out
}
