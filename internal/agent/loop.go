// Package agent drives a plan to completion: it resolves readiness, holds the
// workspace lock for the duration of the run, and feeds work items to an
// executor one at a time or as a batch.
package agent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/musterdev/muster/internal/debug"
	"github.com/musterdev/muster/internal/executor"
	"github.com/musterdev/muster/internal/ready"
	"github.com/musterdev/muster/internal/store"
	"github.com/musterdev/muster/internal/tasks"
	"github.com/musterdev/muster/internal/types"
	"github.com/musterdev/muster/internal/workspace"
)

// Runner executes plans against a workspace.
type Runner struct {
	Store      *store.Store
	Workspaces *workspace.Manager
	Exec       executor.Executor
	// InactivityTimeout is forwarded to captured executor sessions.
	InactivityTimeout time.Duration
}

// RunOptions tunes a single run.
type RunOptions struct {
	// WorkspaceDir is where the executor works and what gets locked. Empty
	// means the current directory.
	WorkspaceDir string
	// Batch hands the executor the whole remaining task list per round
	// instead of one item at a time.
	Batch bool
	// KeepOpen leaves an interactive session attached after the run.
	KeepOpen bool
}

// Run drives the plan until nothing actionable remains. The workspace lock is
// held for the whole run and released on every exit path. Context
// cancellation propagates into the running executor.
func (r *Runner) Run(ctx context.Context, planID int, opts RunOptions) error {
	plan, err := r.Store.Load(planID)
	if err != nil {
		return err
	}

	all, _, err := r.Store.LoadAll()
	if err != nil {
		return err
	}
	if !ready.IsReady(plan, all) {
		return fmt.Errorf("plan %d is not ready (blocked, done, or has no tasks)", planID)
	}

	wsDir := opts.WorkspaceDir
	if wsDir == "" {
		if wsDir, err = os.Getwd(); err != nil {
			return err
		}
	}

	lock, err := r.Workspaces.Lock(wsDir, false)
	if err != nil {
		return fmt.Errorf("workspace %s: %w", wsDir, err)
	}
	defer func() {
		if rerr := r.Workspaces.Unlock(lock); rerr != nil {
			debug.Warnf("agent: releasing workspace lock: %v\n", rerr)
		}
	}()

	if plan.Status == types.StatusPending || plan.Status == "" {
		plan.Status = types.StatusInProgress
		if err := r.Store.Save(plan); err != nil {
			return err
		}
	}

	machine := tasks.NewMachine(r.Store)
	if opts.Batch {
		if !r.Exec.Capabilities().Batch {
			return fmt.Errorf("executor %s does not support batch mode", r.Exec.Name())
		}
		return machine.RunBatch(ctx, planID, &batchAdapter{
			exec: r.Exec,
			ec:   r.execContext(plan, wsDir, opts),
		})
	}
	return r.runStepwise(ctx, machine, planID, wsDir, opts)
}

func (r *Runner) runStepwise(ctx context.Context, machine *tasks.Machine, planID int, wsDir string, opts RunOptions) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		plan, err := r.Store.Load(planID)
		if err != nil {
			return err
		}
		item := tasks.NextActionableItem(plan)
		if item == nil {
			debug.PrintNormal("plan %d complete\n", planID)
			return nil
		}

		prompt := itemPrompt(plan, item)
		debug.Logf("agent: plan %d dispatching task %d%s\n", planID, item.TaskIndex, stepSuffix(item))
		if _, err := r.Exec.Execute(ctx, &prompt, r.execContext(plan, wsDir, opts)); err != nil {
			return fmt.Errorf("plan %d task %d: %w", planID, item.TaskIndex, err)
		}

		switch item.Kind {
		case tasks.KindStep:
			err = machine.MarkStepDone(plan, item.TaskIndex, item.StepIndex)
		default:
			err = machine.MarkTaskDone(plan, item.TaskIndex)
		}
		if err != nil {
			return err
		}
	}
}

func (r *Runner) execContext(plan *types.Plan, wsDir string, opts RunOptions) executor.ExecContext {
	return executor.ExecContext{
		PlanID:            plan.ID,
		PlanTitle:         plan.Title,
		WorkspaceDir:      wsDir,
		Mode:              executor.ModeNormal,
		KeepOpen:          opts.KeepOpen,
		InactivityTimeout: r.InactivityTimeout,
	}
}

// itemPrompt renders the work instruction for one actionable item: the step's
// own prompt, or the task title plus description for stepless tasks.
func itemPrompt(plan *types.Plan, item *tasks.Item) string {
	task := plan.Tasks[item.TaskIndex]

	var b strings.Builder
	fmt.Fprintf(&b, "You are working on plan %d: %s\n", plan.ID, plan.Title)
	if plan.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", plan.Goal)
	}
	b.WriteString("\n")

	if item.Kind == tasks.KindStep {
		fmt.Fprintf(&b, "Current task: %s\n", task.Title)
		fmt.Fprintf(&b, "Do exactly this step, then stop:\n%s\n", task.Steps[item.StepIndex].Prompt)
	} else {
		fmt.Fprintf(&b, "Complete this task, then stop:\n%s\n", task.Title)
		if task.Description != "" {
			fmt.Fprintf(&b, "%s\n", task.Description)
		}
	}
	for _, file := range task.Files {
		fmt.Fprintf(&b, "Relevant file: %s\n", file)
	}
	return b.String()
}

func stepSuffix(item *tasks.Item) string {
	if item.Kind == tasks.KindStep {
		return fmt.Sprintf(" step %d", item.StepIndex)
	}
	return ""
}
