// Package mcp exposes the plan store over the Model Context Protocol so
// agents can query and update plans through tool calls instead of shelling
// out. It is a thin typed wrapper; all semantics live in store, ready, and
// tasks.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/musterdev/muster/internal/debug"
	"github.com/musterdev/muster/internal/ready"
	"github.com/musterdev/muster/internal/store"
	"github.com/musterdev/muster/internal/tasks"
	"github.com/musterdev/muster/internal/types"
)

// Server serves plan tools over stdio.
type Server struct {
	mcp   *mcp.Server
	store *store.Store
}

// New builds a server bound to a plan store.
func New(s *store.Store, version string) *Server {
	srv := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "muster",
			Version: version,
		}, nil),
		store: s,
	}
	srv.registerTools()
	return srv
}

// Run serves on the stdio transport until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	debug.Logf("mcp: serving on stdio\n")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

type planSummary struct {
	ID        int      `json:"id" jsonschema:"Plan id"`
	Title     string   `json:"title"`
	Status    string   `json:"status"`
	Priority  string   `json:"priority,omitempty"`
	Epic      bool     `json:"epic,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	DoneTasks int      `json:"done_tasks"`
	Tasks     int      `json:"tasks"`
}

func summarize(p *types.Plan) planSummary {
	done, total := p.CountDoneTasks()
	return planSummary{
		ID:        p.ID,
		Title:     p.Title,
		Status:    string(p.Status),
		Priority:  string(p.Priority),
		Epic:      p.Epic,
		Tags:      p.Tags,
		DoneTasks: done,
		Tasks:     total,
	}
}

type planListInput struct {
	Status   string `json:"status,omitempty" jsonschema:"Keep only plans with this status (pending, in_progress, done, cancelled)"`
	Tag      string `json:"tag,omitempty" jsonschema:"Keep only plans carrying this tag"`
	Priority string `json:"priority,omitempty" jsonschema:"Keep only plans with this priority"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum plans to return (0 = all)"`
}

type planListOutput struct {
	Plans []planSummary `json:"plans"`
	Count int           `json:"count"`
}

type planGetInput struct {
	ID int `json:"id" jsonschema:"required,Plan id"`
}

type planGetOutput struct {
	Plan *types.Plan `json:"plan"`
}

type planUpdateStatusInput struct {
	ID     int    `json:"id" jsonschema:"required,Plan id"`
	Status string `json:"status" jsonschema:"required,New status: pending, in_progress, done, or cancelled"`
}

type planUpdateStatusOutput struct {
	Plan planSummary `json:"plan"`
}

type readyPlansInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum plans to return (0 = all)"`
}

type readyPlansOutput struct {
	Plans []planSummary `json:"plans"`
	Count int           `json:"count"`
}

type nextActionInput struct {
	ID int `json:"id" jsonschema:"required,Plan id"`
}

type nextActionOutput struct {
	Done bool `json:"done" jsonschema:"True when nothing actionable remains"`
	// Kind is "step" or "task" when Done is false.
	Kind      string `json:"kind,omitempty"`
	TaskIndex int    `json:"task_index,omitempty"`
	StepIndex int    `json:"step_index,omitempty"`
	TaskTitle string `json:"task_title,omitempty"`
	Prompt    string `json:"prompt,omitempty" jsonschema:"The work instruction for the item"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "plan_list",
		Description: "List plans with optional status, tag, and priority filters. Ordered by priority, then creation time.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args planListInput) (*mcp.CallToolResult, planListOutput, error) {
		all, _, err := s.store.LoadAll()
		if err != nil {
			return nil, planListOutput{}, err
		}
		filter := ready.Filter{Limit: args.Limit}
		if args.Priority != "" {
			filter.Priorities = []types.Priority{types.Priority(args.Priority)}
		}
		if args.Tag != "" {
			filter.Tags = []string{args.Tag}
		}
		var out planListOutput
		for _, p := range ready.FilterAndSort(all, filter) {
			if args.Status != "" && string(p.Status) != args.Status {
				continue
			}
			out.Plans = append(out.Plans, summarize(p))
		}
		out.Count = len(out.Plans)
		return nil, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "plan_get",
		Description: "Fetch one plan in full, including its tasks and steps.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args planGetInput) (*mcp.CallToolResult, planGetOutput, error) {
		plan, err := s.store.Load(args.ID)
		if err != nil {
			return nil, planGetOutput{}, err
		}
		return nil, planGetOutput{Plan: plan}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "plan_update_status",
		Description: "Set a plan's status. Valid values: pending, in_progress, done, cancelled.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args planUpdateStatusInput) (*mcp.CallToolResult, planUpdateStatusOutput, error) {
		status := types.Status(args.Status)
		if !status.IsValid() {
			return nil, planUpdateStatusOutput{}, fmt.Errorf("invalid status %q", args.Status)
		}
		plan, err := s.store.Load(args.ID)
		if err != nil {
			return nil, planUpdateStatusOutput{}, err
		}
		// done transitions go through the state machine so parent epics
		// auto-complete here the same way they do for CLI completions
		if status == types.StatusDone {
			if err := tasks.NewMachine(s.store).MarkPlanDone(plan); err != nil {
				return nil, planUpdateStatusOutput{}, err
			}
			return nil, planUpdateStatusOutput{Plan: summarize(plan)}, nil
		}
		plan.Status = status
		if err := s.store.Save(plan); err != nil {
			return nil, planUpdateStatusOutput{}, err
		}
		return nil, planUpdateStatusOutput{Plan: summarize(plan)}, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ready_plans",
		Description: "List plans that are ready to execute: actionable status, tasks present, every dependency done.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args readyPlansInput) (*mcp.CallToolResult, readyPlansOutput, error) {
		all, _, err := s.store.LoadAll()
		if err != nil {
			return nil, readyPlansOutput{}, err
		}
		var out readyPlansOutput
		for _, p := range ready.Plans(all, ready.Filter{Limit: args.Limit}) {
			out.Plans = append(out.Plans, summarize(p))
		}
		out.Count = len(out.Plans)
		return nil, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "next_action",
		Description: "Return the next actionable item of a plan: the first undone step of the first incomplete task, or the task itself when it has no steps.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args nextActionInput) (*mcp.CallToolResult, nextActionOutput, error) {
		plan, err := s.store.Load(args.ID)
		if err != nil {
			return nil, nextActionOutput{}, err
		}
		item := tasks.NextActionableItem(plan)
		if item == nil {
			return nil, nextActionOutput{Done: true}, nil
		}
		task := plan.Tasks[item.TaskIndex]
		out := nextActionOutput{
			Kind:      string(item.Kind),
			TaskIndex: item.TaskIndex,
			TaskTitle: task.Title,
		}
		if item.Kind == tasks.KindStep {
			out.StepIndex = item.StepIndex
			out.Prompt = task.Steps[item.StepIndex].Prompt
		} else {
			out.Prompt = task.Title
			if task.Description != "" {
				out.Prompt += "\n" + task.Description
			}
		}
		return nil, out, nil
	})
}
