// Package ready computes which plans are eligible to execute: dependencies
// satisfied, actionable status, and actual work to do.
package ready

import (
	"github.com/musterdev/muster/internal/types"
)

// IsReady reports whether a plan may execute now: status pending or
// in_progress, a non-empty task list, and every dependency resolved to a done
// plan. A dependency id that resolves to no plan counts as unsatisfied.
// Plans with no tasks (organizational stubs, epics) are never ready.
func IsReady(plan *types.Plan, all map[int]*types.Plan) bool {
	if plan == nil || !plan.Status.IsActionable() {
		return false
	}
	if len(plan.Tasks) == 0 {
		return false
	}
	for _, dep := range plan.Dependencies {
		depPlan, ok := all[dep]
		if !ok || depPlan.Status != types.StatusDone {
			return false
		}
	}
	return true
}

// Filter selects and orders plans for listing.
type Filter struct {
	// Priorities is an allowlist; empty means all priorities.
	Priorities []types.Priority
	// Tags match with OR semantics: a plan passes if it has any listed tag.
	Tags []string
	// Epic keeps only plans whose ancestor chain (via Parent links) contains
	// this plan id.
	Epic *int
	// PendingOnly drops everything except status pending.
	PendingOnly bool
	// Limit truncates the result after sorting; 0 means no limit.
	Limit int
	// Sort selects the ordering; empty means priority.
	Sort types.SortField
}

// FilterAndSort applies the filter over the full plan map and returns an
// ordered slice. The ordering is deterministic for identical inputs.
func FilterAndSort(all map[int]*types.Plan, opts Filter) []*types.Plan {
	var out []*types.Plan
	for _, plan := range all {
		if !matches(plan, all, opts) {
			continue
		}
		out = append(out, plan)
	}
	types.SortPlans(out, opts.Sort)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// Plans returns the ready subset of all plans, filtered and sorted. The limit
// applies to the ready subset only; a blocked plan that sorts first must not
// consume a limit slot and hide ready work.
func Plans(all map[int]*types.Plan, opts Filter) []*types.Plan {
	unlimited := opts
	unlimited.Limit = 0

	var ready []*types.Plan
	for _, plan := range FilterAndSort(all, unlimited) {
		if IsReady(plan, all) {
			ready = append(ready, plan)
		}
	}
	if opts.Limit > 0 && len(ready) > opts.Limit {
		ready = ready[:opts.Limit]
	}
	return ready
}

func matches(plan *types.Plan, all map[int]*types.Plan, opts Filter) bool {
	if opts.PendingOnly && plan.Status != types.StatusPending && plan.Status != "" {
		return false
	}
	if len(opts.Priorities) > 0 {
		found := false
		for _, p := range opts.Priorities {
			if plan.Priority == p {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(opts.Tags) > 0 {
		found := false
		for _, tag := range opts.Tags {
			if plan.HasTag(tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if opts.Epic != nil {
		found := false
		for _, anc := range AncestorChain(plan, all) {
			if anc == *opts.Epic {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// AncestorChain walks Parent links upward and returns the ancestor plan ids,
// nearest first. The store does not guarantee an acyclic parent graph, so the
// walk carries a visited set and stops on the first repeat.
func AncestorChain(plan *types.Plan, all map[int]*types.Plan) []int {
	var chain []int
	visited := map[int]bool{plan.ID: true}
	cur := plan
	for cur.Parent != nil {
		pid := *cur.Parent
		if visited[pid] {
			break
		}
		visited[pid] = true
		chain = append(chain, pid)
		next, ok := all[pid]
		if !ok {
			break
		}
		cur = next
	}
	return chain
}
