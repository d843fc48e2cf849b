package ready

import (
	"testing"
	"time"

	"github.com/musterdev/muster/internal/types"
)

func plan(id int, status types.Status, deps ...int) *types.Plan {
	return &types.Plan{
		ID:           id,
		Title:        "plan",
		Status:       status,
		Priority:     types.PriorityMedium,
		Dependencies: deps,
		Tasks:        []types.Task{{Title: "work"}},
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute),
	}
}

func asMap(plans ...*types.Plan) map[int]*types.Plan {
	m := make(map[int]*types.Plan)
	for _, p := range plans {
		m[p.ID] = p
	}
	return m
}

func TestIsReady(t *testing.T) {
	t.Run("no deps, actionable statuses", func(t *testing.T) {
		for _, status := range []types.Status{types.StatusPending, types.StatusInProgress} {
			p := plan(1, status)
			if !IsReady(p, asMap(p)) {
				t.Errorf("status %s with tasks should be ready", status)
			}
		}
		for _, status := range []types.Status{types.StatusDone, types.StatusCancelled, types.StatusDeferred} {
			p := plan(1, status)
			if IsReady(p, asMap(p)) {
				t.Errorf("status %s should not be ready", status)
			}
		}
	})

	t.Run("no tasks never ready", func(t *testing.T) {
		p := plan(1, types.StatusPending)
		p.Tasks = nil
		if IsReady(p, asMap(p)) {
			t.Error("plan without tasks must not be ready")
		}
	})

	t.Run("unmet dependency blocks", func(t *testing.T) {
		dep := plan(2, types.StatusInProgress)
		p := plan(1, types.StatusPending, 2)
		if IsReady(p, asMap(p, dep)) {
			t.Error("dependency not done, plan must not be ready")
		}
		dep.Status = types.StatusDone
		if !IsReady(p, asMap(p, dep)) {
			t.Error("dependency done, plan should be ready")
		}
	})

	t.Run("missing dependency id blocks", func(t *testing.T) {
		p := plan(1, types.StatusPending, 99)
		if IsReady(p, asMap(p)) {
			t.Error("dangling dependency must count as unsatisfied")
		}
	})
}

func TestFilterAndSort(t *testing.T) {
	a := plan(1, types.StatusPending)
	a.Priority = types.PriorityUrgent
	a.Tags = []string{"backend"}
	b := plan(2, types.StatusInProgress)
	b.Priority = types.PriorityLow
	b.Tags = []string{"frontend"}
	c := plan(3, types.StatusPending)
	c.Priority = types.PriorityHigh
	c.Tags = []string{"backend", "auth"}
	all := asMap(a, b, c)

	t.Run("default sort is priority", func(t *testing.T) {
		got := FilterAndSort(all, Filter{})
		if len(got) != 3 || got[0].ID != 1 || got[1].ID != 3 || got[2].ID != 2 {
			t.Errorf("unexpected order: %v", ids(got))
		}
	})

	t.Run("priority allowlist", func(t *testing.T) {
		got := FilterAndSort(all, Filter{Priorities: []types.Priority{types.PriorityUrgent, types.PriorityHigh}})
		if len(got) != 2 {
			t.Errorf("expected 2 plans, got %v", ids(got))
		}
	})

	t.Run("tag OR semantics", func(t *testing.T) {
		got := FilterAndSort(all, Filter{Tags: []string{"auth", "frontend"}})
		if len(got) != 2 {
			t.Errorf("expected plans 2 and 3, got %v", ids(got))
		}
	})

	t.Run("pending only", func(t *testing.T) {
		got := FilterAndSort(all, Filter{PendingOnly: true})
		if len(got) != 2 {
			t.Errorf("expected 2 pending plans, got %v", ids(got))
		}
	})

	t.Run("limit applies after sort", func(t *testing.T) {
		got := FilterAndSort(all, Filter{Limit: 1})
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("limit should keep the top plan, got %v", ids(got))
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		first := ids(FilterAndSort(all, Filter{}))
		for i := 0; i < 10; i++ {
			if got := ids(FilterAndSort(all, Filter{})); !equal(got, first) {
				t.Fatalf("order changed between runs: %v vs %v", got, first)
			}
		}
	})
}

func TestEpicFilter(t *testing.T) {
	epic := plan(10, types.StatusPending)
	epic.Epic = true
	epic.Tasks = nil
	mid := plan(11, types.StatusPending)
	mid.Parent = intp(10)
	leaf := plan(12, types.StatusPending)
	leaf.Parent = intp(11)
	stray := plan(13, types.StatusPending)
	all := asMap(epic, mid, leaf, stray)

	got := FilterAndSort(all, Filter{Epic: intp(10)})
	if len(got) != 2 {
		t.Fatalf("expected the two descendants, got %v", ids(got))
	}
}

func TestAncestorChainCycleGuard(t *testing.T) {
	a := plan(1, types.StatusPending)
	b := plan(2, types.StatusPending)
	a.Parent = intp(2)
	b.Parent = intp(1)
	all := asMap(a, b)

	chain := AncestorChain(a, all)
	if len(chain) != 1 || chain[0] != 2 {
		t.Errorf("cycle walk should stop after first repeat, got %v", chain)
	}

	// self-parent would be rejected by Validate, but the walk must still halt
	c := plan(3, types.StatusPending)
	c.Parent = intp(3)
	if chain := AncestorChain(c, asMap(c)); len(chain) != 0 {
		t.Errorf("self-parent should yield empty chain, got %v", chain)
	}
}

func TestReadyPlans(t *testing.T) {
	dep := plan(1, types.StatusDone)
	ok := plan(2, types.StatusPending, 1)
	blocked := plan(3, types.StatusPending, 2)
	all := asMap(dep, ok, blocked)

	got := Plans(all, Filter{})
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("expected only plan 2 ready, got %v", ids(got))
	}
}

func TestReadyPlansLimitAppliesToReadySubset(t *testing.T) {
	// An urgent plan blocked on a missing dependency sorts first; it must not
	// consume a limit slot and hide the ready low-priority plan behind it.
	blocked := plan(1, types.StatusPending, 99)
	blocked.Priority = types.PriorityUrgent
	ok := plan(2, types.StatusPending)
	ok.Priority = types.PriorityLow
	all := asMap(blocked, ok)

	got := Plans(all, Filter{Limit: 1})
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected ready plan 2 with limit 1, got %v", ids(got))
	}

	// With more ready plans than the limit, the limit still truncates.
	extra := plan(3, types.StatusPending)
	got = Plans(asMap(blocked, ok, extra), Filter{Limit: 1})
	if len(got) != 1 {
		t.Errorf("limit should truncate the ready subset, got %v", ids(got))
	}
}

func ids(plans []*types.Plan) []int {
	out := make([]int, len(plans))
	for i, p := range plans {
		out[i] = p.ID
	}
	return out
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intp(v int) *int { return &v }
