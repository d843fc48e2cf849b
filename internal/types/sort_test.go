package types

import (
	"testing"
	"time"
)

func TestSortPlansPriorityOrder(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	plans := []*Plan{
		{ID: 4, Title: "d", Priority: PriorityMedium, CreatedAt: base},
		{ID: 1, Title: "a", Priority: PriorityUrgent, CreatedAt: base.Add(time.Hour)},
		{ID: 3, Title: "c", Priority: PriorityMedium, CreatedAt: base},
		{ID: 2, Title: "b", Priority: PriorityHigh, CreatedAt: base.Add(-time.Hour)},
		{ID: 5, Title: "e", Priority: PriorityMaybe, CreatedAt: base},
		{ID: 6, Title: "f", Priority: PriorityMedium, CreatedAt: base.Add(-2 * time.Hour)},
	}

	SortPlans(plans, SortFieldPriority)

	// urgent first, then high, then the mediums: oldest created first, id
	// ascending on equal timestamps, maybe last.
	want := []int{1, 2, 6, 3, 4, 5}
	for i, id := range want {
		if plans[i].ID != id {
			t.Fatalf("position %d: got plan %d, want %d", i, plans[i].ID, id)
		}
	}
}

func TestSortPlansDeterministic(t *testing.T) {
	mk := func() []*Plan {
		base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		return []*Plan{
			{ID: 3, Title: "x", Priority: PriorityHigh, CreatedAt: base},
			{ID: 1, Title: "x", Priority: PriorityHigh, CreatedAt: base},
			{ID: 2, Title: "x", Priority: PriorityHigh, CreatedAt: base},
		}
	}

	a, b := mk(), mk()
	SortPlans(a, SortFieldPriority)
	SortPlans(b, SortFieldPriority)
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("sort not deterministic at %d: %d vs %d", i, a[i].ID, b[i].ID)
		}
	}
	// full tie on priority and createdAt falls back to id ascending
	for i, id := range []int{1, 2, 3} {
		if a[i].ID != id {
			t.Fatalf("tie-break by id failed: got %d at %d", a[i].ID, i)
		}
	}
}

func TestSortPlansOtherFields(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	plans := []*Plan{
		{ID: 2, Title: "bravo", CreatedAt: base.Add(time.Hour)},
		{ID: 1, Title: "Alpha", CreatedAt: base.Add(2 * time.Hour)},
		{ID: 3, Title: "charlie", CreatedAt: base},
	}

	SortPlans(plans, SortFieldCreated)
	if plans[0].ID != 3 || plans[2].ID != 1 {
		t.Errorf("created sort wrong: %d,%d,%d", plans[0].ID, plans[1].ID, plans[2].ID)
	}

	SortPlans(plans, SortFieldTitle)
	if plans[0].ID != 1 || plans[1].ID != 2 || plans[2].ID != 3 {
		t.Errorf("title sort should be case-insensitive: %d,%d,%d", plans[0].ID, plans[1].ID, plans[2].ID)
	}

	SortPlans(plans, SortFieldID)
	if plans[0].ID != 1 || plans[2].ID != 3 {
		t.Errorf("id sort wrong")
	}
}
