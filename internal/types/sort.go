package types

import (
	"sort"
	"strings"
)

// SortField selects the primary ordering for plan listings.
type SortField string

// Sort field values
const (
	// SortFieldPriority orders by priority descending, creation time
	// ascending, then id ascending. This is the default used by agents to
	// pick the next plan, so the tie-break order is load-bearing.
	SortFieldPriority SortField = "priority"

	// SortFieldCreated orders oldest first.
	SortFieldCreated SortField = "created"

	// SortFieldID orders by plan id ascending.
	SortFieldID SortField = "id"

	// SortFieldTitle orders by title, case-insensitive.
	SortFieldTitle SortField = "title"
)

// IsValid checks if the sort field value is valid. Empty means priority.
func (f SortField) IsValid() bool {
	switch f {
	case SortFieldPriority, SortFieldCreated, SortFieldID, SortFieldTitle, "":
		return true
	}
	return false
}

// ComparePlans is the canonical priority ordering: priority rank descending,
// then CreatedAt ascending (oldest first), then ID ascending. Returns a
// negative value when a sorts before b.
func ComparePlans(a, b *Plan) int {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return rb - ra
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	}
	return a.ID - b.ID
}

// SortPlans orders plans by the given field. All orderings fall back to id
// ascending so the result is deterministic for identical inputs.
func SortPlans(plans []*Plan, field SortField) {
	var less func(a, b *Plan) bool
	switch field {
	case SortFieldCreated:
		less = func(a, b *Plan) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	case SortFieldID:
		less = func(a, b *Plan) bool { return a.ID < b.ID }
	case SortFieldTitle:
		less = func(a, b *Plan) bool {
			ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if ta != tb {
				return ta < tb
			}
			return a.ID < b.ID
		}
	default:
		less = func(a, b *Plan) bool { return ComparePlans(a, b) < 0 }
	}
	sort.SliceStable(plans, func(i, j int) bool { return less(plans[i], plans[j]) })
}
