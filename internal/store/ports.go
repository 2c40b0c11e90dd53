package store

import (
	"context"

	"moneyspider/internal/core"
)

// ExpenseStore is the ordered, mutable collection of recorded expenses.
// Positions are list indices at call time; insertion order is display order.
// A store never refreshes category statistics, callers do.
type ExpenseStore interface {
	Append(ctx context.Context, e core.Expense) error

	// RemoveAt deletes the records at the given positions. Out-of-range
	// and repeated positions are ignored.
	RemoveAt(ctx context.Context, positions []int) error

	Clear(ctx context.Context) error

	// All returns a copy of the records in insertion order.
	All(ctx context.Context) ([]core.Expense, error)
}

// PositionSet normalizes a caller-supplied position list against a
// collection of length n: it drops out-of-range and duplicate entries.
func PositionSet(positions []int, n int) map[int]struct{} {
	set := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		if p < 0 || p >= n {
			continue
		}
		set[p] = struct{}{}
	}
	return set
}
