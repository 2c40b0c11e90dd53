// Package ranking orders expense categories by how likely the user is to pick
// them next.
//
// The engine derives two statistics per category from the recorded expenses:
// a weight (number of records) and an amount range ([min, max] of recorded
// amounts). Every refresh rebuilds them from scratch. Two orderings exist:
//
//   - frequency order: all categories by rank index, the canonical order;
//   - range order: categories whose range contains the typed amount first,
//     heaviest first with rank breaking ties, followed by every other
//     category in frequency order.
//
// The engine keeps the last published (displayed) ordering so that a
// selection index can be resolved against what the user currently sees.
// An Engine is not safe for concurrent use.
package ranking

import (
	"slices"

	"github.com/shopspring/decimal"

	"moneyspider/internal/core"
)

type Engine struct {
	stats    table
	ordering []core.Category
}

// NewEngine returns an engine with empty statistics and canonical ordering.
func NewEngine() *Engine {
	return &Engine{
		stats:    newTable(),
		ordering: core.Categories(),
	}
}

// RefreshFrequency recomputes weights and publishes the frequency order.
func (e *Engine) RefreshFrequency(records []core.Expense) []core.Category {
	e.stats.resetWeights()
	for _, r := range records {
		if !r.Category.Valid() {
			continue
		}
		e.stats[r.Category.Rank()].Weight++
	}

	ordered := core.Categories()
	slices.SortStableFunc(ordered, e.byRank)
	e.ordering = ordered
	return e.Ordering()
}

// RefreshRange recomputes weights and amount ranges and publishes the range
// order for typed. Without any history it degrades to RefreshFrequency.
func (e *Engine) RefreshRange(records []core.Expense, typed decimal.Decimal) []core.Category {
	var seen [core.CategoryCount]bool
	anySeen := false
	for _, r := range records {
		if r.Category.Valid() {
			seen[r.Category.Rank()] = true
			anySeen = true
		}
	}
	e.stats.resetRanges()
	if !anySeen {
		return e.RefreshFrequency(records)
	}

	for _, r := range records {
		if !r.Category.Valid() {
			continue
		}
		s := &e.stats[r.Category.Rank()]
		s.Range = s.Range.extend(r.Amount)
	}

	// Only seen categories are tested; an unseen category must not match
	// even when typed is zero.
	var matching []core.Category
	for i, ok := range seen {
		if ok && e.stats[i].Range.Contains(typed) {
			matching = append(matching, core.Category(i))
		}
	}

	baseline := e.RefreshFrequency(records)
	slices.SortStableFunc(matching, e.byWeight)
	e.ordering = mergeFirstSeen(matching, baseline)
	return e.Ordering()
}

// Rank applies the frequency rule when typed is nil and the range rule otherwise.
func (e *Engine) Rank(records []core.Expense, typed *decimal.Decimal) []core.Category {
	if typed == nil {
		return e.RefreshFrequency(records)
	}
	return e.RefreshRange(records, *typed)
}

// Ordering returns a copy of the displayed ordering.
func (e *Engine) Ordering() []core.Category {
	return slices.Clone(e.ordering)
}

// At resolves a selection index against the displayed ordering.
func (e *Engine) At(i int) (core.Category, bool) {
	if i < 0 || i >= len(e.ordering) {
		return 0, false
	}
	return e.ordering[i], true
}

// Stats returns the statistics of c as of the last refresh.
func (e *Engine) Stats(c core.Category) Stats {
	if !c.Valid() {
		return Stats{Category: c}
	}
	return e.stats.get(c)
}

// Snapshot returns the statistics of every category in rank order.
func (e *Engine) Snapshot() []Stats {
	out := make([]Stats, len(e.stats))
	copy(out, e.stats[:])
	return out
}

// Reset drops all statistics and restores the canonical ordering.
func (e *Engine) Reset() {
	e.stats.reset()
	e.ordering = core.Categories()
}
