package ranking

import (
	"github.com/shopspring/decimal"

	"moneyspider/internal/core"
)

// AmountRange is the closed interval of recorded amounts for one category.
// The zero value is the empty range of a category without history.
type AmountRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
	set bool
}

// NewAmountRange returns [lo, hi], swapping the bounds if needed.
func NewAmountRange(lo, hi decimal.Decimal) AmountRange {
	if lo.GreaterThan(hi) {
		lo, hi = hi, lo
	}
	return AmountRange{Min: lo, Max: hi, set: true}
}

// IsEmpty reports whether no amount has been recorded.
func (r AmountRange) IsEmpty() bool {
	return !r.set
}

// Contains is inclusive on both bounds and always false for an empty range.
func (r AmountRange) Contains(v decimal.Decimal) bool {
	if !r.set {
		return false
	}
	return !v.LessThan(r.Min) && !v.GreaterThan(r.Max)
}

func (r AmountRange) extend(v decimal.Decimal) AmountRange {
	if !r.set {
		return AmountRange{Min: v, Max: v, set: true}
	}
	if v.LessThan(r.Min) {
		r.Min = v
	}
	if v.GreaterThan(r.Max) {
		r.Max = v
	}
	return r
}

// Stats is the derived statistics record of one category.
type Stats struct {
	Category core.Category
	Weight   int
	Range    AmountRange
}

// table owns the statistics of every category, indexed by rank.
type table [core.CategoryCount]Stats

func newTable() table {
	var t table
	t.reset()
	return t
}

func (t *table) reset() {
	for i := range t {
		t[i] = Stats{Category: core.Category(i)}
	}
}

func (t *table) resetWeights() {
	for i := range t {
		t[i].Weight = 0
	}
}

func (t *table) resetRanges() {
	for i := range t {
		t[i].Range = AmountRange{}
	}
}

func (t *table) get(c core.Category) Stats {
	return t[c.Rank()]
}
