package ranking

import (
	"cmp"

	"moneyspider/internal/core"
)

// byRank is the frequency-order comparator: rank ascending, then weight
// descending. Ranks are unique, so the weight key never decides in practice.
func (e *Engine) byRank(a, b core.Category) int {
	if c := cmp.Compare(a.Rank(), b.Rank()); c != 0 {
		return c
	}
	return cmp.Compare(e.stats.get(b).Weight, e.stats.get(a).Weight)
}

// byWeight orders range matches: weight descending, then rank ascending.
func (e *Engine) byWeight(a, b core.Category) int {
	if c := cmp.Compare(e.stats.get(b).Weight, e.stats.get(a).Weight); c != 0 {
		return c
	}
	return cmp.Compare(a.Rank(), b.Rank())
}

// mergeFirstSeen concatenates front and rest and keeps only the first
// occurrence of each category.
func mergeFirstSeen(front, rest []core.Category) []core.Category {
	var seen [core.CategoryCount]bool
	out := make([]core.Category, 0, len(rest))
	for _, list := range [][]core.Category{front, rest} {
		for _, c := range list {
			if !c.Valid() || seen[c.Rank()] {
				continue
			}
			seen[c.Rank()] = true
			out = append(out, c)
		}
	}
	return out
}
