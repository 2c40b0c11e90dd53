// Package storetest holds the behavioural checks every store.ExpenseStore
// implementation must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneyspider/internal/core"
	"moneyspider/internal/store"
)

// Expense builds a record dated 2026-10-18.
func Expense(c core.Category, amount int64) core.Expense {
	return core.Expense{
		Date:     core.NewDate(2026, 10, 18),
		Amount:   decimal.NewFromInt(amount),
		Category: c,
	}
}

func amounts(t *testing.T, s store.ExpenseStore) []int64 {
	t.Helper()
	all, err := s.All(context.Background())
	require.NoError(t, err)
	out := make([]int64, len(all))
	for i, e := range all {
		out[i] = e.Amount.IntPart()
	}
	return out
}

// Run exercises the ExpenseStore contract against stores produced by newStore.
func Run(t *testing.T, newStore func(t *testing.T) store.ExpenseStore) {
	ctx := context.Background()

	seed := func(t *testing.T, s store.ExpenseStore, vals ...int64) {
		t.Helper()
		cats := core.Categories()
		for i, v := range vals {
			require.NoError(t, s.Append(ctx, Expense(cats[i%len(cats)], v)))
		}
	}

	t.Run("append keeps insertion order", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, 100, 150, 170, 200)
		assert.Equal(t, []int64{100, 150, 170, 200}, amounts(t, s))

		all, err := s.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, core.Food, all[0].Category)
		assert.Equal(t, core.Transportation, all[1].Category)
		assert.True(t, all[0].Date.Equal(core.NewDate(2026, 10, 18)))
	})

	t.Run("append rejects invalid records", func(t *testing.T) {
		s := newStore(t)
		err := s.Append(ctx, core.Expense{Amount: decimal.NewFromInt(1), Category: core.Food})
		assert.ErrorIs(t, err, core.ErrInvalidDate)
		assert.Empty(t, amounts(t, s))
	})

	t.Run("all returns a copy", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, 1, 2)
		all, err := s.All(ctx)
		require.NoError(t, err)
		all[0].Amount = decimal.NewFromInt(99)
		assert.Equal(t, []int64{1, 2}, amounts(t, s))
	})

	t.Run("remove at positions", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, 10, 20, 30, 40, 50)
		require.NoError(t, s.RemoveAt(ctx, []int{3, 0, 3}))
		assert.Equal(t, []int64{20, 30, 50}, amounts(t, s))
	})

	t.Run("remove ignores out of range", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, 10, 20)
		require.NoError(t, s.RemoveAt(ctx, []int{-1, 2, 9}))
		assert.Equal(t, []int64{10, 20}, amounts(t, s))
		require.NoError(t, s.RemoveAt(ctx, nil))
		assert.Equal(t, []int64{10, 20}, amounts(t, s))
	})

	t.Run("clear removes everything", func(t *testing.T) {
		s := newStore(t)
		seed(t, s, 1, 2, 3)
		require.NoError(t, s.Clear(ctx))
		assert.Empty(t, amounts(t, s))
		seed(t, s, 4)
		assert.Equal(t, []int64{4}, amounts(t, s))
	})

	t.Run("decimal amounts survive", func(t *testing.T) {
		s := newStore(t)
		e := Expense(core.Health, 0)
		e.Amount = decimal.RequireFromString("12.34")
		require.NoError(t, s.Append(ctx, e))
		all, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.True(t, all[0].Amount.Equal(e.Amount), "got %s", all[0].Amount)
		assert.Equal(t, core.Health, all[0].Category)
	})
}
