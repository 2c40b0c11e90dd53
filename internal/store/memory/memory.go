package memory

import (
	"context"
	"sync"

	"moneyspider/internal/core"
	"moneyspider/internal/store"
)

// Store keeps expenses for the lifetime of the process.
type Store struct {
	mu    sync.Mutex
	items []core.Expense
}

func New(seed ...core.Expense) *Store {
	return &Store{items: append([]core.Expense(nil), seed...)}
}

// Append stores the expense at the end of the list.
func (s *Store) Append(_ context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return nil
}

// RemoveAt drops the records at the given positions in a single pass.
func (s *Store) RemoveAt(_ context.Context, positions []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := store.PositionSet(positions, len(s.items))
	if len(drop) == 0 {
		return nil
	}
	kept := s.items[:0]
	for i, e := range s.items {
		if _, ok := drop[i]; ok {
			continue
		}
		kept = append(kept, e)
	}
	// Zero the tail so dropped records are not retained by the backing array.
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = core.Expense{}
	}
	s.items = kept
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}

func (s *Store) All(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...), nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

var _ store.ExpenseStore = (*Store)(nil)
