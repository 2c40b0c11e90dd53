package services

import (
	"context"
	"fmt"

	"moneyspider/internal/core"
	"moneyspider/internal/ranking"
)

// ExpenseView is a stored expense with its current position.
type ExpenseView struct {
	Position int       `json:"position"`
	Date     core.Date `json:"date"`
	Amount   string    `json:"amount"`
	Category string    `json:"category"`
}

// CategoryView is one entry of the displayed ordering. Min and Max are set
// only when the category has a recorded amount range.
type CategoryView struct {
	Name   string `json:"name"`
	Rank   int    `json:"rank"`
	Weight int    `json:"weight"`
	Min    string `json:"min,omitempty"`
	Max    string `json:"max,omitempty"`
}

// State is everything a presentation layer renders.
type State struct {
	Expenses      []ExpenseView  `json:"expenses"`
	Categories    []CategoryView `json:"categories"`
	SelectedIndex int            `json:"selected_index"`
	AmountText    string         `json:"amount_text"`
	Date          core.Date      `json:"date"`
	ClearPending  bool           `json:"clear_pending"`
	RefreshMode   string         `json:"refresh_mode"`
}

func (s *EntryService) State(ctx context.Context) (State, error) {
	records, err := s.store.All(ctx)
	if err != nil {
		return State{}, fmt.Errorf("load expenses: %w", err)
	}

	expenses := make([]ExpenseView, len(records))
	for i, e := range records {
		expenses[i] = ExpenseView{
			Position: i,
			Date:     e.Date,
			Amount:   core.FormatAmount(e.Amount),
			Category: e.Category.String(),
		}
	}

	ordering := s.engine.Ordering()
	categories := make([]CategoryView, len(ordering))
	for i, c := range ordering {
		categories[i] = categoryView(s.engine.Stats(c))
	}

	return State{
		Expenses:      expenses,
		Categories:    categories,
		SelectedIndex: s.selected,
		AmountText:    s.amountText,
		Date:          s.date,
		ClearPending:  s.clearPending,
		RefreshMode:   s.mode,
	}, nil
}

func categoryView(st ranking.Stats) CategoryView {
	v := CategoryView{
		Name:   st.Category.String(),
		Rank:   st.Category.Rank(),
		Weight: st.Weight,
	}
	if !st.Range.IsEmpty() {
		v.Min = core.FormatAmount(st.Range.Min)
		v.Max = core.FormatAmount(st.Range.Max)
	}
	return v
}

// Ordering returns the displayed category ordering.
func (s *EntryService) Ordering() []core.Category {
	return s.engine.Ordering()
}

// FormInput is the current entry form input.
type FormInput struct {
	Date          core.Date
	AmountText    string
	SelectedIndex int
}

func (s *EntryService) Form() FormInput {
	return FormInput{Date: s.date, AmountText: s.amountText, SelectedIndex: s.selected}
}

// RefreshMode reports how the current ordering was produced.
func (s *EntryService) RefreshMode() string {
	return s.mode
}
