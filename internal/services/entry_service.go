package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moneyspider/internal/amqp"
	"moneyspider/internal/core"
	"moneyspider/internal/log"
	"moneyspider/internal/metrics"
	"moneyspider/internal/ranking"
	"moneyspider/internal/store"
)

var (
	ErrInvalidSelection  = errors.New("category selection out of range")
	ErrClearNotRequested = errors.New("clear was not requested")
)

// Refresh modes reported in State and metrics.
const (
	ModeFrequency = "frequency"
	ModeRange     = "range"
)

// EventPublisher receives expense events after each successful mutation.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// EntryService binds the expense store, the ranking engine and the entry
// form state. It is single-actor: callers serialize access.
type EntryService struct {
	store     store.ExpenseStore
	engine    *ranking.Engine
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *log.Logger
	now       func() time.Time

	date         core.Date
	amountText   string
	selected     int
	clearPending bool
	mode         string
}

type Option func(*EntryService)

func WithPublisher(p EventPublisher) Option {
	return func(s *EntryService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *EntryService) { s.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(s *EntryService) { s.logger = l }
}

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *EntryService) { s.now = now }
}

func NewEntryService(st store.ExpenseStore, opts ...Option) *EntryService {
	s := &EntryService{
		store:  st,
		engine: ranking.NewEngine(),
		now:    time.Now,
		mode:   ModeFrequency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop()
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentEntry)
	s.date = s.today()
	return s
}

func (s *EntryService) today() core.Date {
	return core.DateOf(s.now())
}

// Init performs the first refresh, as when the entry form appears.
func (s *EntryService) Init(ctx context.Context) error {
	_, err := s.refresh(ctx)
	return err
}

// SetAmountText records the typed amount and reorders categories. Text that
// does not parse as an amount selects frequency order.
func (s *EntryService) SetAmountText(ctx context.Context, text string) error {
	s.amountText = text
	s.selected = 0
	_, err := s.refresh(ctx)
	return err
}

func (s *EntryService) SetDate(d core.Date) error {
	if err := d.Validate(); err != nil {
		return err
	}
	s.date = d
	return nil
}

// SelectCategory selects a position in the displayed ordering.
func (s *EntryService) SelectCategory(i int) error {
	if _, ok := s.engine.At(i); !ok {
		return fmt.Errorf("%w: %d", ErrInvalidSelection, i)
	}
	s.selected = i
	return nil
}

// RecordExpense appends an expense whose category is the displayed ordering
// at index. On success the form resets to today, an empty amount and the
// first category. Parse and selection failures leave everything untouched.
func (s *EntryService) RecordExpense(ctx context.Context, date core.Date, amountText string, index int) (core.Expense, error) {
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		return core.Expense{}, err
	}
	if err := date.Validate(); err != nil {
		return core.Expense{}, err
	}
	category, ok := s.engine.At(index)
	if !ok {
		return core.Expense{}, fmt.Errorf("%w: %d", ErrInvalidSelection, index)
	}

	e := core.Expense{Date: date, Amount: amount, Category: category}
	if err := s.store.Append(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("record expense: %w", err)
	}

	s.date = s.today()
	s.amountText = ""
	s.selected = 0

	records, err := s.refresh(ctx)
	if err != nil {
		return e, err
	}

	s.metrics.RecordExpense(category.String())
	s.logger.InfoContext(ctx, "Expense recorded",
		log.NewFields().WithExpense(e).WithOperation(log.OpRecord).ToSlice()...)
	s.publish(ctx, amqp.NewRecordedEvent(e, len(records)))
	return e, nil
}

// Submit records an expense from the current form state.
func (s *EntryService) Submit(ctx context.Context) (core.Expense, error) {
	return s.RecordExpense(ctx, s.date, s.amountText, s.selected)
}

// DeleteExpenses removes the records at positions and returns how many were
// removed. Out-of-range and repeated positions are ignored.
func (s *EntryService) DeleteExpenses(ctx context.Context, positions []int) (int, error) {
	before, err := s.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load expenses: %w", err)
	}
	removed := len(store.PositionSet(positions, len(before)))

	if err := s.store.RemoveAt(ctx, positions); err != nil {
		return 0, fmt.Errorf("delete expenses: %w", err)
	}

	records, err := s.refresh(ctx)
	if err != nil {
		return removed, err
	}

	if removed == 0 {
		return 0, nil
	}

	s.metrics.RecordRemoved(removed)
	s.logger.InfoContext(ctx, "Expenses deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldPositions, fmt.Sprint(positions),
		log.FieldRecords, len(records))
	s.publish(ctx, amqp.NewDeletedEvent(positions, len(records)))
	return removed, nil
}

// RequestClear asks for confirmation before clearing. It reports whether a
// confirmation is now pending; an empty list needs none.
func (s *EntryService) RequestClear(ctx context.Context) (bool, error) {
	records, err := s.store.All(ctx)
	if err != nil {
		return false, fmt.Errorf("load expenses: %w", err)
	}
	s.clearPending = len(records) > 0
	return s.clearPending, nil
}

func (s *EntryService) CancelClear() {
	s.clearPending = false
}

// ConfirmClear clears every record after a RequestClear.
func (s *EntryService) ConfirmClear(ctx context.Context) error {
	if !s.clearPending {
		return ErrClearNotRequested
	}
	return s.ClearAll(ctx)
}

// ClearAll removes every record without asking for confirmation.
func (s *EntryService) ClearAll(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	s.clearPending = false

	if _, err := s.refresh(ctx); err != nil {
		return err
	}

	s.metrics.RecordClear()
	s.logger.InfoContext(ctx, "Expenses cleared", log.FieldOperation, log.OpClear)
	s.publish(ctx, amqp.NewClearedEvent())
	return nil
}

// refresh applies the refresh rule: a valid typed amount selects range
// order, anything else frequency order.
func (s *EntryService) refresh(ctx context.Context) ([]core.Expense, error) {
	records, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	var ordering []core.Category
	if amount, perr := core.ParseAmount(s.amountText); perr == nil {
		ordering = s.engine.RefreshRange(records, amount)
		s.mode = ModeRange
	} else {
		ordering = s.engine.RefreshFrequency(records)
		s.mode = ModeFrequency
	}

	s.metrics.RecordRefresh(s.mode)
	s.metrics.SetStored(len(records))
	fields := log.NewFields().WithOrdering(ordering).WithOperation(log.OpRefresh)
	fields[log.FieldRefreshMode] = s.mode
	fields[log.FieldRecords] = len(records)
	s.logger.DebugContext(ctx, "Category ordering refreshed", fields.ToSlice()...)
	return records, nil
}

func (s *EntryService) publish(ctx context.Context, ev *amqp.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishExpenseEvent(ctx, ev)
	s.metrics.RecordPublish(string(ev.Kind), err)
	if err != nil {
		// Local state wins; the event is lost.
		fields := log.NewFields()
		fields[log.FieldEventKind] = string(ev.Kind)
		log.LogError(ctx, "Failed to publish expense event", err, log.ComponentEntry, log.OpPublish, fields)
	}
}
