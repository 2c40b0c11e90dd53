package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moneyspider/internal/core"
)

// EventKind names the store mutation an ExpenseEvent reports.
type EventKind string

const (
	EventRecorded EventKind = "recorded"
	EventDeleted  EventKind = "deleted"
	EventCleared  EventKind = "cleared"
)

var ErrUnknownEventKind = errors.New("unknown event kind")

func (k EventKind) Valid() bool {
	switch k {
	case EventRecorded, EventDeleted, EventCleared:
		return true
	}
	return false
}

// ExpenseEvent describes one store mutation. Count is the number of stored
// expenses after the mutation.
type ExpenseEvent struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	Category  string    `json:"category,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Date      string    `json:"date,omitempty"`
	Positions []int     `json:"positions,omitempty"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func newEvent(kind EventKind, count int) *ExpenseEvent {
	return &ExpenseEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Count:     count,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordedEvent reports an appended expense.
func NewRecordedEvent(e core.Expense, count int) *ExpenseEvent {
	ev := newEvent(EventRecorded, count)
	ev.Category = e.Category.String()
	ev.Amount = core.FormatAmount(e.Amount)
	ev.Date = e.Date.String()
	return ev
}

// NewDeletedEvent reports a delete request with the positions as submitted.
func NewDeletedEvent(positions []int, count int) *ExpenseEvent {
	ev := newEvent(EventDeleted, count)
	ev.Positions = append([]int(nil), positions...)
	return ev
}

func NewClearedEvent() *ExpenseEvent {
	return newEvent(EventCleared, 0)
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes an event and rejects unknown kinds.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, msg.Kind)
	}
	return &msg, nil
}
