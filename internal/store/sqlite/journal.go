package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventRecord is one journaled expense event.
type EventRecord struct {
	ID         string
	Kind       string
	Payload    []byte
	OccurredAt time.Time
}

var ErrEmptyEventID = errors.New("event id cannot be empty")

// occurredAtLayout is fixed width so that text order matches time order.
const occurredAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordEvent appends an event to the journal. Redelivered events with an
// already journaled id are ignored.
func (r *Repository) RecordEvent(ctx context.Context, ev EventRecord) (bool, error) {
	if ev.ID == "" {
		return false, ErrEmptyEventID
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO expense_events (id, kind, payload, occurred_at) VALUES (?, ?, ?, ?)`,
		ev.ID, ev.Kind, string(ev.Payload), ev.OccurredAt.UTC().Format(occurredAtLayout))
	if err != nil {
		return false, fmt.Errorf("insert expense event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Events returns up to limit journaled events, oldest first.
func (r *Repository) Events(ctx context.Context, limit int) ([]EventRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, payload, occurred_at FROM expense_events ORDER BY occurred_at, rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list expense events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var (
			ev       EventRecord
			payload  string
			occurred string
		)
		if err := rows.Scan(&ev.ID, &ev.Kind, &payload, &occurred); err != nil {
			return nil, fmt.Errorf("scan expense event: %w", err)
		}
		ev.Payload = []byte(payload)
		if ev.OccurredAt, err = time.Parse(occurredAtLayout, occurred); err != nil {
			return nil, fmt.Errorf("decode occurred_at %q: %w", occurred, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense events: %w", err)
	}
	return events, nil
}
