package worker

import (
	"context"
	"fmt"

	"moneyspider/internal/amqp"
	"moneyspider/internal/log"
	"moneyspider/internal/metrics"
	"moneyspider/internal/store/sqlite"
)

// Journal is the append-only event log the worker writes to.
type Journal interface {
	RecordEvent(ctx context.Context, ev sqlite.EventRecord) (bool, error)
	Events(ctx context.Context, limit int) ([]sqlite.EventRecord, error)
}

// JournalWorker persists consumed expense events.
type JournalWorker struct {
	journal Journal
	metrics *metrics.Metrics
	logger  *log.Logger
}

func NewJournalWorker(journal Journal, m *metrics.Metrics, logger *log.Logger) *JournalWorker {
	if m == nil {
		m = metrics.Nop()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &JournalWorker{
		journal: journal,
		metrics: m,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent journals a single expense event from AMQP. Duplicate
// deliveries are acknowledged without a second row.
func (w *JournalWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	payload, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}

	inserted, err := w.journal.RecordEvent(ctx, sqlite.EventRecord{
		ID:         ev.ID,
		Kind:       string(ev.Kind),
		Payload:    payload,
		OccurredAt: ev.Timestamp,
	})
	w.metrics.RecordJournal(string(ev.Kind), err)
	if err != nil {
		return fmt.Errorf("journal %s event: %w", ev.Kind, err)
	}

	if !inserted {
		w.logger.InfoContext(ctx, "Duplicate expense event skipped",
			"id", ev.ID,
			log.FieldEventKind, string(ev.Kind))
		return nil
	}

	w.logger.InfoContext(ctx, "Expense event journaled",
		"id", ev.ID,
		log.FieldEventKind, string(ev.Kind),
		log.FieldRecords, ev.Count)
	return nil
}

// StartupCheck logs how many events the journal already holds, up to limit.
func (w *JournalWorker) StartupCheck(ctx context.Context, limit int) (int, error) {
	events, err := w.journal.Events(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("read journal: %w", err)
	}

	byKind := make(map[string]int)
	for _, ev := range events {
		byKind[ev.Kind]++
	}

	w.logger.InfoContext(ctx, "Journal startup check completed",
		"total", len(events),
		"recorded", byKind[string(amqp.EventRecorded)],
		"deleted", byKind[string(amqp.EventDeleted)],
		"cleared", byKind[string(amqp.EventCleared)])

	return len(events), nil
}
