// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the application records into.
type Metrics struct {
	refreshes        *prometheus.CounterVec
	expensesRecorded *prometheus.CounterVec
	expensesRemoved  prometheus.Counter
	clears           prometheus.Counter
	storedExpenses   prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	rateLimited      prometheus.Counter
	eventsPublished  *prometheus.CounterVec
	eventsJournaled  *prometheus.CounterVec
}

// New registers all collectors on reg. Passing a fresh prometheus.NewRegistry()
// keeps tests isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		refreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moneyspider_ranking_refreshes_total",
				Help: "Total number of category ordering refreshes",
			},
			[]string{"mode"},
		),
		expensesRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moneyspider_expenses_recorded_total",
				Help: "Total number of expenses recorded by category",
			},
			[]string{"category"},
		),
		expensesRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "moneyspider_expenses_removed_total",
				Help: "Total number of expenses removed by delete requests",
			},
		),
		clears: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "moneyspider_clears_total",
				Help: "Total number of times the expense list was cleared",
			},
		),
		storedExpenses: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "moneyspider_expenses_stored",
				Help: "Current number of stored expenses",
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moneyspider_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moneyspider_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		rateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "moneyspider_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moneyspider_events_published_total",
				Help: "Total number of expense events published",
			},
			[]string{"kind", "status"},
		),
		eventsJournaled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moneyspider_events_journaled_total",
				Help: "Total number of expense events written to the journal",
			},
			[]string{"kind", "status"},
		),
	}
}

// Nop returns collectors bound to a private registry, for callers that do not export metrics.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) RecordRefresh(mode string) {
	m.refreshes.WithLabelValues(mode).Inc()
}

func (m *Metrics) RecordExpense(category string) {
	m.expensesRecorded.WithLabelValues(category).Inc()
}

func (m *Metrics) RecordRemoved(n int) {
	m.expensesRemoved.Add(float64(n))
}

func (m *Metrics) RecordClear() {
	m.clears.Inc()
}

func (m *Metrics) SetStored(n int) {
	m.storedExpenses.Set(float64(n))
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, seconds float64) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(seconds)
}

func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

func (m *Metrics) RecordPublish(kind string, err error) {
	m.eventsPublished.WithLabelValues(kind, status(err)).Inc()
}

func (m *Metrics) RecordJournal(kind string, err error) {
	m.eventsJournaled.WithLabelValues(kind, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
