// Package metrics holds the Prometheus collectors of the circulation engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"library-backend/internal/shared/apperr"
)

const namespace = "library"

type Metrics struct {
	Operations    *prometheus.CounterVec
	CopyStatus    *prometheus.CounterVec
	FinesAssessed prometheus.Counter
	FineAmount    *prometheus.CounterVec
	QueueChanges  *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer
// in the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome (ok or error kind).",
		}, []string{"operation", "outcome"}),

		CopyStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "copy_transitions_total",
			Help:      "Copy state machine transitions.",
		}, []string{"from", "to", "trigger"}),

		FinesAssessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "late_fines_assessed_total",
			Help:      "Fines created by late check-ins.",
		}),

		FineAmount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fine_amount_total",
			Help:      "Sum of fine amounts by ledger event (created, paid, deleted).",
		}, []string{"event"}),

		QueueChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_queue_changes_total",
			Help:      "Reservations entering or leaving a queue.",
		}, []string{"change"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),

		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// ObserveOperation counts one engine call. outcome is "ok" or the error kind.
func (m *Metrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveTransition(from, to, trigger string) {
	if m == nil {
		return
	}
	m.CopyStatus.WithLabelValues(from, to, trigger).Inc()
}

func (m *Metrics) ObserveLateFine(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.FinesAssessed.Inc()
	m.ObserveFine("created", amount)
}

func (m *Metrics) ObserveFine(event string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.FineAmount.WithLabelValues(event).Add(amount.InexactFloat64())
}

func (m *Metrics) ObserveQueue(change string) {
	if m == nil {
		return
	}
	m.QueueChanges.WithLabelValues(change).Inc()
}

func (m *Metrics) ObserveHTTP(route, method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
	m.HTTPLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Outcome labels an engine call result: "ok" or the error's taxonomy kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(apperr.KindOf(err)))
}
