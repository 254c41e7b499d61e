package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type bankMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	bankMetricsOnce sync.Once
	bankRegistry    *bankMetrics
)

// BankMetrics returns the lazily-initialised metrics registry used to record
// deposit ledger activity.
func BankMetrics() *bankMetrics {
	bankMetricsOnce.Do(func() {
		bankRegistry = &bankMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gringotts",
				Subsystem: "bank",
				Name:      "operations_total",
				Help:      "Total ledger operations segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "gringotts",
				Subsystem: "bank",
				Name:      "errors_total",
				Help:      "Total failed ledger operations segmented by operation.",
			}, []string{"op"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "gringotts",
				Subsystem: "bank",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for ledger operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
		}
		prometheus.MustRegister(
			bankRegistry.requests,
			bankRegistry.errors,
			bankRegistry.latency,
		)
	})
	return bankRegistry
}

// Observe records one ledger operation with its outcome and duration.
func (m *bankMetrics) Observe(op string, err error, start time.Time) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.errors.WithLabelValues(op).Inc()
	}
	m.requests.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
