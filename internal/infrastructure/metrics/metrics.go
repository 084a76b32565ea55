package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every ivrflow collector plus the Go runtime collectors
var Registry = prometheus.NewRegistry()

var (
	operationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ivrflow_operations_total",
		Help: "Flow editing operations by outcome",
	}, []string{"operation", "result"})

	violationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ivrflow_violations_total",
		Help: "Rejected flow edits by violation kind and rule",
	}, []string{"operation", "kind", "rule"})

	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ivrflow_sessions_active",
		Help: "Editing sessions currently held in memory",
	})

	sessionsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ivrflow_sessions_evicted_total",
		Help: "Editing sessions dropped after sitting idle",
	})

	repositoryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ivrflow_repository_duration_seconds",
		Help:    "Duration of flow repository calls",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	}, []string{"backend", "method"})

	documentBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ivrflow_document_size_bytes",
		Help:    "Encoded size of persisted flow documents",
		Buckets: prometheus.ExponentialBuckets(256, 2, 10),
	}, []string{"codec"})
)

func init() {
	Registry.MustRegister(
		operationsTotal,
		violationsTotal,
		sessionsActive,
		sessionsEvicted,
		repositoryDuration,
		documentBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RecordOperation counts an operation
// result: "ok", "violation" or "error"
func RecordOperation(operation, result string) {
	operationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordViolation counts a rejected edit
func RecordViolation(operation, kind, rule string) {
	violationsTotal.WithLabelValues(operation, kind, rule).Inc()
}

// SetActiveSessions sets the live session gauge
func SetActiveSessions(n int) { sessionsActive.Set(float64(n)) }

// IncEvictedSessions counts sessions dropped by the idle sweeper
func IncEvictedSessions(n int) { sessionsEvicted.Add(float64(n)) }

// ObserveRepository records how long a repository call took
func ObserveRepository(backend, method string, seconds float64) {
	repositoryDuration.WithLabelValues(backend, method).Observe(seconds)
}

// ObserveDocumentSize records the encoded size of a stored document
func ObserveDocumentSize(codec string, size int) {
	documentBytes.WithLabelValues(codec).Observe(float64(size))
}
