package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Validation outcomes used as the "outcome" label.
const (
	OutcomeValid   = "valid"
	OutcomeMissing = "missing"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

const DefaultNamespace = "apikeys"

// Metrics holds the Prometheus collectors for key issuance and validation.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	validationTotal    *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
	hashComparisons    prometheus.Counter
	activeKeysScanned  prometheus.Histogram
	keysIssued         *prometheus.CounterVec
	keysRevoked        prometheus.Counter
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.validationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "total",
			Help:      "Total number of API key validation attempts",
		},
		[]string{"outcome"},
	)
	m.validationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "duration_seconds",
			Help:      "API key validation duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"},
	)
	m.hashComparisons = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "hash_comparisons_total",
			Help:      "Total number of secret hash comparisons performed",
		},
	)
	m.activeKeysScanned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "active_keys_snapshot_size",
			Help:      "Number of active keys in the snapshot scanned per validation",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	m.keysIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keys",
			Name:      "issued_total",
			Help:      "Total number of API keys issued",
		},
		[]string{"environment"},
	)
	m.keysRevoked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "keys",
			Name:      "revoked_total",
			Help:      "Total number of API keys revoked",
		},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.validationTotal,
		m.validationDuration,
		m.hashComparisons,
		m.activeKeysScanned,
		m.keysIssued,
		m.keysRevoked,
	)

	for _, outcome := range []string{OutcomeValid, OutcomeMissing, OutcomeInvalid, OutcomeError} {
		m.validationTotal.WithLabelValues(outcome)
		m.validationDuration.WithLabelValues(outcome)
	}

	return m
}

func (m *Metrics) RecordValidation(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.validationTotal.WithLabelValues(outcome).Inc()
	m.validationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) RecordScan(snapshotSize, comparisons int) {
	if m == nil {
		return
	}
	m.activeKeysScanned.Observe(float64(snapshotSize))
	m.hashComparisons.Add(float64(comparisons))
}

func (m *Metrics) RecordIssued(environment string) {
	if m == nil {
		return
	}
	m.keysIssued.WithLabelValues(environment).Inc()
}

func (m *Metrics) RecordRevoked() {
	if m == nil {
		return
	}
	m.keysRevoked.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
