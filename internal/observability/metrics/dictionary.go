package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storyforge/narrative-search/internal/core/domain"
)

// DictionaryMetrics tracks the term dictionary lifecycle: rebuilds, persist
// failures and the currently served snapshot.
type DictionaryMetrics struct {
	registry    *prometheus.Registry
	serviceName string

	rebuildTotal    *prometheus.CounterVec
	rebuildDuration *prometheus.HistogramVec
	persistFailures prometheus.Counter
	snapshotTerms   prometheus.Gauge
	snapshotBuiltAt prometheus.Gauge
	state           *prometheus.GaugeVec
}

func NewDictionaryMetrics(service string) *DictionaryMetrics {
	registry := prometheus.NewRegistry()

	rebuildTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "narr",
			Subsystem: "dictionary",
			Name:      "rebuild_total",
			Help:      "Total dictionary rebuilds by status.",
		},
		[]string{"service", "status"},
	)
	rebuildDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "narr",
			Subsystem: "dictionary",
			Name:      "rebuild_duration_seconds",
			Help:      "Dictionary rebuild duration in seconds by status.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	persistFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "narr",
			Subsystem: "dictionary",
			Name:      "persist_failures_total",
			Help:      "Total snapshot persist failures after successful rebuilds.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	snapshotTerms := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "narr",
			Subsystem: "dictionary",
			Name:      "snapshot_terms",
			Help:      "Number of distinct terms in the served snapshot.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	snapshotBuiltAt := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "narr",
			Subsystem: "dictionary",
			Name:      "snapshot_built_at_seconds",
			Help:      "Unix timestamp of the served snapshot build.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	state := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "narr",
			Subsystem: "dictionary",
			Name:      "state",
			Help:      "Dictionary lifecycle state, 1 for the active state.",
		},
		[]string{"service", "state"},
	)

	registry.MustRegister(rebuildTotal, rebuildDuration, persistFailures, snapshotTerms, snapshotBuiltAt, state)

	return &DictionaryMetrics{
		registry:        registry,
		serviceName:     service,
		rebuildTotal:    rebuildTotal,
		rebuildDuration: rebuildDuration,
		persistFailures: persistFailures,
		snapshotTerms:   snapshotTerms,
		snapshotBuiltAt: snapshotBuiltAt,
		state:           state,
	}
}

func (m *DictionaryMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *DictionaryMetrics) RecordRebuild(status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.rebuildTotal.WithLabelValues(m.serviceName, status).Inc()
	m.rebuildDuration.WithLabelValues(m.serviceName, status).Observe(duration.Seconds())
}

func (m *DictionaryMetrics) RecordPersistFailure() {
	m.persistFailures.Inc()
}

func (m *DictionaryMetrics) SetSnapshot(state domain.DictionaryState, termCount int, builtAt time.Time) {
	for _, known := range []domain.DictionaryState{
		domain.StateUninitialized,
		domain.StateLoading,
		domain.StateRebuilding,
		domain.StateReady,
		domain.StateDegraded,
	} {
		value := 0.0
		if known == state {
			value = 1.0
		}
		m.state.WithLabelValues(m.serviceName, string(known)).Set(value)
	}

	m.snapshotTerms.Set(float64(termCount))
	if builtAt.IsZero() {
		m.snapshotBuiltAt.Set(0)
		return
	}
	m.snapshotBuiltAt.Set(float64(builtAt.Unix()))
}
