package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for the work type store.
// A nil *Metrics, or one built from a disabled config, records nothing.
type Metrics struct {
	config MetricsConfig

	storeOperations *prometheus.CounterVec
	storeDuration   *prometheus.HistogramVec
	batchSize       prometheus.Histogram
	rollbacks       *prometheus.CounterVec
	catalogSize     prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		storeOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of work type store operations",
			},
			[]string{"operation", "status"},
		),
		storeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Duration of work type store operations in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),
		batchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_rows",
				Help:      "Number of rows in committed batches",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		rollbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rollbacks_total",
				Help:      "Total number of rolled back transactions",
			},
			[]string{"operation"},
		),
		catalogSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "work_types",
				Help:      "Number of work types seen by the last full read",
			},
		),
	}

	registry.MustRegister(
		m.storeOperations,
		m.storeDuration,
		m.batchSize,
		m.rollbacks,
		m.catalogSize,
	)

	return m, nil
}

// RecordStoreOperation records one store operation with its outcome and duration.
func (m *Metrics) RecordStoreOperation(operation, status string, duration time.Duration) {
	if m == nil || m.storeOperations == nil {
		return
	}
	m.storeOperations.WithLabelValues(operation, status).Inc()
	m.storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBatch records the size of a committed batch.
func (m *Metrics) RecordBatch(rows int) {
	if m == nil || m.batchSize == nil {
		return
	}
	m.batchSize.Observe(float64(rows))
}

// RecordRollback records a rolled back transaction.
func (m *Metrics) RecordRollback(operation string) {
	if m == nil || m.rollbacks == nil {
		return
	}
	m.rollbacks.WithLabelValues(operation).Inc()
}

// SetCatalogSize sets the current number of work types.
func (m *Metrics) SetCatalogSize(count int) {
	if m == nil || m.catalogSize == nil {
		return
	}
	m.catalogSize.Set(float64(count))
}

// Gatherer exposes the underlying registry, or nil when metrics are disabled.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil || m.registry == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
// It does nothing when metrics are disabled.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || m.registry == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
