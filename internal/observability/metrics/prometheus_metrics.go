// Package metrics provides Prometheus-compatible metrics collection for
// the retrieval pipeline.
package metrics

import (
	"fmt"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
)

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// PrometheusMetrics implements types.Metrics with a fixed set of collectors,
// all prefixed with the namespace given to New.
type PrometheusMetrics struct {
	namespace string

	// processedTotal counts items by status (success/error/warning) and type
	processedTotal *prometheus.CounterVec
	// errorsTotal breaks failures down by error type and operation
	errorsTotal *prometheus.CounterVec
	// warningsTotal counts non-fatal conditions by type and operation
	warningsTotal *prometheus.CounterVec
	// durationSeconds tracks operation latency
	durationSeconds *prometheus.HistogramVec
	// fileSizeBytes tracks written file sizes
	fileSizeBytes *prometheus.HistogramVec
	// inProgress tracks concurrent operations
	inProgress *prometheus.GaugeVec
}

// New creates a PrometheusMetrics instance and registers its collectors with
// reg (prometheus.DefaultRegisterer when nil).
//
// Pre-configured metrics:
//   - {namespace}_processed_total: Counter [status, type]
//   - {namespace}_errors_total: Counter [error_type, operation]
//   - {namespace}_warnings_total: Counter [warning_type, operation]
//   - {namespace}_duration_seconds: Histogram [operation]
//   - {namespace}_file_size_bytes: Histogram [file_type]
//   - {namespace}_in_progress: Gauge [operation]
//
// Parameters:
//   - namespace: Metric prefix, usually "{service}_{component}"; sanitized
//   - reg: Registerer for the collectors (prometheus.DefaultRegisterer when nil)
//
// Returns:
//   - A PrometheusMetrics with all collectors registered
//
// Panics if a collector with the same name is already registered.
func New(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	namespace = SanitizeName(namespace)

	m := &PrometheusMetrics{namespace: namespace}

	m.processedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_processed_total", namespace),
			Help: fmt.Sprintf("Total processed items by %s", namespace),
		},
		[]string{"status", "type"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_errors_total", namespace),
			Help: fmt.Sprintf("Total errors in %s", namespace),
		},
		[]string{"error_type", "operation"},
	)

	m.warningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_warnings_total", namespace),
			Help: fmt.Sprintf("Total non-fatal warnings in %s", namespace),
		},
		[]string{"warning_type", "operation"},
	)

	m.durationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_duration_seconds", namespace),
			Help:    fmt.Sprintf("Operation duration in %s", namespace),
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// 1KB .. 1GB
	m.fileSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_file_size_bytes", namespace),
			Help:    fmt.Sprintf("File sizes written by %s", namespace),
			Buckets: prometheus.ExponentialBuckets(1024, 10, 7),
		},
		[]string{"file_type"},
	)

	m.inProgress = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_in_progress", namespace),
			Help: fmt.Sprintf("Operations in progress in %s", namespace),
		},
		[]string{"operation"},
	)

	reg.MustRegister(
		m.processedTotal,
		m.errorsTotal,
		m.warningsTotal,
		m.durationSeconds,
		m.fileSizeBytes,
		m.inProgress,
	)

	return m
}

// SanitizeName maps s onto the Prometheus metric name alphabet by replacing
// every character outside [a-zA-Z0-9_] with an underscore.
//
// Parameters:
//   - s: Candidate name, e.g. "reportfetch-dev_fetcher"
//
// Returns:
//   - The sanitized name
func SanitizeName(s string) string {
	return invalidNameChars.ReplaceAllString(s, "_")
}

// RecordSuccess increments {namespace}_processed_total{status="success"}.
//
// Parameters:
//   - operationType: Operation that succeeded ("fetch", "process", "put")
func (m *PrometheusMetrics) RecordSuccess(operationType string) {
	m.processedTotal.WithLabelValues("success", operationType).Inc()
}

// RecordError increments both the processed counter (status="error") and the
// detailed error counter.
//
// Parameters:
//   - operationType: Operation that failed ("fetch", "process", "put")
//   - errorType: Failure category, usually a model.ErrorKind
func (m *PrometheusMetrics) RecordError(operationType string, errorType string) {
	m.processedTotal.WithLabelValues("error", operationType).Inc()
	m.errorsTotal.WithLabelValues(errorType, operationType).Inc()
}

// RecordWarning increments the warning counter. Warnings do not touch the
// processed counter since the item still succeeded.
//
// Parameters:
//   - operationType: Operation that produced the warning
//   - warningType: Warning category ("content_type_mismatch", "invalid_signature")
func (m *PrometheusMetrics) RecordWarning(operationType string, warningType string) {
	m.warningsTotal.WithLabelValues(warningType, operationType).Inc()
}

// RecordDuration observes an operation's duration.
//
// Parameters:
//   - operation: Operation name used as the histogram label
//   - duration: Elapsed time in seconds
func (m *PrometheusMetrics) RecordDuration(operation string, duration float64) {
	m.durationSeconds.WithLabelValues(operation).Observe(duration)
}

// RecordFileSize observes the size of a written file.
//
// Parameters:
//   - fileType: File type label, the forced extension without its dot
//   - bytes: File size in bytes
func (m *PrometheusMetrics) RecordFileSize(fileType string, bytes int64) {
	m.fileSizeBytes.WithLabelValues(fileType).Observe(float64(bytes))
}

// StartOperation increments the in-progress gauge. Pair every call with
// EndOperation.
//
// Parameters:
//   - operation: Operation name used as the gauge label
//
// Example:
//
//	metrics.StartOperation("fetch")
//	defer metrics.EndOperation("fetch")
func (m *PrometheusMetrics) StartOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Inc()
}

// EndOperation decrements the in-progress gauge.
//
// Parameters:
//   - operation: Operation name passed to StartOperation
func (m *PrometheusMetrics) EndOperation(operation string) {
	m.inProgress.WithLabelValues(operation).Dec()
}
