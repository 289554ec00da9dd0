// Package types holds the contracts shared by the logging and metrics
// implementations used across reportfetch.
//
// Design Patterns:
//   - Provider Pattern: one provider hands out per-component instances
//   - Dependency Inversion: components depend on these interfaces only
package types

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
)

// Logger defines the contract for structured logging.
// Implementations emit one JSON object per entry and pull correlation
// values (batch id, request id) out of the context.
type Logger interface {
	// Info logs an informational message.
	//
	// Parameters:
	//   - ctx: Context carrying correlation values
	//   - msg: The log message describing the event
	//   - fields: Additional structured fields for this entry
	Info(ctx context.Context, msg string, fields Fields)

	// Error logs an error message together with the error value.
	//
	// Parameters:
	//   - ctx: Context carrying correlation values
	//   - msg: The log message describing the failure
	//   - err: The error to record (may be nil)
	//   - fields: Additional structured fields for this entry
	Error(ctx context.Context, msg string, err error, fields Fields)

	// Warn logs a condition that does not stop the operation, such as a
	// content-type mismatch or a transient attempt failure.
	//
	// Parameters:
	//   - ctx: Context carrying correlation values
	//   - msg: The warning message
	//   - fields: Additional structured fields for this entry
	Warn(ctx context.Context, msg string, fields Fields)

	// Debug logs detailed information, typically progress events.
	//
	// Parameters:
	//   - ctx: Context carrying correlation values
	//   - msg: The debug message
	//   - fields: Additional structured fields for this entry
	Debug(ctx context.Context, msg string, fields Fields)

	// WithFields returns a Logger that adds fields to every entry.
	//
	// Parameters:
	//   - fields: Fields merged into every entry of the returned logger
	//
	// Returns:
	//   - A new Logger; the receiver is unchanged
	WithFields(fields Fields) Logger
}

// Metrics defines the contract for metrics collection.
// Implementations follow Prometheus naming conventions.
type Metrics interface {
	// RecordSuccess increments the success counter for an operation type.
	//
	// Parameters:
	//   - operationType: The operation that succeeded (e.g., "fetch", "put")
	RecordSuccess(operationType string)

	// RecordError increments the error counters for an operation and an
	// error category.
	//
	// Parameters:
	//   - operationType: The operation that failed
	//   - errorType: The failure category (e.g., "timeout", "http_status")
	RecordError(operationType string, errorType string)

	// RecordWarning counts a non-fatal condition attached to an otherwise
	// successful operation (e.g., "content_type_mismatch", "invalid_signature").
	RecordWarning(operationType string, warningType string)

	// RecordDuration records the duration of an operation.
	//
	// Parameters:
	//   - operation: The operation name
	//   - duration: Elapsed time in seconds
	RecordDuration(operation string, duration float64)

	// RecordFileSize records the size of a written file.
	//
	// Parameters:
	//   - fileType: The file type label (e.g., "pdf")
	//   - bytes: The file size in bytes
	RecordFileSize(fileType string, bytes int64)

	// StartOperation increments the in-progress gauge for an operation.
	// Must be paired with EndOperation.
	StartOperation(operation string)

	// EndOperation decrements the in-progress gauge for an operation.
	EndOperation(operation string)
}

// Fields represents structured logging fields as key-value pairs.
// Values must be JSON-serializable.
//
// Example:
//
//	fields := Fields{
//		"url":      "https://example.com/report.pdf",
//		"attempt":  2,
//		"duration": 1.23,
//	}
type Fields map[string]interface{}

// Config holds observability configuration for the provider.
type Config struct {
	// ServiceName identifies the service in logs and prefixes metric names.
	ServiceName string

	// Environment specifies the deployment environment ("local", "production", ...).
	Environment string

	// LogLevel sets the minimum level to output: "debug", "info", "warn", "error".
	LogLevel string

	// LogOutput is where log entries are written. Defaults to os.Stderr so
	// that stdout stays free for machine-readable results.
	LogOutput io.Writer

	// AdditionalFields are included in every log entry (version, region...).
	AdditionalFields Fields

	// Registerer receives the metric collectors. Defaults to
	// prometheus.DefaultRegisterer; tests pass a fresh registry.
	Registerer prometheus.Registerer
}

// Provider manages the lifecycle of observability components.
// Multiple calls with the same component name return the same instance.
type Provider interface {
	// Logger returns the Logger for a component (e.g., "fetcher", "batch").
	Logger(component string) Logger

	// Metrics returns the Metrics collector for a component.
	Metrics(component string) Metrics

	// Close releases resources held by the provider.
	Close() error
}
