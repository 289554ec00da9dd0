// Package logger provides a structured JSON logger whose output is shaped
// for Loki ingestion: one object per line, consistent field names.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"reportfetch/internal/observability/types"
)

// LogLevel represents the severity level of a log message.
// Higher values are more severe.
type LogLevel int

// Log level constants ordered by severity (lowest to highest).
const (
	// DebugLevel covers per-hop and per-progress detail
	DebugLevel LogLevel = iota
	// InfoLevel covers batch and file milestones
	InfoLevel
	// WarnLevel covers item failures and validation warnings
	WarnLevel
	// ErrorLevel covers failures of the run itself
	ErrorLevel
)

// ContextKey is the type of the context keys the logger extracts.
type ContextKey string

// Correlation keys read from the context on every entry.
const (
	TraceIDKey   ContextKey = "trace_id"
	RequestIDKey ContextKey = "request_id"
	BatchIDKey   ContextKey = "batch_id"
)

var contextKeys = []ContextKey{TraceIDKey, RequestIDKey, BatchIDKey}

// WithBatchID returns a context whose log entries carry batch_id.
//
// Parameters:
//   - ctx: Parent context
//   - batchID: Identifier of the scheduler run
//
// Returns:
//   - A derived context holding the batch identifier
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, BatchIDKey, batchID)
}

// WithRequestID returns a context whose log entries carry request_id.
//
// Parameters:
//   - ctx: Parent context
//   - requestID: Identifier of the HTTP, Lambda or SQS request
//
// Returns:
//   - A derived context holding the request identifier
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// ParseLevel converts a string to a LogLevel.
// Unrecognized levels default to InfoLevel.
//
// Valid levels:
//   - "debug": DebugLevel
//   - "info": InfoLevel
//   - "warn" or "warning": WarnLevel
//   - "error": ErrorLevel
//
// Parameters:
//   - level: Lower-case level name, usually LOG_LEVEL
//
// Returns:
//   - The matching LogLevel, InfoLevel when unrecognized
func ParseLevel(level string) LogLevel {
	switch level {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// String returns the string representation of a LogLevel, as written in
// the "level" field of each entry.
//
// Returns:
//   - "debug", "info", "warn", "error", or "unknown"
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// LokiLogger implements types.Logger with JSON output. Each entry carries
// timestamp, level, service, env, hostname and message, followed by
// correlation values, persistent fields and call-specific fields.
type LokiLogger struct {
	// mu serializes writes so concurrent fetches never interleave lines
	mu               *sync.Mutex
	output           io.Writer
	serviceName      string
	environment      string
	hostname         string
	minLevel         LogLevel
	persistentFields types.Fields
}

// New creates a LokiLogger. The hostname is looked up once and stamped on
// every entry. If output is nil, it writes to os.Stderr so stdout stays free
// for -json results.
//
// Parameters:
//   - serviceName: Service name, usually "{service}.{component}"
//   - environment: Deployment environment ("local", "production")
//   - logLevel: Minimum level to write ("debug", "info", "warn", "error")
//   - output: Destination of the JSON lines (os.Stderr when nil)
//   - additionalFields: Fields written on every entry
//
// Returns:
//   - A configured LokiLogger
//
// Example:
//
//	log := New("reportfetch.fetcher", "production", "info", os.Stderr,
//		types.Fields{"version": "1.0.0"})
func New(serviceName, environment, logLevel string, output io.Writer, additionalFields types.Fields) *LokiLogger {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	if output == nil {
		output = os.Stderr
	}

	return &LokiLogger{
		mu:               &sync.Mutex{},
		output:           output,
		serviceName:      serviceName,
		environment:      environment,
		hostname:         hostname,
		minLevel:         ParseLevel(logLevel),
		persistentFields: additionalFields,
	}
}

// Info logs at INFO level. Correlation values (trace_id, request_id,
// batch_id) are read from ctx.
//
// Parameters:
//   - ctx: Context carrying correlation values
//   - msg: The log message
//   - fields: Structured fields for this entry only
func (l *LokiLogger) Info(ctx context.Context, msg string, fields types.Fields) {
	if l.minLevel > InfoLevel {
		return
	}
	l.log(ctx, InfoLevel, msg, nil, fields)
}

// Error logs at ERROR level, adding the error text and its dynamic type
// as "error" and "error_type".
//
// Parameters:
//   - ctx: Context carrying correlation values
//   - msg: What was being attempted
//   - err: The error to record, may be nil
//   - fields: Structured fields for this entry only
func (l *LokiLogger) Error(ctx context.Context, msg string, err error, fields types.Fields) {
	if l.minLevel > ErrorLevel {
		return
	}
	l.log(ctx, ErrorLevel, msg, err, fields)
}

// Warn logs at WARN level.
//
// Parameters:
//   - ctx: Context carrying correlation values
//   - msg: The warning message
//   - fields: Structured fields for this entry only
func (l *LokiLogger) Warn(ctx context.Context, msg string, fields types.Fields) {
	if l.minLevel > WarnLevel {
		return
	}
	l.log(ctx, WarnLevel, msg, nil, fields)
}

// Debug logs at DEBUG level. Production runs usually filter these out.
//
// Parameters:
//   - ctx: Context carrying correlation values
//   - msg: The debug message
//   - fields: Structured fields for this entry only
func (l *LokiLogger) Debug(ctx context.Context, msg string, fields types.Fields) {
	if l.minLevel > DebugLevel {
		return
	}
	l.log(ctx, DebugLevel, msg, nil, fields)
}

// WithFields returns a logger sharing this logger's output and write lock,
// with fields added to every entry. Later fields override earlier ones with
// the same key.
//
// Parameters:
//   - fields: Fields to add to every entry of the returned logger
//
// Returns:
//   - A new logger, the receiver is not modified
//
// Example:
//
//	itemLog := log.WithFields(types.Fields{"url": req.SourceURL, "index": i})
//	itemLog.Info(ctx, "Fetch started", nil)
func (l *LokiLogger) WithFields(fields types.Fields) types.Logger {
	newFields := make(types.Fields, len(l.persistentFields)+len(fields))
	for k, v := range l.persistentFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &LokiLogger{
		mu:               l.mu,
		output:           l.output,
		serviceName:      l.serviceName,
		environment:      l.environment,
		hostname:         l.hostname,
		minLevel:         l.minLevel,
		persistentFields: newFields,
	}
}

func (l *LokiLogger) log(ctx context.Context, level LogLevel, msg string, err error, fields types.Fields) {
	entry := make(types.Fields, 8+len(l.persistentFields)+len(fields))

	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["service"] = l.serviceName
	entry["env"] = l.environment
	entry["hostname"] = l.hostname
	entry["message"] = msg

	if ctx != nil {
		for _, key := range contextKeys {
			if v, ok := ctx.Value(key).(string); ok && v != "" {
				entry[string(key)] = v
			}
		}
	}

	if err != nil {
		entry["error"] = err.Error()
		entry["error_type"] = fmt.Sprintf("%T", err)
	}

	for k, v := range l.persistentFields {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}

	jsonBytes, mErr := json.Marshal(entry)
	if mErr != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(append(jsonBytes, '\n'))
}
