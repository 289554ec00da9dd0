/*
Package observability provides structured logging and metrics for the
fetcher, the batch scheduler and the runtimes around them.

	Provider (caches one instance per component)
	    ├── Logger  (JSON lines, Loki-friendly)
	    └── Metrics (Prometheus collectors)

# Usage

Create one provider at startup and hand each component its scoped
instances:

	provider := observability.NewProvider(&observability.Config{
	    ServiceName: "reportfetch",
	    Environment: "production",
	    LogLevel:    "info",
	    Registerer:  registry,
	})
	defer provider.Close()

	log := provider.Logger("fetcher")   // service "reportfetch.fetcher"
	metrics := provider.Metrics("fetcher") // names "reportfetch_fetcher_*"

Correlation values travel in the context and land on every entry:

	ctx = logger.WithBatchID(ctx, batchID)
	log.Info(ctx, "Batch started", observability.Fields{"items": 12})
	// {"batch_id": "...", "message": "Batch started", "items": 12, ...}

# Metrics

Every component gets the same families, prefixed with its namespace:

  - {ns}_processed_total: Counter [status, type]
  - {ns}_errors_total: Counter [error_type, operation]
  - {ns}_warnings_total: Counter [warning_type, operation]
  - {ns}_duration_seconds: Histogram [operation]
  - {ns}_file_size_bytes: Histogram [file_type]
  - {ns}_in_progress: Gauge [operation]

The runtime package serves the registry on /metrics when METRICS_ADDR is
set. Tests pass a fresh prometheus.NewRegistry() through Config.Registerer
or use Nop().

# Testing

The mocks package accepts every call by default; assert on what matters:

	log := mocks.NewMockLogger()
	metrics := mocks.NewMockMetrics()
	// ... exercise the component ...
	metrics.AssertCalled(t, "RecordWarning", "fetch", "content_type_mismatch")
*/
package observability
