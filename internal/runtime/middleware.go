package runtime

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"reportfetch/internal/observability/types"
)

// LoggingMiddleware logs the start and end of every request.
func LoggingMiddleware(provider types.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			log := provider.Logger("handler").WithFields(types.Fields{
				"request_id": req.ID,
				"source":     req.Source,
			})

			log.Info(ctx, "Processing request", types.Fields{
				"payload_size": len(req.Payload),
			})

			start := time.Now()
			resp, err := next(ctx, req)
			duration := time.Since(start)

			switch {
			case err != nil:
				log.Error(ctx, "Request failed with error", err, types.Fields{
					"duration_ms": duration.Milliseconds(),
				})
			case !resp.Success && resp.Error != nil:
				log.Warn(ctx, "Request completed with failure", types.Fields{
					"error_code":  resp.Error.Code,
					"error_msg":   resp.Error.Message,
					"duration_ms": duration.Milliseconds(),
				})
			default:
				fields := types.Fields{"duration_ms": duration.Milliseconds()}
				if resp.Result != nil {
					for k, v := range Summary(*resp.Result) {
						fields[k] = v
					}
				}
				log.Info(ctx, "Request completed successfully", fields)
			}

			resp.Duration = duration
			return resp, err
		}
	}
}

// MetricsMiddleware records request counts and latency under op "request".
func MetricsMiddleware(provider types.Provider) Middleware {
	const op = "request"
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			metrics := provider.Metrics("handler")
			metrics.StartOperation(op)
			defer metrics.EndOperation(op)

			start := time.Now()
			resp, err := next(ctx, req)
			metrics.RecordDuration(op, time.Since(start).Seconds())

			switch {
			case err != nil:
				metrics.RecordError(op, "processing_error")
			case !resp.Success:
				code := "unknown_error"
				if resp.Error != nil {
					code = resp.Error.Code
				}
				metrics.RecordError(op, code)
			default:
				metrics.RecordSuccess(op)
			}
			return resp, err
		}
	}
}

// RecoveryMiddleware turns a panic into an INTERNAL_ERROR response. It
// should be the outermost layer.
func RecoveryMiddleware(provider types.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (resp Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					provider.Logger("handler").Error(ctx, "Panic recovered", fmt.Errorf("%v", r), types.Fields{
						"request_id": req.ID,
						"stack":      string(debug.Stack()),
					})
					provider.Metrics("handler").RecordError("panic", "panic_recovered")

					resp = NewErrorResponse(req.ID, CodeInternal, "An internal error occurred", "")
					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

// TimeoutMiddleware bounds a whole request. Items still pending when it
// fires are reported as cancelled by the scheduler.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			if timeout <= 0 {
				return next(ctx, req)
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, req)
		}
	}
}

// DefaultMiddleware is the standard chain: recovery, logging, metrics.
func DefaultMiddleware(provider types.Provider) []Middleware {
	return []Middleware{
		RecoveryMiddleware(provider),
		LoggingMiddleware(provider),
		MetricsMiddleware(provider),
	}
}
