// Package retry runs an attempt function up to MaxRetries+1 times with a
// linear, attempt-keyed backoff between attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"reportfetch/internal/config"
	"reportfetch/internal/domain/model"
	"reportfetch/internal/observability/types"
)

// AttemptFunc performs one attempt. attempt starts at 1.
type AttemptFunc func(ctx context.Context, attempt int) (*model.Success, error)

// WaitFunc blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Options is the immutable retry configuration.
type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	// SkipPermanent stops retrying after errors whose kind IsPermanent.
	SkipPermanent bool
}

// OptionsFromConfig maps batch settings onto retry Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxRetries:    cfg.Batch.RetryCount,
		BaseDelay:     cfg.Batch.RetryBaseDelay,
		SkipPermanent: cfg.Batch.SkipPermanent,
	}
}

// Policy executes attempts under Options.
type Policy struct {
	opts Options
	log  types.Logger
	wait WaitFunc
}

// New creates a Policy that sleeps with SleepContext.
func New(opts Options, log types.Logger) *Policy {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Policy{opts: opts, log: log, wait: SleepContext}
}

// WithWait returns a copy of p that waits through fn.
func (p *Policy) WithWait(fn WaitFunc) *Policy {
	cp := *p
	cp.wait = fn
	return &cp
}

// Delay is the pause after the given failed attempt: attempt * BaseDelay.
func (p *Policy) Delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.opts.BaseDelay
}

// MaxAttempts is MaxRetries+1.
func (p *Policy) MaxAttempts() int {
	return p.opts.MaxRetries + 1
}

// Do runs fn until it succeeds or attempts are exhausted. It returns the
// success or the last error, plus the number of attempts made. Earlier
// errors are logged as transient. No delay follows the last attempt.
func (p *Policy) Do(ctx context.Context, fn AttemptFunc) (*model.Success, int, error) {
	maxAttempts := p.MaxAttempts()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		success, err := fn(ctx, attempt)
		if err == nil {
			return success, attempt, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		if p.opts.SkipPermanent && model.KindOf(err).IsPermanent() {
			p.log.Warn(ctx, "Permanent error, not retrying", types.Fields{
				"attempt": attempt,
				"kind":    string(model.KindOf(err)),
				"error":   err.Error(),
			})
			return nil, attempt, err
		}

		delay := p.Delay(attempt)
		p.log.Warn(ctx, "Attempt failed, retrying", types.Fields{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"kind":         string(model.KindOf(err)),
			"error":        err.Error(),
			"delay_ms":     delay.Milliseconds(),
		})

		if werr := p.wait(ctx, delay); werr != nil {
			return nil, attempt, ErrInterrupted(err, werr)
		}
	}

	return nil, maxAttempts, lastErr
}

// SleepContext waits for d unless ctx is done first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ErrInterrupted reports a backoff cut short by the context. The result is a
// Cancelled *model.FetchError (TimeoutError for an expired deadline) wrapping
// both the cause and the last attempt error.
func ErrInterrupted(last, cause error) error {
	kind := model.Cancelled
	if errors.Is(cause, context.DeadlineExceeded) {
		kind = model.TimeoutError
	}
	return model.NewFetchError(kind, urlOf(last), "retry interrupted", errors.Join(cause, last))
}

func urlOf(err error) string {
	var fe *model.FetchError
	if errors.As(err, &fe) {
		return fe.URL
	}
	return ""
}
