// Package batch schedules a bounded list of download requests, either in
// fixed-size concurrent windows or one at a time behind an external pacer,
// and collects exactly one outcome per request in input order.
package batch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"reportfetch/internal/config"
	"reportfetch/internal/domain/model"
	"reportfetch/internal/observability/logger"
	"reportfetch/internal/observability/types"
	"reportfetch/internal/retry"
)

const (
	opBatch = "batch"
	opItem  = "item"
)

// Modes.
const (
	ModeWindow = config.PauseModeWindow
	ModePaced  = config.PauseModePaced
)

// ItemFunc turns one request into its outcome. It must not mutate shared
// state; each call owns slot index.
type ItemFunc func(ctx context.Context, index int, req model.DownloadRequest) model.Outcome

// Options is the immutable scheduler configuration.
type Options struct {
	Mode            string
	Concurrency     int
	InterBatchDelay time.Duration
	DestinationDir  string
}

// OptionsFromConfig maps batch settings onto scheduler Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Mode:            cfg.Batch.PauseMode,
		Concurrency:     cfg.Batch.Concurrency,
		InterBatchDelay: cfg.Batch.InterBatchDelay,
		DestinationDir:  cfg.Batch.DownloadDir,
	}
}

// Scheduler runs batches. Instances share nothing; one may be used for
// several sequential runs.
type Scheduler struct {
	opts    Options
	item    ItemFunc
	pacer   Pacer
	wait    retry.WaitFunc
	log     types.Logger
	metrics types.Metrics
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithPacer sets the pacer used in paced mode.
func WithPacer(p Pacer) Option {
	return func(s *Scheduler) { s.pacer = p }
}

// WithWait replaces the inter-window sleep.
func WithWait(fn retry.WaitFunc) Option {
	return func(s *Scheduler) { s.wait = fn }
}

// New creates a Scheduler. Concurrency below 1 is treated as 1.
func New(opts Options, item ItemFunc, log types.Logger, metrics types.Metrics, options ...Option) *Scheduler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Mode == "" {
		opts.Mode = ModeWindow
	}
	s := &Scheduler{
		opts:    opts,
		item:    item,
		wait:    retry.SleepContext,
		log:     log,
		metrics: metrics,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Prepare creates the destination directory if needed and checks that it
// accepts new files.
func (s *Scheduler) Prepare() error {
	dir := s.opts.DestinationDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ErrDestinationUnavailable(dir, err)
	}

	probe, err := os.CreateTemp(dir, ".reportfetch-probe-*")
	if err != nil {
		return ErrDestinationUnavailable(dir, err)
	}
	name := probe.Name()
	probe.Close()
	if err := os.Remove(name); err != nil {
		return ErrDestinationUnavailable(dir, err)
	}
	return nil
}

// Run prepares the destination and processes requests. The returned error
// is non-nil only when the run could not start; per-item failures are in
// the BatchResult. When ctx is cancelled, unstarted items are recorded as
// Cancelled failures.
func (s *Scheduler) Run(ctx context.Context, requests []model.DownloadRequest) (model.BatchResult, error) {
	if s.opts.Mode != ModeWindow && s.opts.Mode != ModePaced {
		return model.BatchResult{}, fmt.Errorf("unknown batch mode %q", s.opts.Mode)
	}
	if s.opts.Mode == ModePaced && s.pacer == nil {
		return model.BatchResult{}, ErrPacerRequired
	}
	if err := s.Prepare(); err != nil {
		return model.BatchResult{}, err
	}

	if v, _ := ctx.Value(logger.BatchIDKey).(string); v == "" {
		ctx = logger.WithBatchID(ctx, uuid.NewString())
	}

	start := time.Now()
	s.metrics.StartOperation(opBatch)
	defer s.metrics.EndOperation(opBatch)

	s.log.Info(ctx, "Batch started", types.Fields{
		"items":       len(requests),
		"mode":        s.opts.Mode,
		"concurrency": s.opts.Concurrency,
		"destination": s.opts.DestinationDir,
	})

	slots := make([]model.Outcome, len(requests))
	if s.opts.Mode == ModePaced {
		s.runPaced(ctx, requests, slots)
	} else {
		s.runWindows(ctx, requests, slots)
	}

	cancelled := s.fillUnstarted(ctx, requests, slots)
	result := model.NewBatchResult(slots)

	s.metrics.RecordDuration(opBatch, time.Since(start).Seconds())
	s.log.Info(ctx, "Batch finished", types.Fields{
		"items":       len(requests),
		"successes":   len(result.Successes),
		"failures":    len(result.Failures),
		"invalid":     result.InvalidCount(),
		"cancelled":   cancelled,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return result, nil
}

// runWindows processes consecutive windows of Concurrency items. Every item
// of a window settles before the next window starts; a failing item never
// cancels its siblings.
func (s *Scheduler) runWindows(ctx context.Context, requests []model.DownloadRequest, slots []model.Outcome) {
	size := s.opts.Concurrency
	for start, window := 0, 1; start < len(requests); start, window = start+size, window+1 {
		if start > 0 && s.opts.InterBatchDelay > 0 {
			if err := s.wait(ctx, s.opts.InterBatchDelay); err != nil {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		end := min(start+size, len(requests))
		s.log.Debug(ctx, "Window started", types.Fields{"window": window, "from": start, "to": end - 1})

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				slots[i] = s.runItem(ctx, i, requests[i])
				return nil
			})
		}
		g.Wait()
	}
}

// runPaced processes items one by one, waiting on the pacer between items.
func (s *Scheduler) runPaced(ctx context.Context, requests []model.DownloadRequest, slots []model.Outcome) {
	for i := range requests {
		if i > 0 {
			if err := s.pacer.Wait(ctx, i, len(requests)); err != nil {
				s.log.Warn(ctx, "Pacer stopped the batch", types.Fields{"done": i, "error": err.Error()})
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		slots[i] = s.runItem(ctx, i, requests[i])
	}
}

func (s *Scheduler) runItem(ctx context.Context, index int, req model.DownloadRequest) (out model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while processing item: %v", r)
			s.log.Error(ctx, "Item panicked", err, types.Fields{"index": index, "url": req.SourceURL})
			out = model.Failed(model.NewFailure(req, err, 0))
		}
		if out.IsSuccess() {
			s.metrics.RecordSuccess(opItem)
		} else {
			s.metrics.RecordError(opItem, string(out.Failure.Kind))
		}
	}()

	out = s.item(ctx, index, req)
	if out.IsZero() {
		out = model.Failed(model.NewFailure(req, fmt.Errorf("item produced no outcome"), 0))
	}
	return out
}

// fillUnstarted records a Cancelled failure for every empty slot.
func (s *Scheduler) fillUnstarted(ctx context.Context, requests []model.DownloadRequest, slots []model.Outcome) int {
	n := 0
	for i := range slots {
		if !slots[i].IsZero() {
			continue
		}
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		err := model.NewFetchError(model.Cancelled, requests[i].SourceURL, "not started", cause)
		slots[i] = model.Failed(model.NewFailure(requests[i], err, 0))
		s.metrics.RecordError(opItem, string(model.Cancelled))
		n++
	}
	if n > 0 {
		s.log.Warn(ctx, "Batch interrupted", types.Fields{"not_started": n})
	}
	return n
}

// ErrDestinationUnavailable reports a destination directory that cannot be
// created or written.
func ErrDestinationUnavailable(dir string, err error) error {
	return fmt.Errorf("destination directory %q is not writable: %w", dir, err)
}
