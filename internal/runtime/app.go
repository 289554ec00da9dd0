package runtime

import (
	"context"
	"fmt"

	"reportfetch/internal/batch"
	"reportfetch/internal/config"
	"reportfetch/internal/fetcher"
	"reportfetch/internal/observability/types"
	"reportfetch/internal/retry"
	"reportfetch/internal/storage"
	"reportfetch/internal/usecase"
	"reportfetch/internal/validator"
)

// App is the assembled pipeline for one configuration.
type App struct {
	Scheduler *batch.Scheduler
	Pipeline  *usecase.Pipeline
	Mirror    *storage.Mirror
}

// AppOption customizes NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	pacer    batch.Pacer
	progress fetcher.ProgressFunc
}

// WithPacer supplies the pacer for paced mode.
func WithPacer(p batch.Pacer) AppOption {
	return func(o *appOptions) { o.pacer = p }
}

// WithProgress forwards fetcher progress events to fn.
func WithProgress(fn fetcher.ProgressFunc) AppOption {
	return func(o *appOptions) { o.progress = fn }
}

// NewApp wires fetcher, validator, retry policy, mirror and scheduler from
// cfg. Every component gets its own scoped logger and metrics.
func NewApp(ctx context.Context, cfg *config.Config, provider types.Provider, options ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range options {
		opt(&o)
	}

	var fetchOpts []fetcher.Option
	if o.progress != nil {
		fetchOpts = append(fetchOpts, fetcher.WithProgress(o.progress))
	}
	f := fetcher.New(fetcher.OptionsFromConfig(cfg), provider.Logger("fetcher"), provider.Metrics("fetcher"), fetchOpts...)
	v := validator.New(cfg.Fetch.Signature, provider.Logger("validator"), provider.Metrics("validator"))
	policy := retry.New(retry.OptionsFromConfig(cfg), provider.Logger("retry"))

	mirror, err := storage.FromConfig(ctx, cfg, provider.Logger("storage"), provider.Metrics("storage"))
	if err != nil {
		return nil, ErrBuildApp(err)
	}

	var pipelineOpts []usecase.Option
	if mirror != nil {
		pipelineOpts = append(pipelineOpts, usecase.WithMirror(mirror))
	}
	pipeline := usecase.NewPipeline(f, v, policy, cfg.Batch.DownloadDir,
		provider.Logger("pipeline"), provider.Metrics("pipeline"), pipelineOpts...)

	var schedOpts []batch.Option
	if o.pacer != nil {
		schedOpts = append(schedOpts, batch.WithPacer(o.pacer))
	}
	scheduler := batch.New(batch.OptionsFromConfig(cfg), pipeline.Process,
		provider.Logger("batch"), provider.Metrics("batch"), schedOpts...)

	return &App{Scheduler: scheduler, Pipeline: pipeline, Mirror: mirror}, nil
}

// ErrBuildApp wraps wiring failures.
func ErrBuildApp(err error) error {
	return fmt.Errorf("failed to build application: %w", err)
}
