// Package usecase turns one download request into one outcome: fetch under
// the retry policy, validate the written file, then optionally mirror it.
package usecase

import (
	"context"
	"time"

	"reportfetch/internal/domain/model"
	"reportfetch/internal/observability/types"
	"reportfetch/internal/retry"
)

const opProcess = "process"

// Fetcher writes one URL to destinationDir.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, destinationDir, suggestedName string) (*model.Success, error)
}

// Validator checks a completed file.
type Validator interface {
	Validate(ctx context.Context, localPath string) bool
}

// Mirror copies a completed file to secondary storage and returns its key.
type Mirror interface {
	Upload(ctx context.Context, s *model.Success) (string, error)
}

// Pipeline processes requests for the batch scheduler.
type Pipeline struct {
	fetcher        Fetcher
	validator      Validator
	policy         *retry.Policy
	mirror         Mirror
	destinationDir string
	logger         types.Logger
	metrics        types.Metrics
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithMirror enables mirroring of successful downloads.
func WithMirror(m Mirror) Option {
	return func(p *Pipeline) { p.mirror = m }
}

// NewPipeline assembles a Pipeline writing into destinationDir.
func NewPipeline(
	fetcher Fetcher,
	validator Validator,
	policy *retry.Policy,
	destinationDir string,
	logger types.Logger,
	metrics types.Metrics,
	options ...Option,
) *Pipeline {
	p := &Pipeline{
		fetcher:        fetcher,
		validator:      validator,
		policy:         policy,
		destinationDir: destinationDir,
		logger:         logger,
		metrics:        metrics,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Process produces the outcome for req. It matches batch.ItemFunc.
func (p *Pipeline) Process(ctx context.Context, index int, req model.DownloadRequest) model.Outcome {
	start := time.Now()
	p.metrics.StartOperation(opProcess)
	defer func() {
		p.metrics.EndOperation(opProcess)
		p.metrics.RecordDuration(opProcess, time.Since(start).Seconds())
	}()

	log := p.logger.WithFields(types.Fields{
		"index": index,
		"url":   req.SourceURL,
	})

	success, attempts, err := p.policy.Do(ctx, func(ctx context.Context, attempt int) (*model.Success, error) {
		log.Debug(ctx, "Fetching", types.Fields{"attempt": attempt})
		return p.fetcher.Fetch(ctx, req.SourceURL, p.destinationDir, req.SuggestedName)
	})
	if err != nil {
		failure := model.NewFailure(req, err, attempts)
		p.metrics.RecordError(opProcess, string(failure.Kind))
		log.Error(ctx, "Download failed", err, types.Fields{
			"kind":     string(failure.Kind),
			"attempts": attempts,
		})
		return model.Failed(failure)
	}

	success.Attempts = attempts
	success.Valid = p.validator.Validate(ctx, success.LocalPath)

	if p.mirror != nil {
		key, err := p.mirror.Upload(ctx, success)
		if err != nil {
			success.AddWarning("mirror upload failed: " + err.Error())
			p.metrics.RecordWarning(opProcess, "mirror_failed")
			log.Warn(ctx, "Mirror upload failed", types.Fields{"error": err.Error()})
		} else {
			success.MirrorKey = key
		}
	}

	p.metrics.RecordSuccess(opProcess)
	log.Info(ctx, "Download completed", types.Fields{
		"name":     success.ResolvedName,
		"bytes":    success.Bytes,
		"valid":    success.Valid,
		"attempts": attempts,
	})
	return model.Succeeded(*success)
}
