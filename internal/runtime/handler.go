// Package runtime exposes the batch pipeline to its hosts: the command line,
// AWS Lambda and a small HTTP server that also serves /metrics.
package runtime

import (
	"context"
	"strconv"

	"reportfetch/internal/domain/model"
	"reportfetch/internal/manifest"
	"reportfetch/internal/observability/logger"
	"reportfetch/internal/observability/types"
)

// Runner executes one batch. *batch.Scheduler implements it.
type Runner interface {
	Run(ctx context.Context, requests []model.DownloadRequest) (model.BatchResult, error)
}

// HandlerFunc processes one Request.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// Handler decodes requests and hands them to a Runner through a middleware
// chain.
type Handler struct {
	runner      Runner
	middlewares []Middleware
}

// NewHandler creates a Handler without middleware.
func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// Use appends middleware. The first added is the outermost.
func (h *Handler) Use(mw ...Middleware) {
	h.middlewares = append(h.middlewares, mw...)
}

// Handle runs req through the chain.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	if req.ID != "" {
		ctx = logger.WithRequestID(ctx, req.ID)
	}
	next := h.process
	for i := len(h.middlewares) - 1; i >= 0; i-- {
		next = h.middlewares[i](next)
	}
	return next(ctx, req)
}

func (h *Handler) process(ctx context.Context, req Request) (Response, error) {
	requests, err := manifest.ParseJSON(req.Payload)
	if err != nil {
		return NewErrorResponse(req.ID, CodeValidation, "Invalid request list", err.Error()), nil
	}
	if len(requests) == 0 {
		return NewErrorResponse(req.ID, CodeValidation, "Request list is empty", ""), nil
	}

	result, err := h.runner.Run(ctx, requests)
	if err != nil {
		return NewErrorResponse(req.ID, CodeBatch, "Batch could not run", err.Error()), nil
	}
	if ctx.Err() != nil {
		resp := NewErrorResponse(req.ID, CodeCancelled, "Batch cancelled", ctx.Err().Error())
		resp.Result = &result
		return resp, nil
	}

	resp := NewSuccessResponse(req.ID, result)
	resp.Metadata["successes"] = strconv.Itoa(len(result.Successes))
	resp.Metadata["failures"] = strconv.Itoa(len(result.Failures))
	resp.Metadata["invalid"] = strconv.Itoa(result.InvalidCount())
	return resp, nil
}

// Summary is the log/metadata view of a BatchResult.
func Summary(r model.BatchResult) types.Fields {
	return types.Fields{
		"total":     r.Total(),
		"successes": len(r.Successes),
		"failures":  len(r.Failures),
		"invalid":   r.InvalidCount(),
	}
}
