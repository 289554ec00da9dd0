package runtime

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"reportfetch/internal/domain/model"
	"reportfetch/internal/observability/types"
)

// Exit codes of the command line.
const (
	ExitOK       = 0
	ExitFailures = 1
	ExitUsage    = 2
	ExitAborted  = 3
)

// CLI runs one batch from the command line and reports it.
type CLI struct {
	runner Runner
	logger types.Logger
	// JSON, when set, receives the BatchResult as indented JSON.
	JSON io.Writer
}

// NewCLI wraps runner.
func NewCLI(runner Runner, logger types.Logger) *CLI {
	return &CLI{runner: runner, logger: logger}
}

// Run processes requests and returns the process exit code: ExitAborted
// when the batch could not start or was cancelled, ExitFailures when any
// download failed.
func (c *CLI) Run(ctx context.Context, requests []model.DownloadRequest) (model.BatchResult, int) {
	result, err := c.runner.Run(ctx, requests)
	if err != nil {
		c.logger.Error(ctx, "Batch aborted", err, nil)
		return result, ExitAborted
	}

	c.logger.Info(ctx, "Batch summary", Summary(result))
	for _, f := range result.Failures {
		c.logger.Warn(ctx, "Download failed", types.Fields{
			"url":      f.SourceURL,
			"kind":     string(f.Kind),
			"attempts": f.Attempts,
			"error":    f.ErrorMessage,
		})
	}
	for _, s := range result.Successes {
		if !s.Valid {
			c.logger.Warn(ctx, "Downloaded file failed validation", types.Fields{
				"url":  s.SourceURL,
				"path": s.LocalPath,
			})
		}
	}

	if c.JSON != nil {
		enc := json.NewEncoder(c.JSON)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			c.logger.Error(ctx, "Failed to write JSON result", err, nil)
		}
	}

	if ctx.Err() != nil {
		return result, ExitAborted
	}
	if len(result.Failures) > 0 {
		return result, ExitFailures
	}
	return result, ExitOK
}

// LineSignals turns every line read from r into a continuation signal for
// a ChannelPacer. The channel is closed at EOF, releasing remaining waits.
func LineSignals(ctx context.Context, r io.Reader) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// PromptWriter prints the paced-mode prompt to w.
func PromptWriter(w io.Writer) func(done, total int) {
	return func(done, total int) {
		fmt.Fprintf(w, "%d/%d done. Press Enter to continue...\n", done, total)
	}
}
