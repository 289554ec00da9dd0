// Package fetcher downloads one URL into one file: it walks the redirect
// chain itself, bounds each attempt with a wall-clock timeout, streams the
// body to disk and removes partial files on failure.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reportfetch/internal/domain/model"
	"reportfetch/internal/observability/types"
)

const opFetch = "fetch"

// Fetcher performs single retrieval attempts. It is safe for concurrent use.
type Fetcher struct {
	client       HTTPDoer
	opts         Options
	log          types.Logger
	metrics      types.Metrics
	onProgress   ProgressFunc
	now          func() time.Time
	randomSuffix func() string
}

// New creates a Fetcher. Without WithHTTPClient it uses NewHTTPClient.
func New(opts Options, log types.Logger, metrics types.Metrics, options ...Option) *Fetcher {
	f := &Fetcher{
		client:       NewHTTPClient(),
		opts:         opts,
		log:          log,
		metrics:      metrics,
		now:          time.Now,
		randomSuffix: randomHex8,
	}
	for _, o := range options {
		o(f)
	}
	return f
}

// Fetch downloads sourceURL into destinationDir. suggestedName, when
// non-empty, replaces the name derived from the URL. Errors are
// *model.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL, destinationDir, suggestedName string) (*model.Success, error) {
	start := time.Now()
	f.metrics.StartOperation(opFetch)
	defer f.metrics.EndOperation(opFetch)

	success, err := f.fetch(ctx, sourceURL, destinationDir, suggestedName)
	f.metrics.RecordDuration(opFetch, time.Since(start).Seconds())
	if err != nil {
		f.metrics.RecordError(opFetch, string(model.KindOf(err)))
		return nil, err
	}

	f.metrics.RecordSuccess(opFetch)
	f.metrics.RecordFileSize(strings.TrimPrefix(f.opts.Extension, "."), success.Bytes)
	return success, nil
}

func (f *Fetcher) fetch(ctx context.Context, sourceURL, destinationDir, suggestedName string) (*model.Success, error) {
	u, err := parseSourceURL(sourceURL)
	if err != nil {
		return nil, err
	}

	name := suggestedName
	if name == "" {
		name = DeriveName(u)
	}
	fileName := f.fileName(name)
	localPath := filepath.Join(destinationDir, fileName)

	attemptCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	resp, err := f.follow(ctx, attemptCtx, sourceURL, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	success := &model.Success{
		SourceURL:    sourceURL,
		ResolvedName: fileName,
		LocalPath:    localPath,
		ContentType:  resp.Header.Get("Content-Type"),
	}

	if w := f.checkContentType(success.ContentType); w != "" {
		f.log.Warn(ctx, "Unexpected content type", types.Fields{
			"url":          sourceURL,
			"content_type": success.ContentType,
		})
		f.metrics.RecordWarning(opFetch, "content_type_mismatch")
		success.AddWarning(w)
	}

	n, err := f.writeBody(ctx, attemptCtx, sourceURL, resp, localPath)
	if err != nil {
		return nil, err
	}
	success.Bytes = n

	f.log.Info(ctx, "File written", types.Fields{
		"url":   sourceURL,
		"path":  localPath,
		"bytes": n,
	})
	return success, nil
}

// follow issues GETs along the redirect chain and returns the first 200
// response. Non-200 responses are closed before returning.
func (f *Fetcher) follow(ctx, attemptCtx context.Context, sourceURL string, u *url.URL) (*http.Response, error) {
	current := u
	for hops := 0; ; hops++ {
		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, current.String(), nil)
		if err != nil {
			return nil, model.NewFetchError(model.InvalidURL, sourceURL, "cannot build request", err)
		}
		f.setHeaders(req)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, classify(ctx, attemptCtx, sourceURL, model.ConnectionError, "request failed", err)
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location := resp.Header.Get("Location")
			discard(resp)

			if location == "" {
				return nil, model.NewHTTPStatusError(sourceURL, resp.StatusCode, "redirect without Location header")
			}
			if hops >= f.opts.MaxRedirects {
				return nil, model.NewFetchError(model.TooManyRedirects, sourceURL,
					fmt.Sprintf("more than %d redirects", f.opts.MaxRedirects), nil)
			}

			next, err := current.Parse(location)
			if err != nil {
				return nil, model.NewFetchError(model.InvalidURL, sourceURL,
					fmt.Sprintf("invalid redirect location %q", location), err)
			}
			if !supportedScheme(next.Scheme) {
				return nil, model.NewFetchError(model.UnsupportedProtocol, sourceURL,
					fmt.Sprintf("redirect to unsupported scheme %q", next.Scheme), nil)
			}

			f.log.Debug(ctx, "Following redirect", types.Fields{
				"url":    sourceURL,
				"from":   current.String(),
				"to":     next.String(),
				"status": resp.StatusCode,
				"hop":    hops + 1,
			})
			current = next
			continue
		}

		if resp.StatusCode != http.StatusOK {
			discard(resp)
			return nil, model.NewHTTPStatusError(sourceURL, resp.StatusCode, statusText(resp))
		}

		return resp, nil
	}
}

// writeBody streams resp into localPath. On any failure the partial file is
// removed.
func (f *Fetcher) writeBody(ctx, attemptCtx context.Context, sourceURL string, resp *http.Response, localPath string) (int64, error) {
	file, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, model.NewFetchError(model.WriteError, sourceURL, "cannot create file", err)
	}

	progress := newProgressWriter(sourceURL, resp.ContentLength, f.progress(ctx))
	n, copyErr := io.Copy(io.MultiWriter(file, progress), resp.Body)
	closeErr := file.Close()

	if copyErr == nil && closeErr != nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		f.removePartial(ctx, localPath)
		return 0, classify(ctx, attemptCtx, sourceURL, model.WriteError, "transfer interrupted", copyErr)
	}
	return n, nil
}

func (f *Fetcher) progress(ctx context.Context) ProgressFunc {
	return func(ev ProgressEvent) {
		f.log.Debug(ctx, "Download progress", types.Fields{
			"url":     ev.SourceURL,
			"bytes":   ev.Bytes,
			"total":   ev.Total,
			"percent": ev.Percent,
		})
		if f.onProgress != nil {
			f.onProgress(ev)
		}
	}
}

func (f *Fetcher) removePartial(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.log.Error(ctx, "Failed to remove partial file", err, types.Fields{"path": path})
	}
}

func (f *Fetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", f.opts.Accept)
	if f.opts.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", f.opts.AcceptLanguage)
	}
	req.Header.Set("Cache-Control", "no-cache")
}

// checkContentType returns a warning when a declared content type is not
// among the expected ones. An absent header is not a mismatch.
func (f *Fetcher) checkContentType(contentType string) string {
	if contentType == "" || len(f.opts.ContentTypes) == 0 {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	for _, expected := range f.opts.ContentTypes {
		if strings.EqualFold(mediaType, expected) {
			return ""
		}
	}
	return fmt.Sprintf("unexpected content type %q", contentType)
}

func parseSourceURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, model.NewFetchError(model.InvalidURL, raw, "malformed URL", err)
	}
	if u.Scheme == "" {
		return nil, model.NewFetchError(model.InvalidURL, raw, "URL has no scheme", nil)
	}
	if !supportedScheme(u.Scheme) {
		return nil, model.NewFetchError(model.UnsupportedProtocol, raw,
			fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return nil, model.NewFetchError(model.InvalidURL, raw, "URL has no host", nil)
	}
	return u, nil
}

func supportedScheme(scheme string) bool {
	s := strings.ToLower(scheme)
	return s == "http" || s == "https"
}

// classify maps a transport or copy error onto the taxonomy. Caller
// cancellation wins over the attempt deadline, which wins over fallback.
func classify(ctx, attemptCtx context.Context, sourceURL string, fallback model.ErrorKind, msg string, err error) *model.FetchError {
	if errors.Is(ctx.Err(), context.Canceled) {
		return model.NewFetchError(model.Cancelled, sourceURL, "cancelled", err)
	}
	if attemptCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return model.NewFetchError(model.TimeoutError, sourceURL, "attempt timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.NewFetchError(model.TimeoutError, sourceURL, "network timeout", err)
	}
	return model.NewFetchError(fallback, sourceURL, msg, err)
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprint(resp.StatusCode)))
}

// discard drains a bounded amount of the body so the connection can be
// reused, then closes it.
func discard(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
