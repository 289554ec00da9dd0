package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reportfetch/internal/domain/model"
	"reportfetch/internal/observability/mocks"
)

var fixedNow = time.UnixMilli(1700000000000)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Timeout = 2 * time.Second
	opts.MaxRedirects = 3
	return opts
}

func newTestFetcher(t *testing.T, opts Options, extra ...Option) (*Fetcher, *mocks.MockLogger, *mocks.MockMetrics) {
	t.Helper()
	log := mocks.NewMockLogger()
	metrics := mocks.NewMockMetrics()
	options := append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithRandomSuffix(func() string { return "abcdef12" }),
	}, extra...)
	return New(opts, log, metrics, options...), log, metrics
}

func pdfHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		fmt.Fprint(w, body)
	}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func requireKind(t *testing.T, err error, kind model.ErrorKind) *model.FetchError {
	t.Helper()
	require.Error(t, err)
	var fe *model.FetchError
	require.True(t, errors.As(err, &fe), "expected *model.FetchError, got %T", err)
	assert.Equal(t, kind, fe.Kind, fe.Error())
	return fe
}

func TestFetch_Success(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		pdfHandler("%PDF-1.7 body")(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f, _, metrics := newTestFetcher(t, testOptions())

	s, err := f.Fetch(context.Background(), srv.URL+"/files/report.pdf?sig=abc", dir, "")
	require.NoError(t, err)

	assert.Equal(t, "report-1700000000000-abcdef12.pdf", s.ResolvedName)
	assert.Equal(t, filepath.Join(dir, s.ResolvedName), s.LocalPath)
	assert.Equal(t, int64(len("%PDF-1.7 body")), s.Bytes)
	assert.Equal(t, "application/pdf", s.ContentType)
	assert.Empty(t, s.Warnings)

	data, err := os.ReadFile(s.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 body", string(data))

	assert.Equal(t, DefaultOptions().UserAgent, gotHeaders.Get("User-Agent"))
	assert.Equal(t, DefaultOptions().Accept, gotHeaders.Get("Accept"))
	assert.Equal(t, "no-cache", gotHeaders.Get("Cache-Control"))
	assert.NotEmpty(t, gotHeaders.Get("Accept-Language"))

	metrics.AssertCalled(t, "RecordSuccess", "fetch")
	metrics.AssertCalled(t, "RecordFileSize", "pdf", int64(13))
	metrics.AssertCalled(t, "StartOperation", "fetch")
	metrics.AssertCalled(t, "EndOperation", "fetch")
}

func TestFetch_SuggestedNameWins(t *testing.T) {
	srv := httptest.NewServer(pdfHandler("%PDF"))
	defer srv.Close()

	opts := testOptions()
	opts.UniqueNames = false
	f, _, _ := newTestFetcher(t, opts)

	s, err := f.Fetch(context.Background(), srv.URL+"/download?id=7", t.TempDir(), "Annual Audit: 2024")
	require.NoError(t, err)

	assert.Equal(t, "Annual Audit 2024.pdf", s.ResolvedName)
}

func TestFetch_NameIgnoresContentDisposition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="server-name.pdf"`)
		pdfHandler("%PDF")(w, r)
	}))
	defer srv.Close()

	opts := testOptions()
	opts.UniqueNames = false
	f, _, _ := newTestFetcher(t, opts)

	s, err := f.Fetch(context.Background(), srv.URL+"/reports/q3.pdf", t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "q3.pdf", s.ResolvedName)
}

func TestFetch_FollowsRedirectChainUnderOriginalName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start/original.pdf", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop", http.StatusFound)
	})
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "final/other-name.pdf", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final/other-name.pdf", pdfHandler("%PDF redirected"))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	opts := testOptions()
	opts.UniqueNames = false
	f, _, _ := newTestFetcher(t, opts)

	s, err := f.Fetch(context.Background(), srv.URL+"/start/original.pdf", t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "original.pdf", s.ResolvedName)
	assert.Equal(t, srv.URL+"/start/original.pdf", s.SourceURL)
	data, err := os.ReadFile(s.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF redirected", string(data))
}

func TestFetch_RedirectLoop(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, r.URL.Path, http.StatusTemporaryRedirect)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f, _, metrics := newTestFetcher(t, testOptions())

	_, err := f.Fetch(context.Background(), srv.URL+"/loop", dir, "")

	requireKind(t, err, model.TooManyRedirects)
	assert.Equal(t, int32(4), hits.Load())
	assert.Empty(t, dirEntries(t, dir))
	metrics.AssertCalled(t, "RecordError", "fetch", "too_many_redirects")
}

func TestFetch_RedirectEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     model.ErrorKind
	}{
		{"missing location", "", model.HTTPStatusError},
		{"unsupported scheme", "ftp://files.example.com/a.pdf", model.UnsupportedProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.location != "" {
					w.Header().Set("Location", tt.location)
				}
				w.WriteHeader(http.StatusFound)
			}))
			defer srv.Close()

			f, _, _ := newTestFetcher(t, testOptions())
			_, err := f.Fetch(context.Background(), srv.URL+"/a.pdf", t.TempDir(), "")

			requireKind(t, err, tt.want)
		})
	}
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f, _, _ := newTestFetcher(t, testOptions())

	_, err := f.Fetch(context.Background(), srv.URL+"/missing.pdf", dir, "")

	fe := requireKind(t, err, model.HTTPStatusError)
	assert.Equal(t, 404, fe.StatusCode)
	assert.Contains(t, fe.Message, "Not Found")
	assert.Empty(t, dirEntries(t, dir))
}

func TestFetch_RejectsBadURLs(t *testing.T) {
	tests := []struct {
		url  string
		want model.ErrorKind
	}{
		{"not a url", model.InvalidURL},
		{"http://", model.InvalidURL},
		{"://missing-scheme", model.InvalidURL},
		{"ftp://example.com/a.pdf", model.UnsupportedProtocol},
		{"file:///etc/passwd", model.UnsupportedProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			f, _, _ := newTestFetcher(t, testOptions())

			_, err := f.Fetch(context.Background(), tt.url, t.TempDir(), "")

			requireKind(t, err, tt.want)
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	opts := testOptions()
	opts.Timeout = 50 * time.Millisecond
	dir := t.TempDir()
	f, _, _ := newTestFetcher(t, opts)

	start := time.Now()
	_, err := f.Fetch(context.Background(), srv.URL+"/slow.pdf", dir, "")

	requireKind(t, err, model.TimeoutError)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, dirEntries(t, dir))
}

func TestFetch_TimeoutMidBodyRemovesPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("%PDF partial"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	opts := testOptions()
	opts.Timeout = 100 * time.Millisecond
	dir := t.TempDir()
	f, _, _ := newTestFetcher(t, opts)

	_, err := f.Fetch(context.Background(), srv.URL+"/stall.pdf", dir, "")

	requireKind(t, err, model.TimeoutError)
	assert.Empty(t, dirEntries(t, dir))
}

func TestFetch_TruncatedBodyRemovesPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("%PDF only a fragment"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f, _, _ := newTestFetcher(t, testOptions())

	_, err := f.Fetch(context.Background(), srv.URL+"/cut.pdf", dir, "")

	requireKind(t, err, model.WriteError)
	assert.Empty(t, dirEntries(t, dir))
}

func TestFetch_UnwritableDestination(t *testing.T) {
	srv := httptest.NewServer(pdfHandler("%PDF"))
	defer srv.Close()

	f, _, _ := newTestFetcher(t, testOptions())
	missing := filepath.Join(t.TempDir(), "does", "not", "exist")

	_, err := f.Fetch(context.Background(), srv.URL+"/a.pdf", missing, "")

	requireKind(t, err, model.WriteError)
}

func TestFetch_CallerCancellation(t *testing.T) {
	srv := httptest.NewServer(pdfHandler("%PDF"))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, _, _ := newTestFetcher(t, testOptions())
	_, err := f.Fetch(ctx, srv.URL+"/a.pdf", t.TempDir(), "")

	requireKind(t, err, model.Cancelled)
}

func TestFetch_ContentTypeMismatchIsWarning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html>login required</html>")
	}))
	defer srv.Close()

	f, log, metrics := newTestFetcher(t, testOptions())

	s, err := f.Fetch(context.Background(), srv.URL+"/report.pdf", t.TempDir(), "")
	require.NoError(t, err)

	require.Len(t, s.Warnings, 1)
	assert.Contains(t, s.Warnings[0], "text/html")
	log.AssertCalled(t, "Warn", mock.Anything, "Unexpected content type", mock.Anything)
	metrics.AssertCalled(t, "RecordWarning", "fetch", "content_type_mismatch")
}

func TestFetch_ContentTypeParametersIgnored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "Application/PDF; name=report.pdf")
		fmt.Fprint(w, "%PDF")
	}))
	defer srv.Close()

	f, _, _ := newTestFetcher(t, testOptions())

	s, err := f.Fetch(context.Background(), srv.URL+"/report.pdf", t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, s.Warnings)
}

func TestFetch_SameBasenameNeverCollides(t *testing.T) {
	srv := httptest.NewServer(pdfHandler("%PDF"))
	defer srv.Close()

	dir := t.TempDir()
	log := mocks.NewMockLogger()
	f := New(testOptions(), log, mocks.NewMockMetrics())

	a, err := f.Fetch(context.Background(), srv.URL+"/x/report.pdf", dir, "")
	require.NoError(t, err)
	b, err := f.Fetch(context.Background(), srv.URL+"/y/report.pdf", dir, "")
	require.NoError(t, err)

	assert.NotEqual(t, a.ResolvedName, b.ResolvedName)
	assert.Len(t, dirEntries(t, dir), 2)
}

func TestFetch_ProgressEvents(t *testing.T) {
	const size = 4000
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(size))
		chunk := make([]byte, size/40)
		for i := 0; i < 40; i++ {
			w.Write(chunk)
			w.(http.Flusher).Flush()
		}
	}))
	defer srv.Close()

	var events []ProgressEvent
	f, _, _ := newTestFetcher(t, testOptions(), WithProgress(func(ev ProgressEvent) {
		events = append(events, ev)
	}))

	_, err := f.Fetch(context.Background(), srv.URL+"/big.pdf", t.TempDir(), "")
	require.NoError(t, err)

	require.NotEmpty(t, events)
	last := 0
	for _, ev := range events {
		assert.Greater(t, ev.Percent, last)
		if ev.Percent != 100 {
			assert.GreaterOrEqual(t, ev.Percent-last, ProgressStep)
		}
		assert.Equal(t, int64(size), ev.Total)
		last = ev.Percent
	}
	assert.Equal(t, 100, events[len(events)-1].Percent)
}
