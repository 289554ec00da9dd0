package fetcher

import (
	"net/http"
	"time"

	"reportfetch/internal/config"
)

// Options is the immutable per-fetcher configuration.
type Options struct {
	// Timeout bounds one attempt end to end: connect, every redirect hop
	// and the body transfer.
	Timeout        time.Duration
	MaxRedirects   int
	UserAgent      string
	Accept         string
	AcceptLanguage string

	// Extension is forced onto every file name (".pdf").
	Extension string
	// ContentTypes lists the media types accepted without a warning.
	ContentTypes []string
	// UniqueNames appends a time+random token to every file name.
	UniqueNames bool
}

// OptionsFromConfig maps the loaded configuration onto fetcher Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Timeout:        cfg.HTTP.Timeout,
		MaxRedirects:   cfg.HTTP.MaxRedirects,
		UserAgent:      cfg.HTTP.UserAgent,
		Accept:         cfg.HTTP.Accept,
		AcceptLanguage: cfg.HTTP.AcceptLanguage,
		Extension:      cfg.Fetch.Extension,
		ContentTypes:   append([]string(nil), cfg.Fetch.ContentTypes...),
		UniqueNames:    cfg.Fetch.UniqueNames,
	}
}

// DefaultOptions returns Options built from config defaults.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

// HTTPDoer is the subset of *http.Client the fetcher needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns a client that never follows redirects on its own;
// the fetcher walks the chain itself.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client. The client must not follow
// redirects.
func WithHTTPClient(c HTTPDoer) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithProgress registers a callback for throttled progress events.
func WithProgress(fn ProgressFunc) Option {
	return func(f *Fetcher) { f.onProgress = fn }
}

// WithClock replaces time.Now in file-name tokens.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// WithRandomSuffix replaces the random part of file-name tokens.
func WithRandomSuffix(fn func() string) Option {
	return func(f *Fetcher) { f.randomSuffix = fn }
}
