package config

import "time"

// Browser-like identification; some report hosts refuse bare Go clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultBatchConfig returns the scheduler defaults: window of 3, 3 retries,
// 1s backoff unit.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Concurrency:     3,
		RetryCount:      3,
		RetryBaseDelay:  time.Second,
		InterBatchDelay: 0,
		PauseMode:       PauseModeWindow,
		DownloadDir:     "./downloads",
		SkipPermanent:   false,
	}
}

// DefaultHTTPConfig returns sensible defaults for the HTTP client
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:        60 * time.Second,
		UserAgent:      DefaultUserAgent,
		Accept:         "application/pdf,application/octet-stream;q=0.9,*/*;q=0.8",
		AcceptLanguage: "en-US,en;q=0.9",
		MaxRedirects:   10,
	}
}

// DefaultFetchConfig returns the PDF document profile
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Extension:    ".pdf",
		Signature:    "%PDF",
		ContentTypes: []string{"application/pdf", "application/x-pdf", "application/octet-stream"},
		UniqueNames:  true,
	}
}

// DefaultMirrorConfig disables mirroring
func DefaultMirrorConfig() MirrorConfig {
	return MirrorConfig{
		Adapter: MirrorNone,
		Prefix:  "reports",
	}
}

// DefaultConfig returns a complete configuration with sensible defaults.
// Useful in tests and when embedding the pipeline as a library.
func DefaultConfig() *Config {
	return &Config{
		Environment: "local",
		ServiceName: "reportfetch",
		Version:     "1.0.0",
		LogLevel:    "info",

		Batch:  DefaultBatchConfig(),
		HTTP:   DefaultHTTPConfig(),
		Fetch:  DefaultFetchConfig(),
		Mirror: DefaultMirrorConfig(),
	}
}
