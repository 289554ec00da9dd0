package config

import (
	"fmt"
	"strings"
	"time"
)

// Pause modes of the batch scheduler.
const (
	PauseModeWindow = "window"
	PauseModePaced  = "paced"
)

// Mirror adapters.
const (
	MirrorNone       = "none"
	MirrorFilesystem = "filesystem"
	MirrorS3         = "s3"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	Version     string
	LogLevel    string

	// MetricsAddr enables the /metrics endpoint when non-empty (":9090").
	MetricsAddr string

	// Component configurations
	Batch  BatchConfig
	HTTP   HTTPConfig
	Fetch  FetchConfig
	Mirror MirrorConfig
	AWS    AWSConfig
}

// BatchConfig holds scheduler and retry settings
type BatchConfig struct {
	Concurrency     int
	RetryCount      int
	RetryBaseDelay  time.Duration
	InterBatchDelay time.Duration
	PauseMode       string
	DownloadDir     string
	SkipPermanent   bool
}

// HTTPConfig holds the outbound request settings
type HTTPConfig struct {
	Timeout        time.Duration // per attempt, across all redirect hops
	UserAgent      string
	Accept         string
	AcceptLanguage string
	MaxRedirects   int
}

// FetchConfig describes the expected document type
type FetchConfig struct {
	Extension    string
	Signature    string
	ContentTypes []string
	UniqueNames  bool
}

// MirrorConfig selects where successful downloads are copied to
type MirrorConfig struct {
	Adapter      string
	BucketOrPath string
	Prefix       string
}

// AWSConfig holds AWS-specific configuration
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // LocalStack / MinIO only
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errors = append(errors, "LOG_LEVEL must be one of debug, info, warn, error")
	}

	// Batch
	if c.Batch.Concurrency < 1 {
		errors = append(errors, "BATCH_CONCURRENCY must be at least 1")
	}
	if c.Batch.RetryCount < 0 {
		errors = append(errors, "BATCH_RETRY_COUNT cannot be negative")
	}
	if c.Batch.RetryBaseDelay < 0 {
		errors = append(errors, "BATCH_RETRY_BASE_DELAY cannot be negative")
	}
	if c.Batch.InterBatchDelay < 0 {
		errors = append(errors, "BATCH_INTER_DELAY cannot be negative")
	}
	if c.Batch.PauseMode != PauseModeWindow && c.Batch.PauseMode != PauseModePaced {
		errors = append(errors, fmt.Sprintf("BATCH_PAUSE_MODE must be %q or %q", PauseModeWindow, PauseModePaced))
	}
	if strings.TrimSpace(c.Batch.DownloadDir) == "" {
		errors = append(errors, "DOWNLOAD_DIR is required")
	}

	// HTTP
	if c.HTTP.Timeout <= 0 {
		errors = append(errors, "HTTP_TIMEOUT must be positive")
	}
	if c.HTTP.MaxRedirects < 0 {
		errors = append(errors, "HTTP_MAX_REDIRECTS cannot be negative")
	}

	// Fetch
	if !strings.HasPrefix(c.Fetch.Extension, ".") || len(c.Fetch.Extension) < 2 {
		errors = append(errors, "FETCH_EXTENSION must look like .pdf")
	}
	if c.Fetch.Signature == "" {
		errors = append(errors, "FETCH_SIGNATURE is required")
	}

	// Mirror
	switch c.Mirror.Adapter {
	case MirrorNone:
	case MirrorFilesystem, MirrorS3:
		if c.Mirror.BucketOrPath == "" {
			errors = append(errors, fmt.Sprintf("MIRROR_BUCKET_OR_PATH is required for the %s mirror", c.Mirror.Adapter))
		}
		if c.Mirror.Adapter == MirrorS3 && c.AWS.Region == "" {
			errors = append(errors, "AWS_REGION is required for the s3 mirror")
		}
	default:
		errors = append(errors, "MIRROR_ADAPTER must be none, filesystem or s3")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
