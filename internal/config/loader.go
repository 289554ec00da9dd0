package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads .env files from dir in order of precedence:
// .env, .env.<ENVIRONMENT>, .env.local. Missing files are skipped.
// Variables already present in the process environment win over .env; the
// environment-specific and local files override both.
func loadEnvFiles(dir string) error {
	base := filepath.Join(dir, ".env")
	if _, err := os.Stat(base); err == nil {
		if err := godotenv.Load(base); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env != "" {
		envFile := filepath.Join(dir, ".env."+env)
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				return fmt.Errorf("failed to load .env.%s: %w", env, err)
			}
		}
	}

	local := filepath.Join(dir, ".env.local")
	if _, err := os.Stat(local); err == nil {
		if err := godotenv.Overload(local); err != nil {
			return fmt.Errorf("failed to load .env.local: %w", err)
		}
	}

	return nil
}

// FromEnv builds a Config from the current process environment on top of
// DefaultConfig. It does not read .env files and does not validate.
func FromEnv() (*Config, error) {
	d := DefaultConfig()
	var errs []string

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", d.Environment),
		ServiceName: getEnv("SERVICE_NAME", d.ServiceName),
		Version:     getEnv("SERVICE_VERSION", d.Version),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", d.LogLevel)),
		MetricsAddr: getEnv("METRICS_ADDR", ""),

		Batch: BatchConfig{
			Concurrency:     getInt("BATCH_CONCURRENCY", d.Batch.Concurrency, &errs),
			RetryCount:      getInt("BATCH_RETRY_COUNT", d.Batch.RetryCount, &errs),
			RetryBaseDelay:  getDuration("BATCH_RETRY_BASE_DELAY", d.Batch.RetryBaseDelay, &errs),
			InterBatchDelay: getDuration("BATCH_INTER_DELAY", d.Batch.InterBatchDelay, &errs),
			PauseMode:       strings.ToLower(getEnv("BATCH_PAUSE_MODE", d.Batch.PauseMode)),
			DownloadDir:     getEnv("DOWNLOAD_DIR", d.Batch.DownloadDir),
			SkipPermanent:   getBool("RETRY_SKIP_PERMANENT", d.Batch.SkipPermanent, &errs),
		},

		HTTP: HTTPConfig{
			Timeout:        getDuration("HTTP_TIMEOUT", d.HTTP.Timeout, &errs),
			UserAgent:      getEnv("HTTP_USER_AGENT", d.HTTP.UserAgent),
			Accept:         getEnv("HTTP_ACCEPT", d.HTTP.Accept),
			AcceptLanguage: getEnv("HTTP_ACCEPT_LANGUAGE", d.HTTP.AcceptLanguage),
			MaxRedirects:   getInt("HTTP_MAX_REDIRECTS", d.HTTP.MaxRedirects, &errs),
		},

		Fetch: FetchConfig{
			Extension:    strings.ToLower(getEnv("FETCH_EXTENSION", d.Fetch.Extension)),
			Signature:    getEnv("FETCH_SIGNATURE", d.Fetch.Signature),
			ContentTypes: getList("FETCH_CONTENT_TYPES", d.Fetch.ContentTypes),
			UniqueNames:  getBool("FETCH_UNIQUE_NAMES", d.Fetch.UniqueNames, &errs),
		},

		Mirror: MirrorConfig{
			Adapter:      strings.ToLower(getEnv("MIRROR_ADAPTER", d.Mirror.Adapter)),
			BucketOrPath: getEnv("MIRROR_BUCKET_OR_PATH", ""),
			Prefix:       getEnv("MIRROR_PREFIX", d.Mirror.Prefix),
		},

		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}
