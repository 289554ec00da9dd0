// Package storage copies successfully downloaded files to a secondary object
// store. The local file stays the primary artifact; mirror failures surface
// as warnings on the outcome.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"reportfetch/internal/config"
	"reportfetch/internal/domain/model"
	obstypes "reportfetch/internal/observability/types"
	"reportfetch/internal/storage/adapters/filesystem"
	"reportfetch/internal/storage/adapters/s3"
	"reportfetch/internal/storage/types"
)

const opMirror = "mirror"

// Mirror uploads completed downloads under a key prefix.
type Mirror struct {
	store   types.ObjectStorage
	prefix  string
	logger  obstypes.Logger
	metrics obstypes.Metrics
}

// NewMirror wraps store.
func NewMirror(store types.ObjectStorage, prefix string, logger obstypes.Logger, metrics obstypes.Metrics) *Mirror {
	return &Mirror{store: store, prefix: prefix, logger: logger, metrics: metrics}
}

// FromConfig builds the configured mirror. It returns nil, nil when
// mirroring is disabled.
func FromConfig(ctx context.Context, cfg *config.Config, logger obstypes.Logger, metrics obstypes.Metrics) (*Mirror, error) {
	var store types.ObjectStorage
	switch cfg.Mirror.Adapter {
	case config.MirrorNone, "":
		return nil, nil
	case config.MirrorFilesystem:
		a, err := filesystem.New(cfg.Mirror.BucketOrPath, logger)
		if err != nil {
			return nil, ErrMirrorInit(err)
		}
		store = a
	case config.MirrorS3:
		c, err := s3.NewClient(ctx, cfg, logger, metrics)
		if err != nil {
			return nil, ErrMirrorInit(err)
		}
		store = c
	default:
		return nil, ErrMirrorInit(fmt.Errorf("unsupported mirror adapter %q", cfg.Mirror.Adapter))
	}

	logger.Info(ctx, "Mirror enabled", obstypes.Fields{
		"adapter":  cfg.Mirror.Adapter,
		"location": store.Location(),
		"prefix":   cfg.Mirror.Prefix,
	})
	return NewMirror(store, cfg.Mirror.Prefix, logger, metrics), nil
}

// Key is the object key for a resolved file name.
func (m *Mirror) Key(resolvedName string) string {
	if m.prefix == "" {
		return resolvedName
	}
	return path.Join(m.prefix, resolvedName)
}

// Upload stores the file of s and returns its key.
func (m *Mirror) Upload(ctx context.Context, s *model.Success) (string, error) {
	start := time.Now()
	m.metrics.StartOperation(opMirror)
	defer m.metrics.EndOperation(opMirror)

	key := m.Key(s.ResolvedName)

	f, err := os.Open(s.LocalPath)
	if err != nil {
		m.metrics.RecordError(opMirror, "open")
		return "", ErrMirrorUpload(key, err)
	}
	defer f.Close()

	meta := types.ObjectMetadata{
		ContentType:   s.ContentType,
		ContentLength: s.Bytes,
		UserMetadata: map[string]string{
			"source-url": s.SourceURL,
			"valid":      fmt.Sprint(s.Valid),
		},
	}
	if err := m.store.Put(ctx, key, f, meta); err != nil {
		m.metrics.RecordError(opMirror, "put")
		return "", ErrMirrorUpload(key, err)
	}

	m.metrics.RecordSuccess(opMirror)
	m.metrics.RecordDuration(opMirror, time.Since(start).Seconds())
	m.logger.Info(ctx, "File mirrored", obstypes.Fields{
		"key":      key,
		"location": m.store.Location(),
		"bytes":    s.Bytes,
	})
	return key, nil
}

// ErrMirrorInit wraps adapter construction failures.
func ErrMirrorInit(err error) error {
	return fmt.Errorf("failed to initialize mirror: %w", err)
}

// ErrMirrorUpload wraps upload failures.
func ErrMirrorUpload(key string, err error) error {
	return fmt.Errorf("failed to mirror %s: %w", key, err)
}
