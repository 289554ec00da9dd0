// Package types holds the object storage contract shared by the mirror and
// its adapters.
package types

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when an object is not found in storage
var ErrObjectNotFound = errors.New("object not found")

// ObjectMetadata describes an object being stored.
type ObjectMetadata struct {
	ContentType   string
	ContentLength int64
	UserMetadata  map[string]string
}

// ObjectStorage is the write side of an object store (S3, a local archive).
type ObjectStorage interface {
	// Put stores the content of reader under key.
	Put(ctx context.Context, key string, reader io.Reader, metadata ObjectMetadata) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Location describes where objects go, for logs ("s3://bucket", a path).
	Location() string
}
