// Package filesystem implements types.ObjectStorage as a directory tree.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	obstypes "reportfetch/internal/observability/types"
	"reportfetch/internal/storage/types"
)

// Archive stores each object at root/<key>.
type Archive struct {
	root   string
	logger obstypes.Logger
}

// New creates the root directory if needed.
func New(root string, logger obstypes.Logger) (*Archive, error) {
	if root == "" {
		return nil, fmt.Errorf("archive root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive root: %w", err)
	}
	return &Archive{root: root, logger: logger}, nil
}

// Location returns the root directory.
func (a *Archive) Location() string {
	return a.root
}

// Put writes reader to root/key through a temp file and rename, so readers
// never see a partial object.
func (a *Archive) Put(ctx context.Context, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	path, err := a.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp object: %w", err)
	}
	n, copyErr := io.Copy(tmp, reader)
	closeErr := tmp.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write object: %w", copyErr)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit object: %w", err)
	}

	a.logger.Debug(ctx, "object archived", obstypes.Fields{"key": key, "path": path, "size": n})
	return nil
}

// Exists reports whether root/key is a regular file.
func (a *Archive) Exists(ctx context.Context, key string) (bool, error) {
	path, err := a.resolve(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// resolve maps key under root and rejects keys escaping it.
func (a *Archive) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(key, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(a.root, clean), nil
}
