// Package mocks provides a testify mock of types.ObjectStorage.
package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"reportfetch/internal/storage/types"
)

// MockObjectStorage is a mock implementation of types.ObjectStorage.
// Put drains the reader into Received and records (ctx, key, metadata)
// for expectations.
type MockObjectStorage struct {
	mock.Mock

	mu       sync.Mutex
	Received map[string][]byte
}

// Put mocks the Put method
func (m *MockObjectStorage) Put(ctx context.Context, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	data, _ := io.ReadAll(reader)
	m.mu.Lock()
	if m.Received == nil {
		m.Received = map[string][]byte{}
	}
	m.Received[key] = data
	m.mu.Unlock()

	args := m.Called(ctx, key, metadata)
	return args.Error(0)
}

// Exists mocks the Exists method
func (m *MockObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// Location mocks the Location method
func (m *MockObjectStorage) Location() string {
	args := m.Called()
	return args.String(0)
}
