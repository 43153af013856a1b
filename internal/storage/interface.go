// Package storage provides payload storage for content slots.
//
// # Interface Design
//
// [PayloadStore] keeps opaque payload bytes under generated IDs. Payloads
// are written from an io.Reader and read back as a stream, so a backend
// that supports it (GridFS) never holds a whole payload in memory.
//
// [Slot] adapts a PayloadStore to content.Slot: loading a part stores a
// new payload, retrieving it opens the stored payload.
//
// # Implementations
//
//   - [MemoryStore]: in-process map, used by tests and the CLI default
//   - mongodb sub-package: GridFS bucket
//   - redisstore sub-package: Redis keys with optional TTL
//
// # Concurrency
//
// All store implementations must be safe for concurrent use from multiple
// goroutines.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound indicates that no payload exists for an ID
	ErrNotFound = errors.New("payload not found")
)

// PayloadStore stores binary payloads
type PayloadStore interface {
	// StorePayload stores the content of r and returns its ID. The name is
	// kept as metadata where the backend supports it.
	StorePayload(ctx context.Context, name string, r io.Reader) (string, error)

	// OpenPayload opens a stored payload. The caller closes the stream.
	OpenPayload(ctx context.Context, id string) (io.ReadCloser, error)

	// DeletePayload deletes a payload
	DeletePayload(ctx context.Context, id string) error

	// Close releases storage resources
	Close(ctx context.Context) error
}
