// Package kvstore provides the small string key-value persistence contract
// the storefront client keeps its cart and session in, with memory, file,
// Redis and SQL backends.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("kvstore: key not found")

// ErrCorrupt is returned when the backing document exists but cannot be
// decoded. Callers may overwrite it.
var ErrCorrupt = errors.New("kvstore: corrupt document")

// Store persists whole string values under string keys. Writes overwrite the
// previous value atomically; there is no cross-process coordination.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Closer is implemented by backends that hold external resources.
type Closer interface {
	Close() error
}
