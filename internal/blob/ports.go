// Package blob defines the key-value facility the transaction store
// persists its serialized collection into.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no blob is stored under the key.
var ErrNotFound = errors.New("blob not found")

// Store is a synchronously consistent key-value store of opaque blobs:
// a Get after a Put on the same instance returns the latest write.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}
