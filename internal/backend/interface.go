package backend

import (
	"context"

	"finance/internal/blob"
)

// CleanupFunc releases whatever the backend opened.
type CleanupFunc func() error

// BackendResult pairs the blob store with its cleanup.
type BackendResult struct {
	Store   blob.Store
	Type    BackendType
	Cleanup CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates blob stores based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	BoltDBPath string
}

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RedisBackend  BackendType = "redis"
	BoltBackend   BackendType = "bolt"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend, BoltBackend:
		return true
	default:
		return false
	}
}
