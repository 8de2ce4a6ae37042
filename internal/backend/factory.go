// Package backend builds the blob store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"finance/internal/blob/bolt"
	"finance/internal/blob/memory"
	"finance/internal/blob/redis"
	applog "finance/internal/log"
	"finance/internal/storage"
)

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case RedisBackend:
		return f.createRedisBackend(ctx, config)
	case BoltBackend:
		return f.createBoltBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{Store: repo, Type: SQLiteBackend, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createRedisBackend(ctx context.Context, config Config) (*BackendResult, error) {
	st, err := redis.New(ctx, redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
		Prefix:   config.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis store: %w", err)
	}

	f.logger.Info("Initialized Redis backend", "addr", config.RedisAddr, "db", config.RedisDB)

	return &BackendResult{Store: st, Type: RedisBackend, Cleanup: st.Close}, nil
}

func (f *DefaultFactory) createBoltBackend(config Config) (*BackendResult, error) {
	st, err := bolt.Open(config.BoltDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Bolt store: %w", err)
	}

	f.logger.Info("Initialized Bolt backend", "db_path", config.BoltDBPath)

	return &BackendResult{Store: st, Type: BoltBackend, Cleanup: st.Close}, nil
}

// The memory backend lives and dies with the process.
func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	f.logger.Warn("Initialized memory backend, transactions will not survive a restart")
	return &BackendResult{Store: memory.New(), Type: MemoryBackend}, nil
}
