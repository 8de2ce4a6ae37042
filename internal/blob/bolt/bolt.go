// Package bolt stores blobs in a single-file BoltDB database through skv.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"finance/internal/blob"

	"github.com/rapidloop/skv"
)

var _ blob.Store = (*Store)(nil)

type Store struct {
	kv *skv.KVStore
}

// Open creates the parent directory if needed and opens the database file.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}
	kv, err := skv.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	return &Store{kv: kv}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.kv.Get(key, &data)
	if errors.Is(err, skv.ErrNotFound) {
		return nil, blob.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("bolt get %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) Put(_ context.Context, key string, data []byte) error {
	if err := s.kv.Put(key, data); err != nil {
		return fmt.Errorf("bolt put %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.kv.Close()
}
