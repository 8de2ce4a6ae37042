package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"finance/internal/blob"
	applog "finance/internal/log"

	_ "modernc.org/sqlite"
)

var _ blob.Store = (*SQLiteRepository)(nil)

// SQLiteRepository keeps blobs in a single table keyed by name. Each Put
// bumps the row version so readers can tell writes apart.
type SQLiteRepository struct {
	db     *sql.DB
	logger *applog.Logger
}

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger.WithComponent(applog.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get implements blob.Store
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, blob.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", key, err)
	}
	return data, nil
}

// Put implements blob.Store
func (r *SQLiteRepository) Put(ctx context.Context, key string, data []byte) error {
	var version int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO blobs (key, data) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			version = blobs.version + 1,
			updated_at = CURRENT_TIMESTAMP
		RETURNING version`, key, data).Scan(&version)
	if err != nil {
		return fmt.Errorf("put blob %s: %w", key, err)
	}

	r.logger.DebugContext(ctx, "Blob saved to SQLite",
		applog.FieldBlobKey, key, "size", len(data), "version", version)
	return nil
}
