// Package store owns the ordered transaction collection and keeps the blob
// store in step with it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"finance/internal/blob"
	"finance/internal/core"
	applog "finance/internal/log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultKey is the blob key the collection is saved under.
const DefaultKey = "transactions"

// Store is the transaction collection, always ordered by date descending.
// Every successful Add or Delete rewrites the whole collection to the blob
// store.
type Store struct {
	mu     sync.RWMutex
	items  []core.Transaction
	blobs  blob.Store
	key    string
	logger *applog.Logger
	sl     *applog.StructuredLogger
	newID  func() string
}

type Option func(*Store)

// WithKey overrides the blob key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithIDGenerator replaces the UUID generator, for deterministic tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New loads the saved collection. An absent, unreadable or unparsable blob
// yields an empty store; the failure is logged, never returned.
func New(ctx context.Context, blobs blob.Store, logger *applog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	s := &Store{
		blobs:  blobs,
		key:    DefaultKey,
		logger: logger.WithComponent(applog.ComponentStore),
		newID:  uuid.NewString,
	}
	s.sl = applog.NewStructuredLogger(s.logger)
	for _, opt := range opts {
		opt(s)
	}
	s.items = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []core.Transaction {
	items, err := Read(ctx, s.blobs, s.key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load saved transactions, starting empty",
			applog.FieldBlobKey, s.key, applog.FieldError, err)
		return nil
	}

	s.logger.InfoContext(ctx, "Loaded transactions", applog.FieldCount, len(items), applog.FieldBlobKey, s.key)
	return items
}

// Read decodes the collection saved under key, newest first. It returns
// blob.ErrNotFound when nothing was saved yet.
func Read(ctx context.Context, blobs blob.Store, key string) ([]core.Transaction, error) {
	data, err := blobs.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var items []core.Transaction
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	sortDescending(items)
	return items, nil
}

// Add records a new transaction. Blank description, non-positive amount,
// unknown type or a zero date make it a no-op that returns false.
func (s *Store) Add(ctx context.Context, typ core.TransactionType, amount decimal.Decimal, description string, date core.CalendarDate) (core.Transaction, bool) {
	if !typ.Valid() || !amount.IsPositive() || strings.TrimSpace(description) == "" || date.IsZero() {
		return core.Transaction{}, false
	}

	tx := core.Transaction{
		ID:          s.newID(),
		Type:        typ,
		Amount:      amount,
		Description: description,
		Date:        date.Instant(),
	}

	s.mu.Lock()
	s.items = append([]core.Transaction{tx}, s.items...)
	sortDescending(s.items)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.sl.LogTransactionAdded(ctx, tx.ID, tx.Type.String(), core.FormatAmount(tx.Amount), core.CalendarDateString(tx.Date))
	return tx, true
}

// Delete removes the transaction with the given id. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	idx := -1
	for i, tx := range s.items {
		if tx.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.logger.InfoContext(ctx, "Transaction deleted", applog.FieldTransactionID, id)
	return true
}

// All returns a copy of the collection, newest first.
func (s *Store) All() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Summary recomputes totals from the current collection.
func (s *Store) Summary() core.FinancialSummary {
	return core.Summarize(s.All())
}

func (s *Store) snapshotLocked() []core.Transaction {
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out
}

// persist writes the full collection. Failures are logged; the in-memory
// mutation stands.
func (s *Store) persist(ctx context.Context, items []core.Transaction) {
	if items == nil {
		items = []core.Transaction{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		s.sl.LogError(ctx, "Failed to encode transactions", err, applog.ComponentStore, applog.OpPersist, nil)
		return
	}
	if err := s.blobs.Put(ctx, s.key, data); err != nil {
		s.sl.LogError(ctx, "Failed to save transactions", err, applog.ComponentStore, applog.OpPersist,
			applog.LogFields{applog.FieldBlobKey: s.key})
	}
}

func sortDescending(items []core.Transaction) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
}
