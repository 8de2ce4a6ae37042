package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finance/internal/advice"
	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/csvexport"
	applog "finance/internal/log"
	"finance/internal/store"
)

var (
	// ErrEmpty is returned when advice is requested with no transactions.
	ErrEmpty    = errors.New("no transactions to analyze")
	ErrNotFound = errors.New("transaction not found")
)

// EventPublisher announces collection mutations. *amqp.Client implements it.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, evt *amqp.TransactionEvent) error
}

// NewTransaction is the validated input for AddTransaction.
type NewTransaction struct {
	Type        core.TransactionType
	Amount      decimal.Decimal
	Description string
	Date        core.CalendarDate
}

func (n NewTransaction) Validate() error {
	if !n.Type.Valid() {
		return core.ErrInvalidType
	}
	if !n.Amount.IsPositive() {
		return core.ErrInvalidAmount
	}
	if strings.TrimSpace(n.Description) == "" {
		return core.ErrEmptyDescription
	}
	if n.Date.IsZero() {
		return core.ErrInvalidDate
	}
	return nil
}

// FinanceService sits between the transports and the store. Besides the
// collection it holds the current advice text and the single advice slot.
type FinanceService struct {
	store     *store.Store
	requester *advice.Requester
	guard     *advice.Guard
	publisher EventPublisher
	logger    *applog.Logger
	sl        *applog.StructuredLogger

	// mu also covers store mutations, so a mutation and its generation bump
	// are seen together.
	mu sync.Mutex
	// generation counts mutations so an advice reply computed over an older
	// collection is not kept as current.
	generation uint64
	advice     string
	hasAdvice  bool
}

type Option func(*FinanceService)

// WithPublisher enables mutation events. A nil publisher is ignored.
func WithPublisher(p EventPublisher) Option {
	return func(s *FinanceService) {
		if p != nil {
			s.publisher = p
		}
	}
}

func NewFinanceService(st *store.Store, requester *advice.Requester, logger *applog.Logger, opts ...Option) *FinanceService {
	if logger == nil {
		logger = applog.Discard()
	}
	if requester == nil {
		requester = advice.NewRequester(nil, logger)
	}
	s := &FinanceService{
		store:     st,
		requester: requester,
		guard:     advice.NewGuard(),
		logger:    logger.WithComponent(applog.ComponentApp),
	}
	s.sl = applog.NewStructuredLogger(s.logger)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddTransaction validates, stores and announces a new transaction.
func (s *FinanceService) AddTransaction(ctx context.Context, in NewTransaction) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	tx, ok := s.store.Add(ctx, in.Type, in.Amount, in.Description, in.Date)
	if ok {
		s.invalidateAdviceLocked()
	}
	s.mu.Unlock()
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction rejected")
	}

	s.publish(ctx, amqp.ActionAdded, tx.ID)
	return tx, nil
}

// DeleteTransaction removes a transaction by id.
func (s *FinanceService) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	ok := s.store.Delete(ctx, id)
	if ok {
		s.invalidateAdviceLocked()
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	s.publish(ctx, amqp.ActionDeleted, id)
	return nil
}

func (s *FinanceService) Transactions() []core.Transaction {
	return s.store.All()
}

func (s *FinanceService) Summary() core.FinancialSummary {
	return s.store.Summary()
}

func (s *FinanceService) Distribution() core.Distribution {
	return core.Distribute(s.store.Summary())
}

// RequestAdvice asks for advice over the current collection. Only one
// request runs at a time; a concurrent call gets advice.ErrInFlight.
func (s *FinanceService) RequestAdvice(ctx context.Context) (string, error) {
	// The generation and the collection are read together so that any
	// mutation the prompt does not see also marks the reply stale.
	s.mu.Lock()
	gen := s.generation
	txs := s.store.All()
	s.mu.Unlock()
	if len(txs) == 0 {
		return "", ErrEmpty
	}

	release, err := s.guard.Acquire()
	if err != nil {
		return "", err
	}
	defer release()

	start := time.Now()
	text := s.requester.RequestAdvice(ctx, core.Summarize(txs), txs)

	s.mu.Lock()
	current := gen == s.generation
	if current {
		s.advice, s.hasAdvice = text, true
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Advice requested",
		applog.FieldOperation, applog.OpAdvise,
		applog.FieldCount, len(txs),
		applog.FieldDuration, time.Since(start).Milliseconds(),
		"stale", !current)
	return text, nil
}

// AdviceInFlight reports whether a request currently holds the advice slot.
func (s *FinanceService) AdviceInFlight() bool {
	return s.guard.InFlight()
}

// CurrentAdvice returns the last advice text kept for the current collection.
func (s *FinanceService) CurrentAdvice() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advice, s.hasAdvice
}

func (s *FinanceService) DismissAdvice() {
	s.mu.Lock()
	s.advice, s.hasAdvice = "", false
	s.mu.Unlock()
}

// AdviceConfigured reports whether a generator is wired in.
func (s *FinanceService) AdviceConfigured() bool {
	return s.requester.Configured()
}

// Export renders the collection as CSV. ok is false when there is nothing
// to export.
func (s *FinanceService) Export(now time.Time) (filename string, data []byte, ok bool) {
	data, ok = csvexport.Export(s.store.All())
	if !ok {
		return "", nil, false
	}
	return csvexport.Filename(now), data, true
}

// invalidateAdviceLocked must run in the same critical section as the
// store mutation it follows.
func (s *FinanceService) invalidateAdviceLocked() {
	s.generation++
	s.advice, s.hasAdvice = "", false
}

func (s *FinanceService) publish(ctx context.Context, action amqp.Action, id string) {
	if s.publisher == nil {
		return
	}
	evt := amqp.NewTransactionEvent(action, id, s.store.Len())
	if err := s.publisher.PublishTransactionEvent(ctx, evt); err != nil {
		s.sl.LogError(ctx, "Failed to publish transaction event", err, applog.ComponentAMQP, applog.OpPublish,
			applog.LogFields{applog.FieldTransactionID: id})
	}
}

// Close closes the publisher when it holds a connection.
func (s *FinanceService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
