// Package advice turns a financial summary and recent transactions into a
// short piece of generated advice. It never returns an error to callers:
// every failure is folded into a user-facing message.
package advice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"finance/internal/cache"
	"finance/internal/core"
	applog "finance/internal/log"
)

const (
	MissingKeyMessage = "Please configure your API Key to receive AI insights."
	ErrorMessage      = "Sorry, I encountered an error while analyzing your finances."
	EmptyMessage      = "Could not generate advice at this time."

	// RecentLimit caps how many transactions go into a prompt.
	RecentLimit = 10
)

// ErrInFlight is returned by Guard when a request is already outstanding.
var ErrInFlight = errors.New("advice request already in flight")

// Generator produces text for a prompt. A Gemini client is the production
// implementation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Requester struct {
	gen    Generator
	cache  cache.Cache[string]
	logger *applog.Logger
}

type Option func(*Requester)

// WithCache remembers replies per prompt so unchanged data does not hit the
// generator again.
func WithCache(c cache.Cache[string]) Option {
	return func(r *Requester) { r.cache = c }
}

// NewRequester builds a Requester. A nil generator means no API key was
// configured.
func NewRequester(gen Generator, logger *applog.Logger, opts ...Option) *Requester {
	if logger == nil {
		logger = applog.Discard()
	}
	r := &Requester{gen: gen, logger: logger.WithComponent(applog.ComponentAdvice)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Configured reports whether a generator is present.
func (r *Requester) Configured() bool {
	return r.gen != nil
}

// RequestAdvice returns advice text, or one of the fixed messages when no
// generator is configured, the call fails or the reply is empty.
func (r *Requester) RequestAdvice(ctx context.Context, summary core.FinancialSummary, txs []core.Transaction) string {
	if r.gen == nil {
		return MissingKeyMessage
	}

	prompt := BuildPrompt(summary, txs)
	key := promptKey(prompt)
	if r.cache != nil {
		if text, ok := r.cache.Get(key); ok {
			r.logger.DebugContext(ctx, "Advice served from cache")
			return text
		}
	}

	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error fetching financial advice",
			applog.FieldOperation, applog.OpAdvise,
			applog.FieldError, err)
		return ErrorMessage
	}
	if text == "" {
		return EmptyMessage
	}
	if r.cache != nil {
		r.cache.Set(key, text)
	}
	return text
}

// BuildPrompt renders the advisor prompt. Only the first RecentLimit
// transactions are included, in the order given.
func BuildPrompt(summary core.FinancialSummary, txs []core.Transaction) string {
	if len(txs) > RecentLimit {
		txs = txs[:RecentLimit]
	}
	history := make([]string, 0, len(txs))
	for _, tx := range txs {
		history = append(history, fmt.Sprintf("- %s: %s $%s (%s)",
			core.FormatISO(tx.Date),
			strings.ToUpper(tx.Type.String()),
			tx.Amount.String(),
			tx.Description))
	}

	var b strings.Builder
	b.WriteString("You are a helpful financial advisor. Analyze the following monthly financial summary and recent transactions.\n\n")
	b.WriteString("Summary:\n")
	fmt.Fprintf(&b, "- Total Income: $%s\n", summary.TotalIncome.StringFixed(2))
	fmt.Fprintf(&b, "- Total Expenses: $%s\n", summary.TotalExpenses.StringFixed(2))
	fmt.Fprintf(&b, "- Net Savings: $%s\n\n", summary.Savings.StringFixed(2))
	fmt.Fprintf(&b, "Recent Transactions (Last %d):\n", RecentLimit)
	b.WriteString(strings.Join(history, "\n"))
	b.WriteString("\n\nProvide 3 short, actionable, and encouraging bullet points of advice to improve savings or manage expenses better. Keep it under 100 words total.")
	return b.String()
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Unavailable returns a Generator that fails every call with err. It stands
// in for a client that could not be built, so callers see ErrorMessage
// rather than the missing key hint.
func Unavailable(err error) Generator {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) Generate(context.Context, string) (string, error) {
	return "", u.err
}

// Guard allows one advice request at a time. Acquire never blocks.
type Guard struct {
	sem  *semaphore.Weighted
	held atomic.Bool
}

func NewGuard() *Guard {
	return &Guard{sem: semaphore.NewWeighted(1)}
}

// Acquire returns a release func, or ErrInFlight if the guard is held.
// Calling release more than once is harmless.
func (g *Guard) Acquire() (func(), error) {
	if !g.sem.TryAcquire(1) {
		return nil, ErrInFlight
	}
	g.held.Store(true)
	var once sync.Once
	return func() {
		once.Do(func() {
			g.held.Store(false)
			g.sem.Release(1)
		})
	}, nil
}

// InFlight reports whether a request holds the guard. It never takes the
// slot itself.
func (g *Guard) InFlight() bool {
	return g.held.Load()
}
