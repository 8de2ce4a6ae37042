// Package http exposes the finance service as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/middleware/security"
	"finance/internal/services"
)

// Finance is the part of the finance service the handlers use.
type Finance interface {
	AddTransaction(ctx context.Context, in services.NewTransaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	Transactions() []core.Transaction
	Summary() core.FinancialSummary
	RequestAdvice(ctx context.Context) (string, error)
	CurrentAdvice() (string, bool)
	DismissAdvice()
	AdviceInFlight() bool
	AdviceConfigured() bool
	Export(now time.Time) (string, []byte, bool)
}

var _ Finance = (*services.FinanceService)(nil)

type Server struct {
	http.Server
	finance Finance
	logger  *applog.Logger
	sl      *applog.StructuredLogger
	limiter *ratelimit.Limiter
	now     func() time.Time

	// readiness probe, nil means always ready
	ready func(context.Context) error

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithReadiness sets the check behind /readyz.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// WithRateLimit overrides the limit applied to mutating requests.
func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		s.limiter = ratelimit.NewLimiter(cfg)
	}
}

// WithClock replaces the time source used for default dates and export
// file names.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, finance Finance, logger *applog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = applog.Discard()
	}
	s := &Server{
		finance: finance,
		logger:  logger.WithComponent(applog.ComponentHTTP),
		now:     time.Now,
	}
	s.sl = applog.NewStructuredLogger(s.logger)
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/export.csv", s.handleExport)
	mux.HandleFunc("GET /api/advice", s.handleGetAdvice)
	mux.HandleFunc("POST /api/advice", s.handleRequestAdvice)
	mux.HandleFunc("DELETE /api/advice", s.handleDismissAdvice)

	var h http.Handler = mux
	h = s.limitMutations(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = s.accessLog(h)
	h = applog.RequestIDMiddleware(requestIDFrom)(h)
	h = applog.Middleware(s.logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the limiter sweep and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.logger.InfoContext(ctx, "Rate limiter stopped",
			applog.FieldOperation, applog.OpShutdown,
			"active_clients", s.limiter.ActiveClients(),
			"rejected", s.limiter.Hits())
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// limitMutations rate limits POST and DELETE per client IP. Reads are free.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(security.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, security.ClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := security.ClientIP(r)
		s.sl.LogHTTPStart(r.Context(), r, clientIP)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.sl.LogHTTPEnd(r.Context(), r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
