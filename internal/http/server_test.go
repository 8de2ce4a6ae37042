package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/advice"
	"finance/internal/blob/memory"
	applog "finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/services"
	"finance/internal/store"
)

var fixedNow = time.Date(2024, 3, 5, 22, 30, 0, 0, time.UTC)

type stubGenerator struct {
	reply string
	err   error
}

func (g stubGenerator) Generate(context.Context, string) (string, error) {
	return g.reply, g.err
}

func newTestServer(t *testing.T, gen advice.Generator, opts ...Option) *Server {
	t.Helper()
	n := 0
	st := store.New(context.Background(), memory.New(), nil, store.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("tx-%d", n)
	}))
	svc := services.NewFinanceService(st, advice.NewRequester(gen, nil), nil)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	srv := NewServer(":0", svc, nil, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())
}

func TestReadyReportsFailingCheck(t *testing.T) {
	srv := newTestServer(t, nil, WithReadiness(func(context.Context) error {
		return errors.New("store unreachable")
	}))

	rec := do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateListDelete(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","amount":"12,50","description":"  Lunch ","date":"2024-03-02"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/transactions/tx-1", rec.Header().Get("Location"))

	created := decode[map[string]any](t, rec)
	assert.Equal(t, "tx-1", created["id"])
	assert.Equal(t, "expense", created["type"])
	assert.Equal(t, 12.5, created["amount"])
	assert.Equal(t, "Lunch", created["description"])
	assert.Equal(t, "2024-03-02T12:00:00.000Z", created["date"])

	rec = do(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"INCOME","amount":2000,"description":"Salary","date":"2024-03-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "tx-1", list[0]["id"], "newest first")
	assert.Equal(t, "tx-2", list[1]["id"])

	rec = do(t, srv, http.MethodDelete, "/api/transactions/tx-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/transactions/tx-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/transactions", "")
	assert.Len(t, decode[[]map[string]any](t, rec), 1)
}

func TestCreateDefaultsDateToToday(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"income","amount":"10","description":"Gift"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-03-05T12:00:00.000Z", decode[map[string]any](t, rec)["date"])
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"malformed json", `{"type":`, http.StatusBadRequest, "invalid request body"},
		{"unknown field", `{"type":"income","amount":"1","description":"x","extra":1}`, http.StatusBadRequest, "invalid request body"},
		{"bad type", `{"type":"transfer","amount":"1","description":"x"}`, http.StatusUnprocessableEntity, "type must be income or expense"},
		{"zero amount", `{"type":"income","amount":"0","description":"x"}`, http.StatusUnprocessableEntity, "amount must be a positive number"},
		{"negative amount", `{"type":"income","amount":-3,"description":"x"}`, http.StatusUnprocessableEntity, "amount must be a positive number"},
		{"missing amount", `{"type":"income","description":"x"}`, http.StatusUnprocessableEntity, "amount must be a positive number"},
		{"blank description", `{"type":"income","amount":"1","description":"   "}`, http.StatusUnprocessableEntity, "description is required"},
		{"bad date", `{"type":"income","amount":"1","description":"x","date":"2023-02-29"}`, http.StatusUnprocessableEntity, "date must be YYYY-MM-DD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil)
			rec := do(t, srv, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decode[errorResponse](t, rec).Error)

			rec = do(t, srv, http.MethodGet, "/api/transactions", "")
			assert.Equal(t, "[]\n", rec.Body.String())
		})
	}
}

func TestSummary(t *testing.T) {
	srv := newTestServer(t, nil)
	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"income","amount":"1000","description":"Salary","date":"2024-03-01"}`)
	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"expense","amount":"250.5","description":"Rent","date":"2024-03-02"}`)

	rec := do(t, srv, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[summaryResponse](t, rec)
	assert.Equal(t, "1000.00", got.TotalIncome)
	assert.Equal(t, "250.50", got.TotalExpenses)
	assert.Equal(t, "749.50", got.Savings)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "25.1", got.Distribution.ExpenseShare)
	assert.Equal(t, "75.0", got.Distribution.SavingsShare)
}

func TestSummaryClampsNegativeSavingsInDistribution(t *testing.T) {
	srv := newTestServer(t, nil)
	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"expense","amount":"40","description":"Books","date":"2024-03-01"}`)

	got := decode[summaryResponse](t, do(t, srv, http.MethodGet, "/api/summary", ""))
	assert.Equal(t, "-40.00", got.Savings)
	assert.Equal(t, "0.00", got.Distribution.Savings)
	assert.Equal(t, "0.0", got.Distribution.ExpenseShare)
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/export.csv", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"expense","amount":"3.5","description":"Coffee \"large\"","date":"2024-03-02"}`)

	rec = do(t, srv, http.MethodGet, "/api/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="transactions_2024-03-05.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Date,Type,Description,Amount\n2024-03-02,expense,\"Coffee \"\"large\"\"\",3.50", rec.Body.String())
}

func TestAdviceFlow(t *testing.T) {
	srv := newTestServer(t, stubGenerator{reply: "Spend less on coffee."})

	rec := do(t, srv, http.MethodPost, "/api/advice", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"expense","amount":"3.5","description":"Coffee","date":"2024-03-02"}`)

	rec = do(t, srv, http.MethodPost, "/api/advice", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[adviceResponse](t, rec)
	require.NotNil(t, got.Advice)
	assert.Equal(t, "Spend less on coffee.", *got.Advice)
	assert.True(t, got.Configured)

	got = decode[adviceResponse](t, do(t, srv, http.MethodGet, "/api/advice", ""))
	require.NotNil(t, got.Advice)
	assert.False(t, got.InFlight)

	rec = do(t, srv, http.MethodDelete, "/api/advice", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	got = decode[adviceResponse](t, do(t, srv, http.MethodGet, "/api/advice", ""))
	assert.Nil(t, got.Advice)
}

func TestAdviceWithoutKey(t *testing.T) {
	srv := newTestServer(t, nil)
	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"expense","amount":"3.5","description":"Coffee","date":"2024-03-02"}`)

	rec := do(t, srv, http.MethodPost, "/api/advice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[adviceResponse](t, rec)
	require.NotNil(t, got.Advice)
	assert.Equal(t, advice.MissingKeyMessage, *got.Advice)
	assert.False(t, got.Configured)
}

func TestAdviceGeneratorFailureIsText(t *testing.T) {
	srv := newTestServer(t, stubGenerator{err: errors.New("quota")})
	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"expense","amount":"3.5","description":"Coffee","date":"2024-03-02"}`)

	rec := do(t, srv, http.MethodPost, "/api/advice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, advice.ErrorMessage, *decode[adviceResponse](t, rec).Advice)
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := do(t, srv, http.MethodPut, "/api/summary", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimitAppliesToMutationsOnly(t *testing.T) {
	srv := newTestServer(t, nil, WithRateLimit(ratelimit.Config{Limit: 1, Window: time.Minute}))

	rec := do(t, srv, http.MethodPost, "/api/transactions", `{"type":"income","amount":"1","description":"a"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/transactions", `{"type":"income","amount":"1","description":"b"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/transactions", "").Code)
	}
}

func TestResponseHeaders(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = do(t, srv, http.MethodGet, "/healthz", "")
	assert.True(t, strings.HasPrefix(rec.Header().Get("X-Request-ID"), "req_"))
}

func TestShutdownLogsLimiterState(t *testing.T) {
	var buf bytes.Buffer
	st := store.New(context.Background(), memory.New(), nil)
	svc := services.NewFinanceService(st, advice.NewRequester(nil, nil), nil)
	srv := NewServer(":0", svc, applog.New(applog.Config{Output: &buf}),
		WithRateLimit(ratelimit.Config{Limit: 1, Window: time.Minute}))

	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"income","amount":"1","description":"a"}`)
	do(t, srv, http.MethodPost, "/api/transactions", `{"type":"income","amount":"1","description":"b"}`)

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Rate limiter stopped"))
	assert.Contains(t, out, "active_clients=1")
	assert.Contains(t, out, "rejected=1")
}
