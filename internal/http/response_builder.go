package http

import (
	"encoding/json"
	"net/http"

	"finance/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

type summaryResponse struct {
	TotalIncome   string               `json:"totalIncome"`
	TotalExpenses string               `json:"totalExpenses"`
	Savings       string               `json:"savings"`
	Count         int                  `json:"count"`
	Distribution  distributionResponse `json:"distribution"`
}

type distributionResponse struct {
	Expenses     string `json:"expenses"`
	Savings      string `json:"savings"`
	ExpenseShare string `json:"expenseShare"`
	SavingsShare string `json:"savingsShare"`
}

type adviceResponse struct {
	Advice     *string `json:"advice"`
	InFlight   bool    `json:"inFlight"`
	Configured bool    `json:"configured"`
}

func newSummaryResponse(s core.FinancialSummary, d core.Distribution, count int) summaryResponse {
	return summaryResponse{
		TotalIncome:   core.FormatAmount(s.TotalIncome),
		TotalExpenses: core.FormatAmount(s.TotalExpenses),
		Savings:       core.FormatAmount(s.Savings),
		Count:         count,
		Distribution: distributionResponse{
			Expenses:     core.FormatAmount(d.Expenses),
			Savings:      core.FormatAmount(d.Savings),
			ExpenseShare: d.ExpenseShare.StringFixed(1),
			SavingsShare: d.SavingsShare.StringFixed(1),
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
