package http

import (
	"errors"
	"net/http"
	"strconv"

	"finance/internal/advice"
	"finance/internal/core"
	"finance/internal/csvexport"
	applog "finance/internal/log"
	"finance/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.finance.Transactions())
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	in, err := ParseCreateTransaction(r, s.now())
	if err != nil {
		if errors.Is(err, errMalformed) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	tx, err := s.finance.AddTransaction(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}
	w.Header().Set("Location", "/api/transactions/"+tx.ID)
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.finance.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "Delete failed", applog.FieldTransactionID, id, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	sum := s.finance.Summary()
	writeJSON(w, http.StatusOK, newSummaryResponse(sum, core.Distribute(sum), len(s.finance.Transactions())))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name, data, ok := s.finance.Export(s.now())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", csvexport.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.WarnContext(r.Context(), "Export write failed", applog.FieldOperation, applog.OpExport, applog.FieldError, err)
	}
}

func (s *Server) handleGetAdvice(w http.ResponseWriter, _ *http.Request) {
	resp := adviceResponse{
		InFlight:   s.finance.AdviceInFlight(),
		Configured: s.finance.AdviceConfigured(),
	}
	if text, ok := s.finance.CurrentAdvice(); ok {
		resp.Advice = &text
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRequestAdvice(w http.ResponseWriter, r *http.Request) {
	text, err := s.finance.RequestAdvice(r.Context())
	switch {
	case errors.Is(err, services.ErrEmpty):
		writeError(w, http.StatusUnprocessableEntity, "add transactions before asking for advice")
		return
	case errors.Is(err, advice.ErrInFlight):
		writeError(w, http.StatusConflict, "an advice request is already running")
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Advice request failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not request advice")
		return
	}
	writeJSON(w, http.StatusOK, adviceResponse{
		Advice:     &text,
		Configured: s.finance.AdviceConfigured(),
	})
}

func (s *Server) handleDismissAdvice(w http.ResponseWriter, _ *http.Request) {
	s.finance.DismissAdvice()
	w.WriteHeader(http.StatusNoContent)
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidType):
		return "type must be income or expense"
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount must be a positive number"
	case errors.Is(err, core.ErrEmptyDescription):
		return "description is required"
	case errors.Is(err, core.ErrInvalidDate):
		return "date must be YYYY-MM-DD"
	default:
		return "invalid transaction"
	}
}
