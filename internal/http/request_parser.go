package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"finance/internal/core"
	"finance/internal/services"
)

const maxBodyBytes = 64 << 10

// createTransactionRequest is the POST /api/transactions body. Amount may
// be a JSON number or a string, and a string may use a decimal comma.
// An empty date means today in UTC.
type createTransactionRequest struct {
	Type        string          `json:"type"`
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

// errMalformed marks a body that is not valid JSON; it maps to 400 while
// field errors map to 422.
var errMalformed = errors.New("malformed request body")

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}

// ParseCreateTransaction turns the request body into service input. Field
// errors wrap the core validation errors.
func ParseCreateTransaction(r *http.Request, now time.Time) (services.NewTransaction, error) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		return services.NewTransaction{}, err
	}

	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return services.NewTransaction{}, err
	}

	amount, err := core.ParseAmount(rawAmount(req.Amount))
	if err != nil {
		return services.NewTransaction{}, err
	}

	desc := sanitizeInput(req.Description)
	if desc == "" {
		return services.NewTransaction{}, core.ErrEmptyDescription
	}

	var date core.CalendarDate
	if strings.TrimSpace(req.Date) == "" {
		today := now.UTC()
		date = core.CalendarDate{Year: today.Year(), Month: int(today.Month()), Day: today.Day()}
	} else if date, err = core.ParseCalendarDate(req.Date); err != nil {
		return services.NewTransaction{}, err
	}

	return services.NewTransaction{Type: typ, Amount: amount, Description: desc, Date: date}, nil
}

func rawAmount(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
