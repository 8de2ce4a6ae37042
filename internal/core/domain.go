package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Transaction is a single recorded income or expense event.
	// Date is the instant at 12:00 UTC of the intended calendar day.
	Transaction struct {
		ID          string
		Type        TransactionType
		Amount      decimal.Decimal
		Description string
		Date        time.Time
	}

	// transactionJSON is the persisted shape: amount is a JSON number and
	// date an ISO-8601 string with millisecond precision.
	transactionJSON struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      json.Number     `json:"amount"`
		Description string          `json:"description"`
		Date        string          `json:"date"`
	}
)

var (
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidDate      = errors.New("invalid date")
)

// Valid reports whether t is one of the two transaction variants.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseTransactionType accepts "income" or "expense" in any letter case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if !tx.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(tx.Description) == "" {
		return ErrEmptyDescription
	}
	if tx.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (tx Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:          tx.ID,
		Type:        tx.Type,
		Amount:      json.Number(tx.Amount.String()),
		Description: tx.Description,
		Date:        FormatISO(tx.Date),
	})
}

func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(raw.Amount.String())
	if err != nil {
		return fmt.Errorf("amount %q: %w", raw.Amount, err)
	}
	date, err := time.Parse(time.RFC3339Nano, raw.Date)
	if err != nil {
		return fmt.Errorf("date %q: %w", raw.Date, err)
	}
	*tx = Transaction{
		ID:          raw.ID,
		Type:        raw.Type,
		Amount:      amount,
		Description: raw.Description,
		Date:        date.UTC(),
	}
	return nil
}
