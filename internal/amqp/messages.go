package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action names a collection mutation.
type Action string

const (
	ActionAdded   Action = "added"
	ActionDeleted Action = "deleted"
)

// TransactionEvent announces that the stored collection changed. It carries
// no transaction data; consumers reload the collection from the blob store.
type TransactionEvent struct {
	Action    Action    `json:"action"`
	ID        string    `json:"id"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionEvent stamps the event with the current time. Count is the
// collection size after the mutation.
func NewTransactionEvent(action Action, id string, count int) *TransactionEvent {
	return &TransactionEvent{
		Action:    action,
		ID:        id,
		Count:     count,
		Timestamp: time.Now().UTC(),
	}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Action {
	case ActionAdded, ActionDeleted:
	default:
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("event without transaction id")
	}
	return &msg, nil
}
