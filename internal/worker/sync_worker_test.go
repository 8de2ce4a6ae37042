package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/amqp"
	"finance/internal/blob/memory"
	sheetmem "finance/internal/sheets/memory"
)

const saved = `[
	{"id":"a","type":"income","amount":1000,"description":"Pay","date":"2024-03-01T12:00:00.000Z"},
	{"id":"b","type":"expense","amount":12.5,"description":"Lunch, \"big\"","date":"2024-03-02T12:00:00.000Z"}
]`

func TestSyncNowWritesNewestFirst(t *testing.T) {
	blobs := memory.NewWith(map[string][]byte{"transactions": []byte(saved)})
	sheet := sheetmem.New()
	w := NewSyncWorker(blobs, "", sheet, nil)

	require.NoError(t, w.SyncNow(context.Background()))

	assert.Equal(t, [][]string{
		{"Date", "Type", "Description", "Amount"},
		{"2024-03-02", "expense", `Lunch, "big"`, "12.50"},
		{"2024-03-01", "income", "Pay", "1000.00"},
	}, sheet.Rows())
}

func TestSyncNowMissingBlobWritesHeader(t *testing.T) {
	sheet := sheetmem.New()
	w := NewSyncWorker(memory.New(), "transactions", sheet, nil)

	require.NoError(t, w.SyncNow(context.Background()))
	assert.Equal(t, [][]string{{"Date", "Type", "Description", "Amount"}}, sheet.Rows())
}

func TestSyncNowCorruptBlobFails(t *testing.T) {
	blobs := memory.NewWith(map[string][]byte{"transactions": []byte("{")})
	sheet := sheetmem.New()
	w := NewSyncWorker(blobs, "transactions", sheet, nil)

	assert.Error(t, w.SyncNow(context.Background()))
	assert.Zero(t, sheet.Writes())
}

type failingSheet struct{}

func (failingSheet) ReplaceRows(context.Context, [][]string) error {
	return errors.New("quota exceeded")
}

func TestHandleEventSurfacesSheetErrors(t *testing.T) {
	w := NewSyncWorker(memory.New(), "transactions", failingSheet{}, nil)
	err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.ActionAdded, "a", 1))
	assert.ErrorContains(t, err, "quota exceeded")
}

type scriptedConsumer struct {
	events []*amqp.TransactionEvent
	errs   []error
}

func (c *scriptedConsumer) ConsumeTransactionEvents(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error {
	for _, evt := range c.events {
		c.errs = append(c.errs, handler(ctx, evt))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	blobs := memory.NewWith(map[string][]byte{"transactions": []byte(saved)})
	sheet := sheetmem.New()
	w := NewSyncWorker(blobs, "transactions", sheet, nil)
	consumer := &scriptedConsumer{events: []*amqp.TransactionEvent{
		amqp.NewTransactionEvent(amqp.ActionAdded, "a", 2),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer, time.Hour) }()

	require.Eventually(t, func() bool { return sheet.Writes() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, []error{nil}, consumer.errs)
	assert.Len(t, sheet.Rows(), 3)
}

func TestRunPeriodicSync(t *testing.T) {
	sheet := sheetmem.New()
	w := NewSyncWorker(memory.New(), "transactions", sheet, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, nil, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return sheet.Writes() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
