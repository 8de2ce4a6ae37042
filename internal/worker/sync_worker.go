// Package worker keeps the spreadsheet mirror in step with the stored
// transaction collection.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finance/internal/amqp"
	"finance/internal/blob"
	"finance/internal/csvexport"
	applog "finance/internal/log"
	"finance/internal/sheets"
	"finance/internal/store"
)

// EventConsumer delivers mutation events. *amqp.Client implements it.
type EventConsumer interface {
	ConsumeTransactionEvents(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error
}

// SyncWorker rewrites the sheet from the blob store. Events carry no data,
// so every sync reads the whole collection and the mirror converges no
// matter how many events were lost or duplicated.
type SyncWorker struct {
	blobs  blob.Store
	key    string
	sheet  sheets.RowsWriter
	logger *applog.Logger
}

func NewSyncWorker(blobs blob.Store, key string, sheet sheets.RowsWriter, logger *applog.Logger) *SyncWorker {
	if key == "" {
		key = store.DefaultKey
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &SyncWorker{
		blobs:  blobs,
		key:    key,
		sheet:  sheet,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleEvent processes one mutation event from AMQP.
func (w *SyncWorker) HandleEvent(ctx context.Context, evt *amqp.TransactionEvent) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		"action", evt.Action,
		applog.FieldTransactionID, evt.ID,
		applog.FieldCount, evt.Count)
	return w.SyncNow(ctx)
}

// SyncNow mirrors the current collection. A missing blob mirrors as a
// header-only sheet; an unreadable one is an error so the event is retried.
func (w *SyncWorker) SyncNow(ctx context.Context) error {
	txs, err := store.Read(ctx, w.blobs, w.key)
	if err != nil && !errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("read transactions: %w", err)
	}

	if err := w.sheet.ReplaceRows(ctx, csvexport.Rows(txs)); err != nil {
		return fmt.Errorf("replace sheet rows: %w", err)
	}

	w.logger.InfoContext(ctx, "Successfully synced transactions",
		applog.FieldOperation, applog.OpSync,
		applog.FieldCount, len(txs))
	return nil
}

// Run consumes events and also syncs every interval as a backstop for lost
// messages. It returns when ctx ends or the consumer fails for good.
func (w *SyncWorker) Run(ctx context.Context, consumer EventConsumer, interval time.Duration) error {
	if err := w.SyncNow(ctx); err != nil {
		w.logger.WarnContext(ctx, "Startup sync failed", applog.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeTransactionEvents(ctx, w.HandleEvent)
		})
	}

	if interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					if err := w.SyncNow(ctx); err != nil {
						w.logger.ErrorContext(ctx, "Periodic sync failed", applog.FieldError, err)
					}
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
