package main

import (
	"context"
	"os"
	"time"

	"finance/internal/amqp"
	"finance/internal/cli"
	"finance/internal/config"
	applog "finance/internal/log"
	gsheet "finance/internal/sheets/google"
	"finance/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting finance-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate, (*config.Config).ValidateWorker)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	res := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()

	sheet, err := gsheet.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	w := worker.NewSyncWorker(res.Store, cfg.BlobKey, sheet, logger)
	if err := w.Run(ctx, consumer, cfg.SyncInterval); err != nil {
		logger.Error("Worker stopped", applog.FieldError, err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}
