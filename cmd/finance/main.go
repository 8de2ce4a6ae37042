package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finance/internal/amqp"
	"finance/internal/blob"
	"finance/internal/cache"
	"finance/internal/cli"
	"finance/internal/config"
	apphttp "finance/internal/http"
	applog "finance/internal/log"
	"finance/internal/services"
	"finance/internal/store"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	ctx := context.Background()

	res := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()

	st := store.New(ctx, res.Store, logger, store.WithKey(cfg.BlobKey))

	caches := cache.NewManager(logger)
	requester := cli.NewAdviceRequester(ctx, logger, cfg, caches)

	var opts []services.Option
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// Events are best effort; the worker's periodic sync catches up.
			logger.Error("Failed to connect to AMQP, events disabled", applog.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(client))
		}
	}

	svc := services.NewFinanceService(st, requester, logger, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger, apphttp.WithReadiness(func(ctx context.Context) error {
		_, err := res.Store.Get(ctx, cfg.BlobKey)
		return ignoreNotFound(err)
	}))
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.AdviceTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close service", applog.FieldError, err)
		}
	})
	caches.Start(ctx, time.Minute)

	logger.Info("Starting finance server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend,
		"advice", requester.Configured(), "events", len(opts) > 0)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	caches.Wait()
	logger.Info("Server stopped gracefully")
}

// A store with nothing saved yet is still ready.
func ignoreNotFound(err error) error {
	if errors.Is(err, blob.ErrNotFound) {
		return nil
	}
	return err
}
