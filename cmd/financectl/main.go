// Command financectl edits and inspects the transaction collection from a
// terminal, using the same backend settings as the server.
package main

import (
	"context"
	"os"

	"finance/internal/cli"
	"finance/internal/config"
	applog "finance/internal/log"
	"finance/internal/services"
	"finance/internal/store"
)

func main() {
	cli.LoadEnvFile()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Component: applog.ComponentCLI,
		Output:    os.Stderr,
	})

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)
	ctx := context.Background()

	res := cli.OpenBackend(ctx, logger, cfg)
	st := store.New(ctx, res.Store, logger, store.WithKey(cfg.BlobKey))
	svc := services.NewFinanceService(st, cli.NewAdviceRequester(ctx, logger, cfg, nil), logger)

	code := run(ctx, svc, os.Args[1:], os.Stdout, os.Stderr)
	if err := res.Close(); err != nil {
		logger.Error("Failed to close backend", applog.FieldError, err)
	}
	os.Exit(code)
}
