package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"budgettracker/internal/cli"
	applog "budgettracker/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.InfoContext(context.Background(), "Starting budget-worker", applog.FieldOperation, applog.OpStartup)

	if err := run(logger); err != nil {
		logger.ErrorContext(context.Background(), "Worker failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Worker shutdown complete")
}

func run(logger *applog.Logger) error {
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	res := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.ErrorContext(context.Background(), "Backend cleanup failed", applog.FieldError, err)
		}
	}()

	if res.Worker == nil {
		return errors.New("spreadsheet export is not configured (set GOOGLE_SPREADSHEET_ID)")
	}
	if res.AMQP == nil {
		return errors.New("no AMQP broker available (set AMQP_URL)")
	}

	if _, err := res.Worker.RequeueFailed(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to requeue exports", applog.FieldError, err)
	}
	// Catch up on anything written while the worker was down.
	if n, err := res.Worker.ProcessPending(ctx); err != nil {
		logger.ErrorContext(ctx, "Startup export sweep failed", applog.FieldError, err)
	} else {
		logger.InfoContext(ctx, "Startup export sweep complete", applog.FieldOperation, applog.OpSync, applog.FieldCount, n)
	}

	if err := res.Worker.Start(ctx, cfg.SyncSchedule); err != nil {
		return err
	}
	defer res.Worker.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := res.AMQP.ConsumeWithReconnect(gctx, res.Worker.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
