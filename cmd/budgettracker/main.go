package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgettracker/internal/advice"
	"budgettracker/internal/cache"
	"budgettracker/internal/cli"
	apphttp "budgettracker/internal/http"
	applog "budgettracker/internal/log"
	"budgettracker/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	if err := run(logger); err != nil {
		logger.ErrorContext(context.Background(), "Server error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Server stopped gracefully")
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

	caches := cache.NewManager()

	budgets := services.NewBudgetService(res.Store, res.Events, cfg.DefaultCurrency)
	categories := services.NewCategoryService(res.Store, res.Events)
	svc := apphttp.Services{
		Accounts:     services.NewAccountService(res.Store, res.Events),
		Categories:   categories,
		Budgets:      budgets,
		Transactions: services.NewTransactionService(res.Store, res.Events),
	}
	if cfg.AdviceServiceURL != "" {
		var summaries cache.Cache[advice.SummaryResponse]
		if cfg.AdviceCacheTTL > 0 {
			lru := cache.NewLRUCache[advice.SummaryResponse](256, cfg.AdviceCacheTTL)
			caches.Register("advice_summaries", lru)
			summaries = lru
		}
		client := advice.NewClient(cfg.AdviceServiceURL, cfg.AdviceTimeout)
		svc.Advice = services.NewAdviceService(budgets, categories, client, summaries)
		logger.InfoContext(ctx, "Advice service configured", "url", cfg.AdviceServiceURL, "cache_ttl", cfg.AdviceCacheTTL)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              res.Ready,
		Logger:             logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.AdviceTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	caches.Start(ctx, 5*time.Minute)
	defer caches.Stop()

	// Without a broker the export runs in this process.
	if res.Worker != nil && res.AMQP == nil && res.Queue != nil {
		if err := res.Worker.Start(ctx, cfg.SyncSchedule); err != nil {
			return err
		}
		defer res.Worker.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting budgettracker server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", res.Events != nil,
			"export", cfg.ExportEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer cancel()
		logger.InfoContext(shutdownCtx, "Shutting down server", applog.FieldOperation, applog.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
