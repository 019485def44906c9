package backend

import (
	"context"
	"errors"
	"fmt"

	"budgettracker/internal/amqp"
	applog "budgettracker/internal/log"
	"budgettracker/internal/repository/memory"
	gsheet "budgettracker/internal/sheets/google"
	"budgettracker/internal/storage"
	"budgettracker/internal/worker"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend opens the store, then the optional broker and spreadsheet.
// A broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res := &BackendResult{}
	var closers []func() error
	res.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res.Store, res.Queue, res.Ready = repo, repo, repo
		closers = append(closers, repo.Close)
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		res.Store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		} else {
			res.AMQP, res.Events = client, client
			closers = append(closers, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	if config.ExportEnabled() {
		exporter, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			CredentialsJSON: config.GoogleServiceAccountJSON,
			CredentialsFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			_ = res.Cleanup()
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		res.Exporter = exporter
		res.Worker = worker.NewExportWorker(res.Store, res.Queue, exporter, config.SyncBatchSize)
		if res.Events == nil {
			res.Events = worker.Direct{Worker: res.Worker}
		}
		f.logger.InfoContext(ctx, "Initialized spreadsheet export", "spreadsheet_id", config.GoogleSpreadsheetID)
	}

	return res, nil
}
