package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"budgettracker/internal/amqp"
	"budgettracker/internal/core"
	"budgettracker/internal/repository"
	"budgettracker/internal/sheets"
	"budgettracker/internal/storage"
)

// DefaultSchedule is the fallback sweep schedule for pending rows.
const DefaultSchedule = "@every 30s"

// SyncQueue tracks which transactions still need exporting. Only the SQLite
// store provides one.
type SyncQueue interface {
	GetPendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id, version int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// ExportWorker mirrors transactions into the spreadsheet. Ledger events
// drive it; the scheduled sweep of the sync queue catches anything an event
// missed.
type ExportWorker struct {
	store     repository.Store
	queue     SyncQueue
	sheets    sheets.RowWriter
	batchSize int

	mu   sync.Mutex
	cron *cron.Cron
}

// NewExportWorker wires the worker. queue may be nil.
func NewExportWorker(store repository.Store, queue SyncQueue, writer sheets.RowWriter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ExportWorker{store: store, queue: queue, sheets: writer, batchSize: batchSize}
}

// HandleEvent applies one ledger event to the spreadsheet.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event_id", ev.ID,
		"event_kind", ev.Kind,
		"entity_id", ev.EntityID,
		"version", ev.Version)

	switch ev.Kind {
	case amqp.TransactionCreated, amqp.TransactionUpdated:
		return w.export(ctx, ev.EntityID)
	case amqp.TransactionDeleted:
		return w.remove(ctx, ev.EntityID)
	case amqp.AccountDeleted:
		var errs []error
		for _, id := range ev.RelatedIDs {
			errs = append(errs, w.remove(ctx, id))
		}
		return errors.Join(errs...)
	case amqp.BudgetDeleted, amqp.CategoryDeleted:
		// Unlinked rows lose their budget or category name.
		var errs []error
		for _, id := range ev.RelatedIDs {
			errs = append(errs, w.export(ctx, id))
		}
		return errors.Join(errs...)
	default:
		slog.WarnContext(ctx, "Ignoring unknown event kind", "event_kind", ev.Kind)
		return nil
	}
}

// retrier is implemented by queues that can requeue failed exports.
type retrier interface {
	RetryErrored(ctx context.Context) (int64, error)
}

// RequeueFailed puts exports that previously failed back into the pending
// queue and returns how many were requeued.
func (w *ExportWorker) RequeueFailed(ctx context.Context) (int64, error) {
	r, ok := w.queue.(retrier)
	if !ok {
		return 0, nil
	}
	n, err := r.RetryErrored(ctx)
	if err != nil {
		return 0, fmt.Errorf("requeue failed exports: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "Requeued failed exports", "count", n)
	}
	return n, nil
}

// ProcessPending exports one batch from the sync queue and returns how many
// rows reached the spreadsheet.
func (w *ExportWorker) ProcessPending(ctx context.Context) (int, error) {
	if w.queue == nil {
		return 0, nil
	}
	pending, err := w.queue.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))
	synced := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := w.export(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "transaction_id", p.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

// Start schedules ProcessPending. Runs never overlap.
func (w *ExportWorker) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Pending export sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}

	w.mu.Lock()
	w.cron = c
	w.mu.Unlock()
	c.Start()
	slog.InfoContext(ctx, "Export sweep scheduled", "schedule", schedule, "batch_size", w.batchSize)
	return nil
}

// Stop ends the schedule and waits for a running sweep.
func (w *ExportWorker) Stop() {
	w.mu.Lock()
	c := w.cron
	w.cron = nil
	w.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (w *ExportWorker) export(ctx context.Context, id int64) error {
	tx, err := w.store.Transactions().Get(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted after the event was published.
		return w.remove(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", id, err)
	}

	v, err := w.view(ctx, tx)
	if err != nil {
		return err
	}
	if err := w.sheets.Upsert(ctx, sheets.RowFromView(v)); err != nil {
		if w.queue != nil {
			if markErr := w.queue.MarkSyncError(ctx, id); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "transaction_id", id, "error", markErr)
			}
		}
		return fmt.Errorf("export transaction %d: %w", id, err)
	}

	if w.queue != nil {
		if err := w.queue.MarkSynced(ctx, id, tx.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to mark as synced", "transaction_id", id, "error", err)
		}
	}
	slog.InfoContext(ctx, "Transaction exported", "transaction_id", id, "version", tx.Version)
	return nil
}

func (w *ExportWorker) remove(ctx context.Context, id int64) error {
	if err := w.sheets.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove transaction %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Transaction removed from export", "transaction_id", id)
	return nil
}

func (w *ExportWorker) view(ctx context.Context, tx core.Transaction) (core.TransactionView, error) {
	var (
		acc *core.Account
		cat *core.Category
		bud *core.Budget
	)
	a, err := w.store.Accounts().Get(ctx, tx.AccountID)
	switch {
	case err == nil:
		acc = &a
	case !errors.Is(err, core.ErrNotFound):
		return core.TransactionView{}, fmt.Errorf("load account %d: %w", tx.AccountID, err)
	}
	if tx.CategoryID != nil {
		if c, err := w.store.Categories().Get(ctx, *tx.CategoryID); err == nil {
			cat = &c
		}
	}
	if tx.BudgetID != nil {
		if b, err := w.store.Budgets().Get(ctx, *tx.BudgetID); err == nil {
			bud = &b
		}
	}
	return core.NewTransactionView(tx, acc, cat, bud), nil
}

// Direct delivers ledger events to the worker in-process. It stands in for
// the broker when none is configured.
type Direct struct {
	Worker *ExportWorker
}

func (d Direct) PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	return d.Worker.HandleEvent(ctx, ev)
}
