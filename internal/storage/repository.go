package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budgettracker/internal/repository"
)

// SQLiteRepository is the durable repository.Store. Foreign keys are
// enforced by SQLite and never cascade.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// SetClock replaces the timestamp source. Tests only.
func (r *SQLiteRepository) SetClock(now func() time.Time) { r.queries.now = now }

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Users() repository.UserRepository       { return userRepo{r.queries} }
func (r *SQLiteRepository) Accounts() repository.AccountRepository { return accountRepo{r.queries} }
func (r *SQLiteRepository) Categories() repository.CategoryRepository {
	return categoryRepo{r.queries}
}
func (r *SQLiteRepository) Budgets() repository.BudgetRepository { return budgetRepo{r.queries} }
func (r *SQLiteRepository) Transactions() repository.TransactionRepository {
	return transactionRepo{r.queries}
}

// RunInTx runs fn inside a database transaction and commits when it
// returns nil.
func (r *SQLiteRepository) RunInTx(ctx context.Context, fn func(repository.Repos) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(txRepos{r.queries.WithTx(tx)}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txRepos struct{ q *Queries }

func (t txRepos) Users() repository.UserRepository               { return userRepo{t.q} }
func (t txRepos) Accounts() repository.AccountRepository         { return accountRepo{t.q} }
func (t txRepos) Categories() repository.CategoryRepository      { return categoryRepo{t.q} }
func (t txRepos) Budgets() repository.BudgetRepository           { return budgetRepo{t.q} }
func (t txRepos) Transactions() repository.TransactionRepository { return transactionRepo{t.q} }

// GetPendingSync returns transactions that still need to reach the
// spreadsheet, oldest change first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.queries.GetPendingSync(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	return rows, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, version int64) error {
	ok, err := r.queries.MarkSynced(ctx, id, version)
	if err != nil {
		return err
	}
	if !ok {
		slog.DebugContext(ctx, "Transaction changed during export, left pending", "transaction_id", id, "version", version)
		return nil
	}
	slog.DebugContext(ctx, "Transaction marked as synced", "transaction_id", id)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkSyncError(ctx, id); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "transaction_id", id)
	return nil
}

func (r *SQLiteRepository) RetryErrored(ctx context.Context) (int64, error) {
	return r.queries.RetryErrored(ctx)
}
