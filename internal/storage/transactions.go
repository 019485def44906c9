package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"budgettracker/internal/core"
)

const transactionColumns = `id, user_id, account_id, category_id, budget_id, amount, type, date, description, version, created_at, modified_at`

type transactionRepo struct{ q *Queries }

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                 core.Transaction
		category, budget  sql.NullInt64
		typ, date         string
		created, modified string
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.AccountID, &category, &budget, &t.Amount, &typ, &date, &t.Description, &t.Version, &created, &modified); err != nil {
		return core.Transaction{}, err
	}
	t.CategoryID = fromNullable(category)
	t.BudgetID = fromNullable(budget)
	t.Type = core.TransactionType(typ)
	var err error
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d date: %w", t.ID, err)
	}
	return t, parseTimes(created, modified, &t.CreatedAt, &t.ModifiedAt)
}

func (r transactionRepo) list(ctx context.Context, where string, args ...any) ([]core.Transaction, error) {
	return queryAll(ctx, r.q.db, scanTransaction, `SELECT `+transactionColumns+` FROM transactions `+where+` ORDER BY id`, args...)
}

func (r transactionRepo) List(ctx context.Context) ([]core.Transaction, error) {
	return r.list(ctx, "")
}

func (r transactionRepo) ListByOwner(ctx context.Context, userID string) ([]core.Transaction, error) {
	return r.list(ctx, "WHERE user_id = ?", userID)
}

func (r transactionRepo) ListByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	return r.list(ctx, "WHERE account_id = ?", accountID)
}

func (r transactionRepo) ListByCategory(ctx context.Context, categoryID int64) ([]core.Transaction, error) {
	return r.list(ctx, "WHERE category_id = ?", categoryID)
}

func (r transactionRepo) ListByBudget(ctx context.Context, budgetID int64) ([]core.Transaction, error) {
	return r.list(ctx, "WHERE budget_id = ?", budgetID)
}

func (r transactionRepo) Get(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(r.q.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if err != nil {
		return core.Transaction{}, notFound(err, "transaction", id)
	}
	return t, nil
}

func (r transactionRepo) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := formatTime(r.q.now())
	res, err := r.q.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, account_id, category_id, budget_id, amount, type, date, description, version, created_at, modified_at, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, 'pending')`,
		t.UserID, t.AccountID, nullable(t.CategoryID), nullable(t.BudgetID), t.Amount.String(), string(t.Type), t.Date.String(), t.Description, now, now)
	if err != nil {
		return core.Transaction{}, wrapErr(err, "insert", "transaction", 0)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	return r.Get(ctx, id)
}

func (r transactionRepo) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.q.db.ExecContext(ctx,
		`UPDATE transactions
		 SET account_id = ?, category_id = ?, budget_id = ?, amount = ?, type = ?, date = ?, description = ?,
		     version = version + 1, modified_at = ?, sync_status = 'pending'
		 WHERE id = ? AND version = ?`,
		t.AccountID, nullable(t.CategoryID), nullable(t.BudgetID), t.Amount.String(), string(t.Type), t.Date.String(), t.Description,
		formatTime(r.q.now()), t.ID, t.Version)
	if err != nil {
		return core.Transaction{}, wrapErr(err, "update", "transaction", t.ID)
	}
	if err := r.q.checkCAS(ctx, res, "transactions", "transaction", t.ID, t.Version); err != nil {
		return core.Transaction{}, err
	}
	return r.Get(ctx, t.ID)
}

func (r transactionRepo) Delete(ctx context.Context, id int64) error {
	return r.q.deleteRow(ctx, "transactions", "transaction", id)
}

func (r transactionRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return r.q.exists(ctx, "transactions", id)
}

func (r transactionRepo) DeleteByAccount(ctx context.Context, accountID int64) ([]int64, error) {
	return r.deleteWhere(ctx, "account_id", accountID)
}

func (r transactionRepo) DeleteByBudget(ctx context.Context, budgetID int64) ([]int64, error) {
	return r.deleteWhere(ctx, "budget_id", budgetID)
}

func (r transactionRepo) ClearBudget(ctx context.Context, budgetID int64) ([]int64, error) {
	return r.clearWhere(ctx, "budget_id", budgetID)
}

func (r transactionRepo) ClearCategory(ctx context.Context, categoryID int64) ([]int64, error) {
	return r.clearWhere(ctx, "category_id", categoryID)
}

func (r transactionRepo) deleteWhere(ctx context.Context, column string, value int64) ([]int64, error) {
	ids, err := queryIDs(ctx, r.q.db, `SELECT id FROM transactions WHERE `+column+` = ? ORDER BY id`, value)
	if err != nil {
		return nil, fmt.Errorf("select transactions by %s: %w", column, err)
	}
	if _, err := r.q.db.ExecContext(ctx, `DELETE FROM transactions WHERE `+column+` = ?`, value); err != nil {
		return nil, fmt.Errorf("delete transactions by %s: %w", column, err)
	}
	return ids, nil
}

// clearWhere nulls column on every matching row. Touched rows count as
// modified and go back to pending sync.
func (r transactionRepo) clearWhere(ctx context.Context, column string, value int64) ([]int64, error) {
	ids, err := queryIDs(ctx, r.q.db, `SELECT id FROM transactions WHERE `+column+` = ? ORDER BY id`, value)
	if err != nil {
		return nil, fmt.Errorf("select transactions by %s: %w", column, err)
	}
	_, err = r.q.db.ExecContext(ctx,
		`UPDATE transactions SET `+column+` = NULL, version = version + 1, modified_at = ?, sync_status = 'pending'
		 WHERE `+column+` = ?`,
		formatTime(r.q.now()), value)
	if err != nil {
		return nil, fmt.Errorf("clear transactions %s: %w", column, err)
	}
	return ids, nil
}

// Sync status values of the transactions.sync_status column.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// PendingSync is the minimal data the export worker needs to pick up a row.
type PendingSync struct {
	ID         int64
	Version    int64
	ModifiedAt time.Time
}

func (q *Queries) GetPendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	return queryAll(ctx, q.db, func(s scanner) (PendingSync, error) {
		var (
			p        PendingSync
			modified string
		)
		if err := s.Scan(&p.ID, &p.Version, &modified); err != nil {
			return PendingSync{}, err
		}
		var err error
		p.ModifiedAt, err = time.Parse(timeLayout, modified)
		return p, err
	}, `SELECT id, version, modified_at FROM transactions WHERE sync_status = ? ORDER BY modified_at, id LIMIT ?`, SyncPending, limit)
}

// MarkSynced flags the row as exported. A row changed since version was read
// stays pending.
func (q *Queries) MarkSynced(ctx context.Context, id, version int64) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ? WHERE id = ? AND version = ?`, SyncDone, id, version)
	if err != nil {
		return false, fmt.Errorf("mark transaction %d synced: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (q *Queries) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE transactions SET sync_status = ? WHERE id = ?`, SyncError, id); err != nil {
		return fmt.Errorf("mark transaction %d sync error: %w", id, err)
	}
	return nil
}

// RetryErrored puts rows that failed to export back into the pending queue.
func (q *Queries) RetryErrored(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE transactions SET sync_status = ? WHERE sync_status = ?`, SyncPending, SyncError)
	if err != nil {
		return 0, fmt.Errorf("retry errored transactions: %w", err)
	}
	return res.RowsAffected()
}
