package storage

import (
	"context"
	"database/sql"
	"fmt"

	"budgettracker/internal/core"
)

const budgetColumns = `id, user_id, name, amount, start_date, end_date, account_id, version, created_at, modified_at`

type budgetRepo struct{ q *Queries }

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                 core.Budget
		start, end        string
		account           sql.NullInt64
		created, modified string
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.Name, &b.Amount, &start, &end, &account, &b.Version, &created, &modified); err != nil {
		return core.Budget{}, err
	}
	var err error
	if b.StartDate, err = core.ParseDate(start); err != nil {
		return core.Budget{}, fmt.Errorf("budget %d start_date: %w", b.ID, err)
	}
	if b.EndDate, err = core.ParseDate(end); err != nil {
		return core.Budget{}, fmt.Errorf("budget %d end_date: %w", b.ID, err)
	}
	b.AccountID = fromNullable(account)
	return b, parseTimes(created, modified, &b.CreatedAt, &b.ModifiedAt)
}

func (r budgetRepo) List(ctx context.Context) ([]core.Budget, error) {
	return queryAll(ctx, r.q.db, scanBudget, `SELECT `+budgetColumns+` FROM budgets ORDER BY id`)
}

func (r budgetRepo) ListByOwner(ctx context.Context, userID string) ([]core.Budget, error) {
	return queryAll(ctx, r.q.db, scanBudget, `SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY id`, userID)
}

func (r budgetRepo) ListByAccount(ctx context.Context, accountID int64) ([]core.Budget, error) {
	return queryAll(ctx, r.q.db, scanBudget, `SELECT `+budgetColumns+` FROM budgets WHERE account_id = ? ORDER BY id`, accountID)
}

func (r budgetRepo) Get(ctx context.Context, id int64) (core.Budget, error) {
	b, err := scanBudget(r.q.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
	if err != nil {
		return core.Budget{}, notFound(err, "budget", id)
	}
	return b, nil
}

func (r budgetRepo) Add(ctx context.Context, b core.Budget) (core.Budget, error) {
	now := formatTime(r.q.now())
	res, err := r.q.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, name, amount, start_date, end_date, account_id, version, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		b.UserID, b.Name, b.Amount.String(), b.StartDate.String(), b.EndDate.String(), nullable(b.AccountID), now, now)
	if err != nil {
		return core.Budget{}, wrapErr(err, "insert", "budget", 0)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("budget id: %w", err)
	}
	return r.Get(ctx, id)
}

func (r budgetRepo) Update(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := r.q.db.ExecContext(ctx,
		`UPDATE budgets
		 SET name = ?, amount = ?, start_date = ?, end_date = ?, account_id = ?, version = version + 1, modified_at = ?
		 WHERE id = ? AND version = ?`,
		b.Name, b.Amount.String(), b.StartDate.String(), b.EndDate.String(), nullable(b.AccountID), formatTime(r.q.now()), b.ID, b.Version)
	if err != nil {
		return core.Budget{}, wrapErr(err, "update", "budget", b.ID)
	}
	if err := r.q.checkCAS(ctx, res, "budgets", "budget", b.ID, b.Version); err != nil {
		return core.Budget{}, err
	}
	return r.Get(ctx, b.ID)
}

func (r budgetRepo) Delete(ctx context.Context, id int64) error {
	return r.q.deleteRow(ctx, "budgets", "budget", id)
}

func (r budgetRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return r.q.exists(ctx, "budgets", id)
}
