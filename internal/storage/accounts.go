package storage

import (
	"context"
	"fmt"

	"budgettracker/internal/core"
)

const accountColumns = `id, user_id, name, currency, balance, description, version, created_at, modified_at`

type accountRepo struct{ q *Queries }

func scanAccount(s scanner) (core.Account, error) {
	var (
		a                 core.Account
		created, modified string
	)
	if err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.Currency, &a.Balance, &a.Description, &a.Version, &created, &modified); err != nil {
		return core.Account{}, err
	}
	return a, parseTimes(created, modified, &a.CreatedAt, &a.ModifiedAt)
}

func (r accountRepo) List(ctx context.Context) ([]core.Account, error) {
	return queryAll(ctx, r.q.db, scanAccount, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
}

func (r accountRepo) ListByOwner(ctx context.Context, userID string) ([]core.Account, error) {
	return queryAll(ctx, r.q.db, scanAccount, `SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY id`, userID)
}

func (r accountRepo) Get(ctx context.Context, id int64) (core.Account, error) {
	a, err := scanAccount(r.q.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		return core.Account{}, notFound(err, "account", id)
	}
	return a, nil
}

func (r accountRepo) Add(ctx context.Context, a core.Account) (core.Account, error) {
	now := r.q.now()
	res, err := r.q.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, name, currency, balance, description, version, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		a.UserID, a.Name, a.Currency, a.Balance.String(), a.Description, formatTime(now), formatTime(now))
	if err != nil {
		return core.Account{}, wrapErr(err, "insert", "account", 0)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account id: %w", err)
	}
	return r.Get(ctx, id)
}

func (r accountRepo) Update(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := r.q.db.ExecContext(ctx,
		`UPDATE accounts
		 SET name = ?, currency = ?, balance = ?, description = ?, version = version + 1, modified_at = ?
		 WHERE id = ? AND version = ?`,
		a.Name, a.Currency, a.Balance.String(), a.Description, formatTime(r.q.now()), a.ID, a.Version)
	if err != nil {
		return core.Account{}, wrapErr(err, "update", "account", a.ID)
	}
	if err := r.q.checkCAS(ctx, res, "accounts", "account", a.ID, a.Version); err != nil {
		return core.Account{}, err
	}
	return r.Get(ctx, a.ID)
}

func (r accountRepo) Delete(ctx context.Context, id int64) error {
	return r.q.deleteRow(ctx, "accounts", "account", id)
}

func (r accountRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return r.q.exists(ctx, "accounts", id)
}
