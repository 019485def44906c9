package storage

import (
	"context"
	"fmt"

	"budgettracker/internal/core"
)

type userRepo struct{ q *Queries }

func (r userRepo) Ensure(ctx context.Context, id string) (core.User, error) {
	now := formatTime(r.q.now())
	_, err := r.q.db.ExecContext(ctx,
		`INSERT INTO users (id, created_at, modified_at) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		id, now, now)
	if err != nil {
		return core.User{}, fmt.Errorf("ensure user %q: %w", id, err)
	}
	return r.Get(ctx, id)
}

func (r userRepo) Get(ctx context.Context, id string) (core.User, error) {
	var (
		u                 core.User
		created, modified string
	)
	err := r.q.db.QueryRowContext(ctx, `SELECT id, created_at, modified_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &created, &modified)
	if err != nil {
		if isNoRows(err) {
			return core.User{}, fmt.Errorf("user %q: %w", id, core.ErrNotFound)
		}
		return core.User{}, fmt.Errorf("get user %q: %w", id, err)
	}
	return u, parseTimes(created, modified, &u.CreatedAt, &u.ModifiedAt)
}
