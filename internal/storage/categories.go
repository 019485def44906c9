package storage

import (
	"context"
	"database/sql"
	"fmt"

	"budgettracker/internal/core"
)

const categoryColumns = `id, user_id, name, description, parent_category_id, version, created_at, modified_at`

type categoryRepo struct{ q *Queries }

func scanCategory(s scanner) (core.Category, error) {
	var (
		c                 core.Category
		parent            sql.NullInt64
		created, modified string
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &parent, &c.Version, &created, &modified); err != nil {
		return core.Category{}, err
	}
	c.ParentID = fromNullable(parent)
	return c, parseTimes(created, modified, &c.CreatedAt, &c.ModifiedAt)
}

func (r categoryRepo) List(ctx context.Context) ([]core.Category, error) {
	return queryAll(ctx, r.q.db, scanCategory, `SELECT `+categoryColumns+` FROM categories ORDER BY id`)
}

func (r categoryRepo) ListByOwner(ctx context.Context, userID string) ([]core.Category, error) {
	return queryAll(ctx, r.q.db, scanCategory, `SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY id`, userID)
}

func (r categoryRepo) ListByParent(ctx context.Context, parentID int64) ([]core.Category, error) {
	return queryAll(ctx, r.q.db, scanCategory, `SELECT `+categoryColumns+` FROM categories WHERE parent_category_id = ? ORDER BY id`, parentID)
}

func (r categoryRepo) Get(ctx context.Context, id int64) (core.Category, error) {
	c, err := scanCategory(r.q.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err != nil {
		return core.Category{}, notFound(err, "category", id)
	}
	return c, nil
}

func (r categoryRepo) Add(ctx context.Context, c core.Category) (core.Category, error) {
	now := formatTime(r.q.now())
	res, err := r.q.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, description, parent_category_id, version, created_at, modified_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		c.UserID, c.Name, c.Description, nullable(c.ParentID), now, now)
	if err != nil {
		return core.Category{}, wrapErr(err, "insert", "category", 0)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category id: %w", err)
	}
	return r.Get(ctx, id)
}

func (r categoryRepo) Update(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.q.db.ExecContext(ctx,
		`UPDATE categories
		 SET name = ?, description = ?, parent_category_id = ?, version = version + 1, modified_at = ?
		 WHERE id = ? AND version = ?`,
		c.Name, c.Description, nullable(c.ParentID), formatTime(r.q.now()), c.ID, c.Version)
	if err != nil {
		return core.Category{}, wrapErr(err, "update", "category", c.ID)
	}
	if err := r.q.checkCAS(ctx, res, "categories", "category", c.ID, c.Version); err != nil {
		return core.Category{}, err
	}
	return r.Get(ctx, c.ID)
}

func (r categoryRepo) Delete(ctx context.Context, id int64) error {
	return r.q.deleteRow(ctx, "categories", "category", id)
}

func (r categoryRepo) Exists(ctx context.Context, id int64) (bool, error) {
	return r.q.exists(ctx, "categories", id)
}
