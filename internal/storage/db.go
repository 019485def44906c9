package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"budgettracker/internal/core"
	"budgettracker/internal/repository"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db  DBTX
	now func() time.Time
}

func New(db DBTX) *Queries {
	return &Queries{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, now: q.now}
}

const timeLayout = time.RFC3339Nano

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTimes(created, modified string, c, m *time.Time) error {
	var err error
	if *c, err = time.Parse(timeLayout, created); err != nil {
		return fmt.Errorf("parse created_at: %w", err)
	}
	if *m, err = time.Parse(timeLayout, modified); err != nil {
		return fmt.Errorf("parse modified_at: %w", err)
	}
	return nil
}

func nullable(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func fromNullable(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// queryAll runs query and scans every row with scan.
func queryAll[T any](ctx context.Context, db DBTX, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func queryIDs(ctx context.Context, db DBTX, query string, args ...any) ([]int64, error) {
	return queryAll(ctx, db, func(s scanner) (int64, error) {
		var id int64
		err := s.Scan(&id)
		return id, err
	}, query, args...)
}

func (q *Queries) exists(ctx context.Context, table string, id int64) (bool, error) {
	var ok bool
	err := q.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM "+table+" WHERE id = ?)", id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check %s %d: %w", table, id, err)
	}
	return ok, nil
}

// casFailed tells a vanished row from a stale version after an UPDATE ...
// WHERE id = ? AND version = ? touched nothing.
func (q *Queries) casFailed(ctx context.Context, table, entity string, id, version int64) error {
	ok, err := q.exists(ctx, table, id)
	if err != nil {
		return err
	}
	if !ok {
		return core.NotFound(entity, id)
	}
	return core.Conflict(entity, id, version)
}

func (q *Queries) checkCAS(ctx context.Context, res sql.Result, table, entity string, id, version int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return q.casFailed(ctx, table, entity, id, version)
	}
	return nil
}

func (q *Queries) deleteRow(ctx context.Context, table, entity string, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return wrapErr(err, "delete", entity, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.NotFound(entity, id)
	}
	return nil
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

func notFound(err error, entity string, id int64) error {
	if isNoRows(err) {
		return core.NotFound(entity, id)
	}
	return fmt.Errorf("get %s %d: %w", entity, id, err)
}

// wrapErr maps constraint failures onto repository.ErrForeignKey.
func wrapErr(err error, op, entity string, id int64) error {
	if isForeignKey(err) {
		return fmt.Errorf("%s %s %d: %w", op, entity, id, repository.ErrForeignKey)
	}
	return fmt.Errorf("%s %s %d: %w", op, entity, id, err)
}

func isForeignKey(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
