package memory

import (
	"sort"
	"time"

	"budgettracker/internal/core"
)

// fields exposes the bookkeeping columns of a row.
type fields[T any] func(*T) (id, version *int64, created, modified *time.Time)

type table[T any] struct {
	entity string
	fields fields[T]
	rows   map[int64]T
	next   int64
}

func newTable[T any](entity string, f fields[T]) *table[T] {
	return &table[T]{entity: entity, fields: f, rows: map[int64]T{}}
}

func (t *table[T]) clone() *table[T] {
	c := &table[T]{entity: t.entity, fields: t.fields, rows: make(map[int64]T, len(t.rows)), next: t.next}
	for k, v := range t.rows {
		c.rows[k] = v
	}
	return c
}

func (t *table[T]) id(v T) int64 {
	id, _, _, _ := t.fields(&v)
	return *id
}

// list returns matching rows ordered by id.
func (t *table[T]) list(match func(T) bool) []T {
	out := make([]T, 0, len(t.rows))
	for _, v := range t.rows {
		if match == nil || match(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return t.id(out[i]) < t.id(out[j]) })
	return out
}

func (t *table[T]) get(id int64) (T, error) {
	v, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, core.NotFound(t.entity, id)
	}
	return v, nil
}

func (t *table[T]) add(v T, now time.Time) T {
	t.next++
	id, version, created, modified := t.fields(&v)
	*id = t.next
	*version = 1
	*created = now
	*modified = now
	t.rows[*id] = v
	return v
}

func (t *table[T]) update(v T, now time.Time) (T, error) {
	id, version, created, modified := t.fields(&v)
	cur, ok := t.rows[*id]
	if !ok {
		return v, core.NotFound(t.entity, *id)
	}
	_, curVersion, curCreated, _ := t.fields(&cur)
	if *curVersion != *version {
		return v, core.Conflict(t.entity, *id, *version)
	}
	*version = *curVersion + 1
	*created = *curCreated
	*modified = now
	t.rows[*id] = v
	return v, nil
}

func (t *table[T]) delete(id int64) error {
	if _, ok := t.rows[id]; !ok {
		return core.NotFound(t.entity, id)
	}
	delete(t.rows, id)
	return nil
}

func (t *table[T]) exists(id int64) bool {
	_, ok := t.rows[id]
	return ok
}
