package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("concurrent modification")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// NotFoundError names the missing entity. It matches ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// ConflictError reports a lost compare-and-swap on a versioned row.
type ConflictError struct {
	Entity  string
	ID      int64
	Version int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d: version %d is stale", e.Entity, e.ID, e.Version)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func Conflict(entity string, id, version int64) error {
	return &ConflictError{Entity: entity, ID: id, Version: version}
}
