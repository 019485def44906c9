// Package services orchestrates the repositories and the core rules:
// ownership checks, balance maintenance, cascades and budget statistics.
//
// Every owner-scoped operation takes the caller identity supplied by the
// authentication layer. An empty identity is core.ErrUnauthorized; an entity
// owned by someone else is reported as core.ErrNotFound.
package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"budgettracker/internal/amqp"
	"budgettracker/internal/core"
	"budgettracker/internal/repository"
)

// EventPublisher receives ledger events after a mutation commits.
// *amqp.Client satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

type base struct {
	store  repository.Store
	events EventPublisher
	now    func() time.Time
}

func newBase(store repository.Store, events EventPublisher) base {
	return base{store: store, events: events, now: func() time.Time { return time.Now().UTC() }}
}

// publish is best effort: the mutation is already committed.
func (b base) publish(ctx context.Context, kind amqp.EventKind, entityID int64, owner string, version int64, related []int64) {
	if b.events == nil {
		return
	}
	ev := amqp.NewLedgerEvent(kind, entityID, owner, version, related)
	if err := b.events.PublishEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"event_kind", kind,
			"entity_id", entityID,
			"error", err)
	}
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return core.ErrUnauthorized
	}
	return nil
}

// owned hides rows of other users behind NotFound.
func owned(entity string, id int64, rowOwner, owner string) error {
	if rowOwner != owner {
		return core.NotFound(entity, id)
	}
	return nil
}

// checkVersion rejects a client-supplied version that no longer matches.
// Zero means the client did not send one.
func checkVersion(entity string, id, stored, requested int64) error {
	if requested != 0 && requested != stored {
		return core.Conflict(entity, id, requested)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
