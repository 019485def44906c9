package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionUpdated EventKind = "transaction.updated"
	TransactionDeleted EventKind = "transaction.deleted"
	AccountDeleted     EventKind = "account.deleted"
	BudgetDeleted      EventKind = "budget.deleted"
	CategoryDeleted    EventKind = "category.deleted"
)

// LedgerEvent announces a committed change. It carries ids only; consumers
// read current state from the database.
type LedgerEvent struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	EntityID  int64     `json:"entityId"`
	UserID    string    `json:"userId"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	// RelatedIDs lists the transactions a cascade deleted or unlinked.
	RelatedIDs []int64 `json:"relatedIds,omitempty"`
}

func NewLedgerEvent(kind EventKind, entityID int64, userID string, version int64, related []int64) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		EntityID:   entityID,
		UserID:     userID,
		Version:    version,
		Timestamp:  time.Now().UTC(),
		RelatedIDs: related,
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and sanity checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" || msg.EntityID <= 0 {
		return nil, fmt.Errorf("incomplete ledger event %q", msg.ID)
	}
	return &msg, nil
}
