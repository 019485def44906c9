package backend

import (
	"context"

	"budgettracker/internal/amqp"
	"budgettracker/internal/repository"
	"budgettracker/internal/services"
	"budgettracker/internal/sheets"
	"budgettracker/internal/worker"
)

// Pinger reports whether the store can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds everything the binaries need from the data layer.
// Optional parts are nil when not configured.
type BackendResult struct {
	Store repository.Store
	// Queue is the sync queue of the SQLite store.
	Queue worker.SyncQueue
	Ready Pinger

	// AMQP is set when a broker is configured and reachable.
	AMQP *amqp.Client
	// Events receives ledger events. It is the broker when there is one,
	// the in-process export worker when only export is configured.
	Events services.EventPublisher

	Exporter sheets.Exporter
	Worker   *worker.ExportWorker

	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	SyncBatchSize int
}

// ExportEnabled reports whether transactions are mirrored to a spreadsheet.
func (c Config) ExportEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
