package memory

import (
	"context"
	"sort"
	"sync"

	"budgettracker/internal/sheets"
)

// Store keeps exported rows in memory. It backs the worker when no
// spreadsheet is configured.
type Store struct {
	mu   sync.Mutex
	rows map[int64]sheets.Row
	err  error
}

var _ sheets.Exporter = (*Store)(nil)

func New() *Store {
	return &Store{rows: map[int64]sheets.Row{}}
}

// FailWith makes every following call return err; nil restores normal
// operation.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Store) Upsert(_ context.Context, r sheets.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows[r.TransactionID] = r
	return nil
}

func (s *Store) Remove(_ context.Context, transactionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.rows, transactionID)
	return nil
}

// ListRows returns the rows ordered by transaction id.
func (s *Store) ListRows(_ context.Context) ([]sheets.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]sheets.Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out, nil
}
