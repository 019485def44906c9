// Package memory is an in-process repository.Store used for development and
// tests. It enforces the same reference rules as the SQLite store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"budgettracker/internal/core"
	"budgettracker/internal/repository"
)

type state struct {
	users        map[string]core.User
	accounts     *table[core.Account]
	categories   *table[core.Category]
	budgets      *table[core.Budget]
	transactions *table[core.Transaction]
}

func (s *state) clone() *state {
	users := make(map[string]core.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	return &state{
		users:        users,
		accounts:     s.accounts.clone(),
		categories:   s.categories.clone(),
		budgets:      s.budgets.clone(),
		transactions: s.transactions.clone(),
	}
}

type Store struct {
	mu   sync.Mutex // guards st
	txMu sync.Mutex // serializes writers
	st   *state
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		st: &state{
			users: map[string]core.User{},
			accounts: newTable[core.Account]("account", func(a *core.Account) (*int64, *int64, *time.Time, *time.Time) {
				return &a.ID, &a.Version, &a.CreatedAt, &a.ModifiedAt
			}),
			categories: newTable[core.Category]("category", func(c *core.Category) (*int64, *int64, *time.Time, *time.Time) {
				return &c.ID, &c.Version, &c.CreatedAt, &c.ModifiedAt
			}),
			budgets: newTable[core.Budget]("budget", func(b *core.Budget) (*int64, *int64, *time.Time, *time.Time) {
				return &b.ID, &b.Version, &b.CreatedAt, &b.ModifiedAt
			}),
			transactions: newTable[core.Transaction]("transaction", func(t *core.Transaction) (*int64, *int64, *time.Time, *time.Time) {
				return &t.ID, &t.Version, &t.CreatedAt, &t.ModifiedAt
			}),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for CreatedAt/ModifiedAt.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) Users() repository.UserRepository               { return handle{s: s} }
func (s *Store) Accounts() repository.AccountRepository         { return accounts{handle{s: s}} }
func (s *Store) Categories() repository.CategoryRepository      { return categories{handle{s: s}} }
func (s *Store) Budgets() repository.BudgetRepository           { return budgets{handle{s: s}} }
func (s *Store) Transactions() repository.TransactionRepository { return transactions{handle{s: s}} }

func (s *Store) Close() error { return nil }

// RunInTx runs fn with exclusive write access against a private copy of the
// state. The copy replaces the live state only when fn succeeds, so readers
// never observe a partial unit of work.
func (s *Store) RunInTx(ctx context.Context, fn func(repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	work := s.st.clone()
	s.mu.Unlock()

	if err := fn(txRepos{handle{s: s, work: work}}); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = work
	s.mu.Unlock()
	return nil
}

type txRepos struct{ h handle }

func (r txRepos) Users() repository.UserRepository               { return r.h }
func (r txRepos) Accounts() repository.AccountRepository         { return accounts{r.h} }
func (r txRepos) Categories() repository.CategoryRepository      { return categories{r.h} }
func (r txRepos) Budgets() repository.BudgetRepository           { return budgets{r.h} }
func (r txRepos) Transactions() repository.TransactionRepository { return transactions{r.h} }

// handle is the per-call view of the store. Inside RunInTx it works on the
// transaction's copy, which only the writer holding txMu can reach. Writes
// outside RunInTx take the writer lock themselves.
type handle struct {
	s    *Store
	work *state
}

func (h handle) read(fn func(st *state) error) error {
	if h.work != nil {
		return fn(h.work)
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return fn(h.s.st)
}

func (h handle) write(fn func(st *state, now time.Time) error) error {
	if h.work != nil {
		return fn(h.work, h.s.now())
	}
	h.s.txMu.Lock()
	defer h.s.txMu.Unlock()

	// A failing fn leaves the live state untouched.
	h.s.mu.Lock()
	work := h.s.st.clone()
	h.s.mu.Unlock()
	if err := fn(work, h.s.now()); err != nil {
		return err
	}
	h.s.mu.Lock()
	h.s.st = work
	h.s.mu.Unlock()
	return nil
}

func fkError(entity string, id int64, ref string) error {
	return fmt.Errorf("%s %d: %s: %w", entity, id, ref, repository.ErrForeignKey)
}

// Users

func (h handle) Ensure(_ context.Context, id string) (core.User, error) {
	var u core.User
	err := h.write(func(st *state, now time.Time) error {
		if existing, ok := st.users[id]; ok {
			u = existing
			return nil
		}
		u = core.User{ID: id, CreatedAt: now, ModifiedAt: now}
		st.users[id] = u
		return nil
	})
	return u, err
}

func (h handle) Get(_ context.Context, id string) (core.User, error) {
	var u core.User
	err := h.read(func(st *state) error {
		var ok bool
		if u, ok = st.users[id]; !ok {
			return fmt.Errorf("user %q: %w", id, core.ErrNotFound)
		}
		return nil
	})
	return u, err
}

// DropAccount removes an account without checking references, leaving its
// transactions and budgets dangling. It mimics a row removed out of band.
func (s *Store) DropAccount(id int64) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.accounts.rows, id)
}
