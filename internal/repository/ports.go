// Package repository defines the persistence ports used by the services.
//
// Every Get returns an error matching core.ErrNotFound when the row is
// absent. Add assigns the id, sets CreatedAt/ModifiedAt and starts Version
// at 1. Update is a compare-and-swap on (ID, Version): it bumps Version and
// ModifiedAt on success and otherwise returns core.ErrNotFound when the row
// is gone or core.ErrConflict when it was changed concurrently.
package repository

import (
	"context"

	"budgettracker/internal/core"
)

type UserRepository interface {
	// Ensure creates the user row if it does not exist yet.
	Ensure(ctx context.Context, id string) (core.User, error)
	Get(ctx context.Context, id string) (core.User, error)
}

type AccountRepository interface {
	List(ctx context.Context) ([]core.Account, error)
	ListByOwner(ctx context.Context, userID string) ([]core.Account, error)
	Get(ctx context.Context, id int64) (core.Account, error)
	Add(ctx context.Context, a core.Account) (core.Account, error)
	Update(ctx context.Context, a core.Account) (core.Account, error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

type CategoryRepository interface {
	List(ctx context.Context) ([]core.Category, error)
	ListByOwner(ctx context.Context, userID string) ([]core.Category, error)
	ListByParent(ctx context.Context, parentID int64) ([]core.Category, error)
	Get(ctx context.Context, id int64) (core.Category, error)
	Add(ctx context.Context, c core.Category) (core.Category, error)
	Update(ctx context.Context, c core.Category) (core.Category, error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

type BudgetRepository interface {
	List(ctx context.Context) ([]core.Budget, error)
	ListByOwner(ctx context.Context, userID string) ([]core.Budget, error)
	ListByAccount(ctx context.Context, accountID int64) ([]core.Budget, error)
	Get(ctx context.Context, id int64) (core.Budget, error)
	Add(ctx context.Context, b core.Budget) (core.Budget, error)
	Update(ctx context.Context, b core.Budget) (core.Budget, error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

type TransactionRepository interface {
	List(ctx context.Context) ([]core.Transaction, error)
	ListByOwner(ctx context.Context, userID string) ([]core.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]core.Transaction, error)
	ListByBudget(ctx context.Context, budgetID int64) ([]core.Transaction, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
	Add(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	Update(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)

	// DeleteByAccount and DeleteByBudget remove every referencing row and
	// return the ids removed.
	DeleteByAccount(ctx context.Context, accountID int64) ([]int64, error)
	DeleteByBudget(ctx context.Context, budgetID int64) ([]int64, error)
	// ClearBudget and ClearCategory null the optional link on every
	// referencing row and return the ids touched.
	ClearBudget(ctx context.Context, budgetID int64) ([]int64, error)
	ClearCategory(ctx context.Context, categoryID int64) ([]int64, error)
}

// Repos groups the per-entity repositories bound to one unit of work.
type Repos interface {
	Users() UserRepository
	Accounts() AccountRepository
	Categories() CategoryRepository
	Budgets() BudgetRepository
	Transactions() TransactionRepository
}

// Store is a Repos that can also run fn atomically. When fn returns an error
// nothing it wrote is kept.
type Store interface {
	Repos
	RunInTx(ctx context.Context, fn func(Repos) error) error
	Close() error
}
