package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"budgettracker/internal/amqp"
	"budgettracker/internal/core"
	applog "budgettracker/internal/log"
	"budgettracker/internal/repository"
)

type TransactionInput struct {
	AccountID   int64
	CategoryID  *int64
	BudgetID    *int64
	Amount      decimal.Decimal
	Type        core.TransactionType
	Date        core.Date
	Description string
	Version     int64
}

// TransactionService records money movements and keeps the stored account
// balances equal to the signed sum of their transactions. Balances are
// adjusted incrementally on every write, never recomputed.
//
// When the account a stored transaction points at has disappeared, update
// and delete skip the balance adjustment for it and still complete.
type TransactionService struct {
	base
}

func NewTransactionService(store repository.Store, events EventPublisher) *TransactionService {
	return &TransactionService{base: newBase(store, events)}
}

func (s *TransactionService) List(ctx context.Context) ([]core.TransactionView, error) {
	txs, err := s.store.Transactions().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return s.views(ctx, txs)
}

func (s *TransactionService) ListByOwner(ctx context.Context, owner string) ([]core.TransactionView, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	txs, err := s.store.Transactions().ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return s.views(ctx, txs)
}

func (s *TransactionService) ListByAccount(ctx context.Context, owner string, accountID int64) ([]core.TransactionView, error) {
	if err := s.ownsAccount(ctx, s.store, owner, accountID); err != nil {
		return nil, err
	}
	txs, err := s.store.Transactions().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list account transactions: %w", err)
	}
	return s.views(ctx, txs)
}

// ListByCategory returns the owner's transactions in a category. Categories
// are shared, so only the transactions are filtered by owner.
func (s *TransactionService) ListByCategory(ctx context.Context, owner string, categoryID int64) ([]core.TransactionView, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if _, err := s.store.Categories().Get(ctx, categoryID); err != nil {
		return nil, err
	}
	txs, err := s.store.Transactions().ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list category transactions: %w", err)
	}
	mine := txs[:0]
	for _, tx := range txs {
		if tx.UserID == owner {
			mine = append(mine, tx)
		}
	}
	return s.views(ctx, mine)
}

func (s *TransactionService) ListByBudget(ctx context.Context, owner string, budgetID int64) ([]core.TransactionView, error) {
	if err := s.ownsBudget(ctx, s.store, owner, budgetID); err != nil {
		return nil, err
	}
	txs, err := s.store.Transactions().ListByBudget(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget transactions: %w", err)
	}
	return s.views(ctx, txs)
}

func (s *TransactionService) Get(ctx context.Context, owner string, id int64) (core.TransactionView, error) {
	tx, err := s.load(ctx, s.store, owner, id)
	if err != nil {
		return core.TransactionView{}, err
	}
	return s.view(ctx, tx)
}

func (s *TransactionService) Exists(ctx context.Context, owner string, id int64) (bool, error) {
	_, err := s.load(ctx, s.store, owner, id)
	if isNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// Create books the transaction and applies it to its account in one unit.
// A missing account fails with NotFound before anything is written.
func (s *TransactionService) Create(ctx context.Context, owner string, in TransactionInput) (core.TransactionView, error) {
	if err := requireOwner(owner); err != nil {
		return core.TransactionView{}, err
	}
	tx := core.Transaction{
		UserID:      owner,
		AccountID:   in.AccountID,
		CategoryID:  in.CategoryID,
		BudgetID:    in.BudgetID,
		Amount:      core.RoundMoney(in.Amount),
		Type:        in.Type,
		Date:        in.Date,
		Description: in.Description,
	}
	if err := tx.Validate(); err != nil {
		return core.TransactionView{}, err
	}

	err := s.store.RunInTx(ctx, func(r repository.Repos) error {
		acc, err := s.loadAccount(ctx, r, owner, tx.AccountID)
		if err != nil {
			return err
		}
		if err := s.checkLinks(ctx, r, owner, tx); err != nil {
			return err
		}
		if _, err := r.Users().Ensure(ctx, owner); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}

		core.ApplyDelta(&acc, tx.Amount, tx.Type, false, s.now())
		if _, err := r.Accounts().Update(ctx, acc); err != nil {
			return fmt.Errorf("update account balance: %w", err)
		}
		tx, err = r.Transactions().Add(ctx, tx)
		return err
	})
	if err != nil {
		return core.TransactionView{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created", applog.NewFields().
		WithTransaction(tx.ID, tx.AccountID, tx.Amount, string(tx.Type)).
		WithUser(owner).
		ToSlice()...)
	s.publish(ctx, amqp.TransactionCreated, tx.ID, owner, tx.Version, nil)
	return s.view(ctx, tx)
}

// Update reverses the old effect and applies the new one. When the account
// changes and the new one does not exist, the old account is left exactly as
// it was and NotFound is returned.
func (s *TransactionService) Update(ctx context.Context, owner string, id int64, in TransactionInput) (core.TransactionView, error) {
	var updated core.Transaction
	err := s.store.RunInTx(ctx, func(r repository.Repos) error {
		cur, err := s.load(ctx, r, owner, id)
		if err != nil {
			return err
		}
		if err := checkVersion("transaction", id, cur.Version, in.Version); err != nil {
			return err
		}

		next := cur
		next.AccountID = in.AccountID
		next.CategoryID = in.CategoryID
		next.BudgetID = in.BudgetID
		next.Amount = core.RoundMoney(in.Amount)
		next.Type = in.Type
		next.Date = in.Date
		next.Description = in.Description
		if err := next.Validate(); err != nil {
			return err
		}
		if err := s.checkLinks(ctx, r, owner, next); err != nil {
			return err
		}

		now := s.now()
		oldAcc, oldFound, err := s.currentAccount(ctx, r, cur)
		if err != nil {
			return err
		}
		if oldFound {
			core.ApplyDelta(&oldAcc, cur.Amount, cur.Type, true, now)
		}

		if next.AccountID == cur.AccountID {
			if oldFound {
				core.ApplyDelta(&oldAcc, next.Amount, next.Type, false, now)
				if _, err := r.Accounts().Update(ctx, oldAcc); err != nil {
					return fmt.Errorf("update account balance: %w", err)
				}
			}
		} else {
			newAcc, err := s.loadAccount(ctx, r, owner, next.AccountID)
			if err != nil {
				if oldFound {
					core.ApplyDelta(&oldAcc, cur.Amount, cur.Type, false, now)
				}
				return err
			}
			core.ApplyDelta(&newAcc, next.Amount, next.Type, false, now)
			if oldFound {
				if _, err := r.Accounts().Update(ctx, oldAcc); err != nil {
					return fmt.Errorf("update old account balance: %w", err)
				}
			}
			if _, err := r.Accounts().Update(ctx, newAcc); err != nil {
				return fmt.Errorf("update new account balance: %w", err)
			}
		}

		updated, err = r.Transactions().Update(ctx, next)
		return err
	})
	if err != nil {
		return core.TransactionView{}, fmt.Errorf("update transaction: %w", err)
	}

	s.publish(ctx, amqp.TransactionUpdated, updated.ID, owner, updated.Version, nil)
	return s.view(ctx, updated)
}

// Delete reverses the transaction on its account and removes it.
func (s *TransactionService) Delete(ctx context.Context, owner string, id int64) error {
	var deleted core.Transaction
	err := s.store.RunInTx(ctx, func(r repository.Repos) error {
		var err error
		if deleted, err = s.load(ctx, r, owner, id); err != nil {
			return err
		}
		acc, found, err := s.currentAccount(ctx, r, deleted)
		if err != nil {
			return err
		}
		if found {
			core.ApplyDelta(&acc, deleted.Amount, deleted.Type, true, s.now())
			if _, err := r.Accounts().Update(ctx, acc); err != nil {
				return fmt.Errorf("update account balance: %w", err)
			}
		}
		return r.Transactions().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id, "account_id", deleted.AccountID)
	s.publish(ctx, amqp.TransactionDeleted, id, owner, deleted.Version, nil)
	return nil
}

// currentAccount resolves the account a stored transaction points at.
// found is false when it was removed out of band.
func (s *TransactionService) currentAccount(ctx context.Context, r repository.Repos, tx core.Transaction) (core.Account, bool, error) {
	acc, err := r.Accounts().Get(ctx, tx.AccountID)
	if isNotFound(err) {
		slog.WarnContext(ctx, "Account of transaction is missing, skipping balance adjustment",
			"transaction_id", tx.ID,
			"account_id", tx.AccountID)
		return core.Account{}, false, nil
	}
	if err != nil {
		return core.Account{}, false, fmt.Errorf("load account %d: %w", tx.AccountID, err)
	}
	return acc, true, nil
}

// checkLinks verifies the optional category and budget references.
func (s *TransactionService) checkLinks(ctx context.Context, r repository.Repos, owner string, tx core.Transaction) error {
	if tx.CategoryID != nil {
		c, err := r.Categories().Get(ctx, *tx.CategoryID)
		if err != nil {
			return err
		}
		if err := owned("category", c.ID, c.UserID, owner); err != nil {
			return err
		}
	}
	if tx.BudgetID != nil {
		if err := s.ownsBudget(ctx, r, owner, *tx.BudgetID); err != nil {
			return err
		}
	}
	return nil
}

func (s *TransactionService) loadAccount(ctx context.Context, r repository.Repos, owner string, id int64) (core.Account, error) {
	a, err := r.Accounts().Get(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	if err := owned("account", id, a.UserID, owner); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (s *TransactionService) ownsAccount(ctx context.Context, r repository.Repos, owner string, id int64) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	_, err := s.loadAccount(ctx, r, owner, id)
	return err
}

func (s *TransactionService) ownsBudget(ctx context.Context, r repository.Repos, owner string, id int64) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	b, err := r.Budgets().Get(ctx, id)
	if err != nil {
		return err
	}
	return owned("budget", id, b.UserID, owner)
}

func (s *TransactionService) load(ctx context.Context, r repository.Repos, owner string, id int64) (core.Transaction, error) {
	if err := requireOwner(owner); err != nil {
		return core.Transaction{}, err
	}
	tx, err := r.Transactions().Get(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := owned("transaction", id, tx.UserID, owner); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (s *TransactionService) view(ctx context.Context, tx core.Transaction) (core.TransactionView, error) {
	l := newLookup(ctx, s.store)
	return core.NewTransactionView(tx, l.account(tx.AccountID), l.category(tx.CategoryID), l.budget(tx.BudgetID)), l.err
}

func (s *TransactionService) views(ctx context.Context, txs []core.Transaction) ([]core.TransactionView, error) {
	l := newLookup(ctx, s.store)
	out := make([]core.TransactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, core.NewTransactionView(tx, l.account(tx.AccountID), l.category(tx.CategoryID), l.budget(tx.BudgetID)))
	}
	if l.err != nil {
		return nil, l.err
	}
	return out, nil
}

// lookup memoizes related rows while building views. Missing rows resolve
// to nil; other errors are kept in err.
type lookup struct {
	ctx        context.Context
	repos      repository.Repos
	accounts   map[int64]*core.Account
	categories map[int64]*core.Category
	budgets    map[int64]*core.Budget
	err        error
}

func newLookup(ctx context.Context, r repository.Repos) *lookup {
	return &lookup{
		ctx:        ctx,
		repos:      r,
		accounts:   map[int64]*core.Account{},
		categories: map[int64]*core.Category{},
		budgets:    map[int64]*core.Budget{},
	}
}

func (l *lookup) account(id int64) *core.Account {
	if a, ok := l.accounts[id]; ok {
		return a
	}
	a, err := l.repos.Accounts().Get(l.ctx, id)
	l.accounts[id] = found(&a, err, &l.err)
	return l.accounts[id]
}

func (l *lookup) category(id *int64) *core.Category {
	if id == nil {
		return nil
	}
	if c, ok := l.categories[*id]; ok {
		return c
	}
	c, err := l.repos.Categories().Get(l.ctx, *id)
	l.categories[*id] = found(&c, err, &l.err)
	return l.categories[*id]
}

func (l *lookup) budget(id *int64) *core.Budget {
	if id == nil {
		return nil
	}
	if b, ok := l.budgets[*id]; ok {
		return b
	}
	b, err := l.repos.Budgets().Get(l.ctx, *id)
	l.budgets[*id] = found(&b, err, &l.err)
	return l.budgets[*id]
}

func found[T any](v *T, err error, sticky *error) *T {
	if err == nil {
		return v
	}
	if !isNotFound(err) && *sticky == nil {
		*sticky = err
	}
	return nil
}
