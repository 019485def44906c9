package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"budgettracker/internal/amqp"
	"budgettracker/internal/core"
	"budgettracker/internal/repository"
)

type AccountInput struct {
	Name        string
	Currency    string
	Balance     decimal.Decimal
	Description string
	Version     int64
}

type AccountService struct {
	base
}

func NewAccountService(store repository.Store, events EventPublisher) *AccountService {
	return &AccountService{base: newBase(store, events)}
}

// List returns every account of every user.
func (s *AccountService) List(ctx context.Context) ([]core.AccountView, error) {
	accs, err := s.store.Accounts().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accountViews(accs), nil
}

func (s *AccountService) ListByOwner(ctx context.Context, owner string) ([]core.AccountView, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	accs, err := s.store.Accounts().ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accountViews(accs), nil
}

func (s *AccountService) Get(ctx context.Context, owner string, id int64) (core.AccountView, error) {
	a, err := s.load(ctx, s.store, owner, id)
	if err != nil {
		return core.AccountView{}, err
	}
	return core.NewAccountView(a), nil
}

func (s *AccountService) Exists(ctx context.Context, owner string, id int64) (bool, error) {
	_, err := s.load(ctx, s.store, owner, id)
	if isNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *AccountService) Create(ctx context.Context, owner string, in AccountInput) (core.AccountView, error) {
	if err := requireOwner(owner); err != nil {
		return core.AccountView{}, err
	}
	a := core.Account{
		UserID:      owner,
		Name:        in.Name,
		Currency:    in.Currency,
		Balance:     core.RoundMoney(in.Balance),
		Description: in.Description,
	}
	if err := a.Validate(); err != nil {
		return core.AccountView{}, err
	}

	err := s.store.RunInTx(ctx, func(r repository.Repos) error {
		if _, err := r.Users().Ensure(ctx, owner); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		var err error
		a, err = r.Accounts().Add(ctx, a)
		return err
	})
	if err != nil {
		return core.AccountView{}, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account created", "account_id", a.ID, "user_id", owner, "currency", a.Currency)
	return core.NewAccountView(a), nil
}

// Update replaces the editable fields, including the balance. A direct
// balance edit does not touch any transaction.
func (s *AccountService) Update(ctx context.Context, owner string, id int64, in AccountInput) (core.AccountView, error) {
	cur, err := s.load(ctx, s.store, owner, id)
	if err != nil {
		return core.AccountView{}, err
	}
	if err := checkVersion("account", id, cur.Version, in.Version); err != nil {
		return core.AccountView{}, err
	}

	cur.Name = in.Name
	cur.Currency = in.Currency
	cur.Balance = core.RoundMoney(in.Balance)
	cur.Description = in.Description
	if err := cur.Validate(); err != nil {
		return core.AccountView{}, err
	}

	updated, err := s.store.Accounts().Update(ctx, cur)
	if err != nil {
		return core.AccountView{}, fmt.Errorf("update account: %w", err)
	}
	return core.NewAccountView(updated), nil
}

// Delete removes the account with everything hanging off it, in order:
// its transactions, then for each budget linked to it the budget's
// transactions and the budget, then the account itself. Budget transactions
// booked on other accounts have their balance effect reversed there.
func (s *AccountService) Delete(ctx context.Context, owner string, id int64) error {
	var (
		deletedTx []int64
		budgetIDs []int64
	)
	err := s.store.RunInTx(ctx, func(r repository.Repos) error {
		a, err := s.load(ctx, r, owner, id)
		if err != nil {
			return err
		}

		ids, err := r.Transactions().DeleteByAccount(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("delete account transactions: %w", err)
		}
		deletedTx = append(deletedTx, ids...)

		budgets, err := r.Budgets().ListByAccount(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("list account budgets: %w", err)
		}
		for _, b := range budgets {
			txs, err := r.Transactions().ListByBudget(ctx, b.ID)
			if err != nil {
				return fmt.Errorf("list budget %d transactions: %w", b.ID, err)
			}
			if err := s.reverseAll(ctx, r, txs); err != nil {
				return err
			}
			ids, err := r.Transactions().DeleteByBudget(ctx, b.ID)
			if err != nil {
				return fmt.Errorf("delete budget %d transactions: %w", b.ID, err)
			}
			deletedTx = append(deletedTx, ids...)
			if err := r.Budgets().Delete(ctx, b.ID); err != nil {
				return fmt.Errorf("delete budget %d: %w", b.ID, err)
			}
			budgetIDs = append(budgetIDs, b.ID)
		}

		return r.Accounts().Delete(ctx, a.ID)
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	slog.InfoContext(ctx, "Account deleted",
		"account_id", id,
		"user_id", owner,
		"transactions_removed", len(deletedTx),
		"budgets_removed", len(budgetIDs))

	for _, bid := range budgetIDs {
		s.publish(ctx, amqp.BudgetDeleted, bid, owner, 0, nil)
	}
	s.publish(ctx, amqp.AccountDeleted, id, owner, 0, deletedTx)
	return nil
}

// reverseAll undoes the balance effect of txs, one account update per
// account. Accounts that no longer exist are skipped.
func (s *AccountService) reverseAll(ctx context.Context, r repository.Repos, txs []core.Transaction) error {
	byAccount := map[int64][]core.Transaction{}
	var order []int64
	for _, tx := range txs {
		if _, ok := byAccount[tx.AccountID]; !ok {
			order = append(order, tx.AccountID)
		}
		byAccount[tx.AccountID] = append(byAccount[tx.AccountID], tx)
	}

	now := s.now()
	for _, accountID := range order {
		acc, err := r.Accounts().Get(ctx, accountID)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load account %d: %w", accountID, err)
		}
		for _, tx := range byAccount[accountID] {
			core.ApplyDelta(&acc, tx.Amount, tx.Type, true, now)
		}
		if _, err := r.Accounts().Update(ctx, acc); err != nil {
			return fmt.Errorf("update account %d: %w", accountID, err)
		}
	}
	return nil
}

func (s *AccountService) load(ctx context.Context, r repository.Repos, owner string, id int64) (core.Account, error) {
	if err := requireOwner(owner); err != nil {
		return core.Account{}, err
	}
	a, err := r.Accounts().Get(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	if err := owned("account", id, a.UserID, owner); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func accountViews(accs []core.Account) []core.AccountView {
	out := make([]core.AccountView, 0, len(accs))
	for _, a := range accs {
		out = append(out, core.NewAccountView(a))
	}
	return out
}
