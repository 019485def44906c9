package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"budgettracker/internal/amqp"
	"budgettracker/internal/core"
	"budgettracker/internal/repository"
)

// DefaultCurrency is used for budgets without a linked account unless the
// service is configured otherwise.
const DefaultCurrency = "BGN"

// statsConcurrency bounds the per-budget statistic queries of a list call.
const statsConcurrency = 4

type BudgetInput struct {
	Name      string
	Amount    decimal.Decimal
	StartDate core.Date
	EndDate   core.Date
	AccountID *int64
	Version   int64
}

// BudgetService manages budgets. Statistics are derived from the linked
// transactions on every read and never stored.
type BudgetService struct {
	base
	defaultCurrency string
}

func NewBudgetService(store repository.Store, events EventPublisher, defaultCurrency string) *BudgetService {
	if defaultCurrency == "" {
		defaultCurrency = DefaultCurrency
	}
	return &BudgetService{base: newBase(store, events), defaultCurrency: defaultCurrency}
}

func (s *BudgetService) List(ctx context.Context) ([]core.BudgetView, error) {
	budgets, err := s.store.Budgets().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return s.views(ctx, budgets)
}

func (s *BudgetService) ListByOwner(ctx context.Context, owner string) ([]core.BudgetView, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	budgets, err := s.store.Budgets().ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return s.views(ctx, budgets)
}

func (s *BudgetService) Get(ctx context.Context, owner string, id int64) (core.BudgetView, error) {
	b, err := s.load(ctx, s.store, owner, id)
	if err != nil {
		return core.BudgetView{}, err
	}
	return s.view(ctx, b)
}

func (s *BudgetService) Exists(ctx context.Context, owner string, id int64) (bool, error) {
	_, err := s.load(ctx, s.store, owner, id)
	if isNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *BudgetService) Create(ctx context.Context, owner string, in BudgetInput) (core.BudgetView, error) {
	if err := requireOwner(owner); err != nil {
		return core.BudgetView{}, err
	}
	b := core.Budget{
		UserID:    owner,
		Name:      in.Name,
		Amount:    core.RoundMoney(in.Amount),
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		AccountID: in.AccountID,
	}
	if err := b.Validate(); err != nil {
		return core.BudgetView{}, err
	}

	err := s.store.RunInTx(ctx, func(r repository.Repos) error {
		if err := s.checkAccount(ctx, r, owner, b.AccountID); err != nil {
			return err
		}
		if _, err := r.Users().Ensure(ctx, owner); err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		var err error
		b, err = r.Budgets().Add(ctx, b)
		return err
	})
	if err != nil {
		return core.BudgetView{}, fmt.Errorf("create budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget created", "budget_id", b.ID, "user_id", owner, "amount", b.Amount.String())
	return s.view(ctx, b)
}

func (s *BudgetService) Update(ctx context.Context, owner string, id int64, in BudgetInput) (core.BudgetView, error) {
	var b core.Budget
	err := s.store.RunInTx(ctx, func(r repository.Repos) error {
		var err error
		if b, err = s.load(ctx, r, owner, id); err != nil {
			return err
		}
		if err := checkVersion("budget", id, b.Version, in.Version); err != nil {
			return err
		}
		b.Name = in.Name
		b.Amount = core.RoundMoney(in.Amount)
		b.StartDate, b.EndDate = in.StartDate, in.EndDate
		b.AccountID = in.AccountID
		if err := b.Validate(); err != nil {
			return err
		}
		if err := s.checkAccount(ctx, r, owner, b.AccountID); err != nil {
			return err
		}
		b, err = r.Budgets().Update(ctx, b)
		return err
	})
	if err != nil {
		return core.BudgetView{}, fmt.Errorf("update budget: %w", err)
	}
	return s.view(ctx, b)
}

// Delete unlinks every transaction from the budget, then removes it. The
// transactions themselves are kept.
func (s *BudgetService) Delete(ctx context.Context, owner string, id int64) error {
	var cleared []int64
	err := s.store.RunInTx(ctx, func(r repository.Repos) error {
		if _, err := s.load(ctx, r, owner, id); err != nil {
			return err
		}
		var err error
		if cleared, err = r.Transactions().ClearBudget(ctx, id); err != nil {
			return fmt.Errorf("unlink transactions: %w", err)
		}
		return r.Budgets().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget deleted", "budget_id", id, "user_id", owner, "transactions_unlinked", len(cleared))
	s.publish(ctx, amqp.BudgetDeleted, id, owner, 0, cleared)
	return nil
}

// InWindowTransactions returns the budget together with the transactions that
// count toward it.
func (s *BudgetService) InWindowTransactions(ctx context.Context, owner string, id int64) (core.Budget, []core.Transaction, error) {
	b, err := s.load(ctx, s.store, owner, id)
	if err != nil {
		return core.Budget{}, nil, err
	}
	txs, err := s.store.Transactions().ListByBudget(ctx, b.ID)
	if err != nil {
		return core.Budget{}, nil, fmt.Errorf("list budget transactions: %w", err)
	}
	return b, core.InBudgetWindow(b, txs), nil
}

// views computes statistics for many budgets concurrently; the result keeps
// the input order.
func (s *BudgetService) views(ctx context.Context, budgets []core.Budget) ([]core.BudgetView, error) {
	out := make([]core.BudgetView, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsConcurrency)
	for i, b := range budgets {
		g.Go(func() error {
			v, err := s.view(gctx, b)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BudgetService) view(ctx context.Context, b core.Budget) (core.BudgetView, error) {
	var account *core.Account
	if b.AccountID != nil {
		a, err := s.store.Accounts().Get(ctx, *b.AccountID)
		switch {
		case err == nil:
			account = &a
		case !isNotFound(err):
			return core.BudgetView{}, fmt.Errorf("load budget account: %w", err)
		}
	}
	txs, err := s.store.Transactions().ListByBudget(ctx, b.ID)
	if err != nil {
		return core.BudgetView{}, fmt.Errorf("list budget %d transactions: %w", b.ID, err)
	}
	stats := core.ComputeBudgetStats(b, txs, core.BudgetCurrency(account, s.defaultCurrency))
	return core.NewBudgetView(b, account, stats), nil
}

func (s *BudgetService) checkAccount(ctx context.Context, r repository.Repos, owner string, accountID *int64) error {
	if accountID == nil {
		return nil
	}
	a, err := r.Accounts().Get(ctx, *accountID)
	if err != nil {
		return err
	}
	return owned("account", *accountID, a.UserID, owner)
}

func (s *BudgetService) load(ctx context.Context, r repository.Repos, owner string, id int64) (core.Budget, error) {
	if err := requireOwner(owner); err != nil {
		return core.Budget{}, err
	}
	b, err := r.Budgets().Get(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	if err := owned("budget", id, b.UserID, owner); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}
