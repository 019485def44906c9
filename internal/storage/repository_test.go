package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budgettracker/internal/core"
	"budgettracker/internal/repository"
	"budgettracker/internal/services"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "budget.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seed(t *testing.T, r *SQLiteRepository) (core.Account, core.Transaction) {
	t.Helper()
	ctx := context.Background()
	if _, err := r.Users().Ensure(ctx, "u1"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	a, err := r.Accounts().Add(ctx, core.Account{UserID: "u1", Name: "Wallet", Currency: "EUR", Balance: decimal.RequireFromString("10.50")})
	if err != nil {
		t.Fatalf("add account: %v", err)
	}
	tx, err := r.Transactions().Add(ctx, core.Transaction{
		UserID:    "u1",
		AccountID: a.ID,
		Amount:    decimal.RequireFromString("3.25"),
		Type:      core.Expense,
		Date:      core.NewDate(2024, 3, 9),
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	return a, tx
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 123, time.UTC)
	r.SetClock(func() time.Time { return fixed })

	a, tx := seed(t, r)
	if a.ID == 0 || a.Version != 1 || !a.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected account %+v", a)
	}
	if !a.Balance.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("balance = %s", a.Balance)
	}
	if tx.Date.String() != "2024-03-09" || tx.Type != core.Expense || tx.CategoryID != nil {
		t.Fatalf("unexpected transaction %+v", tx)
	}

	parent, err := r.Categories().Add(ctx, core.Category{UserID: "u1", Name: "Home"})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	child, err := r.Categories().Add(ctx, core.Category{UserID: "u1", Name: "Rent", ParentID: &parent.ID})
	if err != nil {
		t.Fatalf("add child: %v", err)
	}
	kids, err := r.Categories().ListByParent(ctx, parent.ID)
	if err != nil || len(kids) != 1 || kids[0].ID != child.ID {
		t.Fatalf("ListByParent = %+v, %v", kids, err)
	}

	b, err := r.Budgets().Add(ctx, core.Budget{
		UserID: "u1", Name: "March", Amount: decimal.NewFromInt(100),
		StartDate: core.NewDate(2024, 3, 1), EndDate: core.NewDate(2024, 3, 31), AccountID: &a.ID,
	})
	if err != nil {
		t.Fatalf("add budget: %v", err)
	}
	byAccount, err := r.Budgets().ListByAccount(ctx, a.ID)
	if err != nil || len(byAccount) != 1 || !byAccount[0].EndDate.Equal(b.EndDate.Time) {
		t.Fatalf("ListByAccount = %+v, %v", byAccount, err)
	}
}

func TestUpdateCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	a, _ := seed(t, r)

	a.Name = "Main"
	updated, err := r.Accounts().Update(ctx, a)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || updated.Name != "Main" {
		t.Fatalf("unexpected %+v", updated)
	}

	if _, err := r.Accounts().Update(ctx, a); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("stale update: got %v", err)
	}
	a.ID = 999
	if _, err := r.Accounts().Update(ctx, a); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing row: got %v", err)
	}
	if _, err := r.Accounts().Get(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get missing: got %v", err)
	}
}

func TestForeignKeysAreRestrictive(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	a, tx := seed(t, r)

	if err := r.Accounts().Delete(ctx, a.ID); !errors.Is(err, repository.ErrForeignKey) {
		t.Fatalf("delete referenced account: got %v", err)
	}
	_, err := r.Transactions().Add(ctx, core.Transaction{
		UserID: "u1", AccountID: 404, Amount: decimal.NewFromInt(1), Type: core.Income, Date: core.NewDate(2024, 1, 1),
	})
	if !errors.Is(err, repository.ErrForeignKey) {
		t.Fatalf("dangling account: got %v", err)
	}

	if err := r.Transactions().Delete(ctx, tx.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if err := r.Transactions().Delete(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
	if err := r.Accounts().Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete unreferenced account: %v", err)
	}
}

func TestRunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	a, _ := seed(t, r)

	boom := errors.New("boom")
	err := r.RunInTx(ctx, func(tr repository.Repos) error {
		a.Balance = decimal.NewFromInt(1000)
		if _, err := tr.Accounts().Update(ctx, a); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunInTx = %v", err)
	}
	got, _ := r.Accounts().Get(ctx, a.ID)
	if !got.Balance.Equal(decimal.RequireFromString("10.5")) || got.Version != 1 {
		t.Fatalf("write survived rollback: %+v", got)
	}
}

func TestClearAndDeleteByBudget(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	a, tx := seed(t, r)
	b, err := r.Budgets().Add(ctx, core.Budget{
		UserID: "u1", Name: "March", Amount: decimal.NewFromInt(100),
		StartDate: core.NewDate(2024, 3, 1), EndDate: core.NewDate(2024, 3, 31),
	})
	if err != nil {
		t.Fatalf("add budget: %v", err)
	}
	tx.BudgetID = &b.ID
	if tx, err = r.Transactions().Update(ctx, tx); err != nil {
		t.Fatalf("link budget: %v", err)
	}

	ids, err := r.Transactions().ClearBudget(ctx, b.ID)
	if err != nil || len(ids) != 1 || ids[0] != tx.ID {
		t.Fatalf("ClearBudget = %v, %v", ids, err)
	}
	cleared, _ := r.Transactions().Get(ctx, tx.ID)
	if cleared.BudgetID != nil || cleared.Version != tx.Version+1 {
		t.Fatalf("not cleared: %+v", cleared)
	}

	ids, err = r.Transactions().DeleteByAccount(ctx, a.ID)
	if err != nil || len(ids) != 1 {
		t.Fatalf("DeleteByAccount = %v, %v", ids, err)
	}
	if err := r.Budgets().Delete(ctx, b.ID); err != nil {
		t.Fatalf("delete budget: %v", err)
	}
}

func TestSyncStatus(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	_, tx := seed(t, r)

	pending, err := r.GetPendingSync(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].ID != tx.ID {
		t.Fatalf("GetPendingSync = %+v, %v", pending, err)
	}

	// A concurrent edit bumps the version; the stale mark is ignored.
	tx.Description = "edited"
	if _, err := r.Transactions().Update(ctx, tx); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := r.MarkSynced(ctx, tx.ID, pending[0].Version); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if pending, _ = r.GetPendingSync(ctx, 10); len(pending) != 1 {
		t.Fatalf("edited row should stay pending, got %d", len(pending))
	}

	if err := r.MarkSyncError(ctx, tx.ID); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}
	if pending, _ = r.GetPendingSync(ctx, 10); len(pending) != 0 {
		t.Fatalf("errored row still pending")
	}
	if n, err := r.RetryErrored(ctx); err != nil || n != 1 {
		t.Fatalf("RetryErrored = %d, %v", n, err)
	}
	pending, _ = r.GetPendingSync(ctx, 10)
	if err := r.MarkSynced(ctx, tx.ID, pending[0].Version); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if pending, _ = r.GetPendingSync(ctx, 10); len(pending) != 0 {
		t.Fatalf("synced row still pending")
	}
}

func TestServicesOnSQLite(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	accounts := services.NewAccountService(r, nil)
	transactions := services.NewTransactionService(r, nil)

	acc, err := accounts.Create(ctx, "u1", services.AccountInput{Name: "Checking", Currency: "EUR", Balance: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	v, err := transactions.Create(ctx, "u1", services.TransactionInput{
		AccountID: acc.ID, Amount: decimal.NewFromInt(30), Type: core.Expense, Date: core.NewDate(2024, 1, 2),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if _, err := transactions.Create(ctx, "u1", services.TransactionInput{
		AccountID: 999, Amount: decimal.NewFromInt(1), Type: core.Expense, Date: core.NewDate(2024, 1, 2),
	}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing account: got %v", err)
	}
	if _, err := transactions.Update(ctx, "u1", v.ID, services.TransactionInput{
		AccountID: acc.ID, Amount: decimal.NewFromInt(45), Type: core.Expense, Date: v.Date, Version: v.Version,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := r.Accounts().Get(ctx, acc.ID)
	if !got.Balance.Equal(decimal.NewFromInt(55)) {
		t.Fatalf("balance = %s, want 55", got.Balance)
	}

	if err := accounts.Delete(ctx, "u1", acc.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	txs, _ := r.Transactions().List(ctx)
	if len(txs) != 0 {
		t.Fatalf("orphaned transactions: %+v", txs)
	}
}
