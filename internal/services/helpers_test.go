package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"budgettracker/internal/amqp"
	"budgettracker/internal/core"
	"budgettracker/internal/repository"
	"budgettracker/internal/repository/memory"
)

const (
	alice = "alice"
	bob   = "bob"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

type fixture struct {
	store        repository.Store
	events       *recordingPublisher
	accounts     *AccountService
	categories   *CategoryService
	budgets      *BudgetService
	transactions *TransactionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, memory.New())
}

func newFixtureOn(t *testing.T, store repository.Store) *fixture {
	t.Helper()
	events := &recordingPublisher{}
	return &fixture{
		store:        store,
		events:       events,
		accounts:     NewAccountService(store, events),
		categories:   NewCategoryService(store, events),
		budgets:      NewBudgetService(store, events, "BGN"),
		transactions: NewTransactionService(store, events),
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) account(t *testing.T, owner, name, balance string) core.AccountView {
	t.Helper()
	a, err := f.accounts.Create(context.Background(), owner, AccountInput{Name: name, Currency: "EUR", Balance: d(balance)})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func (f *fixture) tx(t *testing.T, owner string, in TransactionInput) core.TransactionView {
	t.Helper()
	if in.Date.IsZero() {
		in.Date = core.NewDate(2024, 1, 15)
	}
	v, err := f.transactions.Create(context.Background(), owner, in)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return v
}

func (f *fixture) budget(t *testing.T, owner string, accountID *int64, amount string) core.BudgetView {
	t.Helper()
	b, err := f.budgets.Create(context.Background(), owner, BudgetInput{
		Name:      "January",
		Amount:    d(amount),
		StartDate: core.NewDate(2024, 1, 1),
		EndDate:   core.NewDate(2024, 1, 31),
		AccountID: accountID,
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	return b
}

func (f *fixture) balance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	a, err := f.store.Accounts().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %d: %v", id, err)
	}
	return a.Balance
}

// assertBalanceInvariant checks balance == opening + signed sum of the
// account's transactions.
func (f *fixture) assertBalanceInvariant(t *testing.T, id int64, opening string) {
	t.Helper()
	txs, err := f.store.Transactions().ListByAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	want := d(opening)
	for _, tx := range txs {
		want = want.Add(tx.Amount.Mul(tx.Type.Sign()))
	}
	if got := f.balance(t, id); !got.Equal(want) {
		t.Fatalf("account %d balance = %s, want %s", id, got, want)
	}
}

// dropAccount removes the account row behind the services' back.
func (f *fixture) dropAccount(t *testing.T, id int64) {
	t.Helper()
	m, ok := f.store.(*memory.Store)
	if !ok {
		t.Fatalf("dropAccount needs a memory store, have %T", f.store)
	}
	m.DropAccount(id)
}

func ptr(v int64) *int64 { return &v }
