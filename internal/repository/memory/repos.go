package memory

import (
	"context"
	"time"

	"budgettracker/internal/core"
)

func ownedBy[T any](userID string, owner func(T) string) func(T) bool {
	return func(v T) bool { return owner(v) == userID }
}

// Accounts

type accounts struct{ h handle }

func (r accounts) List(_ context.Context) (out []core.Account, err error) {
	err = r.h.read(func(st *state) error {
		out = st.accounts.list(nil)
		return nil
	})
	return out, err
}

func (r accounts) ListByOwner(_ context.Context, userID string) (out []core.Account, err error) {
	err = r.h.read(func(st *state) error {
		out = st.accounts.list(ownedBy(userID, func(a core.Account) string { return a.UserID }))
		return nil
	})
	return out, err
}

func (r accounts) Get(_ context.Context, id int64) (a core.Account, err error) {
	err = r.h.read(func(st *state) error {
		a, err = st.accounts.get(id)
		return err
	})
	return a, err
}

func (r accounts) Add(_ context.Context, a core.Account) (out core.Account, err error) {
	err = r.h.write(func(st *state, now time.Time) error {
		if _, ok := st.users[a.UserID]; !ok {
			return fkError("account", a.ID, "unknown user "+a.UserID)
		}
		out = st.accounts.add(a, now)
		return nil
	})
	return out, err
}

func (r accounts) Update(_ context.Context, a core.Account) (out core.Account, err error) {
	err = r.h.write(func(st *state, now time.Time) error {
		out, err = st.accounts.update(a, now)
		return err
	})
	return out, err
}

func (r accounts) Delete(_ context.Context, id int64) error {
	return r.h.write(func(st *state, _ time.Time) error {
		if len(st.transactions.list(func(t core.Transaction) bool { return t.AccountID == id })) > 0 {
			return fkError("account", id, "referenced by transactions")
		}
		if len(st.budgets.list(func(b core.Budget) bool { return b.AccountID != nil && *b.AccountID == id })) > 0 {
			return fkError("account", id, "referenced by budgets")
		}
		return st.accounts.delete(id)
	})
}

func (r accounts) Exists(_ context.Context, id int64) (ok bool, err error) {
	err = r.h.read(func(st *state) error {
		ok = st.accounts.exists(id)
		return nil
	})
	return ok, err
}

// Categories

type categories struct{ h handle }

func (r categories) List(_ context.Context) (out []core.Category, err error) {
	err = r.h.read(func(st *state) error {
		out = st.categories.list(nil)
		return nil
	})
	return out, err
}

func (r categories) ListByOwner(_ context.Context, userID string) (out []core.Category, err error) {
	err = r.h.read(func(st *state) error {
		out = st.categories.list(ownedBy(userID, func(c core.Category) string { return c.UserID }))
		return nil
	})
	return out, err
}

func (r categories) ListByParent(_ context.Context, parentID int64) (out []core.Category, err error) {
	err = r.h.read(func(st *state) error {
		out = st.categories.list(func(c core.Category) bool { return c.ParentID != nil && *c.ParentID == parentID })
		return nil
	})
	return out, err
}

func (r categories) Get(_ context.Context, id int64) (c core.Category, err error) {
	err = r.h.read(func(st *state) error {
		c, err = st.categories.get(id)
		return err
	})
	return c, err
}

func (r categories) checkRefs(st *state, c core.Category) error {
	if _, ok := st.users[c.UserID]; !ok {
		return fkError("category", c.ID, "unknown user "+c.UserID)
	}
	if c.ParentID != nil && !st.categories.exists(*c.ParentID) {
		return fkError("category", c.ID, "unknown parent")
	}
	return nil
}

func (r categories) Add(_ context.Context, c core.Category) (out core.Category, err error) {
	err = r.h.write(func(st *state, now time.Time) error {
		if err := r.checkRefs(st, c); err != nil {
			return err
		}
		out = st.categories.add(c, now)
		return nil
	})
	return out, err
}

func (r categories) Update(_ context.Context, c core.Category) (out core.Category, err error) {
	err = r.h.write(func(st *state, now time.Time) error {
		if err := r.checkRefs(st, c); err != nil {
			return err
		}
		out, err = st.categories.update(c, now)
		return err
	})
	return out, err
}

func (r categories) Delete(_ context.Context, id int64) error {
	return r.h.write(func(st *state, _ time.Time) error {
		if len(st.transactions.list(func(t core.Transaction) bool { return t.CategoryID != nil && *t.CategoryID == id })) > 0 {
			return fkError("category", id, "referenced by transactions")
		}
		if len(st.categories.list(func(c core.Category) bool { return c.ParentID != nil && *c.ParentID == id })) > 0 {
			return fkError("category", id, "referenced by subcategories")
		}
		return st.categories.delete(id)
	})
}

func (r categories) Exists(_ context.Context, id int64) (ok bool, err error) {
	err = r.h.read(func(st *state) error {
		ok = st.categories.exists(id)
		return nil
	})
	return ok, err
}

// Budgets

type budgets struct{ h handle }

func (r budgets) List(_ context.Context) (out []core.Budget, err error) {
	err = r.h.read(func(st *state) error {
		out = st.budgets.list(nil)
		return nil
	})
	return out, err
}

func (r budgets) ListByOwner(_ context.Context, userID string) (out []core.Budget, err error) {
	err = r.h.read(func(st *state) error {
		out = st.budgets.list(ownedBy(userID, func(b core.Budget) string { return b.UserID }))
		return nil
	})
	return out, err
}

func (r budgets) ListByAccount(_ context.Context, accountID int64) (out []core.Budget, err error) {
	err = r.h.read(func(st *state) error {
		out = st.budgets.list(func(b core.Budget) bool { return b.AccountID != nil && *b.AccountID == accountID })
		return nil
	})
	return out, err
}

func (r budgets) Get(_ context.Context, id int64) (b core.Budget, err error) {
	err = r.h.read(func(st *state) error {
		b, err = st.budgets.get(id)
		return err
	})
	return b, err
}

func (r budgets) checkRefs(st *state, b core.Budget) error {
	if _, ok := st.users[b.UserID]; !ok {
		return fkError("budget", b.ID, "unknown user "+b.UserID)
	}
	if b.AccountID != nil && !st.accounts.exists(*b.AccountID) {
		return fkError("budget", b.ID, "unknown account")
	}
	return nil
}

func (r budgets) Add(_ context.Context, b core.Budget) (out core.Budget, err error) {
	err = r.h.write(func(st *state, now time.Time) error {
		if err := r.checkRefs(st, b); err != nil {
			return err
		}
		out = st.budgets.add(b, now)
		return nil
	})
	return out, err
}

func (r budgets) Update(_ context.Context, b core.Budget) (out core.Budget, err error) {
	err = r.h.write(func(st *state, now time.Time) error {
		if err := r.checkRefs(st, b); err != nil {
			return err
		}
		out, err = st.budgets.update(b, now)
		return err
	})
	return out, err
}

func (r budgets) Delete(_ context.Context, id int64) error {
	return r.h.write(func(st *state, _ time.Time) error {
		if len(st.transactions.list(func(t core.Transaction) bool { return t.BudgetID != nil && *t.BudgetID == id })) > 0 {
			return fkError("budget", id, "referenced by transactions")
		}
		return st.budgets.delete(id)
	})
}

func (r budgets) Exists(_ context.Context, id int64) (ok bool, err error) {
	err = r.h.read(func(st *state) error {
		ok = st.budgets.exists(id)
		return nil
	})
	return ok, err
}

// Transactions

type transactions struct{ h handle }

func (r transactions) List(_ context.Context) (out []core.Transaction, err error) {
	err = r.h.read(func(st *state) error {
		out = st.transactions.list(nil)
		return nil
	})
	return out, err
}

func (r transactions) ListByOwner(_ context.Context, userID string) (out []core.Transaction, err error) {
	err = r.h.read(func(st *state) error {
		out = st.transactions.list(ownedBy(userID, func(t core.Transaction) string { return t.UserID }))
		return nil
	})
	return out, err
}

func (r transactions) ListByAccount(_ context.Context, accountID int64) (out []core.Transaction, err error) {
	err = r.h.read(func(st *state) error {
		out = st.transactions.list(func(t core.Transaction) bool { return t.AccountID == accountID })
		return nil
	})
	return out, err
}

func (r transactions) ListByCategory(_ context.Context, categoryID int64) (out []core.Transaction, err error) {
	err = r.h.read(func(st *state) error {
		out = st.transactions.list(func(t core.Transaction) bool { return t.CategoryID != nil && *t.CategoryID == categoryID })
		return nil
	})
	return out, err
}

func (r transactions) ListByBudget(_ context.Context, budgetID int64) (out []core.Transaction, err error) {
	err = r.h.read(func(st *state) error {
		out = st.transactions.list(func(t core.Transaction) bool { return t.BudgetID != nil && *t.BudgetID == budgetID })
		return nil
	})
	return out, err
}

func (r transactions) Get(_ context.Context, id int64) (tx core.Transaction, err error) {
	err = r.h.read(func(st *state) error {
		tx, err = st.transactions.get(id)
		return err
	})
	return tx, err
}

func (r transactions) checkRefs(st *state, tx core.Transaction) error {
	if _, ok := st.users[tx.UserID]; !ok {
		return fkError("transaction", tx.ID, "unknown user "+tx.UserID)
	}
	if !st.accounts.exists(tx.AccountID) {
		return fkError("transaction", tx.ID, "unknown account")
	}
	if tx.CategoryID != nil && !st.categories.exists(*tx.CategoryID) {
		return fkError("transaction", tx.ID, "unknown category")
	}
	if tx.BudgetID != nil && !st.budgets.exists(*tx.BudgetID) {
		return fkError("transaction", tx.ID, "unknown budget")
	}
	return nil
}

func (r transactions) Add(_ context.Context, tx core.Transaction) (out core.Transaction, err error) {
	err = r.h.write(func(st *state, now time.Time) error {
		if err := r.checkRefs(st, tx); err != nil {
			return err
		}
		out = st.transactions.add(tx, now)
		return nil
	})
	return out, err
}

// Update only validates references that changed, so a transaction whose
// account vanished out of band can still be edited.
func (r transactions) Update(_ context.Context, tx core.Transaction) (out core.Transaction, err error) {
	err = r.h.write(func(st *state, now time.Time) error {
		cur, err := st.transactions.get(tx.ID)
		if err != nil {
			return err
		}
		if cur.AccountID != tx.AccountID && !st.accounts.exists(tx.AccountID) {
			return fkError("transaction", tx.ID, "unknown account")
		}
		if tx.CategoryID != nil && !st.categories.exists(*tx.CategoryID) {
			return fkError("transaction", tx.ID, "unknown category")
		}
		if tx.BudgetID != nil && !st.budgets.exists(*tx.BudgetID) {
			return fkError("transaction", tx.ID, "unknown budget")
		}
		out, err = st.transactions.update(tx, now)
		return err
	})
	return out, err
}

func (r transactions) Delete(_ context.Context, id int64) error {
	return r.h.write(func(st *state, _ time.Time) error {
		return st.transactions.delete(id)
	})
}

func (r transactions) Exists(_ context.Context, id int64) (ok bool, err error) {
	err = r.h.read(func(st *state) error {
		ok = st.transactions.exists(id)
		return nil
	})
	return ok, err
}

func (r transactions) deleteWhere(match func(core.Transaction) bool) (ids []int64, err error) {
	err = r.h.write(func(st *state, _ time.Time) error {
		for _, tx := range st.transactions.list(match) {
			ids = append(ids, tx.ID)
			delete(st.transactions.rows, tx.ID)
		}
		return nil
	})
	return ids, err
}

func (r transactions) clearWhere(match func(core.Transaction) bool, unset func(*core.Transaction)) (ids []int64, err error) {
	err = r.h.write(func(st *state, now time.Time) error {
		for _, tx := range st.transactions.list(match) {
			unset(&tx)
			tx.Version++
			tx.ModifiedAt = now
			st.transactions.rows[tx.ID] = tx
			ids = append(ids, tx.ID)
		}
		return nil
	})
	return ids, err
}

func (r transactions) DeleteByAccount(_ context.Context, accountID int64) ([]int64, error) {
	return r.deleteWhere(func(t core.Transaction) bool { return t.AccountID == accountID })
}

func (r transactions) DeleteByBudget(_ context.Context, budgetID int64) ([]int64, error) {
	return r.deleteWhere(func(t core.Transaction) bool { return t.BudgetID != nil && *t.BudgetID == budgetID })
}

func (r transactions) ClearBudget(_ context.Context, budgetID int64) ([]int64, error) {
	return r.clearWhere(
		func(t core.Transaction) bool { return t.BudgetID != nil && *t.BudgetID == budgetID },
		func(t *core.Transaction) { t.BudgetID = nil },
	)
}

func (r transactions) ClearCategory(_ context.Context, categoryID int64) ([]int64, error) {
	return r.clearWhere(
		func(t core.Transaction) bool { return t.CategoryID != nil && *t.CategoryID == categoryID },
		func(t *core.Transaction) { t.CategoryID = nil },
	)
}
