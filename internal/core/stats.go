package core

import "github.com/shopspring/decimal"

// BudgetStats is derived on every read from the budget's linked transactions.
type BudgetStats struct {
	Currency        string          `json:"currency"`
	SpentAmount     decimal.Decimal `json:"spentAmount"`
	IncomeAmount    decimal.Decimal `json:"incomeAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Exceeded        bool            `json:"exceeded"`
	InLimit         bool            `json:"inLimit"`
}

// ComputeBudgetStats aggregates the transactions dated inside the budget
// window. Transactions linked to the budget but dated outside the window
// are ignored.
func ComputeBudgetStats(b Budget, txs []Transaction, currency string) BudgetStats {
	spent, income := decimal.Zero, decimal.Zero
	for _, tx := range InBudgetWindow(b, txs) {
		switch tx.Type {
		case Expense:
			spent = spent.Add(tx.Amount)
		case Income:
			income = income.Add(tx.Amount)
		}
	}
	exceeded := spent.GreaterThan(b.Amount)
	return BudgetStats{
		Currency:        currency,
		SpentAmount:     spent,
		IncomeAmount:    income,
		RemainingAmount: b.Amount.Sub(spent),
		Exceeded:        exceeded,
		InLimit:         !exceeded,
	}
}

// InBudgetWindow filters txs to those dated within [StartDate, EndDate].
func InBudgetWindow(b Budget, txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Date.Within(b.StartDate, b.EndDate) {
			out = append(out, tx)
		}
	}
	return out
}

// BudgetCurrency resolves the currency shown for a budget: the linked
// account's when there is one, else the configured default.
func BudgetCurrency(account *Account, fallback string) string {
	if account != nil && account.Currency != "" {
		return account.Currency
	}
	return fallback
}
