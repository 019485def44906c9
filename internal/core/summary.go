package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Uncategorized labels expenses without a category.
const Uncategorized = "Uncategorized"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category string
	Amount   decimal.Decimal
}

// ExpensesByCategory totals the expense transactions of txs per category
// name, largest first. names maps category ids to display names.
func ExpensesByCategory(txs []Transaction, names map[int64]string) []CategoryAmount {
	totals := map[string]decimal.Decimal{}
	for _, tx := range txs {
		if tx.Type != Expense {
			continue
		}
		name := Uncategorized
		if tx.CategoryID != nil {
			if n, ok := names[*tx.CategoryID]; ok {
				name = n
			}
		}
		totals[name] = totals[name].Add(tx.Amount)
	}

	out := make([]CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryAmount{Category: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
