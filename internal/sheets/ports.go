// Package sheets mirrors transactions into a spreadsheet, one row per
// transaction keyed by its id.
package sheets

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"budgettracker/internal/core"
)

// Header is the first row of the export sheet.
var Header = []string{"ID", "Date", "Account", "Category", "Budget", "Type", "Amount", "Currency", "Description", "Version"}

// Row is one exported transaction.
type Row struct {
	TransactionID int64
	Date          core.Date
	Account       string
	Category      string
	Budget        string
	Type          core.TransactionType
	Amount        decimal.Decimal
	Currency      string
	Description   string
	Version       int64
}

func RowFromView(v core.TransactionView) Row {
	return Row{
		TransactionID: v.ID,
		Date:          v.Date,
		Account:       v.AccountName,
		Category:      v.CategoryName,
		Budget:        v.BudgetName,
		Type:          v.Type,
		Amount:        v.Amount,
		Currency:      v.Currency,
		Description:   v.Description,
		Version:       v.Version,
	}
}

// Values renders the row in Header order.
func (r Row) Values() []any {
	return []any{
		strconv.FormatInt(r.TransactionID, 10),
		r.Date.String(),
		r.Account,
		r.Category,
		r.Budget,
		string(r.Type),
		r.Amount.StringFixed(core.MoneyScale),
		r.Currency,
		r.Description,
		r.Version,
	}
}

// Ports for outbound adapters.
type (
	// RowWriter inserts or replaces rows by transaction id.
	RowWriter interface {
		Upsert(ctx context.Context, r Row) error
		// Remove deletes the row of the transaction. Removing an unknown id
		// is not an error.
		Remove(ctx context.Context, transactionID int64) error
	}

	RowLister interface {
		ListRows(ctx context.Context) ([]Row, error)
	}

	Exporter interface {
		RowWriter
		RowLister
	}
)
