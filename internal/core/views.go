package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Views are the read shapes returned by the services.

type AccountView struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"userId"`
	Name        string          `json:"name"`
	Currency    string          `json:"currency"`
	Balance     decimal.Decimal `json:"balance"`
	Description string          `json:"description,omitempty"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	ModifiedAt  time.Time       `json:"modifiedAt"`
}

type CategoryView struct {
	ID            int64          `json:"id"`
	UserID        string         `json:"userId"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	ParentID      *int64         `json:"parentCategoryId,omitempty"`
	ParentName    string         `json:"parentCategoryName,omitempty"`
	SubCategories []CategoryView `json:"subCategories,omitempty"`
	Version       int64          `json:"version"`
	CreatedAt     time.Time      `json:"createdAt"`
	ModifiedAt    time.Time      `json:"modifiedAt"`
}

type BudgetView struct {
	ID          int64           `json:"id"`
	UserID      string          `json:"userId"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"budgetAmount"`
	StartDate   Date            `json:"startDate"`
	EndDate     Date            `json:"endDate"`
	AccountID   *int64          `json:"accountId,omitempty"`
	AccountName string          `json:"accountName,omitempty"`
	BudgetStats
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

type TransactionView struct {
	ID           int64           `json:"id"`
	UserID       string          `json:"userId"`
	AccountID    int64           `json:"accountId"`
	AccountName  string          `json:"accountName,omitempty"`
	Currency     string          `json:"currency,omitempty"`
	CategoryID   *int64          `json:"categoryId,omitempty"`
	CategoryName string          `json:"categoryName,omitempty"`
	BudgetID     *int64          `json:"budgetId,omitempty"`
	BudgetName   string          `json:"budgetName,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Type         TransactionType `json:"type"`
	Date         Date            `json:"date"`
	Description  string          `json:"description,omitempty"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"createdAt"`
	ModifiedAt   time.Time       `json:"modifiedAt"`
}

func NewAccountView(a Account) AccountView {
	return AccountView{
		ID:          a.ID,
		UserID:      a.UserID,
		Name:        a.Name,
		Currency:    a.Currency,
		Balance:     a.Balance,
		Description: a.Description,
		Version:     a.Version,
		CreatedAt:   a.CreatedAt,
		ModifiedAt:  a.ModifiedAt,
	}
}

func NewCategoryView(c Category) CategoryView {
	return CategoryView{
		ID:          c.ID,
		UserID:      c.UserID,
		Name:        c.Name,
		Description: c.Description,
		ParentID:    c.ParentID,
		Version:     c.Version,
		CreatedAt:   c.CreatedAt,
		ModifiedAt:  c.ModifiedAt,
	}
}

// NewCategoryTreeView converts a node and its descendants.
func NewCategoryTreeView(n *CategoryNode) CategoryView {
	v := NewCategoryView(n.Category)
	for _, child := range n.Children {
		cv := NewCategoryTreeView(child)
		cv.ParentName = n.Name
		v.SubCategories = append(v.SubCategories, cv)
	}
	return v
}

// NewBudgetView combines a budget with its statistics. account may be nil.
func NewBudgetView(b Budget, account *Account, stats BudgetStats) BudgetView {
	v := BudgetView{
		ID:          b.ID,
		UserID:      b.UserID,
		Name:        b.Name,
		Amount:      b.Amount,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		AccountID:   b.AccountID,
		BudgetStats: stats,
		Version:     b.Version,
		CreatedAt:   b.CreatedAt,
		ModifiedAt:  b.ModifiedAt,
	}
	if account != nil {
		v.AccountName = account.Name
	}
	return v
}

// NewTransactionView fills the denormalized names from whatever related
// entities are available; any of them may be nil.
func NewTransactionView(tx Transaction, account *Account, category *Category, budget *Budget) TransactionView {
	v := TransactionView{
		ID:          tx.ID,
		UserID:      tx.UserID,
		AccountID:   tx.AccountID,
		CategoryID:  tx.CategoryID,
		BudgetID:    tx.BudgetID,
		Amount:      tx.Amount,
		Type:        tx.Type,
		Date:        tx.Date,
		Description: tx.Description,
		Version:     tx.Version,
		CreatedAt:   tx.CreatedAt,
		ModifiedAt:  tx.ModifiedAt,
	}
	if account != nil {
		v.AccountName = account.Name
		v.Currency = account.Currency
	}
	if category != nil {
		v.CategoryName = category.Name
	}
	if budget != nil {
		v.BudgetName = budget.Name
	}
	return v
}
