package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"budgettracker/internal/advice"
	"budgettracker/internal/cache"
	"budgettracker/internal/core"
)

// AdviceClient is the external summary/advice collaborator.
type AdviceClient interface {
	Summarize(ctx context.Context, req advice.SummaryRequest) (*advice.SummaryResponse, error)
	Advise(ctx context.Context, req advice.AdviceRequest) (*advice.AdviceResponse, error)
	Available(ctx context.Context) bool
}

var (
	ErrNoExpenses      = fmt.Errorf("%w: budget has no expenses in its window", core.ErrValidation)
	ErrInvalidQuestion = fmt.Errorf("%w: question must be between 5 and 500 characters", core.ErrValidation)
)

// AdviceService turns a budget's in-window expenses into requests for the
// advice collaborator. It never touches balances; any collaborator failure
// is reported as core.ErrServiceUnavailable.
type AdviceService struct {
	budgets    *BudgetService
	categories *CategoryService
	client     AdviceClient
	summaries  cache.Cache[advice.SummaryResponse]
}

// NewAdviceService wires the service. client may be nil when no
// collaborator is configured; summaries may be nil to disable caching.
func NewAdviceService(budgets *BudgetService, categories *CategoryService, client AdviceClient, summaries cache.Cache[advice.SummaryResponse]) *AdviceService {
	return &AdviceService{budgets: budgets, categories: categories, client: client, summaries: summaries}
}

func (s *AdviceService) Available(ctx context.Context) bool {
	return s.client != nil && s.client.Available(ctx)
}

func (s *AdviceService) SummarizeBudget(ctx context.Context, owner string, budgetID int64) (*advice.SummaryResponse, error) {
	expenses, amount, err := s.expenses(ctx, owner, budgetID)
	if err != nil {
		return nil, err
	}
	req := advice.SummaryRequest{Expenses: expenses, Budget: amount}

	key := cacheKey(req)
	if s.summaries != nil {
		if cached, ok := s.summaries.Get(key); ok {
			return &cached, nil
		}
	}

	if s.client == nil {
		return nil, fmt.Errorf("%w: advice service not configured", core.ErrServiceUnavailable)
	}
	resp, err := s.client.Summarize(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "Summary unavailable", "budget_id", budgetID, "error", err)
		return nil, err
	}
	if s.summaries != nil {
		s.summaries.Set(key, *resp)
	}
	return resp, nil
}

func (s *AdviceService) AdviseBudget(ctx context.Context, owner string, budgetID int64, question string) (*advice.AdviceResponse, error) {
	question = strings.TrimSpace(question)
	if n := utf8.RuneCountInString(question); n < 5 || n > 500 {
		return nil, ErrInvalidQuestion
	}
	expenses, amount, err := s.expenses(ctx, owner, budgetID)
	if err != nil {
		return nil, err
	}
	if s.client == nil {
		return nil, fmt.Errorf("%w: advice service not configured", core.ErrServiceUnavailable)
	}
	resp, err := s.client.Advise(ctx, advice.AdviceRequest{Question: question, Expenses: expenses, Budget: amount})
	if err != nil {
		slog.WarnContext(ctx, "Advice unavailable", "budget_id", budgetID, "error", err)
		return nil, err
	}
	return resp, nil
}

// expenses groups the budget's in-window expenses by category name.
func (s *AdviceService) expenses(ctx context.Context, owner string, budgetID int64) ([]advice.ExpenseItem, float64, error) {
	b, txs, err := s.budgets.InWindowTransactions(ctx, owner, budgetID)
	if err != nil {
		return nil, 0, err
	}

	names := map[int64]string{}
	for _, tx := range txs {
		if tx.CategoryID == nil {
			continue
		}
		if _, ok := names[*tx.CategoryID]; ok {
			continue
		}
		if c, err := s.categories.Get(ctx, *tx.CategoryID); err == nil {
			names[*tx.CategoryID] = c.Name
		}
	}

	totals := core.ExpensesByCategory(txs, names)
	if len(totals) == 0 {
		return nil, 0, ErrNoExpenses
	}
	items := make([]advice.ExpenseItem, 0, len(totals))
	for _, t := range totals {
		items = append(items, advice.ExpenseItem{Category: t.Category, Amount: t.Amount.InexactFloat64()})
	}
	return items, b.Amount.InexactFloat64(), nil
}

func cacheKey(req advice.SummaryRequest) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
