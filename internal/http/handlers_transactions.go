package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"budgettracker/internal/core"
	"budgettracker/internal/export"
	applog "budgettracker/internal/log"
	"budgettracker/internal/services"
	"budgettracker/internal/sheets"
)

type transactionRequest struct {
	AccountID   int64     `json:"accountId"`
	CategoryID  *int64    `json:"categoryId"`
	BudgetID    *int64    `json:"budgetId"`
	Amount      moneyText `json:"amount"`
	Type        string    `json:"type"`
	Date        core.Date `json:"date"`
	Description string    `json:"description"`
	Version     int64     `json:"version"`
}

func (t transactionRequest) input() (services.TransactionInput, error) {
	typ, err := core.ParseTransactionType(t.Type)
	if err != nil {
		return services.TransactionInput{}, err
	}
	amount, err := t.Amount.amount()
	if err != nil {
		return services.TransactionInput{}, err
	}
	return services.TransactionInput{
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		BudgetID:    t.BudgetID,
		Amount:      amount,
		Type:        typ,
		Date:        t.Date,
		Description: sanitizeInput(t.Description),
		Version:     t.Version,
	}, nil
}

// transactionFilter narrows a listing to an account, category and/or budget.
type transactionFilter struct {
	accountID, categoryID, budgetID *int64
}

func parseTransactionFilter(r *http.Request) (transactionFilter, error) {
	q := r.URL.Query()
	var f transactionFilter
	var err error
	if f.accountID, err = queryID(q, "accountId"); err != nil {
		return f, err
	}
	if f.categoryID, err = queryID(q, "categoryId"); err != nil {
		return f, err
	}
	if f.budgetID, err = queryID(q, "budgetId"); err != nil {
		return f, err
	}
	return f, nil
}

func (f transactionFilter) match(v core.TransactionView) bool {
	return (f.accountID == nil || v.AccountID == *f.accountID) &&
		(f.categoryID == nil || (v.CategoryID != nil && *v.CategoryID == *f.categoryID)) &&
		(f.budgetID == nil || (v.BudgetID != nil && *v.BudgetID == *f.budgetID))
}

// listTransactions queries by the most selective filter present and applies
// the remaining ones in memory.
func (s *Server) listTransactions(r *http.Request) ([]core.TransactionView, error) {
	f, err := parseTransactionFilter(r)
	if err != nil {
		return nil, err
	}
	ctx, owner := r.Context(), ownerFrom(r)

	var views []core.TransactionView
	switch {
	case f.budgetID != nil:
		views, err = s.svc.Transactions.ListByBudget(ctx, owner, *f.budgetID)
	case f.accountID != nil:
		views, err = s.svc.Transactions.ListByAccount(ctx, owner, *f.accountID)
	case f.categoryID != nil:
		views, err = s.svc.Transactions.ListByCategory(ctx, owner, *f.categoryID)
	default:
		views, err = s.svc.Transactions.ListByOwner(ctx, owner)
	}
	if err != nil {
		return nil, err
	}

	out := views[:0]
	for _, v := range views {
		if f.match(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	views, err := s.listTransactions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(list(views)).Write(w)
}

// handleExportTransactions downloads the filtered listing as an XLSX
// workbook.
func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	views, err := s.listTransactions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows := make([]sheets.Row, len(views))
	for i, v := range views {
		rows[i] = sheets.RowFromView(v)
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rows); err != nil {
		writeError(w, r, fmt.Errorf("export transactions: %w", err))
		return
	}
	applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP).InfoContext(r.Context(), "Transactions exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldCount, len(rows))

	filename := "transactions-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Transactions.Get(r.Context(), ownerFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Transactions.Create(r.Context(), ownerFrom(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Created("/api/transactions/" + strconv.FormatInt(view.ID, 10)).JSON(view).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Transactions.Update(r.Context(), ownerFrom(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), ownerFrom(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}
