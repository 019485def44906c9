package http

import (
	"net/http"
	"strconv"

	"budgettracker/internal/core"
	"budgettracker/internal/services"
)

type budgetRequest struct {
	Name      string    `json:"name"`
	Amount    moneyText `json:"budgetAmount"`
	StartDate core.Date `json:"startDate"`
	EndDate   core.Date `json:"endDate"`
	AccountID *int64    `json:"accountId"`
	Version   int64     `json:"version"`
}

func (b budgetRequest) input() (services.BudgetInput, error) {
	amount, err := b.Amount.amount()
	if err != nil {
		return services.BudgetInput{}, err
	}
	return services.BudgetInput{
		Name:      sanitizeInput(b.Name),
		Amount:    amount,
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
		AccountID: b.AccountID,
		Version:   b.Version,
	}, nil
}

type adviceRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.Budgets.ListByOwner(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(list(views)).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Budgets.Get(r.Context(), ownerFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Budgets.Create(r.Context(), ownerFrom(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Created("/api/budgets/" + strconv.FormatInt(view.ID, 10)).JSON(view).Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Budgets.Update(r.Context(), ownerFrom(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), ownerFrom(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.svc.Advice == nil {
		ErrorResponse(http.StatusServiceUnavailable, "advice service not configured").Write(w)
		return
	}
	resp, err := s.svc.Advice.SummarizeBudget(r.Context(), ownerFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(resp).Write(w)
}

func (s *Server) handleBudgetAdvice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req adviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if s.svc.Advice == nil {
		ErrorResponse(http.StatusServiceUnavailable, "advice service not configured").Write(w)
		return
	}
	resp, err := s.svc.Advice.AdviseBudget(r.Context(), ownerFrom(r), id, sanitizeInput(req.Question))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(resp).Write(w)
}

func (s *Server) handleAdviceHealth(w http.ResponseWriter, r *http.Request) {
	available := s.svc.Advice != nil && s.svc.Advice.Available(r.Context())
	NewJSONResponse().JSON(map[string]bool{"available": available}).Write(w)
}
