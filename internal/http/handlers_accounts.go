package http

import (
	"net/http"
	"strconv"

	"budgettracker/internal/services"
)

type accountRequest struct {
	Name        string    `json:"name"`
	Currency    string    `json:"currency"`
	Balance     moneyText `json:"balance"`
	Description string    `json:"description"`
	Version     int64     `json:"version"`
}

func (a accountRequest) input() (services.AccountInput, error) {
	balance, err := a.Balance.balance()
	if err != nil {
		return services.AccountInput{}, err
	}
	return services.AccountInput{
		Name:        sanitizeInput(a.Name),
		Currency:    sanitizeInput(a.Currency),
		Balance:     balance,
		Description: sanitizeInput(a.Description),
		Version:     a.Version,
	}, nil
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.Accounts.ListByOwner(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(list(views)).Write(w)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Accounts.Get(r.Context(), ownerFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Accounts.Create(r.Context(), ownerFrom(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Created("/api/accounts/" + strconv.FormatInt(view.ID, 10)).JSON(view).Write(w)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Accounts.Update(r.Context(), ownerFrom(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Accounts.Delete(r.Context(), ownerFrom(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}
