package http

import (
	"fmt"
	"net/http"
	"strconv"

	"budgettracker/internal/core"
	"budgettracker/internal/services"
)

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    *int64 `json:"parentCategoryId"`
	Version     int64  `json:"version"`
}

func (c categoryRequest) input() services.CategoryInput {
	return services.CategoryInput{
		Name:        sanitizeInput(c.Name),
		Description: sanitizeInput(c.Description),
		ParentID:    c.ParentID,
		Version:     c.Version,
	}
}

// handleListCategories lists the caller's categories, or every category
// with ?scope=all.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		views []core.CategoryView
		err   error
	)
	switch r.URL.Query().Get("scope") {
	case "all":
		views, err = s.svc.Categories.List(ctx)
	case "", "mine":
		views, err = s.svc.Categories.ListByOwner(ctx, ownerFrom(r))
	default:
		err = fmt.Errorf("%w: scope must be 'all' or 'mine'", errBadRequest)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(list(views)).Write(w)
}

func (s *Server) handleCategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.svc.Categories.Tree(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(list(tree)).Write(w)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Categories.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Categories.Create(r.Context(), ownerFrom(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Created("/api/categories/" + strconv.FormatInt(view.ID, 10)).JSON(view).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Categories.Update(r.Context(), ownerFrom(r), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().JSON(view).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Categories.Delete(r.Context(), ownerFrom(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	NoContent().Write(w)
}
