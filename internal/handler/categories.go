package handler

import (
	"net/http"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/shopspring/decimal"
)

type createCategoryRequest struct {
	Name      string                 `json:"name"`
	Type      models.CategoryType    `json:"type"`
	ParentID  string                 `json:"parent_id"`
	Budget    decimal.Decimal        `json:"budget"`
	Frequency models.BudgetFrequency `json:"frequency"`
	IsActive  *bool                  `json:"is_active"`
}

// HandleCategories handles GET, POST, PATCH and DELETE requests for categories.
func (d *Dependencies) HandleCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		if id := r.URL.Query().Get("id"); id != "" {
			category, err := d.Categories.Get(ctx, id)
			if err != nil {
				writeDomainError(w, "get category", err)
				return
			}
			WriteJSON(w, http.StatusOK, category)
			return
		}
		categories, err := d.Categories.List(ctx)
		if err != nil {
			writeDomainError(w, "list categories", err)
			return
		}
		WriteJSON(w, http.StatusOK, categories)

	case http.MethodPost:
		var req createCategoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}
		category, err := d.Categories.Create(ctx, models.Category{
			Name:      req.Name,
			Type:      req.Type,
			ParentID:  req.ParentID,
			Budget:    req.Budget,
			Frequency: req.Frequency,
			IsActive:  active,
		})
		if err != nil {
			writeDomainError(w, "create category", err)
			return
		}
		WriteJSON(w, http.StatusCreated, category)

	case http.MethodPatch:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		var patch models.CategoryPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		category, err := d.Categories.Update(ctx, id, patch)
		if err != nil {
			writeDomainError(w, "update category", err)
			return
		}
		WriteJSON(w, http.StatusOK, category)

	case http.MethodDelete:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		if err := d.Categories.Delete(ctx, id); err != nil {
			writeDomainError(w, "delete category", err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// HandleCategoryChildren lists the direct children of a category.
func (d *Dependencies) HandleCategoryChildren(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	children, err := d.Categories.Children(r.Context(), id)
	if err != nil {
		writeDomainError(w, "list subcategories", err)
		return
	}
	WriteJSON(w, http.StatusOK, children)
}
