package handler

import (
	"log/slog"
	"net/http"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/shopspring/decimal"
)

type createAccountRequest struct {
	Name              string                   `json:"name"`
	Type              models.AccountType       `json:"type"`
	Description       string                   `json:"description"`
	Balance           decimal.Decimal          `json:"balance"`
	InterestRate      decimal.Decimal          `json:"interest_rate"`
	InterestFrequency models.InterestFrequency `json:"interest_frequency"`
}

// HandleAccounts handles GET, POST, PATCH and DELETE requests for accounts.
func (d *Dependencies) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		if id := r.URL.Query().Get("id"); id != "" {
			account, err := d.Accounts.Get(ctx, id)
			if err != nil {
				writeDomainError(w, "get account", err)
				return
			}
			WriteJSON(w, http.StatusOK, account)
			return
		}
		accounts, err := d.Accounts.List(ctx)
		if err != nil {
			writeDomainError(w, "list accounts", err)
			return
		}
		slog.Info("successfully retrieved accounts", "count", len(accounts))
		WriteJSON(w, http.StatusOK, accounts)

	case http.MethodPost:
		var req createAccountRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		account, err := d.Accounts.Create(ctx, models.Account{
			Name:              req.Name,
			Type:              req.Type,
			Description:       req.Description,
			Balance:           req.Balance,
			InterestRate:      req.InterestRate,
			InterestFrequency: req.InterestFrequency,
		})
		if err != nil {
			writeDomainError(w, "create account", err)
			return
		}
		WriteJSON(w, http.StatusCreated, account)

	case http.MethodPatch:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		var patch models.AccountPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		account, err := d.Accounts.Update(ctx, id, patch)
		if err != nil {
			writeDomainError(w, "update account", err)
			return
		}
		WriteJSON(w, http.StatusOK, account)

	case http.MethodDelete:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		if err := d.Accounts.Delete(ctx, id); err != nil {
			writeDomainError(w, "delete account", err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// HandleAccountInterest reports the interest an account earns per period.
func (d *Dependencies) HandleAccountInterest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	account, interest, err := d.Accounts.Interest(r.Context(), id)
	if err != nil {
		writeDomainError(w, "calculate interest", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"account_id":         account.ID,
		"balance":            account.Balance,
		"interest_rate":      account.InterestRate,
		"interest_frequency": account.InterestFrequency,
		"interest":           interest,
	})
}
