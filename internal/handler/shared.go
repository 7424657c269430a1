package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rocjay1/budget-ledger/internal/lock"
	"github.com/rocjay1/budget-ledger/internal/models"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Dependencies holds the services required by the handlers.
type Dependencies struct {
	Transactions TransactionService
	Accounts     AccountService
	Categories   CategoryService
	Credits      CreditService
	Blob         BlobClient
	Queue        QueueClient
	Email        EmailClient

	// ImportContainer and ImportQueue name where uploads are staged.
	ImportContainer string
	ImportQueue     string
	// Recipients receive import reports and budget alerts.
	Recipients []string
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps ledger errors to HTTP responses.
func writeDomainError(w http.ResponseWriter, action string, err error) {
	var (
		validation    *models.ValidationError
		reference     *models.ReferenceError
		notFound      *models.NotFoundError
		overflow      *models.BudgetOverflowError
		noBudget      *models.NoParentBudgetError
		inconsistency *models.InconsistencyError
		creditLimit   *models.CreditLimitError
	)
	switch {
	// Checked first: the cause it wraps may itself look like a client error.
	case errors.As(err, &inconsistency):
		slog.Error("ledger left inconsistent", "action", action, "transaction_id", inconsistency.TransactionID, "error", err)
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s: ledger needs reconciliation", action))
	case errors.As(err, &validation), errors.As(err, &reference), errors.As(err, &noBudget):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &overflow):
		WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":         err.Error(),
			"sum":           overflow.Sum,
			"parent_budget": overflow.ParentBudget,
		})
	case errors.As(err, &creditLimit):
		WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":     err.Error(),
			"available": creditLimit.Available,
		})
	case errors.As(err, &notFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lock.ErrContention):
		WriteError(w, http.StatusConflict, "Resource is busy, retry the request")
	default:
		slog.Error("request failed", "action", action, "error", err)
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to %s: %v", action, err))
	}
}

// decodeJSON reads a JSON body, rejecting fields dst does not declare.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		slog.Warn("invalid request body", "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// requireID reads the id query parameter.
func requireID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing id")
		return "", false
	}
	return id, true
}
