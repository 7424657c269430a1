package handler

import (
	"log/slog"
	"net/http"

	"github.com/rocjay1/budget-ledger/internal/models"
)

// HandleTransactions handles GET, POST, PATCH and DELETE requests for
// transactions. Every mutation goes through the ledger engine so account
// balances and category totals stay in step.
func (d *Dependencies) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		if id := r.URL.Query().Get("id"); id != "" {
			tx, err := d.Transactions.Get(ctx, id)
			if err != nil {
				writeDomainError(w, "get transaction", err)
				return
			}
			WriteJSON(w, http.StatusOK, tx)
			return
		}
		txs, err := d.Transactions.List(ctx)
		if err != nil {
			writeDomainError(w, "list transactions", err)
			return
		}
		WriteJSON(w, http.StatusOK, txs)

	case http.MethodPost:
		var rec models.TransactionRecord
		if !decodeJSON(w, r, &rec) {
			return
		}
		if rec.ID != "" || rec.CreatedAt != nil || rec.UpdatedAt != nil || rec.BudgetTracked {
			WriteError(w, http.StatusBadRequest, "id, timestamps and budget_tracked are assigned by the server")
			return
		}
		tx, err := d.Transactions.Create(ctx, rec)
		if err != nil {
			writeDomainError(w, "create transaction", err)
			return
		}
		slog.Info("successfully created transaction", "transaction_id", tx.ID, "type", tx.Type())
		WriteJSON(w, http.StatusCreated, tx)

	case http.MethodPatch:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		var patch models.TransactionPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		tx, err := d.Transactions.Update(ctx, id, patch)
		if err != nil {
			writeDomainError(w, "update transaction", err)
			return
		}
		WriteJSON(w, http.StatusOK, tx)

	case http.MethodDelete:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		if err := d.Transactions.Delete(ctx, id); err != nil {
			writeDomainError(w, "delete transaction", err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
