package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// defaultDueWindow is the look-ahead of /api/credits/upcoming without ?days.
const defaultDueWindow = 30

type createCreditRequest struct {
	Name            string            `json:"name"`
	Provider        string            `json:"provider"`
	Type            models.CreditType `json:"credit_type"`
	CreditLimit     decimal.Decimal   `json:"credit_limit"`
	CurrentBalance  decimal.Decimal   `json:"current_balance"`
	MinimumPayment  decimal.Decimal   `json:"minimum_payment"`
	InterestRate    decimal.Decimal   `json:"interest_rate"`
	DueDay          int               `json:"due_day"`
	StatementDay    int               `json:"statement_day"`
	GracePeriodDays int               `json:"grace_period_days"`
	AccountNumber   string            `json:"account_number"`
	IsActive        *bool             `json:"is_active"`
	Notes           string            `json:"notes"`
}

type paymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Date            *time.Time      `json:"payment_date"`
	SourceAccountID string          `json:"source_account_id"`
	Notes           string          `json:"notes"`
}

type chargeRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	Date              *time.Time      `json:"charge_date"`
	Description       string          `json:"description"`
	CategoryID        string          `json:"category_id"`
	InstallmentMonths int             `json:"installment_months"`
	Notes             string          `json:"notes"`
}

// HandleCredits handles GET, POST, PATCH and DELETE requests for credit
// obligations.
func (d *Dependencies) HandleCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		if id := r.URL.Query().Get("id"); id != "" {
			credit, err := d.Credits.Get(ctx, id)
			if err != nil {
				writeDomainError(w, "get credit", err)
				return
			}
			WriteJSON(w, http.StatusOK, credit)
			return
		}
		activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active_only"))
		credits, err := d.Credits.List(ctx, activeOnly)
		if err != nil {
			writeDomainError(w, "list credits", err)
			return
		}
		slog.Info("successfully retrieved credits", "count", len(credits), "active_only", activeOnly)
		WriteJSON(w, http.StatusOK, credits)

	case http.MethodPost:
		var req createCreditRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}
		credit, err := d.Credits.Create(ctx, models.Credit{
			Name:            req.Name,
			Provider:        req.Provider,
			Type:            req.Type,
			CreditLimit:     req.CreditLimit,
			CurrentBalance:  req.CurrentBalance,
			MinimumPayment:  req.MinimumPayment,
			InterestRate:    req.InterestRate,
			DueDay:          req.DueDay,
			StatementDay:    req.StatementDay,
			GracePeriodDays: req.GracePeriodDays,
			AccountNumber:   req.AccountNumber,
			IsActive:        active,
			Notes:           req.Notes,
		})
		if err != nil {
			writeDomainError(w, "create credit", err)
			return
		}
		slog.Info("successfully saved credit", "credit_name", credit.Name, "id", credit.ID)
		WriteJSON(w, http.StatusCreated, credit)

	case http.MethodPatch:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		var patch models.CreditPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		credit, err := d.Credits.Update(ctx, id, patch)
		if err != nil {
			writeDomainError(w, "update credit", err)
			return
		}
		WriteJSON(w, http.StatusOK, credit)

	case http.MethodDelete:
		id, ok := requireID(w, r)
		if !ok {
			return
		}
		if err := d.Credits.Delete(ctx, id); err != nil {
			writeDomainError(w, "delete credit", err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// HandleCreditPayments lists (GET) or records (POST) payments on the credit
// named by the id query parameter.
func (d *Dependencies) HandleCreditPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		payments, err := d.Credits.Payments(r.Context(), id)
		if err != nil {
			writeDomainError(w, "list credit payments", err)
			return
		}
		WriteJSON(w, http.StatusOK, payments)

	case http.MethodPost:
		var req paymentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		p := models.CreditPayment{Amount: req.Amount, SourceAccountID: req.SourceAccountID, Notes: req.Notes}
		if req.Date != nil {
			p.Date = *req.Date
		}
		payment, err := d.Credits.RecordPayment(r.Context(), id, p)
		if err != nil {
			writeDomainError(w, "record payment", err)
			return
		}
		WriteJSON(w, http.StatusCreated, map[string]any{"status": "payment_recorded", "payment": payment})

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// HandleCreditCharges lists (GET) or records (POST) charges on the credit
// named by the id query parameter.
func (d *Dependencies) HandleCreditCharges(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		charges, err := d.Credits.Charges(r.Context(), id)
		if err != nil {
			writeDomainError(w, "list credit charges", err)
			return
		}
		WriteJSON(w, http.StatusOK, charges)

	case http.MethodPost:
		var req chargeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ch := models.CreditCharge{
			Amount:            req.Amount,
			Description:       req.Description,
			CategoryID:        req.CategoryID,
			InstallmentMonths: req.InstallmentMonths,
			Notes:             req.Notes,
		}
		if req.Date != nil {
			ch.Date = *req.Date
		}
		charge, err := d.Credits.RecordCharge(r.Context(), id, ch)
		if err != nil {
			writeDomainError(w, "record charge", err)
			return
		}
		WriteJSON(w, http.StatusCreated, map[string]any{"status": "charge_recorded", "charge": charge})

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// HandleCreditSummary returns totals over the active credits.
func (d *Dependencies) HandleCreditSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := d.Credits.Summary(r.Context())
	if err != nil {
		writeDomainError(w, "summarize credits", err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// HandleCreditsUpcoming lists credits falling due within ?days (default 30).
func (d *Dependencies) HandleCreditsUpcoming(w http.ResponseWriter, r *http.Request) {
	days := defaultDueWindow
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = n
	}
	upcoming, err := d.Credits.UpcomingDue(r.Context(), days)
	if err != nil {
		writeDomainError(w, "list upcoming due dates", err)
		return
	}
	WriteJSON(w, http.StatusOK, upcoming)
}
