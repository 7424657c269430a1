package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCredits_Create(t *testing.T) {
	mockCredits := &MockCreditService{
		CreateFunc: func(ctx context.Context, c models.Credit) (models.CreditView, error) {
			assert.Equal(t, "Visa", c.Name)
			assert.Equal(t, models.CreditCard, c.Type)
			assert.True(t, decimal.NewFromInt(10000).Equal(c.CreditLimit))
			assert.True(t, c.IsActive, "credits are active unless the body says otherwise")
			c.ID = "cr-1"
			return models.CreditView{Credit: c, AvailableCredit: c.Available()}, nil
		},
	}
	deps := &Dependencies{Credits: mockCredits}

	body := `{"name":"Visa","provider":"BPI","credit_type":"credit_card","credit_limit":10000,"due_day":15}`
	w := httptest.NewRecorder()
	deps.HandleCredits(w, httptest.NewRequest(http.MethodPost, "/api/credits", bytes.NewBufferString(body)))

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "cr-1", resp["id"])
	assert.Equal(t, "10000", resp["available_credit"])
}

func TestHandleCredits_ListActiveOnly(t *testing.T) {
	var gotActive bool
	deps := &Dependencies{Credits: &MockCreditService{
		ListFunc: func(ctx context.Context, activeOnly bool) ([]models.CreditView, error) {
			gotActive = activeOnly
			return []models.CreditView{{Credit: models.Credit{ID: "cr-1"}}}, nil
		},
	}}

	w := httptest.NewRecorder()
	deps.HandleCredits(w, httptest.NewRequest(http.MethodGet, "/api/credits?active_only=true", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gotActive)
}

func TestHandleCredits_DeleteRequiresID(t *testing.T) {
	deps := &Dependencies{Credits: &MockCreditService{}}
	w := httptest.NewRecorder()
	deps.HandleCredits(w, httptest.NewRequest(http.MethodDelete, "/api/credits", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCreditCharges_OverLimit(t *testing.T) {
	deps := &Dependencies{Credits: &MockCreditService{
		RecordChargeFunc: func(ctx context.Context, id string, ch models.CreditCharge) (models.CreditCharge, error) {
			return models.CreditCharge{}, &models.CreditLimitError{CreditID: id, Amount: ch.Amount, Available: decimal.NewFromInt(40)}
		},
	}}

	w := httptest.NewRecorder()
	deps.HandleCreditCharges(w, httptest.NewRequest(http.MethodPost, "/api/credits/charges?id=cr-1", bytes.NewBufferString(`{"amount":50}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "40", resp["available"])
	assert.Contains(t, resp["error"], "exceed its limit")
}

func TestHandleCreditPayments_Record(t *testing.T) {
	deps := &Dependencies{Credits: &MockCreditService{
		RecordPaymentFunc: func(ctx context.Context, id string, p models.CreditPayment) (models.CreditPayment, error) {
			assert.Equal(t, "cr-1", id)
			assert.Equal(t, "acct-1", p.SourceAccountID)
			assert.Equal(t, 2025, p.Date.Year())
			p.ID, p.CreditID = "pay-1", id
			return p, nil
		},
	}}

	body := `{"amount":"250.50","payment_date":"2025-06-01T00:00:00Z","source_account_id":"acct-1"}`
	w := httptest.NewRecorder()
	deps.HandleCreditPayments(w, httptest.NewRequest(http.MethodPost, "/api/credits/payments?id=cr-1", bytes.NewBufferString(body)))

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Status  string               `json:"status"`
		Payment models.CreditPayment `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "payment_recorded", resp.Status)
	assert.Equal(t, "pay-1", resp.Payment.ID)
	assert.True(t, decimal.RequireFromString("250.50").Equal(resp.Payment.Amount))
}

func TestHandleCreditPayments_MissingCredit(t *testing.T) {
	deps := &Dependencies{Credits: &MockCreditService{
		PaymentsFunc: func(ctx context.Context, id string) ([]models.CreditPayment, error) {
			return nil, &models.NotFoundError{Kind: "credit", ID: id}
		},
	}}
	w := httptest.NewRecorder()
	deps.HandleCreditPayments(w, httptest.NewRequest(http.MethodGet, "/api/credits/payments?id=nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCreditsUpcoming(t *testing.T) {
	var gotDays int
	deps := &Dependencies{Credits: &MockCreditService{
		UpcomingDueFunc: func(ctx context.Context, days int) ([]models.CreditView, error) {
			gotDays = days
			return nil, nil
		},
	}}

	w := httptest.NewRecorder()
	deps.HandleCreditsUpcoming(w, httptest.NewRequest(http.MethodGet, "/api/credits/upcoming", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultDueWindow, gotDays)

	w = httptest.NewRecorder()
	deps.HandleCreditsUpcoming(w, httptest.NewRequest(http.MethodGet, "/api/credits/upcoming?days=7", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, gotDays)

	w = httptest.NewRecorder()
	deps.HandleCreditsUpcoming(w, httptest.NewRequest(http.MethodGet, "/api/credits/upcoming?days=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCreditSummary(t *testing.T) {
	deps := &Dependencies{Credits: &MockCreditService{
		SummaryFunc: func(ctx context.Context) (models.CreditSummary, error) {
			return models.CreditSummary{ActiveCredits: 2, OverdueCount: 1, TotalBalance: decimal.NewFromInt(600)}, nil
		},
	}}

	w := httptest.NewRecorder()
	deps.HandleCreditSummary(w, httptest.NewRequest(http.MethodGet, "/api/credits/summary", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp["active_credits"])
	assert.EqualValues(t, 1, resp["overdue_count"])
	assert.Equal(t, "600", resp["total_balance"])
}
