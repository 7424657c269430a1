package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCredential struct{}

func (staticCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "test-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestNewEmailService_RequiresConfig(t *testing.T) {
	_, err := NewEmailService("", "sender@example.com", staticCredential{})
	assert.Error(t, err)
	_, err = NewEmailService("https://acs.example.com", "", staticCredential{})
	assert.Error(t, err)
}

func TestEmailService_SendBudgetAlert(t *testing.T) {
	var got emailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails:send", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc, err := NewEmailService(srv.URL+"/", "ledger@example.com", staticCredential{})
	require.NoError(t, err)

	over := []models.Category{{
		Name:       "Dining & Bars",
		Budget:     decimal.NewFromInt(100),
		BudgetUsed: decimal.RequireFromString("120.5"),
	}}
	require.NoError(t, svc.SendBudgetAlert(context.Background(), []string{"me@example.com"}, over))

	assert.Equal(t, "ledger@example.com", got.SenderAddress)
	assert.Equal(t, "Budget Ledger - 1 category over budget", got.Content.Subject)
	assert.Contains(t, got.Content.HTML, "Dining &amp; Bars")
	assert.Contains(t, got.Content.HTML, "-20.50")
	require.Len(t, got.Recipients.To, 1)
	assert.Equal(t, "me@example.com", got.Recipients.To[0].Address)
}

func TestEmailService_RejectedRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad sender", http.StatusBadRequest)
	}))
	defer srv.Close()

	svc, err := NewEmailService(srv.URL, "ledger@example.com", staticCredential{})
	require.NoError(t, err)
	err = svc.SendImportReport(context.Background(), []string{"me@example.com"}, "jan.csv", 3, nil)
	assert.ErrorContains(t, err, "status 400")
}

func TestRenderImportBody(t *testing.T) {
	failed := RenderImportBody("jan.csv", 0, []string{"row 2: <bad>"})
	assert.Contains(t, failed, "Import Failed")
	assert.Contains(t, failed, "row 2: &lt;bad&gt;")

	ok := RenderImportBody("jan.csv", 4, nil)
	assert.Contains(t, ok, "Import Complete")
	assert.Contains(t, ok, "<strong>4</strong>")
	assert.NotContains(t, ok, "skipped")
}

func TestNewEmailRequest_Recipients(t *testing.T) {
	req, err := newEmailRequest("ledger@example.com", []string{" me@example.com", "ME@example.com", "", "you@example.com"}, "s", "b")
	require.NoError(t, err)
	require.Len(t, req.Recipients.To, 2)
	assert.Equal(t, "me@example.com", req.Recipients.To[0].Address)
	assert.Equal(t, "you@example.com", req.Recipients.To[1].Address)

	_, err = newEmailRequest("ledger@example.com", []string{" "}, "s", "b")
	assert.Error(t, err)
}
