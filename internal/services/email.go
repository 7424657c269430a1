package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/rocjay1/budget-ledger/internal/models"
)

// EmailService handles sending emails via Azure Communication Services REST API.
type EmailService struct {
	endpoint   string
	sender     string
	cred       azcore.TokenCredential
	httpClient *http.Client
}

// NewEmailService creates an EmailService for the Communication Services
// resource at endpoint. If cred is nil, DefaultAzureCredential is used.
func NewEmailService(endpoint, sender string, cred azcore.TokenCredential) (*EmailService, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("communication services endpoint is required")
	}
	if sender == "" {
		return nil, fmt.Errorf("sender email is required")
	}

	if cred == nil {
		var err error
		cred, err = newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
	}

	return &EmailService{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		sender:     sender,
		cred:       cred,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type emailAddress struct {
	Address string `json:"address"`
}

type emailRecipients struct {
	To []emailAddress `json:"to"`
}

type emailContent struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type emailRequest struct {
	SenderAddress string          `json:"senderAddress"`
	Content       emailContent    `json:"content"`
	Recipients    emailRecipients `json:"recipients"`
}

const (
	acsScope      = "https://communication.azure.com//.default"
	acsAPIVersion = "2023-03-31"
)

// newEmailRequest builds the send payload. Recipients are trimmed and
// de-duplicated; at least one is required.
func newEmailRequest(sender string, to []string, subject, html string) (emailRequest, error) {
	seen := make(map[string]bool, len(to))
	var addrs []emailAddress
	for _, addr := range to {
		addr = strings.TrimSpace(addr)
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			continue
		}
		seen[key] = true
		addrs = append(addrs, emailAddress{Address: addr})
	}
	if len(addrs) == 0 {
		return emailRequest{}, fmt.Errorf("no recipients")
	}
	return emailRequest{
		SenderAddress: sender,
		Content:       emailContent{Subject: subject, HTML: html},
		Recipients:    emailRecipients{To: addrs},
	}, nil
}

// SendEmail posts one message to the Communication Services send endpoint.
// The service answers 202 once the message is queued for delivery.
func (s *EmailService) SendEmail(ctx context.Context, to []string, subject, body string) error {
	payload, err := newEmailRequest(s.sender, to, subject, body)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	token, err := s.cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{acsScope}})
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	url := fmt.Sprintf("%s/emails:send?api-version=%s", s.endpoint, acsAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.Token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("email request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	slog.Info("email sent", "subject", subject, "recipients", len(payload.Recipients.To))
	return nil
}

// SendImportReport tells the uploader how a CSV import went.
func (s *EmailService) SendImportReport(ctx context.Context, recipients []string, fileName string, imported int, errors []string) error {
	subject := fmt.Sprintf("Budget Ledger - Imported %d transaction(s)", imported)
	if imported == 0 && len(errors) > 0 {
		subject = "Budget Ledger - Import Failed"
	}
	return s.SendEmail(ctx, recipients, subject, RenderImportBody(fileName, imported, errors))
}

// SendBudgetAlert lists the categories that have gone over budget.
func (s *EmailService) SendBudgetAlert(ctx context.Context, recipients []string, over []models.Category) error {
	subject := fmt.Sprintf("Budget Ledger - %d categor%s over budget", len(over), plural(len(over), "y", "ies"))
	return s.SendEmail(ctx, recipients, subject, RenderBudgetAlertBody(over))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
