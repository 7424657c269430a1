package handler

import (
	"context"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// TransactionService defines the transaction operations used by handlers.
type TransactionService interface {
	Create(ctx context.Context, rec models.TransactionRecord) (models.Transaction, error)
	Update(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.Transaction, error)
	List(ctx context.Context) ([]models.Transaction, error)
}

// AccountService defines the account operations used by handlers.
type AccountService interface {
	Create(ctx context.Context, a models.Account) (models.Account, error)
	Get(ctx context.Context, id string) (models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
	Update(ctx context.Context, id string, patch models.AccountPatch) (models.Account, error)
	Delete(ctx context.Context, id string) error
	Interest(ctx context.Context, id string) (models.Account, decimal.Decimal, error)
}

// CategoryService defines the category operations used by handlers.
type CategoryService interface {
	Create(ctx context.Context, c models.Category) (models.Category, error)
	Get(ctx context.Context, id string) (models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Children(ctx context.Context, id string) ([]models.Category, error)
	Update(ctx context.Context, id string, patch models.CategoryPatch) (models.Category, error)
	Delete(ctx context.Context, id string) error
	OverBudget(ctx context.Context) ([]models.Category, error)
}

// CreditService defines the credit obligation operations used by handlers.
type CreditService interface {
	Create(ctx context.Context, c models.Credit) (models.CreditView, error)
	Get(ctx context.Context, id string) (models.CreditView, error)
	List(ctx context.Context, activeOnly bool) ([]models.CreditView, error)
	Update(ctx context.Context, id string, patch models.CreditPatch) (models.CreditView, error)
	Delete(ctx context.Context, id string) error
	RecordPayment(ctx context.Context, id string, p models.CreditPayment) (models.CreditPayment, error)
	RecordCharge(ctx context.Context, id string, ch models.CreditCharge) (models.CreditCharge, error)
	Payments(ctx context.Context, id string) ([]models.CreditPayment, error)
	Charges(ctx context.Context, id string) ([]models.CreditCharge, error)
	Summary(ctx context.Context) (models.CreditSummary, error)
	UpcomingDue(ctx context.Context, days int) ([]models.CreditView, error)
}

// BlobClient defines the interface for blob storage operations used by handlers.
type BlobClient interface {
	UploadText(ctx context.Context, containerName, blobName, content string) error
	DownloadText(ctx context.Context, containerName, blobName string) (string, error)
}

// QueueClient defines the interface for queue operations used by handlers.
type QueueClient interface {
	EnqueueMessage(ctx context.Context, queueName string, message any) error
}

// EmailClient defines the interface for email operations used by handlers.
type EmailClient interface {
	SendImportReport(ctx context.Context, recipients []string, fileName string, imported int, errors []string) error
	SendBudgetAlert(ctx context.Context, recipients []string, over []models.Category) error
}
