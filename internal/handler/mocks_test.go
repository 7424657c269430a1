package handler

import (
	"context"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// MockTransactionService is a mock implementation of TransactionService
type MockTransactionService struct {
	CreateFunc func(ctx context.Context, rec models.TransactionRecord) (models.Transaction, error)
	UpdateFunc func(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error)
	DeleteFunc func(ctx context.Context, id string) error
	GetFunc    func(ctx context.Context, id string) (models.Transaction, error)
	ListFunc   func(ctx context.Context) ([]models.Transaction, error)
}

func (m *MockTransactionService) Create(ctx context.Context, rec models.TransactionRecord) (models.Transaction, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, rec)
	}
	return models.Transaction{}, nil
}

func (m *MockTransactionService) Update(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return models.Transaction{}, nil
}

func (m *MockTransactionService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockTransactionService) Get(ctx context.Context, id string) (models.Transaction, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return models.Transaction{}, nil
}

func (m *MockTransactionService) List(ctx context.Context) ([]models.Transaction, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// MockAccountService is a mock implementation of AccountService
type MockAccountService struct {
	CreateFunc   func(ctx context.Context, a models.Account) (models.Account, error)
	GetFunc      func(ctx context.Context, id string) (models.Account, error)
	ListFunc     func(ctx context.Context) ([]models.Account, error)
	UpdateFunc   func(ctx context.Context, id string, patch models.AccountPatch) (models.Account, error)
	DeleteFunc   func(ctx context.Context, id string) error
	InterestFunc func(ctx context.Context, id string) (models.Account, decimal.Decimal, error)
}

func (m *MockAccountService) Create(ctx context.Context, a models.Account) (models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, a)
	}
	return a, nil
}

func (m *MockAccountService) Get(ctx context.Context, id string) (models.Account, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return models.Account{}, nil
}

func (m *MockAccountService) List(ctx context.Context) ([]models.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockAccountService) Update(ctx context.Context, id string, patch models.AccountPatch) (models.Account, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return models.Account{}, nil
}

func (m *MockAccountService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountService) Interest(ctx context.Context, id string) (models.Account, decimal.Decimal, error) {
	if m.InterestFunc != nil {
		return m.InterestFunc(ctx, id)
	}
	return models.Account{}, decimal.Zero, nil
}

// MockCategoryService is a mock implementation of CategoryService
type MockCategoryService struct {
	CreateFunc     func(ctx context.Context, c models.Category) (models.Category, error)
	GetFunc        func(ctx context.Context, id string) (models.Category, error)
	ListFunc       func(ctx context.Context) ([]models.Category, error)
	ChildrenFunc   func(ctx context.Context, id string) ([]models.Category, error)
	UpdateFunc     func(ctx context.Context, id string, patch models.CategoryPatch) (models.Category, error)
	DeleteFunc     func(ctx context.Context, id string) error
	OverBudgetFunc func(ctx context.Context) ([]models.Category, error)
}

func (m *MockCategoryService) Create(ctx context.Context, c models.Category) (models.Category, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	return c, nil
}

func (m *MockCategoryService) Get(ctx context.Context, id string) (models.Category, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return models.Category{}, nil
}

func (m *MockCategoryService) List(ctx context.Context) ([]models.Category, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockCategoryService) Children(ctx context.Context, id string) ([]models.Category, error) {
	if m.ChildrenFunc != nil {
		return m.ChildrenFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockCategoryService) Update(ctx context.Context, id string, patch models.CategoryPatch) (models.Category, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return models.Category{}, nil
}

func (m *MockCategoryService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockCategoryService) OverBudget(ctx context.Context) ([]models.Category, error) {
	if m.OverBudgetFunc != nil {
		return m.OverBudgetFunc(ctx)
	}
	return nil, nil
}

// MockBlobClient is a mock implementation of BlobClient
type MockBlobClient struct {
	UploadTextFunc   func(ctx context.Context, containerName, blobName, content string) error
	DownloadTextFunc func(ctx context.Context, containerName, blobName string) (string, error)
}

func (m *MockBlobClient) UploadText(ctx context.Context, containerName, blobName, content string) error {
	if m.UploadTextFunc != nil {
		return m.UploadTextFunc(ctx, containerName, blobName, content)
	}
	return nil
}

func (m *MockBlobClient) DownloadText(ctx context.Context, containerName, blobName string) (string, error) {
	if m.DownloadTextFunc != nil {
		return m.DownloadTextFunc(ctx, containerName, blobName)
	}
	return "", nil
}

// MockQueueClient is a mock implementation of QueueClient
type MockQueueClient struct {
	EnqueueMessageFunc func(ctx context.Context, queueName string, message any) error
}

func (m *MockQueueClient) EnqueueMessage(ctx context.Context, queueName string, message any) error {
	if m.EnqueueMessageFunc != nil {
		return m.EnqueueMessageFunc(ctx, queueName, message)
	}
	return nil
}

// MockEmailClient is a mock implementation of EmailClient
type MockEmailClient struct {
	SendImportReportFunc func(ctx context.Context, recipients []string, fileName string, imported int, errors []string) error
	SendBudgetAlertFunc  func(ctx context.Context, recipients []string, over []models.Category) error
}

func (m *MockEmailClient) SendImportReport(ctx context.Context, recipients []string, fileName string, imported int, errors []string) error {
	if m.SendImportReportFunc != nil {
		return m.SendImportReportFunc(ctx, recipients, fileName, imported, errors)
	}
	return nil
}

func (m *MockEmailClient) SendBudgetAlert(ctx context.Context, recipients []string, over []models.Category) error {
	if m.SendBudgetAlertFunc != nil {
		return m.SendBudgetAlertFunc(ctx, recipients, over)
	}
	return nil
}

// MockCreditService is a mock implementation of CreditService
type MockCreditService struct {
	CreateFunc        func(ctx context.Context, c models.Credit) (models.CreditView, error)
	GetFunc           func(ctx context.Context, id string) (models.CreditView, error)
	ListFunc          func(ctx context.Context, activeOnly bool) ([]models.CreditView, error)
	UpdateFunc        func(ctx context.Context, id string, patch models.CreditPatch) (models.CreditView, error)
	DeleteFunc        func(ctx context.Context, id string) error
	RecordPaymentFunc func(ctx context.Context, id string, p models.CreditPayment) (models.CreditPayment, error)
	RecordChargeFunc  func(ctx context.Context, id string, ch models.CreditCharge) (models.CreditCharge, error)
	PaymentsFunc      func(ctx context.Context, id string) ([]models.CreditPayment, error)
	ChargesFunc       func(ctx context.Context, id string) ([]models.CreditCharge, error)
	SummaryFunc       func(ctx context.Context) (models.CreditSummary, error)
	UpcomingDueFunc   func(ctx context.Context, days int) ([]models.CreditView, error)
}

func (m *MockCreditService) Create(ctx context.Context, c models.Credit) (models.CreditView, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	return models.CreditView{}, nil
}

func (m *MockCreditService) Get(ctx context.Context, id string) (models.CreditView, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return models.CreditView{}, nil
}

func (m *MockCreditService) List(ctx context.Context, activeOnly bool) ([]models.CreditView, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, activeOnly)
	}
	return nil, nil
}

func (m *MockCreditService) Update(ctx context.Context, id string, patch models.CreditPatch) (models.CreditView, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return models.CreditView{}, nil
}

func (m *MockCreditService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockCreditService) RecordPayment(ctx context.Context, id string, p models.CreditPayment) (models.CreditPayment, error) {
	if m.RecordPaymentFunc != nil {
		return m.RecordPaymentFunc(ctx, id, p)
	}
	return p, nil
}

func (m *MockCreditService) RecordCharge(ctx context.Context, id string, ch models.CreditCharge) (models.CreditCharge, error) {
	if m.RecordChargeFunc != nil {
		return m.RecordChargeFunc(ctx, id, ch)
	}
	return ch, nil
}

func (m *MockCreditService) Payments(ctx context.Context, id string) ([]models.CreditPayment, error) {
	if m.PaymentsFunc != nil {
		return m.PaymentsFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockCreditService) Charges(ctx context.Context, id string) ([]models.CreditCharge, error) {
	if m.ChargesFunc != nil {
		return m.ChargesFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockCreditService) Summary(ctx context.Context) (models.CreditSummary, error) {
	if m.SummaryFunc != nil {
		return m.SummaryFunc(ctx)
	}
	return models.CreditSummary{}, nil
}

func (m *MockCreditService) UpcomingDue(ctx context.Context, days int) ([]models.CreditView, error) {
	if m.UpcomingDueFunc != nil {
		return m.UpcomingDueFunc(ctx, days)
	}
	return nil, nil
}
