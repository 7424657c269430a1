package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocjay1/budget-ledger/internal/lock"
	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/rocjay1/budget-ledger/internal/store"
	"github.com/shopspring/decimal"
)

// AccountService manages accounts. Balances are set once when the account is
// opened and afterwards move only through Engine.
type AccountService struct {
	store  store.Store
	locker lock.Locker
	settings
}

// NewAccountService creates an AccountService.
func NewAccountService(s store.Store, l lock.Locker, opts ...Option) *AccountService {
	return &AccountService{store: s, locker: l, settings: applyOptions(opts)}
}

// Create opens an account with a new id. a.Balance is the opening balance.
func (s *AccountService) Create(ctx context.Context, a models.Account) (models.Account, error) {
	if err := a.Validate(); err != nil {
		return models.Account{}, err
	}
	now := s.now().UTC()
	a.ID = s.newID()
	a.CreatedAt, a.UpdatedAt = now, now

	if err := s.store.Insert(ctx, store.Accounts, a.ID, a.ToDocument()); err != nil {
		return models.Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	slog.Info("account created", "account_id", a.ID, "type", a.Type, "opening_balance", a.Balance.String())
	return a, nil
}

// Get returns an account.
func (s *AccountService) Get(ctx context.Context, id string) (models.Account, error) {
	doc, err := s.store.Get(ctx, store.Accounts, id)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to load account %s: %w", id, err)
	}
	if doc == nil {
		return models.Account{}, &models.NotFoundError{Kind: "account", ID: id}
	}
	return models.AccountFromDocument(doc), nil
}

// List returns every account.
func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	docs, err := s.store.List(ctx, store.Accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	accounts := make([]models.Account, 0, len(docs))
	for _, doc := range docs {
		accounts = append(accounts, models.AccountFromDocument(doc))
	}
	return accounts, nil
}

// Update changes the descriptive fields of an account.
func (s *AccountService) Update(ctx context.Context, id string, patch models.AccountPatch) (models.Account, error) {
	h, err := s.locker.Lock(ctx, lock.AccountKey(id))
	if err != nil {
		return models.Account{}, err
	}
	defer lock.Release(ctx, h)

	cur, err := s.Get(ctx, id)
	if err != nil {
		return models.Account{}, err
	}
	merged, err := patch.Apply(cur)
	if err != nil {
		return models.Account{}, err
	}
	merged.UpdatedAt = s.now().UTC()

	fields := patch.Fields()
	fields[models.FieldUpdatedAt] = merged.UpdatedAt
	ok, err := s.store.SetFields(ctx, store.Accounts, id, fields)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to update account %s: %w", id, err)
	}
	if !ok {
		return models.Account{}, &models.NotFoundError{Kind: "account", ID: id}
	}
	slog.Info("account updated", "account_id", id, "fields", len(fields))
	return merged, nil
}

var accountLinkFields = []string{
	models.FieldAccountID,
	models.FieldSourceAccountID,
	models.FieldDestinationAccountID,
}

// Delete removes an account that no transaction references.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	h, err := s.locker.Lock(ctx, lock.AccountKey(id))
	if err != nil {
		return err
	}
	defer lock.Release(ctx, h)

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	for _, field := range accountLinkFields {
		refs, err := s.store.Find(ctx, store.Transactions, field, id)
		if err != nil {
			return fmt.Errorf("failed to look up transactions of account %s: %w", id, err)
		}
		if len(refs) > 0 {
			return models.NewValidationError("account %s is still referenced by %d transaction(s)", id, len(refs))
		}
	}

	ok, err := s.store.Delete(ctx, store.Accounts, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", id, err)
	}
	if !ok {
		return &models.NotFoundError{Kind: "account", ID: id}
	}
	slog.Info("account deleted", "account_id", id)
	return nil
}

// Interest returns the interest the account's current balance earns over
// one accrual period.
func (s *AccountService) Interest(ctx context.Context, id string) (models.Account, decimal.Decimal, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return models.Account{}, decimal.Zero, err
	}
	return a, a.PeriodicInterest(), nil
}
