package ledger

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/rocjay1/budget-ledger/internal/lock"
	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/rocjay1/budget-ledger/internal/store"
	"github.com/shopspring/decimal"
)

// DefaultDueWindow is how many days ahead UpcomingDue looks by default.
const DefaultDueWindow = 30

// CreditService tracks credit obligations. Balances move through charges,
// which are refused past the limit, and payments, which never take the
// balance below zero.
type CreditService struct {
	store  store.Store
	locker lock.Locker
	settings
}

// NewCreditService creates a CreditService.
func NewCreditService(s store.Store, l lock.Locker, opts ...Option) *CreditService {
	return &CreditService{store: s, locker: l, settings: applyOptions(opts)}
}

// Create stores a new credit. c.CurrentBalance is the opening balance.
func (s *CreditService) Create(ctx context.Context, c models.Credit) (models.CreditView, error) {
	if err := c.Validate(); err != nil {
		return models.CreditView{}, err
	}
	now := s.now().UTC()
	c.ID = s.newID()
	c.CreatedAt, c.UpdatedAt = now, now

	if err := s.store.Insert(ctx, store.Credits, c.ID, c.ToDocument()); err != nil {
		return models.CreditView{}, fmt.Errorf("failed to create credit: %w", err)
	}
	slog.Info("credit created", "credit_id", c.ID, "type", c.Type, "limit", c.CreditLimit.String())
	return c.View(now), nil
}

func (s *CreditService) load(ctx context.Context, id string) (models.Credit, error) {
	doc, err := s.store.Get(ctx, store.Credits, id)
	if err != nil {
		return models.Credit{}, fmt.Errorf("failed to load credit %s: %w", id, err)
	}
	if doc == nil {
		return models.Credit{}, &models.NotFoundError{Kind: "credit", ID: id}
	}
	return models.CreditFromDocument(doc), nil
}

// Get returns a credit with its derived figures.
func (s *CreditService) Get(ctx context.Context, id string) (models.CreditView, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return models.CreditView{}, err
	}
	return c.View(s.now()), nil
}

func (s *CreditService) all(ctx context.Context) ([]models.Credit, error) {
	docs, err := s.store.List(ctx, store.Credits)
	if err != nil {
		return nil, fmt.Errorf("failed to list credits: %w", err)
	}
	credits := make([]models.Credit, 0, len(docs))
	for _, doc := range docs {
		credits = append(credits, models.CreditFromDocument(doc))
	}
	return credits, nil
}

// List returns credits newest first, optionally only the active ones.
func (s *CreditService) List(ctx context.Context, activeOnly bool) ([]models.CreditView, error) {
	credits, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	today := s.now()
	views := make([]models.CreditView, 0, len(credits))
	for i := len(credits) - 1; i >= 0; i-- {
		if activeOnly && !credits[i].IsActive {
			continue
		}
		views = append(views, credits[i].View(today))
	}
	return views, nil
}

// Update merges patch into a credit.
func (s *CreditService) Update(ctx context.Context, id string, patch models.CreditPatch) (models.CreditView, error) {
	h, err := s.locker.Lock(ctx, lock.CreditKey(id))
	if err != nil {
		return models.CreditView{}, err
	}
	defer lock.Release(ctx, h)

	cur, err := s.load(ctx, id)
	if err != nil {
		return models.CreditView{}, err
	}
	merged, err := patch.Apply(cur)
	if err != nil {
		return models.CreditView{}, err
	}
	merged.UpdatedAt = s.now().UTC()

	fields := patch.Fields()
	fields[models.FieldUpdatedAt] = merged.UpdatedAt
	if err := s.save(ctx, id, fields); err != nil {
		return models.CreditView{}, err
	}
	slog.Info("credit updated", "credit_id", id, "fields", len(fields))
	return merged.View(s.now()), nil
}

func (s *CreditService) save(ctx context.Context, id string, fields models.Document) error {
	ok, err := s.store.SetFields(ctx, store.Credits, id, fields)
	if err != nil {
		return fmt.Errorf("failed to update credit %s: %w", id, err)
	}
	if !ok {
		return &models.NotFoundError{Kind: "credit", ID: id}
	}
	return nil
}

// Delete removes a credit together with its payment and charge history.
func (s *CreditService) Delete(ctx context.Context, id string) error {
	h, err := s.locker.Lock(ctx, lock.CreditKey(id))
	if err != nil {
		return err
	}
	defer lock.Release(ctx, h)

	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	ok, err := s.store.Delete(ctx, store.Credits, id)
	if err != nil {
		return fmt.Errorf("failed to delete credit %s: %w", id, err)
	}
	if !ok {
		return &models.NotFoundError{Kind: "credit", ID: id}
	}

	removed := 0
	for _, c := range []store.Collection{store.CreditPayments, store.CreditCharges} {
		docs, err := s.store.Find(ctx, c, models.FieldCreditID, id)
		if err != nil {
			slog.Error("failed to look up credit history", "credit_id", id, "collection", c, "error", err)
			continue
		}
		for _, doc := range docs {
			if _, err := s.store.Delete(ctx, c, doc.ID()); err != nil {
				slog.Error("failed to delete credit history", "credit_id", id, "collection", c, "id", doc.ID(), "error", err)
				continue
			}
			removed++
		}
	}
	slog.Info("credit deleted", "credit_id", id, "history_removed", removed)
	return nil
}

// RecordPayment lowers the balance by p.Amount, flooring it at zero, and
// stores the payment.
func (s *CreditService) RecordPayment(ctx context.Context, id string, p models.CreditPayment) (models.CreditPayment, error) {
	if !p.Amount.IsPositive() {
		return models.CreditPayment{}, models.NewValidationError("payment amount must be greater than zero")
	}
	err := s.move(ctx, id, store.CreditPayments,
		func(c models.Credit) (decimal.Decimal, error) {
			return decimal.Max(decimal.Zero, c.CurrentBalance.Sub(p.Amount)), nil
		},
		func(entryID string, now time.Time) models.Document {
			p.ID, p.CreditID, p.CreatedAt = entryID, id, now
			if p.Date.IsZero() {
				p.Date = now
			}
			return p.ToDocument()
		},
	)
	if err != nil {
		return models.CreditPayment{}, err
	}
	return p, nil
}

// RecordCharge raises the balance by ch.Amount and stores the charge. A
// charge that would take the balance past the limit is refused.
func (s *CreditService) RecordCharge(ctx context.Context, id string, ch models.CreditCharge) (models.CreditCharge, error) {
	if !ch.Amount.IsPositive() {
		return models.CreditCharge{}, models.NewValidationError("charge amount must be greater than zero")
	}
	if ch.InstallmentMonths < 0 {
		return models.CreditCharge{}, models.NewValidationError("installment months must be at least 1")
	}
	err := s.move(ctx, id, store.CreditCharges,
		func(c models.Credit) (decimal.Decimal, error) {
			next := c.CurrentBalance.Add(ch.Amount)
			if next.GreaterThan(c.CreditLimit) {
				return decimal.Zero, &models.CreditLimitError{CreditID: id, Amount: ch.Amount, Available: c.Available()}
			}
			return next, nil
		},
		func(entryID string, now time.Time) models.Document {
			ch.ID, ch.CreditID, ch.CreatedAt = entryID, id, now
			if ch.Date.IsZero() {
				ch.Date = now
			}
			return ch.ToDocument()
		},
	)
	if err != nil {
		return models.CreditCharge{}, err
	}
	return ch, nil
}

// move sets the balance of credit id to what next returns and stores the
// history entry that entry builds in c. The entry is written first and
// removed again when the balance cannot be saved.
func (s *CreditService) move(
	ctx context.Context,
	id string,
	c store.Collection,
	next func(models.Credit) (decimal.Decimal, error),
	entry func(entryID string, now time.Time) models.Document,
) error {
	h, err := s.locker.Lock(ctx, lock.CreditKey(id))
	if err != nil {
		return err
	}
	defer lock.Release(ctx, h)

	credit, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	balance, err := next(credit)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	entryID := s.newID()
	if err := s.store.Insert(ctx, c, entryID, entry(entryID, now)); err != nil {
		return fmt.Errorf("failed to store %s entry for credit %s: %w", c, id, err)
	}

	ctx = context.WithoutCancel(ctx)
	err = s.save(ctx, id, models.Document{models.FieldCurrentBalance: balance, models.FieldUpdatedAt: now})
	if err != nil {
		if _, derr := s.store.Delete(ctx, c, entryID); derr != nil {
			slog.Error("failed to remove history entry after balance update failed", "credit_id", id, "id", entryID, "error", derr)
		}
		return err
	}

	slog.Info("credit balance moved",
		"credit_id", id,
		"collection", c,
		"from", credit.CurrentBalance.String(),
		"to", balance.String(),
	)
	return nil
}

// Payments returns the payments made on a credit, latest first.
func (s *CreditService) Payments(ctx context.Context, id string) ([]models.CreditPayment, error) {
	docs, err := s.history(ctx, id, store.CreditPayments)
	if err != nil {
		return nil, err
	}
	out := make([]models.CreditPayment, 0, len(docs))
	for _, doc := range docs {
		out = append(out, models.CreditPaymentFromDocument(doc))
	}
	slices.SortStableFunc(out, func(a, b models.CreditPayment) int { return b.Date.Compare(a.Date) })
	return out, nil
}

// Charges returns the charges made on a credit, latest first.
func (s *CreditService) Charges(ctx context.Context, id string) ([]models.CreditCharge, error) {
	docs, err := s.history(ctx, id, store.CreditCharges)
	if err != nil {
		return nil, err
	}
	out := make([]models.CreditCharge, 0, len(docs))
	for _, doc := range docs {
		out = append(out, models.CreditChargeFromDocument(doc))
	}
	slices.SortStableFunc(out, func(a, b models.CreditCharge) int { return b.Date.Compare(a.Date) })
	return out, nil
}

func (s *CreditService) history(ctx context.Context, id string, c store.Collection) ([]models.Document, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	docs, err := s.store.Find(ctx, c, models.FieldCreditID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s of credit %s: %w", c, id, err)
	}
	return docs, nil
}

// Summary totals the active credits.
func (s *CreditService) Summary(ctx context.Context) (models.CreditSummary, error) {
	credits, err := s.all(ctx)
	if err != nil {
		return models.CreditSummary{}, err
	}
	return models.SummarizeCredits(credits, s.now()), nil
}

// UpcomingDue returns active credits with a balance whose next due date is
// within days, soonest first.
func (s *CreditService) UpcomingDue(ctx context.Context, days int) ([]models.CreditView, error) {
	if days < 0 {
		return nil, models.NewValidationError("days must not be negative")
	}
	credits, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	today := s.now()
	var upcoming []models.CreditView
	for _, c := range credits {
		if !c.IsActive {
			continue
		}
		v := c.View(today)
		if v.DaysUntilDue != nil && *v.DaysUntilDue <= days {
			upcoming = append(upcoming, v)
		}
	}
	slices.SortStableFunc(upcoming, func(a, b models.CreditView) int {
		return cmp.Compare(*a.DaysUntilDue, *b.DaysUntilDue)
	})
	return upcoming, nil
}
