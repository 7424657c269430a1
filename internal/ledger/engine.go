// Package ledger applies transactions to accounts and categories and keeps
// their balances and totals consistent across create, update and delete.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocjay1/budget-ledger/internal/effects"
	"github.com/rocjay1/budget-ledger/internal/lock"
	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/rocjay1/budget-ledger/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Engine runs transaction mutations. Each mutation holds locks on the
// transaction and every account and category it touches from the first
// read until the record is persisted.
type Engine struct {
	store  store.Store
	locker lock.Locker
	settings
}

// NewEngine creates an Engine over the given store and locker.
func NewEngine(s store.Store, l lock.Locker, opts ...Option) *Engine {
	return &Engine{store: s, locker: l, settings: applyOptions(opts)}
}

// Create validates rec, applies its effects and stores it under a new id.
func (e *Engine) Create(ctx context.Context, rec models.TransactionRecord) (models.Transaction, error) {
	tx, err := rec.ToTransaction()
	if err != nil {
		return models.Transaction{}, err
	}
	now := e.now().UTC()
	tx.ID = e.newID()
	if tx.Date.IsZero() {
		tx.Date = now
	}
	tx.CreatedAt, tx.UpdatedAt = now, now

	h, err := lock.Acquire(ctx, e.locker, func(ctx context.Context) ([]string, error) {
		return e.lockKeys(ctx, tx)
	})
	if err != nil {
		return models.Transaction{}, err
	}
	defer lock.Release(ctx, h)

	refs, err := e.resolve(ctx, tx)
	if err != nil {
		return models.Transaction{}, err
	}
	tx.BudgetTracked = effects.Tracked(tx, refs)
	plan, err := effects.For(tx, refs)
	if err != nil {
		return models.Transaction{}, err
	}

	// From the first store mutation on, the operation runs to completion.
	ctx = context.WithoutCancel(ctx)
	if err := e.apply(ctx, tx.ID, plan); err != nil {
		return models.Transaction{}, err
	}
	if err := e.store.Insert(ctx, store.Transactions, tx.ID, tx.ToDocument()); err != nil {
		slog.Error("failed to store transaction after applying effects", "transaction_id", tx.ID, "error", err)
		e.compensate(ctx, tx.ID, plan)
		return models.Transaction{}, fmt.Errorf("failed to store transaction %s: %w", tx.ID, err)
	}

	slog.Info("transaction created",
		"transaction_id", tx.ID,
		"type", tx.Type(),
		"amount", tx.Amount.String(),
		"budget_tracked", tx.BudgetTracked,
		"targets", effects.Targets(plan),
	)
	return tx, nil
}

// Update merges patch into the stored transaction and moves its effects
// from the old state to the merged one. The result matches deleting the old
// transaction and creating the merged one, except that the id is kept.
func (e *Engine) Update(ctx context.Context, id string, patch models.TransactionPatch) (models.Transaction, error) {
	var old, merged models.Transaction
	h, err := lock.Acquire(ctx, e.locker, func(ctx context.Context) ([]string, error) {
		cur, err := e.load(ctx, id)
		if err != nil {
			return nil, err
		}
		next, err := patch.Apply(cur)
		if err != nil {
			return nil, err
		}
		oldKeys, err := e.lockKeys(ctx, cur)
		if err != nil {
			return nil, err
		}
		newKeys, err := e.lockKeys(ctx, next)
		if err != nil {
			return nil, err
		}
		old, merged = cur, next
		return append(oldKeys, newKeys...), nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	defer lock.Release(ctx, h)

	oldRefs, err := e.resolve(ctx, old)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("cannot roll back transaction %s: %w", id, err)
	}
	newRefs, err := e.resolve(ctx, merged)
	if err != nil {
		return models.Transaction{}, err
	}
	// The rollback side replays what was applied, not today's budgets.
	oldPlan, err := effects.For(old, effects.Recorded(old, oldRefs))
	if err != nil {
		return models.Transaction{}, err
	}
	newPlan, err := effects.For(merged, newRefs)
	if err != nil {
		return models.Transaction{}, err
	}
	plan := effects.Net(effects.Negate(oldPlan), newPlan)

	merged.BudgetTracked = effects.Tracked(merged, newRefs)
	merged.UpdatedAt = e.now().UTC()
	fields := patch.Fields(merged)
	fields[models.FieldBudgetTracked] = merged.BudgetTracked
	fields[models.FieldUpdatedAt] = merged.UpdatedAt

	ctx = context.WithoutCancel(ctx)
	if err := e.apply(ctx, id, plan); err != nil {
		return models.Transaction{}, err
	}
	ok, err := e.store.SetFields(ctx, store.Transactions, id, fields)
	if err == nil && !ok {
		err = errors.New("record disappeared while locked")
	}
	if err != nil {
		slog.Error("failed to store updated transaction after applying effects", "transaction_id", id, "error", err)
		return models.Transaction{}, &models.InconsistencyError{TransactionID: id, Applied: len(plan), Total: len(plan), Err: err}
	}

	slog.Info("transaction updated",
		"transaction_id", id,
		"type", merged.Type(),
		"budget_tracked", merged.BudgetTracked,
		"targets", effects.Targets(plan),
	)
	return merged, nil
}

// Delete rolls back the transaction's effects, then removes the record.
func (e *Engine) Delete(ctx context.Context, id string) error {
	var cur models.Transaction
	h, err := lock.Acquire(ctx, e.locker, func(ctx context.Context) ([]string, error) {
		tx, err := e.load(ctx, id)
		if err != nil {
			return nil, err
		}
		cur = tx
		return e.lockKeys(ctx, tx)
	})
	if err != nil {
		return err
	}
	defer lock.Release(ctx, h)

	if cur.Type() == models.TransactionExpense {
		reimbursements, err := e.store.Find(ctx, store.Transactions, models.FieldExpenseTransactionID, id)
		if err != nil {
			return fmt.Errorf("failed to look up reimbursements of %s: %w", id, err)
		}
		if len(reimbursements) > 0 {
			return models.NewValidationError("expense %s is still referenced by %d reimbursement(s)", id, len(reimbursements))
		}
	}

	refs, err := e.resolve(ctx, cur)
	if err != nil {
		return fmt.Errorf("cannot roll back transaction %s: %w", id, err)
	}
	plan, err := effects.For(cur, effects.Recorded(cur, refs))
	if err != nil {
		return err
	}
	rollback := effects.Negate(plan)

	ctx = context.WithoutCancel(ctx)
	if err := e.apply(ctx, id, rollback); err != nil {
		return err
	}
	ok, err := e.store.Delete(ctx, store.Transactions, id)
	if err == nil && !ok {
		err = errors.New("record disappeared while locked")
	}
	if err != nil {
		slog.Error("failed to remove transaction after rolling back effects", "transaction_id", id, "error", err)
		return &models.InconsistencyError{TransactionID: id, Applied: len(rollback), Total: len(rollback), Err: err}
	}

	slog.Info("transaction deleted", "transaction_id", id, "type", cur.Type(), "targets", effects.Targets(rollback))
	return nil
}

// Get returns a stored transaction.
func (e *Engine) Get(ctx context.Context, id string) (models.Transaction, error) {
	return e.load(ctx, id)
}

// List returns every stored transaction, oldest first.
func (e *Engine) List(ctx context.Context) ([]models.Transaction, error) {
	docs, err := e.store.List(ctx, store.Transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs := make([]models.Transaction, 0, len(docs))
	for _, doc := range docs {
		tx, err := models.TransactionFromDocument(doc)
		if err != nil {
			slog.Warn("skipping unreadable transaction", "transaction_id", doc.ID(), "error", err)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (e *Engine) load(ctx context.Context, id string) (models.Transaction, error) {
	doc, err := e.store.Get(ctx, store.Transactions, id)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to load transaction %s: %w", id, err)
	}
	if doc == nil {
		return models.Transaction{}, &models.NotFoundError{Kind: "transaction", ID: id}
	}
	tx, err := models.TransactionFromDocument(doc)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to decode transaction %s: %w", id, err)
	}
	return tx, nil
}

// lockKeys lists every entity tx reads or writes. For a reimbursement that
// includes the expense record and its current category.
func (e *Engine) lockKeys(ctx context.Context, tx models.Transaction) ([]string, error) {
	keys := []string{lock.TransactionKey(tx.ID)}
	for _, id := range tx.AccountIDs() {
		keys = append(keys, lock.AccountKey(id))
	}
	if c := tx.CategoryID(); c != "" {
		keys = append(keys, lock.CategoryKey(c))
	}
	if l, ok := tx.Links.(models.ReimburseLinks); ok {
		keys = append(keys, lock.TransactionKey(l.ExpenseTransactionID))
		doc, err := e.store.Get(ctx, store.Transactions, l.ExpenseTransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load expense %s: %w", l.ExpenseTransactionID, err)
		}
		if c := doc.String(models.FieldCategoryID); c != "" {
			keys = append(keys, lock.CategoryKey(c))
		}
	}
	return keys, nil
}

// resolve checks that everything tx references exists and gathers what the
// effect calculator needs. It never mutates the store.
func (e *Engine) resolve(ctx context.Context, tx models.Transaction) (effects.Refs, error) {
	refs := effects.Refs{Budgeted: make(map[string]bool)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	for _, id := range tx.AccountIDs() {
		g.Go(func() error {
			doc, err := e.store.Get(gctx, store.Accounts, id)
			if err != nil {
				return fmt.Errorf("failed to load account %s: %w", id, err)
			}
			if doc == nil {
				return &models.ReferenceError{Kind: "account", ID: id}
			}
			return nil
		})
	}

	budgeted := func(ctx context.Context, id string) error {
		doc, err := e.store.Get(ctx, store.Categories, id)
		if err != nil {
			return fmt.Errorf("failed to load category %s: %w", id, err)
		}
		if doc == nil {
			return &models.ReferenceError{Kind: "category", ID: id}
		}
		c := models.CategoryFromDocument(doc)
		mu.Lock()
		refs.Budgeted[id] = c.HasBudget()
		mu.Unlock()
		return nil
	}

	if c := tx.CategoryID(); c != "" {
		g.Go(func() error { return budgeted(gctx, c) })
	}

	if l, ok := tx.Links.(models.ReimburseLinks); ok {
		g.Go(func() error {
			doc, err := e.store.Get(gctx, store.Transactions, l.ExpenseTransactionID)
			if err != nil {
				return fmt.Errorf("failed to load expense %s: %w", l.ExpenseTransactionID, err)
			}
			if doc == nil {
				return &models.ReferenceError{Kind: "expense transaction", ID: l.ExpenseTransactionID}
			}
			expense, err := models.TransactionFromDocument(doc)
			if err != nil {
				return fmt.Errorf("failed to decode expense %s: %w", l.ExpenseTransactionID, err)
			}
			if expense.Type() != models.TransactionExpense {
				return &models.ReferenceError{
					Kind:   "expense transaction",
					ID:     l.ExpenseTransactionID,
					Reason: fmt.Sprintf("is a %s, not an expense", expense.Type()),
				}
			}
			categoryID := expense.CategoryID()
			mu.Lock()
			refs.ExpenseCategoryID = categoryID
			mu.Unlock()
			return budgeted(gctx, categoryID)
		})
	}

	if err := g.Wait(); err != nil {
		return effects.Refs{}, err
	}
	return refs, nil
}

func collectionFor(t effects.Target) store.Collection {
	if t == effects.TargetCategory {
		return store.Categories
	}
	return store.Accounts
}

// apply issues one increment per adjustment, flooring running totals at
// zero after each. A failure after the first increment leaves the ledger
// torn and is reported as an InconsistencyError.
func (e *Engine) apply(ctx context.Context, txID string, plan []effects.Adjustment) error {
	for i, adj := range plan {
		c := collectionFor(adj.Target)
		ok, err := e.store.Increment(ctx, c, adj.ID, adj.Field, adj.Delta)
		if err == nil && !ok {
			err = &models.ReferenceError{Kind: string(adj.Target), ID: adj.ID, Reason: "disappeared during the operation"}
		}
		if err != nil {
			if i == 0 {
				return fmt.Errorf("failed to apply %s: %w", adj, err)
			}
			applied := make([]string, i)
			for j := range plan[:i] {
				applied[j] = plan[j].String()
			}
			slog.Error("transaction effects partially applied",
				"transaction_id", txID,
				"applied", applied,
				"failed", adj.String(),
				"error", err,
			)
			return &models.InconsistencyError{TransactionID: txID, Applied: i, Total: len(plan), Err: err}
		}
		if effects.Clamped(adj.Field) {
			e.clamp(ctx, c, adj.ID, adj.Field)
		}
	}
	return nil
}

// clamp floors a running total at zero.
func (e *Engine) clamp(ctx context.Context, c store.Collection, id, field string) {
	doc, err := e.store.Get(ctx, c, id)
	if err != nil || doc == nil {
		slog.Error("failed to read total for clamping", "collection", c, "id", id, "field", field, "error", err)
		return
	}
	if !doc.Decimal(field).IsNegative() {
		return
	}
	if _, err := e.store.SetFields(ctx, c, id, models.Document{field: decimal.Zero}); err != nil {
		slog.Error("failed to clamp total at zero", "collection", c, "id", id, "field", field, "error", err)
		return
	}
	slog.Info("clamped negative total to zero", "collection", c, "id", id, "field", field)
}

// compensate reverses plan after the record itself could not be stored.
func (e *Engine) compensate(ctx context.Context, txID string, plan []effects.Adjustment) {
	for _, adj := range effects.Negate(plan) {
		if _, err := e.store.Increment(ctx, collectionFor(adj.Target), adj.ID, adj.Field, adj.Delta); err != nil {
			slog.Error("failed to compensate adjustment", "transaction_id", txID, "adjustment", adj.String(), "error", err)
		}
	}
}
