package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocjay1/budget-ledger/internal/budget"
	"github.com/rocjay1/budget-ledger/internal/lock"
	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/rocjay1/budget-ledger/internal/store"
	"github.com/shopspring/decimal"
)

// CategoryService manages the category tree. Running totals are owned by
// Engine; this service only touches names, structure and budgets.
type CategoryService struct {
	store  store.Store
	locker lock.Locker
	guard  *budget.Guard
	settings
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(s store.Store, l lock.Locker, opts ...Option) *CategoryService {
	return &CategoryService{store: s, locker: l, guard: budget.NewGuard(s), settings: applyOptions(opts)}
}

// Create adds a category under a new id. Running totals start at zero.
func (s *CategoryService) Create(ctx context.Context, c models.Category) (models.Category, error) {
	if err := c.Validate(); err != nil {
		return models.Category{}, err
	}
	now := s.now().UTC()
	c.ID = s.newID()
	c.BudgetUsed, c.TotalSpent, c.TotalEarned = decimal.Zero, decimal.Zero, decimal.Zero
	c.CreatedAt, c.UpdatedAt = now, now

	if c.ParentID != "" {
		// Siblings are serialized on their parent's key.
		h, err := s.locker.Lock(ctx, lock.CategoryKey(c.ParentID))
		if err != nil {
			return models.Category{}, err
		}
		defer lock.Release(ctx, h)

		if err := s.guard.CheckAncestry(ctx, c.ID, c.ParentID); err != nil {
			return models.Category{}, err
		}
		if err := s.guard.CheckAllocation(ctx, c.ParentID, c.Budget, ""); err != nil {
			return models.Category{}, err
		}
	}

	if err := s.store.Insert(ctx, store.Categories, c.ID, c.ToDocument()); err != nil {
		return models.Category{}, fmt.Errorf("failed to create category: %w", err)
	}
	slog.Info("category created", "category_id", c.ID, "parent_id", c.ParentID, "budget", c.Budget.String())
	return c, nil
}

// Get returns a category.
func (s *CategoryService) Get(ctx context.Context, id string) (models.Category, error) {
	doc, err := s.store.Get(ctx, store.Categories, id)
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to load category %s: %w", id, err)
	}
	if doc == nil {
		return models.Category{}, &models.NotFoundError{Kind: "category", ID: id}
	}
	return models.CategoryFromDocument(doc), nil
}

// List returns every category.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	docs, err := s.store.List(ctx, store.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	categories := make([]models.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, models.CategoryFromDocument(doc))
	}
	return categories, nil
}

// Children returns the direct children of a category.
func (s *CategoryService) Children(ctx context.Context, id string) ([]models.Category, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	docs, err := s.store.Find(ctx, store.Categories, models.FieldParentID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load children of %s: %w", id, err)
	}
	children := make([]models.Category, 0, len(docs))
	for _, doc := range docs {
		children = append(children, models.CategoryFromDocument(doc))
	}
	return children, nil
}

// OverBudget returns the active categories whose usage exceeds their budget.
func (s *CategoryService) OverBudget(ctx context.Context) ([]models.Category, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var over []models.Category
	for _, c := range all {
		if c.IsActive && c.OverBudget() {
			over = append(over, c)
		}
	}
	return over, nil
}

// Update merges patch into a category. Moving a category or changing the
// budget of a child re-runs the allocation check against its parent.
func (s *CategoryService) Update(ctx context.Context, id string, patch models.CategoryPatch) (models.Category, error) {
	var cur models.Category
	h, err := lock.Acquire(ctx, s.locker, func(ctx context.Context) ([]string, error) {
		c, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		cur = c
		keys := []string{lock.CategoryKey(id), lock.CategoryKey(c.ParentID)}
		if patch.ParentID != nil {
			keys = append(keys, lock.CategoryKey(*patch.ParentID))
		}
		return keys, nil
	})
	if err != nil {
		return models.Category{}, err
	}
	defer lock.Release(ctx, h)

	merged, err := patch.Apply(cur)
	if err != nil {
		return models.Category{}, err
	}
	moved := merged.ParentID != cur.ParentID
	if moved {
		if err := s.guard.CheckAncestry(ctx, id, merged.ParentID); err != nil {
			return models.Category{}, err
		}
	}
	if merged.ParentID != "" && (moved || patch.Budget != nil) {
		if err := s.guard.CheckAllocation(ctx, merged.ParentID, merged.Budget, id); err != nil {
			return models.Category{}, err
		}
	}

	merged.UpdatedAt = s.now().UTC()
	fields := patch.Fields()
	fields[models.FieldUpdatedAt] = merged.UpdatedAt
	ok, err := s.store.SetFields(ctx, store.Categories, id, fields)
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to update category %s: %w", id, err)
	}
	if !ok {
		return models.Category{}, &models.NotFoundError{Kind: "category", ID: id}
	}
	slog.Info("category updated", "category_id", id, "fields", len(fields))
	return merged, nil
}

// Delete removes a category with no children and no transactions.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	h, err := s.locker.Lock(ctx, lock.CategoryKey(id))
	if err != nil {
		return err
	}
	defer lock.Release(ctx, h)

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	children, err := s.store.Find(ctx, store.Categories, models.FieldParentID, id)
	if err != nil {
		return fmt.Errorf("failed to load children of %s: %w", id, err)
	}
	if len(children) > 0 {
		return models.NewValidationError("category %s still has %d subcategories", id, len(children))
	}
	txs, err := s.store.Find(ctx, store.Transactions, models.FieldCategoryID, id)
	if err != nil {
		return fmt.Errorf("failed to look up transactions of category %s: %w", id, err)
	}
	if len(txs) > 0 {
		return models.NewValidationError("category %s is still referenced by %d transaction(s)", id, len(txs))
	}

	ok, err := s.store.Delete(ctx, store.Categories, id)
	if err != nil {
		return fmt.Errorf("failed to delete category %s: %w", id, err)
	}
	if !ok {
		return &models.NotFoundError{Kind: "category", ID: id}
	}
	slog.Info("category deleted", "category_id", id)
	return nil
}
