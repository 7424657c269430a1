// Package budget enforces how budgets may be split across the category
// tree.
package budget

import (
	"context"
	"fmt"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/rocjay1/budget-ledger/internal/store"
	"github.com/shopspring/decimal"
)

// maxDepth stops ancestry walks on corrupted data.
const maxDepth = 64

// Guard checks category allocations against their parent's budget. Only
// direct children count toward a parent; grandchildren are checked against
// their own parent.
type Guard struct {
	store store.Store
}

// NewGuard creates a Guard reading from s.
func NewGuard(s store.Store) *Guard {
	return &Guard{store: s}
}

// CheckAllocation reports whether a child of parentID may hold proposed.
// The child being edited, if any, is passed as excludingChildID so its old
// budget is not counted twice.
func (g *Guard) CheckAllocation(ctx context.Context, parentID string, proposed decimal.Decimal, excludingChildID string) error {
	doc, err := g.store.Get(ctx, store.Categories, parentID)
	if err != nil {
		return fmt.Errorf("failed to load parent category %s: %w", parentID, err)
	}
	if doc == nil {
		return &models.ReferenceError{Kind: "parent category", ID: parentID}
	}
	parent := models.CategoryFromDocument(doc)
	if !parent.HasBudget() {
		return &models.NoParentBudgetError{ParentID: parentID}
	}

	children, err := g.store.Find(ctx, store.Categories, models.FieldParentID, parentID)
	if err != nil {
		return fmt.Errorf("failed to load children of %s: %w", parentID, err)
	}
	sum := proposed
	for _, child := range children {
		if child.ID() == excludingChildID {
			continue
		}
		sum = sum.Add(child.Decimal(models.FieldBudget))
	}
	if sum.GreaterThan(parent.Budget) {
		return &models.BudgetOverflowError{Sum: sum, ParentBudget: parent.Budget}
	}
	return nil
}

// CheckAncestry reports whether id may be moved under newParentID without
// creating a cycle.
func (g *Guard) CheckAncestry(ctx context.Context, id, newParentID string) error {
	if newParentID == "" {
		return nil
	}
	if newParentID == id {
		return models.NewValidationError("category cannot be its own parent")
	}
	cur := newParentID
	for depth := 0; cur != ""; depth++ {
		if depth >= maxDepth {
			return models.NewValidationError("category tree under %s is too deep", newParentID)
		}
		doc, err := g.store.Get(ctx, store.Categories, cur)
		if err != nil {
			return fmt.Errorf("failed to load category %s: %w", cur, err)
		}
		if doc == nil {
			if cur == newParentID {
				return &models.ReferenceError{Kind: "parent category", ID: newParentID}
			}
			return nil
		}
		next := doc.String(models.FieldParentID)
		if next == id {
			return models.NewValidationError("moving %s under %s would create a cycle", id, newParentID)
		}
		cur = next
	}
	return nil
}
