// Package effects maps transactions to the balance and total adjustments
// they cause. Everything here is pure; the ledger engine does the I/O.
package effects

import (
	"fmt"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Target is the kind of entity an Adjustment changes.
type Target string

const (
	TargetAccount  Target = "account"
	TargetCategory Target = "category"
)

// Adjustment is one signed delta to one field of one account or category.
type Adjustment struct {
	Target Target
	ID     string
	Field  string
	Delta  decimal.Decimal
}

func (a Adjustment) String() string {
	return fmt.Sprintf("%s/%s.%s %s", a.Target, a.ID, a.Field, a.Delta.String())
}

// Key identifies the field an Adjustment changes.
func (a Adjustment) Key() string {
	return string(a.Target) + "/" + a.ID + "/" + a.Field
}

// Refs carries the state the engine resolved before computing effects.
type Refs struct {
	// ExpenseCategoryID is the current category of the expense a
	// reimbursement pays back.
	ExpenseCategoryID string
	// Budgeted holds the ids of categories with a budget configured.
	Budgeted map[string]bool
}

// BudgetCategory returns the category whose budget_used tx moves when that
// category is budgeted, or "" for transactions that never touch a budget.
func BudgetCategory(tx models.Transaction, refs Refs) string {
	switch l := tx.Links.(type) {
	case models.ExpenseLinks:
		return l.CategoryID
	case models.ReimburseLinks:
		return refs.ExpenseCategoryID
	}
	return ""
}

// Tracked reports whether applying tx under refs counts against a budget.
func Tracked(tx models.Transaction, refs Refs) bool {
	c := BudgetCategory(tx, refs)
	return c != "" && refs.Budgeted[c]
}

// Recorded returns refs with the budget decision replaced by the one stored
// on tx, so that For yields the adjustments tx actually applied.
func Recorded(tx models.Transaction, refs Refs) Refs {
	out := Refs{ExpenseCategoryID: refs.ExpenseCategoryID, Budgeted: make(map[string]bool)}
	if c := BudgetCategory(tx, refs); c != "" {
		out.Budgeted[c] = tx.BudgetTracked
	}
	return out
}

// For returns the adjustments that applying tx causes.
func For(tx models.Transaction, refs Refs) ([]Adjustment, error) {
	amt := tx.Amount
	switch l := tx.Links.(type) {
	case models.IncomeLinks:
		adj := []Adjustment{account(l.AccountID, amt)}
		if l.CategoryID != "" {
			adj = append(adj, category(l.CategoryID, models.FieldTotalEarned, amt))
		}
		return adj, nil

	case models.ExpenseLinks:
		adj := []Adjustment{
			account(l.AccountID, amt.Neg()),
			category(l.CategoryID, models.FieldTotalSpent, amt),
		}
		if refs.Budgeted[l.CategoryID] {
			adj = append(adj, category(l.CategoryID, models.FieldBudgetUsed, amt))
		}
		return adj, nil

	case models.ReimburseLinks:
		if refs.ExpenseCategoryID == "" {
			return nil, fmt.Errorf("reimbursement %s: expense category not resolved", tx.ID)
		}
		adj := []Adjustment{
			account(l.AccountID, amt),
			category(refs.ExpenseCategoryID, models.FieldTotalSpent, amt.Neg()),
		}
		if refs.Budgeted[refs.ExpenseCategoryID] {
			adj = append(adj, category(refs.ExpenseCategoryID, models.FieldBudgetUsed, amt.Neg()))
		}
		return adj, nil

	case models.TransferLinks:
		return []Adjustment{
			account(l.SourceAccountID, amt.Add(l.Fee).Neg()),
			account(l.DestinationAccountID, amt),
		}, nil
	}
	return nil, fmt.Errorf("transaction %s has no links", tx.ID)
}

func account(id string, delta decimal.Decimal) Adjustment {
	return Adjustment{Target: TargetAccount, ID: id, Field: models.FieldBalance, Delta: delta}
}

func category(id, field string, delta decimal.Decimal) Adjustment {
	return Adjustment{Target: TargetCategory, ID: id, Field: field, Delta: delta}
}

// Negate returns the rollback of adj.
func Negate(adj []Adjustment) []Adjustment {
	out := make([]Adjustment, len(adj))
	for i, a := range adj {
		a.Delta = a.Delta.Neg()
		out[i] = a
	}
	return out
}

// Net merges adjustment lists, summing deltas on the same field. Fields are
// kept in order of first appearance and zero sums are dropped.
func Net(lists ...[]Adjustment) []Adjustment {
	var order []string
	sums := make(map[string]Adjustment)
	for _, list := range lists {
		for _, a := range list {
			k := a.Key()
			if cur, ok := sums[k]; ok {
				cur.Delta = cur.Delta.Add(a.Delta)
				sums[k] = cur
				continue
			}
			order = append(order, k)
			sums[k] = a
		}
	}
	out := make([]Adjustment, 0, len(order))
	for _, k := range order {
		if a := sums[k]; !a.Delta.IsZero() {
			out = append(out, a)
		}
	}
	return out
}

// Targets lists the distinct entities adj touches in order of first
// appearance, formatted as "<target>/<id>".
func Targets(adj []Adjustment) []string {
	seen := make(map[string]bool, len(adj))
	var out []string
	for _, a := range adj {
		k := string(a.Target) + "/" + a.ID
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// Clamped reports whether field is a running total that is floored at zero
// when stored.
func Clamped(field string) bool {
	switch field {
	case models.FieldBudgetUsed, models.FieldTotalSpent, models.FieldTotalEarned:
		return true
	}
	return false
}
