package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryType says whether a category collects income or expenses.
type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

// BudgetFrequency is the period a category budget covers.
type BudgetFrequency string

const (
	BudgetMonthly BudgetFrequency = "monthly"
	BudgetWeekly  BudgetFrequency = "weekly"
	BudgetYearly  BudgetFrequency = "yearly"
	BudgetOneTime BudgetFrequency = "one-time"
)

// Category is a node in the budget forest. Budget is the allocation;
// BudgetUsed, TotalSpent and TotalEarned are running totals kept by
// transaction effects.
type Category struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        CategoryType    `json:"type"`
	ParentID    string          `json:"parent_id,omitempty"`
	Budget      decimal.Decimal `json:"budget"`
	BudgetUsed  decimal.Decimal `json:"budget_used"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	TotalEarned decimal.Decimal `json:"total_earned"`
	Frequency   BudgetFrequency `json:"frequency,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HasBudget reports whether usage is tracked against an allocation.
func (c *Category) HasBudget() bool {
	return c.Budget.IsPositive()
}

// OverBudget reports whether usage has passed the allocation.
func (c *Category) OverBudget() bool {
	return c.HasBudget() && c.BudgetUsed.GreaterThan(c.Budget)
}

// Remaining returns the unused part of the budget, which may be negative.
func (c *Category) Remaining() decimal.Decimal {
	return c.Budget.Sub(c.BudgetUsed)
}

// Validate checks the category's own fields.
func (c *Category) Validate() error {
	if c.Name == "" {
		return NewValidationError("category name is required")
	}
	switch c.Type {
	case CategoryIncome, CategoryExpense:
	default:
		return NewValidationError("category type must be income or expense, got %q", c.Type)
	}
	if c.Budget.IsNegative() {
		return NewValidationError("budget must not be negative")
	}
	switch c.Frequency {
	case "", BudgetMonthly, BudgetWeekly, BudgetYearly, BudgetOneTime:
	default:
		return NewValidationError("unknown budget frequency %q", c.Frequency)
	}
	if c.ID != "" && c.ParentID == c.ID {
		return NewValidationError("category cannot be its own parent")
	}
	return nil
}

// ToDocument encodes the category for storage.
func (c *Category) ToDocument() Document {
	return Document{
		FieldName:        c.Name,
		FieldType:        string(c.Type),
		FieldParentID:    c.ParentID,
		FieldBudget:      c.Budget,
		FieldBudgetUsed:  c.BudgetUsed,
		FieldTotalSpent:  c.TotalSpent,
		FieldTotalEarned: c.TotalEarned,
		FieldFrequency:   string(c.Frequency),
		FieldIsActive:    c.IsActive,
		FieldCreatedAt:   c.CreatedAt,
		FieldUpdatedAt:   c.UpdatedAt,
	}
}

// CategoryFromDocument decodes a stored category.
func CategoryFromDocument(doc Document) Category {
	return Category{
		ID:          doc.ID(),
		Name:        doc.String(FieldName),
		Type:        CategoryType(doc.String(FieldType)),
		ParentID:    doc.String(FieldParentID),
		Budget:      doc.Decimal(FieldBudget),
		BudgetUsed:  doc.Decimal(FieldBudgetUsed),
		TotalSpent:  doc.Decimal(FieldTotalSpent),
		TotalEarned: doc.Decimal(FieldTotalEarned),
		Frequency:   BudgetFrequency(doc.String(FieldFrequency)),
		IsActive:    doc.Bool(FieldIsActive),
		CreatedAt:   doc.Time(FieldCreatedAt),
		UpdatedAt:   doc.Time(FieldUpdatedAt),
	}
}

// CategoryPatch lists the category fields a client may change. An empty
// ParentID moves the category to the root.
type CategoryPatch struct {
	Name      *string          `json:"name,omitempty"`
	Type      *CategoryType    `json:"type,omitempty"`
	ParentID  *string          `json:"parent_id,omitempty"`
	Budget    *decimal.Decimal `json:"budget,omitempty"`
	Frequency *BudgetFrequency `json:"frequency,omitempty"`
	IsActive  *bool            `json:"is_active,omitempty"`
}

// Apply returns a copy of c with the patch merged in.
func (p CategoryPatch) Apply(c Category) (Category, error) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.ParentID != nil {
		c.ParentID = *p.ParentID
	}
	if p.Budget != nil {
		c.Budget = *p.Budget
	}
	if p.Frequency != nil {
		c.Frequency = *p.Frequency
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if err := c.Validate(); err != nil {
		return Category{}, err
	}
	return c, nil
}

// Fields returns the stored fields touched by the patch.
func (p CategoryPatch) Fields() Document {
	fields := Document{}
	if p.Name != nil {
		fields[FieldName] = *p.Name
	}
	if p.Type != nil {
		fields[FieldType] = string(*p.Type)
	}
	if p.ParentID != nil {
		fields[FieldParentID] = *p.ParentID
	}
	if p.Budget != nil {
		fields[FieldBudget] = *p.Budget
	}
	if p.Frequency != nil {
		fields[FieldFrequency] = string(*p.Frequency)
	}
	if p.IsActive != nil {
		fields[FieldIsActive] = *p.IsActive
	}
	return fields
}
