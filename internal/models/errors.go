package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports a malformed request, such as a link set that does
// not match the declared transaction type.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ReferenceError reports a dangling or mistyped foreign id.
type ReferenceError struct {
	Kind   string
	ID     string
	Reason string
}

func (e *ReferenceError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("referenced %s %q does not exist", e.Kind, e.ID)
	}
	return fmt.Sprintf("referenced %s %q %s", e.Kind, e.ID, e.Reason)
}

// NotFoundError reports that the target of an operation is absent.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// BudgetOverflowError is returned when the budgets of a parent's direct
// children would exceed the parent's own budget.
type BudgetOverflowError struct {
	Sum          decimal.Decimal
	ParentBudget decimal.Decimal
}

func (e *BudgetOverflowError) Error() string {
	return fmt.Sprintf("budget overflow: children total %s exceeds parent budget %s",
		e.Sum.String(), e.ParentBudget.String())
}

// NoParentBudgetError is returned when a child budget is allocated under a
// parent that has no budget configured.
type NoParentBudgetError struct {
	ParentID string
}

func (e *NoParentBudgetError) Error() string {
	return fmt.Sprintf("parent category %q has no budget to allocate from", e.ParentID)
}

// InconsistencyError marks a transaction whose effects were only partially
// applied. It needs out-of-band reconciliation.
type InconsistencyError struct {
	TransactionID string
	Applied       int
	Total         int
	Err           error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("transaction %s left inconsistent after %d of %d adjustments: %v",
		e.TransactionID, e.Applied, e.Total, e.Err)
}

func (e *InconsistencyError) Unwrap() error {
	return e.Err
}

// CreditLimitError is returned when a charge would push a credit past its
// limit.
type CreditLimitError struct {
	CreditID  string
	Amount    decimal.Decimal
	Available decimal.Decimal
}

func (e *CreditLimitError) Error() string {
	return fmt.Sprintf("charge of %s on credit %q would exceed its limit, available %s",
		e.Amount.StringFixed(2), e.CreditID, e.Available.StringFixed(2))
}
