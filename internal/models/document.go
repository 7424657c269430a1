package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Stored field names shared by every store backend.
const (
	FieldName        = "name"
	FieldType        = "type"
	FieldDescription = "description"
	FieldCreatedAt   = "created_at"
	FieldUpdatedAt   = "updated_at"

	FieldBalance           = "balance"
	FieldInterestRate      = "interest_rate"
	FieldInterestFrequency = "interest_frequency"

	FieldParentID    = "parent_id"
	FieldBudget      = "budget"
	FieldBudgetUsed  = "budget_used"
	FieldTotalSpent  = "total_spent"
	FieldTotalEarned = "total_earned"
	FieldFrequency   = "frequency"
	FieldIsActive    = "is_active"

	FieldAmount               = "amount"
	FieldFee                  = "fee"
	FieldDate                 = "date"
	FieldAccountID            = "account_id"
	FieldCategoryID           = "category_id"
	FieldSourceAccountID      = "source_account_id"
	FieldDestinationAccountID = "destination_account_id"
	FieldExpenseTransactionID = "expense_transaction_id"
	FieldBudgetTracked        = "budget_tracked"

	FieldProvider          = "provider"
	FieldCreditLimit       = "credit_limit"
	FieldCurrentBalance    = "current_balance"
	FieldMinimumPayment    = "minimum_payment"
	FieldDueDay            = "due_day"
	FieldStatementDay      = "statement_day"
	FieldGracePeriodDays   = "grace_period_days"
	FieldAccountNumber     = "account_number"
	FieldNotes             = "notes"
	FieldCreditID          = "credit_id"
	FieldInstallmentMonths = "installment_months"
)

// FieldID is the key under which stores report a document's id.
const FieldID = "id"

// Document is the backend-neutral shape of a stored entity. Backends may hand
// back numbers and times in their own encodings; the accessors normalise them.
type Document map[string]any

// ID returns the document id.
func (d Document) ID() string {
	return d.String(FieldID)
}

// String returns the string stored under key, or "".
func (d Document) String(key string) string {
	switch v := d[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

// Decimal returns the numeric value stored under key, or zero.
func (d Document) Decimal(key string) decimal.Decimal {
	switch v := d[key].(type) {
	case decimal.Decimal:
		return v
	case *decimal.Decimal:
		if v != nil {
			return *v
		}
	case string:
		if dec, err := decimal.NewFromString(v); err == nil {
			return dec
		}
	case json.Number:
		if dec, err := decimal.NewFromString(v.String()); err == nil {
			return dec
		}
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	}
	return decimal.Zero
}

// Int returns the whole number stored under key, or zero.
func (d Document) Int(key string) int {
	return int(d.Decimal(key).IntPart())
}

// Time returns the timestamp stored under key, or the zero time.
func (d Document) Time(key string) time.Time {
	switch v := d[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Bool returns the boolean stored under key, or false.
func (d Document) Bool(key string) bool {
	switch v := d[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// Has reports whether key is present with a non-empty value.
func (d Document) Has(key string) bool {
	v, ok := d[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
