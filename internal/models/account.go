package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the kind of a ledger account.
type AccountType string

const (
	AccountCash          AccountType = "cash"
	AccountChecking      AccountType = "checking"
	AccountSavings       AccountType = "savings"
	AccountCreditCard    AccountType = "credit card"
	AccountLoan          AccountType = "loan"
	AccountMortgage      AccountType = "mortgage"
	AccountInvestment    AccountType = "investment"
	AccountRetirement    AccountType = "retirement"
	AccountDigitalWallet AccountType = "digital wallet"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountCash, AccountChecking, AccountSavings, AccountCreditCard, AccountLoan,
		AccountMortgage, AccountInvestment, AccountRetirement, AccountDigitalWallet:
		return true
	}
	return false
}

// InterestFrequency is how often interest accrues on an account.
type InterestFrequency string

const (
	InterestMonthly   InterestFrequency = "monthly"
	InterestQuarterly InterestFrequency = "quarterly"
	InterestAnnually  InterestFrequency = "annually"
)

func (f InterestFrequency) valid() bool {
	switch f {
	case "", InterestMonthly, InterestQuarterly, InterestAnnually:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Account holds a balance. The balance is only moved by transaction effects
// after the account is opened.
type Account struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Type              AccountType       `json:"type"`
	Description       string            `json:"description,omitempty"`
	Balance           decimal.Decimal   `json:"balance"`
	InterestRate      decimal.Decimal   `json:"interest_rate"`
	InterestFrequency InterestFrequency `json:"interest_frequency,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Validate checks the account's own fields.
func (a *Account) Validate() error {
	if a.Name == "" {
		return NewValidationError("account name is required")
	}
	if !a.Type.Valid() {
		return NewValidationError("unknown account type %q", a.Type)
	}
	if a.InterestRate.IsNegative() || a.InterestRate.GreaterThan(hundred) {
		return NewValidationError("interest rate must be between 0 and 100")
	}
	if !a.InterestFrequency.valid() {
		return NewValidationError("unknown interest frequency %q", a.InterestFrequency)
	}
	return nil
}

// PeriodicInterest returns the interest earned on the current balance over
// one accrual period, rounded to cents.
func (a *Account) PeriodicInterest() decimal.Decimal {
	if a.InterestRate.IsZero() || a.InterestFrequency == "" {
		return decimal.Zero
	}
	yearly := a.Balance.Mul(a.InterestRate).Div(hundred)
	switch a.InterestFrequency {
	case InterestMonthly:
		return yearly.Div(decimal.NewFromInt(12)).Round(2)
	case InterestQuarterly:
		return yearly.Div(decimal.NewFromInt(4)).Round(2)
	default:
		return yearly.Round(2)
	}
}

// ToDocument encodes the account for storage.
func (a *Account) ToDocument() Document {
	return Document{
		FieldName:              a.Name,
		FieldType:              string(a.Type),
		FieldDescription:       a.Description,
		FieldBalance:           a.Balance,
		FieldInterestRate:      a.InterestRate,
		FieldInterestFrequency: string(a.InterestFrequency),
		FieldCreatedAt:         a.CreatedAt,
		FieldUpdatedAt:         a.UpdatedAt,
	}
}

// AccountFromDocument decodes a stored account.
func AccountFromDocument(doc Document) Account {
	return Account{
		ID:                doc.ID(),
		Name:              doc.String(FieldName),
		Type:              AccountType(doc.String(FieldType)),
		Description:       doc.String(FieldDescription),
		Balance:           doc.Decimal(FieldBalance),
		InterestRate:      doc.Decimal(FieldInterestRate),
		InterestFrequency: InterestFrequency(doc.String(FieldInterestFrequency)),
		CreatedAt:         doc.Time(FieldCreatedAt),
		UpdatedAt:         doc.Time(FieldUpdatedAt),
	}
}

// AccountPatch lists the account fields a client may change. Balance is not
// among them.
type AccountPatch struct {
	Name              *string            `json:"name,omitempty"`
	Type              *AccountType       `json:"type,omitempty"`
	Description       *string            `json:"description,omitempty"`
	InterestRate      *decimal.Decimal   `json:"interest_rate,omitempty"`
	InterestFrequency *InterestFrequency `json:"interest_frequency,omitempty"`
}

// Apply returns a copy of a with the patch merged in.
func (p AccountPatch) Apply(a Account) (Account, error) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.InterestRate != nil {
		a.InterestRate = *p.InterestRate
	}
	if p.InterestFrequency != nil {
		a.InterestFrequency = *p.InterestFrequency
	}
	if err := a.Validate(); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Fields returns the stored fields touched by the patch.
func (p AccountPatch) Fields() Document {
	fields := Document{}
	if p.Name != nil {
		fields[FieldName] = *p.Name
	}
	if p.Type != nil {
		fields[FieldType] = string(*p.Type)
	}
	if p.Description != nil {
		fields[FieldDescription] = *p.Description
	}
	if p.InterestRate != nil {
		fields[FieldInterestRate] = *p.InterestRate
	}
	if p.InterestFrequency != nil {
		fields[FieldInterestFrequency] = string(*p.InterestFrequency)
	}
	return fields
}
