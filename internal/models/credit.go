package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditType is the kind of credit obligation.
type CreditType string

const (
	CreditCard        CreditType = "credit_card"
	CreditPayLater    CreditType = "paylater"
	CreditInstallment CreditType = "installment"
	CreditLoan        CreditType = "loan"
)

// Valid reports whether t is a known credit type.
func (t CreditType) Valid() bool {
	switch t {
	case CreditCard, CreditPayLater, CreditInstallment, CreditLoan:
		return true
	}
	return false
}

// targetUtilization is the share of the limit a balance should stay under.
var targetUtilization = decimal.NewFromFloat(0.1)

// Credit is a credit obligation such as a card or a pay-later line.
// CurrentBalance moves only through charges and payments after creation.
type Credit struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Provider        string          `json:"provider"`
	Type            CreditType      `json:"credit_type"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	MinimumPayment  decimal.Decimal `json:"minimum_payment"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	DueDay          int             `json:"due_day,omitempty"`
	StatementDay    int             `json:"statement_day,omitempty"`
	GracePeriodDays int             `json:"grace_period_days"`
	AccountNumber   string          `json:"account_number,omitempty"`
	IsActive        bool            `json:"is_active"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Validate checks the credit's own fields.
func (c *Credit) Validate() error {
	switch {
	case c.Name == "":
		return NewValidationError("credit name is required")
	case c.Provider == "":
		return NewValidationError("credit provider is required")
	case !c.Type.Valid():
		return NewValidationError("unknown credit type %q", c.Type)
	case c.CreditLimit.IsNegative():
		return NewValidationError("credit limit must not be negative")
	case c.CurrentBalance.IsNegative():
		return NewValidationError("current balance must not be negative")
	case c.MinimumPayment.IsNegative():
		return NewValidationError("minimum payment must not be negative")
	case c.InterestRate.IsNegative() || c.InterestRate.GreaterThan(hundred):
		return NewValidationError("interest rate must be between 0 and 100")
	case c.DueDay < 0 || c.DueDay > 31:
		return NewValidationError("due day must be between 1 and 31, or 0 for none")
	case c.StatementDay < 0 || c.StatementDay > 31:
		return NewValidationError("statement day must be between 1 and 31, or 0 for none")
	case c.GracePeriodDays < 0:
		return NewValidationError("grace period must not be negative")
	}
	return nil
}

// Available returns the unused part of the limit. It is negative when the
// balance was entered above the limit.
func (c *Credit) Available() decimal.Decimal {
	return c.CreditLimit.Sub(c.CurrentBalance)
}

// Utilization returns the balance as a percentage of the limit, rounded to
// two places. A credit without a limit reports zero.
func (c *Credit) Utilization() decimal.Decimal {
	if !c.CreditLimit.IsPositive() {
		return decimal.Zero
	}
	return c.CurrentBalance.Div(c.CreditLimit).Mul(hundred).Round(2)
}

// TargetPayment returns what has to be paid to bring utilization down to
// 10% of the limit.
func (c *Credit) TargetPayment() decimal.Decimal {
	p := c.CurrentBalance.Sub(c.CreditLimit.Mul(targetUtilization))
	if p.IsNegative() {
		return decimal.Zero
	}
	return p.Round(2)
}

// NextDue returns the next due date after today. A due day on or before
// today's day of the month rolls to next month, and a due day past the end
// of a short month falls on its last day.
func (c *Credit) NextDue(today time.Time) (time.Time, bool) {
	if c.DueDay == 0 {
		return time.Time{}, false
	}
	y, m, d := today.Date()
	if c.DueDay <= d {
		m++
	}
	first := time.Date(y, m, 1, 0, 0, 0, 0, today.Location())
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(c.DueDay, last)-1), true
}

// Overdue reports whether this month's due day has passed with a balance
// still owed.
func (c *Credit) Overdue(today time.Time) bool {
	return c.DueDay > 0 && c.CurrentBalance.IsPositive() && today.Day() > c.DueDay
}

// CreditView is a credit with the figures derived from it as of a day.
type CreditView struct {
	Credit
	AvailableCredit decimal.Decimal `json:"available_credit"`
	UtilizationRate decimal.Decimal `json:"utilization_rate"`
	TargetPayment   decimal.Decimal `json:"target_payment"`
	NextDueDate     *time.Time      `json:"next_due_date,omitempty"`
	DaysUntilDue    *int            `json:"days_until_due,omitempty"`
	IsOverdue       bool            `json:"is_overdue"`
}

// View derives the reporting figures for c as of today. Due dates are only
// reported while a balance is owed.
func (c Credit) View(today time.Time) CreditView {
	v := CreditView{
		Credit:          c,
		AvailableCredit: c.Available(),
		UtilizationRate: c.Utilization(),
		TargetPayment:   c.TargetPayment(),
		IsOverdue:       c.Overdue(today),
	}
	if !c.CurrentBalance.IsPositive() {
		return v
	}
	if due, ok := c.NextDue(today); ok {
		days := daysBetween(today, due)
		v.NextDueDate, v.DaysUntilDue = &due, &days
	}
	return v
}

// daysBetween counts calendar days from a to b, ignoring clock time.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// ToDocument encodes the credit for storage.
func (c *Credit) ToDocument() Document {
	return Document{
		FieldName:            c.Name,
		FieldProvider:        c.Provider,
		FieldType:            string(c.Type),
		FieldCreditLimit:     c.CreditLimit,
		FieldCurrentBalance:  c.CurrentBalance,
		FieldMinimumPayment:  c.MinimumPayment,
		FieldInterestRate:    c.InterestRate,
		FieldDueDay:          c.DueDay,
		FieldStatementDay:    c.StatementDay,
		FieldGracePeriodDays: c.GracePeriodDays,
		FieldAccountNumber:   c.AccountNumber,
		FieldIsActive:        c.IsActive,
		FieldNotes:           c.Notes,
		FieldCreatedAt:       c.CreatedAt,
		FieldUpdatedAt:       c.UpdatedAt,
	}
}

// CreditFromDocument decodes a stored credit.
func CreditFromDocument(doc Document) Credit {
	return Credit{
		ID:              doc.ID(),
		Name:            doc.String(FieldName),
		Provider:        doc.String(FieldProvider),
		Type:            CreditType(doc.String(FieldType)),
		CreditLimit:     doc.Decimal(FieldCreditLimit),
		CurrentBalance:  doc.Decimal(FieldCurrentBalance),
		MinimumPayment:  doc.Decimal(FieldMinimumPayment),
		InterestRate:    doc.Decimal(FieldInterestRate),
		DueDay:          doc.Int(FieldDueDay),
		StatementDay:    doc.Int(FieldStatementDay),
		GracePeriodDays: doc.Int(FieldGracePeriodDays),
		AccountNumber:   doc.String(FieldAccountNumber),
		IsActive:        doc.Bool(FieldIsActive),
		Notes:           doc.String(FieldNotes),
		CreatedAt:       doc.Time(FieldCreatedAt),
		UpdatedAt:       doc.Time(FieldUpdatedAt),
	}
}

// CreditPatch lists the credit fields a client may change. The balance may
// be corrected directly, as when reconciling against a statement.
type CreditPatch struct {
	Name           *string          `json:"name,omitempty"`
	Provider       *string          `json:"provider,omitempty"`
	CreditLimit    *decimal.Decimal `json:"credit_limit,omitempty"`
	CurrentBalance *decimal.Decimal `json:"current_balance,omitempty"`
	MinimumPayment *decimal.Decimal `json:"minimum_payment,omitempty"`
	InterestRate   *decimal.Decimal `json:"interest_rate,omitempty"`
	DueDay         *int             `json:"due_day,omitempty"`
	IsActive       *bool            `json:"is_active,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

// Apply returns a copy of c with the patch merged in.
func (p CreditPatch) Apply(c Credit) (Credit, error) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Provider != nil {
		c.Provider = *p.Provider
	}
	if p.CreditLimit != nil {
		c.CreditLimit = *p.CreditLimit
	}
	if p.CurrentBalance != nil {
		c.CurrentBalance = *p.CurrentBalance
	}
	if p.MinimumPayment != nil {
		c.MinimumPayment = *p.MinimumPayment
	}
	if p.InterestRate != nil {
		c.InterestRate = *p.InterestRate
	}
	if p.DueDay != nil {
		c.DueDay = *p.DueDay
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if err := c.Validate(); err != nil {
		return Credit{}, err
	}
	return c, nil
}

// Fields returns the stored fields touched by the patch.
func (p CreditPatch) Fields() Document {
	fields := Document{}
	if p.Name != nil {
		fields[FieldName] = *p.Name
	}
	if p.Provider != nil {
		fields[FieldProvider] = *p.Provider
	}
	if p.CreditLimit != nil {
		fields[FieldCreditLimit] = *p.CreditLimit
	}
	if p.CurrentBalance != nil {
		fields[FieldCurrentBalance] = *p.CurrentBalance
	}
	if p.MinimumPayment != nil {
		fields[FieldMinimumPayment] = *p.MinimumPayment
	}
	if p.InterestRate != nil {
		fields[FieldInterestRate] = *p.InterestRate
	}
	if p.DueDay != nil {
		fields[FieldDueDay] = *p.DueDay
	}
	if p.IsActive != nil {
		fields[FieldIsActive] = *p.IsActive
	}
	if p.Notes != nil {
		fields[FieldNotes] = *p.Notes
	}
	return fields
}

// CreditPayment is a recorded payment against a credit. SourceAccountID
// names the account the money came from; it is informational only.
type CreditPayment struct {
	ID              string          `json:"id"`
	CreditID        string          `json:"credit_id"`
	Amount          decimal.Decimal `json:"amount"`
	Date            time.Time       `json:"payment_date"`
	SourceAccountID string          `json:"source_account_id,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ToDocument encodes the payment for storage.
func (p *CreditPayment) ToDocument() Document {
	return Document{
		FieldCreditID:        p.CreditID,
		FieldAmount:          p.Amount,
		FieldDate:            p.Date,
		FieldSourceAccountID: p.SourceAccountID,
		FieldNotes:           p.Notes,
		FieldCreatedAt:       p.CreatedAt,
	}
}

// CreditPaymentFromDocument decodes a stored payment.
func CreditPaymentFromDocument(doc Document) CreditPayment {
	return CreditPayment{
		ID:              doc.ID(),
		CreditID:        doc.String(FieldCreditID),
		Amount:          doc.Decimal(FieldAmount),
		Date:            doc.Time(FieldDate),
		SourceAccountID: doc.String(FieldSourceAccountID),
		Notes:           doc.String(FieldNotes),
		CreatedAt:       doc.Time(FieldCreatedAt),
	}
}

// CreditCharge is a recorded purchase on a credit.
type CreditCharge struct {
	ID                string          `json:"id"`
	CreditID          string          `json:"credit_id"`
	Amount            decimal.Decimal `json:"amount"`
	Date              time.Time       `json:"charge_date"`
	Description       string          `json:"description,omitempty"`
	CategoryID        string          `json:"category_id,omitempty"`
	InstallmentMonths int             `json:"installment_months,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToDocument encodes the charge for storage.
func (c *CreditCharge) ToDocument() Document {
	return Document{
		FieldCreditID:          c.CreditID,
		FieldAmount:            c.Amount,
		FieldDate:              c.Date,
		FieldDescription:       c.Description,
		FieldCategoryID:        c.CategoryID,
		FieldInstallmentMonths: c.InstallmentMonths,
		FieldNotes:             c.Notes,
		FieldCreatedAt:         c.CreatedAt,
	}
}

// CreditChargeFromDocument decodes a stored charge.
func CreditChargeFromDocument(doc Document) CreditCharge {
	return CreditCharge{
		ID:                doc.ID(),
		CreditID:          doc.String(FieldCreditID),
		Amount:            doc.Decimal(FieldAmount),
		Date:              doc.Time(FieldDate),
		Description:       doc.String(FieldDescription),
		CategoryID:        doc.String(FieldCategoryID),
		InstallmentMonths: doc.Int(FieldInstallmentMonths),
		Notes:             doc.String(FieldNotes),
		CreatedAt:         doc.Time(FieldCreatedAt),
	}
}

// CreditSummary totals the active credits.
type CreditSummary struct {
	TotalCreditLimit   decimal.Decimal `json:"total_credit_limit"`
	TotalBalance       decimal.Decimal `json:"total_balance"`
	TotalAvailable     decimal.Decimal `json:"total_available"`
	OverallUtilization decimal.Decimal `json:"overall_utilization"`
	ActiveCredits      int             `json:"active_credits"`
	OverdueCount       int             `json:"overdue_count"`
}

// SummarizeCredits totals the active credits in cs as of today.
func SummarizeCredits(cs []Credit, today time.Time) CreditSummary {
	s := CreditSummary{}
	for _, c := range cs {
		if !c.IsActive {
			continue
		}
		s.ActiveCredits++
		s.TotalCreditLimit = s.TotalCreditLimit.Add(c.CreditLimit)
		s.TotalBalance = s.TotalBalance.Add(c.CurrentBalance)
		s.TotalAvailable = s.TotalAvailable.Add(c.Available())
		if c.Overdue(today) {
			s.OverdueCount++
		}
	}
	if s.TotalCreditLimit.IsPositive() {
		s.OverallUtilization = s.TotalBalance.Div(s.TotalCreditLimit).Mul(hundred).Round(2)
	}
	return s
}
