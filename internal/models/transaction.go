package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the declared kind of a transaction. It never changes
// after creation.
type TransactionType string

const (
	TransactionIncome    TransactionType = "income"
	TransactionExpense   TransactionType = "expense"
	TransactionReimburse TransactionType = "reimburse"
	TransactionTransfer  TransactionType = "transfer"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionIncome, TransactionExpense, TransactionReimburse, TransactionTransfer:
		return true
	}
	return false
}

// Links is the type-specific set of references a transaction carries. Each
// transaction type has exactly one implementation.
type Links interface {
	Type() TransactionType
	isLinks()
}

// IncomeLinks ties income to the receiving account and its category.
type IncomeLinks struct {
	AccountID  string
	CategoryID string
}

// ExpenseLinks ties an expense to the paying account and its category.
type ExpenseLinks struct {
	AccountID  string
	CategoryID string
}

// ReimburseLinks ties a reimbursement to the receiving account and the
// expense it pays back.
type ReimburseLinks struct {
	AccountID            string
	ExpenseTransactionID string
}

// TransferLinks moves money between two accounts. Fee is debited from the
// source on top of the amount and credited nowhere.
type TransferLinks struct {
	SourceAccountID      string
	DestinationAccountID string
	Fee                  decimal.Decimal
}

func (IncomeLinks) Type() TransactionType    { return TransactionIncome }
func (ExpenseLinks) Type() TransactionType   { return TransactionExpense }
func (ReimburseLinks) Type() TransactionType { return TransactionReimburse }
func (TransferLinks) Type() TransactionType  { return TransactionTransfer }

func (IncomeLinks) isLinks()    {}
func (ExpenseLinks) isLinks()   {}
func (ReimburseLinks) isLinks() {}
func (TransferLinks) isLinks()  {}

// Transaction is a stored ledger transaction.
type Transaction struct {
	ID          string
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	Links       Links
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// BudgetTracked records whether the amount was counted in the budget
	// category's budget_used when the effects were last applied.
	BudgetTracked bool
}

// Type returns the transaction type implied by its links.
func (t Transaction) Type() TransactionType {
	if t.Links == nil {
		return ""
	}
	return t.Links.Type()
}

// CategoryID returns the category of an income or expense, or "".
func (t Transaction) CategoryID() string {
	switch l := t.Links.(type) {
	case IncomeLinks:
		return l.CategoryID
	case ExpenseLinks:
		return l.CategoryID
	}
	return ""
}

// AccountIDs returns every account the transaction touches.
func (t Transaction) AccountIDs() []string {
	switch l := t.Links.(type) {
	case IncomeLinks:
		return []string{l.AccountID}
	case ExpenseLinks:
		return []string{l.AccountID}
	case ReimburseLinks:
		return []string{l.AccountID}
	case TransferLinks:
		return []string{l.SourceAccountID, l.DestinationAccountID}
	}
	return nil
}

// Record flattens the transaction into its wire form.
func (t Transaction) Record() TransactionRecord {
	r := TransactionRecord{
		ID:          t.ID,
		Type:        t.Type(),
		Amount:        t.Amount,
		Description:   t.Description,
		BudgetTracked: t.BudgetTracked,
	}
	if !t.Date.IsZero() {
		d := t.Date
		r.Date = &d
	}
	if !t.CreatedAt.IsZero() {
		c := t.CreatedAt
		r.CreatedAt = &c
	}
	if !t.UpdatedAt.IsZero() {
		u := t.UpdatedAt
		r.UpdatedAt = &u
	}
	switch l := t.Links.(type) {
	case IncomeLinks:
		r.AccountID, r.CategoryID = l.AccountID, l.CategoryID
	case ExpenseLinks:
		r.AccountID, r.CategoryID = l.AccountID, l.CategoryID
	case ReimburseLinks:
		r.AccountID, r.ExpenseTransactionID = l.AccountID, l.ExpenseTransactionID
	case TransferLinks:
		fee := l.Fee
		r.SourceAccountID, r.DestinationAccountID, r.Fee = l.SourceAccountID, l.DestinationAccountID, &fee
	}
	return r
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Record())
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var r TransactionRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	tx, err := r.ToTransaction()
	if err != nil {
		return err
	}
	*t = tx
	return nil
}

// ToDocument encodes the transaction for storage.
func (t Transaction) ToDocument() Document {
	doc := Document{
		FieldType:        string(t.Type()),
		FieldAmount:      t.Amount,
		FieldDate:        t.Date,
		FieldDescription: t.Description,
		FieldCreatedAt:   t.CreatedAt,
		FieldUpdatedAt:   t.UpdatedAt,
	}
	if t.BudgetTracked {
		doc[FieldBudgetTracked] = true
	}
	for k, v := range linkFields(t.Links) {
		doc[k] = v
	}
	return doc
}

func linkFields(links Links) Document {
	switch l := links.(type) {
	case IncomeLinks:
		return Document{FieldAccountID: l.AccountID, FieldCategoryID: l.CategoryID}
	case ExpenseLinks:
		return Document{FieldAccountID: l.AccountID, FieldCategoryID: l.CategoryID}
	case ReimburseLinks:
		return Document{FieldAccountID: l.AccountID, FieldExpenseTransactionID: l.ExpenseTransactionID}
	case TransferLinks:
		return Document{
			FieldSourceAccountID:      l.SourceAccountID,
			FieldDestinationAccountID: l.DestinationAccountID,
			FieldFee:                  l.Fee,
		}
	}
	return Document{}
}

// TransactionFromDocument decodes a stored transaction.
func TransactionFromDocument(doc Document) (Transaction, error) {
	r := TransactionRecord{
		ID:                   doc.ID(),
		Type:                 TransactionType(doc.String(FieldType)),
		Amount:               doc.Decimal(FieldAmount),
		Description:          doc.String(FieldDescription),
		AccountID:            doc.String(FieldAccountID),
		CategoryID:           doc.String(FieldCategoryID),
		SourceAccountID:      doc.String(FieldSourceAccountID),
		DestinationAccountID: doc.String(FieldDestinationAccountID),
		ExpenseTransactionID: doc.String(FieldExpenseTransactionID),
	}
	if doc.Has(FieldFee) {
		fee := doc.Decimal(FieldFee)
		r.Fee = &fee
	}
	tx, err := r.ToTransaction()
	if err != nil {
		return Transaction{}, err
	}
	tx.Date = doc.Time(FieldDate)
	tx.CreatedAt = doc.Time(FieldCreatedAt)
	tx.UpdatedAt = doc.Time(FieldUpdatedAt)
	tx.BudgetTracked = doc.Bool(FieldBudgetTracked)
	return tx, nil
}

// TransactionRecord is the flat form used on the wire and by imports. Only
// the links valid for Type may be set.
type TransactionRecord struct {
	ID                   string           `json:"id,omitempty"`
	Type                 TransactionType  `json:"type"`
	Amount               decimal.Decimal  `json:"amount"`
	Fee                  *decimal.Decimal `json:"fee,omitempty"`
	Date                 *time.Time       `json:"date,omitempty"`
	Description          string           `json:"description,omitempty"`
	AccountID            string           `json:"account_id,omitempty"`
	CategoryID           string           `json:"category_id,omitempty"`
	SourceAccountID      string           `json:"source_account_id,omitempty"`
	DestinationAccountID string           `json:"destination_account_id,omitempty"`
	ExpenseTransactionID string           `json:"expense_transaction_id,omitempty"`
	BudgetTracked        bool             `json:"budget_tracked,omitempty"`
	CreatedAt            *time.Time       `json:"created_at,omitempty"`
	UpdatedAt            *time.Time       `json:"updated_at,omitempty"`
}

type linkField struct {
	name  string
	value string
}

// ToTransaction checks the link set against the declared type and builds
// the tagged transaction.
func (r TransactionRecord) ToTransaction() (Transaction, error) {
	if !r.Type.Valid() {
		return Transaction{}, NewValidationError("unknown transaction type %q", r.Type)
	}
	if !r.Amount.IsPositive() {
		return Transaction{}, NewValidationError("amount must be greater than zero")
	}
	if r.Fee != nil && r.Type != TransactionTransfer {
		return Transaction{}, NewValidationError("fee is only valid on transfer transactions")
	}

	fields := []linkField{
		{FieldAccountID, r.AccountID},
		{FieldCategoryID, r.CategoryID},
		{FieldSourceAccountID, r.SourceAccountID},
		{FieldDestinationAccountID, r.DestinationAccountID},
		{FieldExpenseTransactionID, r.ExpenseTransactionID},
	}
	required := requiredLinks[r.Type]
	for _, f := range fields {
		_, want := required[f.name]
		switch {
		case want && f.value == "":
			return Transaction{}, NewValidationError("%s transaction requires %s", r.Type, f.name)
		case !want && f.value != "":
			return Transaction{}, NewValidationError("%s transaction must not set %s", r.Type, f.name)
		}
	}

	tx := Transaction{
		ID:            r.ID,
		Amount:        r.Amount,
		Description:   r.Description,
		BudgetTracked: r.BudgetTracked,
	}
	if r.Date != nil {
		tx.Date = *r.Date
	}
	if r.CreatedAt != nil {
		tx.CreatedAt = *r.CreatedAt
	}
	if r.UpdatedAt != nil {
		tx.UpdatedAt = *r.UpdatedAt
	}

	switch r.Type {
	case TransactionIncome:
		tx.Links = IncomeLinks{AccountID: r.AccountID, CategoryID: r.CategoryID}
	case TransactionExpense:
		tx.Links = ExpenseLinks{AccountID: r.AccountID, CategoryID: r.CategoryID}
	case TransactionReimburse:
		tx.Links = ReimburseLinks{AccountID: r.AccountID, ExpenseTransactionID: r.ExpenseTransactionID}
	case TransactionTransfer:
		fee := decimal.Zero
		if r.Fee != nil {
			fee = *r.Fee
		}
		if fee.IsNegative() {
			return Transaction{}, NewValidationError("fee must not be negative")
		}
		if r.SourceAccountID == r.DestinationAccountID {
			return Transaction{}, NewValidationError("transfer source and destination must differ")
		}
		tx.Links = TransferLinks{
			SourceAccountID:      r.SourceAccountID,
			DestinationAccountID: r.DestinationAccountID,
			Fee:                  fee,
		}
	}
	return tx, nil
}

var requiredLinks = map[TransactionType]map[string]struct{}{
	TransactionIncome:    {FieldAccountID: {}, FieldCategoryID: {}},
	TransactionExpense:   {FieldAccountID: {}, FieldCategoryID: {}},
	TransactionReimburse: {FieldAccountID: {}, FieldExpenseTransactionID: {}},
	TransactionTransfer:  {FieldSourceAccountID: {}, FieldDestinationAccountID: {}},
}

// TransactionPatch lists the mutable transaction fields. Type may be sent
// but must match the stored type.
type TransactionPatch struct {
	Type        *TransactionType `json:"type,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	CategoryID  *string          `json:"category_id,omitempty"`
	Fee         *decimal.Decimal `json:"fee,omitempty"`
}

// Apply returns a copy of tx with the patch merged in.
func (p TransactionPatch) Apply(tx Transaction) (Transaction, error) {
	if p.Type != nil && *p.Type != tx.Type() {
		return Transaction{}, NewValidationError("transaction type cannot change from %s to %s", tx.Type(), *p.Type)
	}
	if p.Amount != nil {
		if !p.Amount.IsPositive() {
			return Transaction{}, NewValidationError("amount must be greater than zero")
		}
		tx.Amount = *p.Amount
	}
	if p.Description != nil {
		tx.Description = *p.Description
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	if p.CategoryID != nil {
		if *p.CategoryID == "" {
			return Transaction{}, NewValidationError("%s requires a non-empty %s", tx.Type(), FieldCategoryID)
		}
		switch l := tx.Links.(type) {
		case IncomeLinks:
			l.CategoryID = *p.CategoryID
			tx.Links = l
		case ExpenseLinks:
			l.CategoryID = *p.CategoryID
			tx.Links = l
		default:
			return Transaction{}, NewValidationError("%s transaction has no category", tx.Type())
		}
	}
	if p.Fee != nil {
		l, ok := tx.Links.(TransferLinks)
		if !ok {
			return Transaction{}, NewValidationError("fee is only valid on transfer transactions")
		}
		if p.Fee.IsNegative() {
			return Transaction{}, NewValidationError("fee must not be negative")
		}
		l.Fee = *p.Fee
		tx.Links = l
	}
	return tx, nil
}

// Fields returns the stored fields of tx that the patch may have changed.
func (p TransactionPatch) Fields(tx Transaction) Document {
	fields := Document{}
	if p.Amount != nil {
		fields[FieldAmount] = tx.Amount
	}
	if p.Description != nil {
		fields[FieldDescription] = tx.Description
	}
	if p.Date != nil {
		fields[FieldDate] = tx.Date
	}
	if p.CategoryID != nil {
		fields[FieldCategoryID] = tx.CategoryID()
	}
	if p.Fee != nil {
		if l, ok := tx.Links.(TransferLinks); ok {
			fields[FieldFee] = l.Fee
		}
	}
	return fields
}
