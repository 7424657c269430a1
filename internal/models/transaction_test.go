package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestTransactionRecord_ToTransaction(t *testing.T) {
	tests := []struct {
		name    string
		record  TransactionRecord
		want    Links
		wantErr string
	}{
		{
			name:   "income",
			record: TransactionRecord{Type: TransactionIncome, Amount: dec("10"), AccountID: "a", CategoryID: "c"},
			want:   IncomeLinks{AccountID: "a", CategoryID: "c"},
		},
		{
			name:   "expense",
			record: TransactionRecord{Type: TransactionExpense, Amount: dec("10"), AccountID: "a", CategoryID: "c"},
			want:   ExpenseLinks{AccountID: "a", CategoryID: "c"},
		},
		{
			name:   "reimburse",
			record: TransactionRecord{Type: TransactionReimburse, Amount: dec("10"), AccountID: "a", ExpenseTransactionID: "e"},
			want:   ReimburseLinks{AccountID: "a", ExpenseTransactionID: "e"},
		},
		{
			name:   "transfer without fee",
			record: TransactionRecord{Type: TransactionTransfer, Amount: dec("10"), SourceAccountID: "x", DestinationAccountID: "y"},
			want:   TransferLinks{SourceAccountID: "x", DestinationAccountID: "y", Fee: decimal.Zero},
		},
		{
			name:    "expense missing category",
			record:  TransactionRecord{Type: TransactionExpense, Amount: dec("10"), AccountID: "a"},
			wantErr: "expense transaction requires category_id",
		},
		{
			name:    "transfer with category",
			record:  TransactionRecord{Type: TransactionTransfer, Amount: dec("10"), SourceAccountID: "x", DestinationAccountID: "y", CategoryID: "c"},
			wantErr: "transfer transaction must not set category_id",
		},
		{
			name:    "reimburse missing expense",
			record:  TransactionRecord{Type: TransactionReimburse, Amount: dec("10"), AccountID: "a"},
			wantErr: "reimburse transaction requires expense_transaction_id",
		},
		{
			name:    "fee on expense",
			record:  TransactionRecord{Type: TransactionExpense, Amount: dec("10"), AccountID: "a", CategoryID: "c", Fee: decPtr("1")},
			wantErr: "fee is only valid on transfer transactions",
		},
		{
			name:    "negative fee",
			record:  TransactionRecord{Type: TransactionTransfer, Amount: dec("10"), SourceAccountID: "x", DestinationAccountID: "y", Fee: decPtr("-1")},
			wantErr: "fee must not be negative",
		},
		{
			name:    "zero amount",
			record:  TransactionRecord{Type: TransactionIncome, Amount: decimal.Zero, AccountID: "a", CategoryID: "c"},
			wantErr: "amount must be greater than zero",
		},
		{
			name:    "unknown type",
			record:  TransactionRecord{Type: "refund", Amount: dec("1")},
			wantErr: "unknown transaction type",
		},
		{
			name:    "transfer to same account",
			record:  TransactionRecord{Type: TransactionTransfer, Amount: dec("10"), SourceAccountID: "x", DestinationAccountID: "x"},
			wantErr: "source and destination must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := tt.record.ToTransaction()
			if tt.wantErr != "" {
				var vErr *ValidationError
				require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.record.Type, tx.Type())
			if want, ok := tt.want.(TransferLinks); ok {
				got := tx.Links.(TransferLinks)
				assert.Equal(t, want.SourceAccountID, got.SourceAccountID)
				assert.True(t, want.Fee.Equal(got.Fee))
				return
			}
			assert.Equal(t, tt.want, tx.Links)
		})
	}
}

func TestTransaction_JSONRoundTrip(t *testing.T) {
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	tx := Transaction{
		ID:     "t1",
		Amount: dec("100"),
		Date:   date,
		Links:  TransferLinks{SourceAccountID: "x", DestinationAccountID: "y", Fee: dec("10")},
	}

	data, err := json.Marshal(tx)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "transfer", raw["type"])
	assert.Equal(t, "x", raw["source_account_id"])
	assert.NotContains(t, raw, "category_id")

	var back Transaction
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "t1", back.ID)
	assert.True(t, back.Date.Equal(date))
	assert.True(t, back.Links.(TransferLinks).Fee.Equal(dec("10")))
}

func TestTransaction_DocumentRoundTrip(t *testing.T) {
	tx := Transaction{
		ID:          "t1",
		Amount:      dec("42.50"),
		Description: "groceries",
		Date:        time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Links:       ExpenseLinks{AccountID: "a", CategoryID: "c"},
	}

	doc := tx.ToDocument()
	doc[FieldID] = tx.ID
	assert.NotContains(t, doc, FieldFee)

	back, err := TransactionFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, tx.Links, back.Links)
	assert.True(t, tx.Amount.Equal(back.Amount))
	assert.Equal(t, "groceries", back.Description)
}

func TestTransactionFromDocument_StringEncodings(t *testing.T) {
	doc := Document{
		FieldID:                   "t1",
		FieldType:                 "transfer",
		FieldAmount:               "100",
		FieldFee:                  "2.5",
		FieldDate:                 "2025-01-02T00:00:00Z",
		FieldSourceAccountID:      "x",
		FieldDestinationAccountID: "y",
	}

	tx, err := TransactionFromDocument(doc)
	require.NoError(t, err)
	assert.True(t, tx.Links.(TransferLinks).Fee.Equal(dec("2.5")))
	assert.Equal(t, 2025, tx.Date.Year())
}

func TestTransactionPatch_Apply(t *testing.T) {
	expense := Transaction{ID: "t1", Amount: dec("10"), Links: ExpenseLinks{AccountID: "a", CategoryID: "c1"}}
	transfer := Transaction{ID: "t2", Amount: dec("10"), Links: TransferLinks{SourceAccountID: "x", DestinationAccountID: "y"}}

	t.Run("category reassignment", func(t *testing.T) {
		c2 := "c2"
		merged, err := TransactionPatch{CategoryID: &c2}.Apply(expense)
		require.NoError(t, err)
		assert.Equal(t, "c2", merged.CategoryID())
		assert.Equal(t, "c1", expense.CategoryID())
	})

	t.Run("type change rejected", func(t *testing.T) {
		income := TransactionIncome
		_, err := TransactionPatch{Type: &income}.Apply(expense)
		var vErr *ValidationError
		assert.True(t, errors.As(err, &vErr))
	})

	t.Run("same type accepted", func(t *testing.T) {
		same := TransactionExpense
		_, err := TransactionPatch{Type: &same, Amount: decPtr("20")}.Apply(expense)
		assert.NoError(t, err)
	})

	t.Run("category on transfer rejected", func(t *testing.T) {
		c := "c"
		_, err := TransactionPatch{CategoryID: &c}.Apply(transfer)
		assert.Error(t, err)
	})

	t.Run("fee on expense rejected", func(t *testing.T) {
		_, err := TransactionPatch{Fee: decPtr("1")}.Apply(expense)
		assert.Error(t, err)
	})

	t.Run("fee on transfer", func(t *testing.T) {
		merged, err := TransactionPatch{Fee: decPtr("3")}.Apply(transfer)
		require.NoError(t, err)
		assert.True(t, merged.Links.(TransferLinks).Fee.Equal(dec("3")))
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		_, err := TransactionPatch{Amount: decPtr("0")}.Apply(expense)
		assert.Error(t, err)
	})
}
