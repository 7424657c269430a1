package csvparse

import (
	"strings"
	"testing"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/shopspring/decimal"
)

func TestParseCSV_Valid(t *testing.T) {
	content := `Date,Type,Amount,Fee,Description,Account,Category,Source Account,Destination Account,Expense Transaction
2025-08-17,Expense,42.5,,Dinner,acct-1,dining,,,
2025-08-18,transfer,100,1.50,To savings,,,acct-1,acct-2,
2025-08-19,reimburse,20,,Split dinner,acct-1,,,,tx-9`

	rows, errors := ParseCSV(content)

	if len(errors) != 0 {
		t.Fatalf("Expected no errors, got: %v", errors)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	r1 := rows[0]
	if r1.Line != 2 {
		t.Errorf("Expected line 2, got %d", r1.Line)
	}
	if r1.Record.Type != models.TransactionExpense {
		t.Errorf("Expected type expense, got '%s'", r1.Record.Type)
	}
	if !r1.Record.Amount.Equal(decimal.NewFromFloat(42.5)) {
		t.Errorf("Expected Amount 42.5, got %s", r1.Record.Amount)
	}
	if r1.Record.CategoryID != "dining" || r1.Record.AccountID != "acct-1" {
		t.Errorf("Unexpected links: %+v", r1.Record)
	}
	if r1.Record.Date == nil || r1.Record.Date.Format("2006-01-02") != "2025-08-17" {
		t.Errorf("Unexpected date: %v", r1.Record.Date)
	}

	r2 := rows[1]
	if r2.Record.Fee == nil || !r2.Record.Fee.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Expected Fee 1.50, got %v", r2.Record.Fee)
	}
	if r2.Record.SourceAccountID != "acct-1" || r2.Record.DestinationAccountID != "acct-2" {
		t.Errorf("Unexpected transfer links: %+v", r2.Record)
	}

	if rows[2].Record.ExpenseTransactionID != "tx-9" {
		t.Errorf("Expected expense link tx-9, got '%s'", rows[2].Record.ExpenseTransactionID)
	}
}

func TestParseCSV_Whitespace(t *testing.T) {
	content := ` date , TYPE , Amount , Account , Category
 2025-08-17 , income , 42.5 , acct-1 , salary `

	rows, errors := ParseCSV(content)

	if len(errors) != 0 {
		t.Fatalf("Expected no errors, got: %v", errors)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].Record.CategoryID != "salary" {
		t.Errorf("Expected category 'salary', got '%s'", rows[0].Record.CategoryID)
	}
}

func TestParseCSV_Errors(t *testing.T) {
	content := `Date,Type,Amount,Fee,Account,Category,Source Account,Destination Account
2025-08-17,expense,42.5,,acct-1,dining,,
bad-date,expense,10.0,,acct-1,dining,,
2025-08-18,expense,-3,,acct-1,dining,,
2025-08-18,expense,3,1,acct-1,dining,,
2025-08-18,transfer,3,,,,acct-1,acct-1
2025-08-18,gift,3,,acct-1,,,
,,,,,,,`

	rows, errors := ParseCSV(content)

	if len(rows) != 1 {
		t.Errorf("Expected 1 valid row, got %d", len(rows))
	}
	if len(errors) != 5 {
		t.Fatalf("Expected 5 errors, got %d: %v", len(errors), errors)
	}
	if !strings.HasPrefix(errors[0], "Row 3: invalid Date format") {
		t.Errorf("Unexpected error message: %s", errors[0])
	}
	if !strings.HasPrefix(errors[1], "Row 4:") {
		t.Errorf("Unexpected error message: %s", errors[1])
	}
}

func TestParseCSV_MissingColumn(t *testing.T) {
	rows, errors := ParseCSV("Date,Amount\n2025-01-01,5")
	if rows != nil {
		t.Errorf("Expected no rows, got %v", rows)
	}
	if len(errors) != 1 || !strings.Contains(errors[0], `"Type"`) {
		t.Errorf("Unexpected errors: %v", errors)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	rows, errors := ParseCSV("Date,Type,Amount\n")
	if len(rows) != 0 || len(errors) != 0 {
		t.Errorf("Expected nothing, got %v %v", rows, errors)
	}
}

func TestCheckHeader(t *testing.T) {
	if err := CheckHeader("date, TYPE ,amount,Account\n2025-01-01,income,5,a1\n"); err != nil {
		t.Errorf("Expected header to pass, got %v", err)
	}
	if err := CheckHeader("Date,Amount\n"); err == nil || !strings.Contains(err.Error(), `"Type"`) {
		t.Errorf("Expected missing Type, got %v", err)
	}
	if err := CheckHeader(""); err == nil {
		t.Error("Expected error for empty content")
	}
}
