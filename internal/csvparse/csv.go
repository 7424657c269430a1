// Package csvparse reads transaction imports from CSV.
package csvparse

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Recognised column headers. Matching is case-insensitive.
const (
	ColDate               = "Date"
	ColType               = "Type"
	ColAmount             = "Amount"
	ColFee                = "Fee"
	ColDescription        = "Description"
	ColAccount            = "Account"
	ColCategory           = "Category"
	ColSourceAccount      = "Source Account"
	ColDestinationAccount = "Destination Account"
	ColExpenseTransaction = "Expense Transaction"
)

var requiredColumns = []string{ColDate, ColType, ColAmount}

// Row is a parsed CSV row with its 1-based line number.
type Row struct {
	Line   int
	Record models.TransactionRecord
}

// ParseCSV parses transactions from a CSV string.
// It returns the rows that passed validation and an error message for each
// row that did not. Account and category ids are not resolved here.
func ParseCSV(content string) ([]Row, []string) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, []string{fmt.Sprintf("Failed to read CSV: %v", err)}
	}
	if len(records) < 2 {
		return []Row{}, nil
	}

	headers := parseHeaders(records[0])
	if col := missingColumn(headers); col != "" {
		return nil, []string{fmt.Sprintf("Missing required column %q", col)}
	}

	var rows []Row
	var errors []string
	for i, record := range records[1:] {
		line := i + 2
		if isBlank(record) {
			continue
		}
		get := func(col string) string {
			j, ok := headers[strings.ToLower(col)]
			if !ok || j >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[j])
		}

		rec, err := mapToRecord(get)
		if err != nil {
			errors = append(errors, fmt.Sprintf("Row %d: %v", line, err))
			continue
		}
		rows = append(rows, Row{Line: line, Record: rec})
	}
	return rows, errors
}

// CheckHeader reads only the header line of content and reports a missing
// required column. It lets uploads be refused before they are staged.
func CheckHeader(content string) error {
	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	if col := missingColumn(parseHeaders(header)); col != "" {
		return fmt.Errorf("missing required column %q", col)
	}
	return nil
}

func missingColumn(headers map[string]int) string {
	for _, col := range requiredColumns {
		if _, ok := headers[strings.ToLower(col)]; !ok {
			return col
		}
	}
	return ""
}

func parseHeaders(row []string) map[string]int {
	headers := make(map[string]int, len(row))
	for i, h := range row {
		headers[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return headers
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid Date format: %s", s)
}

func mapToRecord(get func(string) string) (models.TransactionRecord, error) {
	dateStr := get(ColDate)
	if dateStr == "" {
		return models.TransactionRecord{}, fmt.Errorf("missing Date")
	}
	date, err := parseDate(dateStr)
	if err != nil {
		return models.TransactionRecord{}, err
	}

	typeStr := get(ColType)
	if typeStr == "" {
		return models.TransactionRecord{}, fmt.Errorf("missing Type")
	}

	amountStr := get(ColAmount)
	if amountStr == "" {
		return models.TransactionRecord{}, fmt.Errorf("missing Amount")
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("invalid Amount: %s", amountStr)
	}

	rec := models.TransactionRecord{
		Type:                 models.TransactionType(strings.ToLower(typeStr)),
		Amount:               amount,
		Date:                 &date,
		Description:          get(ColDescription),
		AccountID:            get(ColAccount),
		CategoryID:           get(ColCategory),
		SourceAccountID:      get(ColSourceAccount),
		DestinationAccountID: get(ColDestinationAccount),
		ExpenseTransactionID: get(ColExpenseTransaction),
	}
	if feeStr := get(ColFee); feeStr != "" {
		fee, err := decimal.NewFromString(feeStr)
		if err != nil {
			return models.TransactionRecord{}, fmt.Errorf("invalid Fee: %s", feeStr)
		}
		rec.Fee = &fee
	}

	// Shape checks only; references are resolved when the row is applied.
	if _, err := rec.ToTransaction(); err != nil {
		return models.TransactionRecord{}, err
	}
	return rec, nil
}
