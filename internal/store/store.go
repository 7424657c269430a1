// Package store defines the keyed document storage the ledger runs on and
// an in-memory implementation of it.
package store

import (
	"context"
	"errors"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Collection names one of the ledger's document sets.
type Collection string

const (
	Accounts     Collection = "accounts"
	Categories   Collection = "categories"
	Transactions Collection = "transactions"

	// Names stay alphanumeric so they are valid Azure table names.
	Credits        Collection = "credits"
	CreditPayments Collection = "creditpayments"
	CreditCharges  Collection = "creditcharges"
)

// Collections lists every collection a backend must provision.
var Collections = []Collection{Accounts, Categories, Transactions, Credits, CreditPayments, CreditCharges}

// ErrDuplicateID is returned by Insert when the id is already taken.
var ErrDuplicateID = errors.New("document already exists")

// Store is durable keyed storage for ledger documents. Every method acts on
// a single document and is atomic for that document. Mutators report false
// when the target document does not exist.
type Store interface {
	// Get returns nil without error when the document is absent.
	Get(ctx context.Context, c Collection, id string) (models.Document, error)
	Insert(ctx context.Context, c Collection, id string, doc models.Document) error
	Increment(ctx context.Context, c Collection, id, field string, delta decimal.Decimal) (bool, error)
	SetFields(ctx context.Context, c Collection, id string, fields models.Document) (bool, error)
	Delete(ctx context.Context, c Collection, id string) (bool, error)
	// Find returns documents whose string field equals value.
	Find(ctx context.Context, c Collection, field, value string) ([]models.Document, error)
	List(ctx context.Context, c Collection) ([]models.Document, error)
}
