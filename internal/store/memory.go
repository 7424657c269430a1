package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Memory is a Store held in process memory. It backs local runs and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[Collection]map[string]models.Document
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	data := make(map[Collection]map[string]models.Document, len(Collections))
	for _, c := range Collections {
		data[c] = make(map[string]models.Document)
	}
	return &Memory{data: data}
}

func (m *Memory) collection(c Collection) map[string]models.Document {
	docs, ok := m.data[c]
	if !ok {
		docs = make(map[string]models.Document)
		m.data[c] = docs
	}
	return docs
}

func withID(id string, doc models.Document) models.Document {
	out := doc.Clone()
	out[models.FieldID] = id
	return out
}

func (m *Memory) Get(_ context.Context, c Collection, id string) (models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.data[c][id]
	if !ok {
		return nil, nil
	}
	return withID(id, doc), nil
}

func (m *Memory) Insert(_ context.Context, c Collection, id string, doc models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collection(c)
	if _, exists := docs[id]; exists {
		return ErrDuplicateID
	}
	stored := doc.Clone()
	delete(stored, models.FieldID)
	docs[id] = stored
	return nil
}

func (m *Memory) Increment(_ context.Context, c Collection, id, field string, delta decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.data[c][id]
	if !ok {
		return false, nil
	}
	doc[field] = doc.Decimal(field).Add(delta)
	return true, nil
}

func (m *Memory) SetFields(_ context.Context, c Collection, id string, fields models.Document) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.data[c][id]
	if !ok {
		return false, nil
	}
	for k, v := range fields {
		if k == models.FieldID {
			continue
		}
		doc[k] = v
	}
	return true, nil
}

func (m *Memory) Delete(_ context.Context, c Collection, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[c][id]; !ok {
		return false, nil
	}
	delete(m.data[c], id)
	return true, nil
}

func (m *Memory) Find(_ context.Context, c Collection, field, value string) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Document
	for id, doc := range m.data[c] {
		if doc.String(field) == value {
			out = append(out, withID(id, doc))
		}
	}
	SortDocuments(out)
	return out, nil
}

func (m *Memory) List(_ context.Context, c Collection) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Document, 0, len(m.data[c]))
	for id, doc := range m.data[c] {
		out = append(out, withID(id, doc))
	}
	SortDocuments(out)
	return out, nil
}

// SortDocuments orders by creation time, then id. Backends return lists in
// this order.
func SortDocuments(docs []models.Document) {
	sort.Slice(docs, func(i, j int) bool {
		ti, tj := docs[i].Time(models.FieldCreatedAt), docs[j].Time(models.FieldCreatedAt)
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return docs[i].ID() < docs[j].ID()
	})
}
