package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/rocjay1/budget-ledger/internal/store"
	"github.com/shopspring/decimal"
)

// maxETagRetries bounds optimistic retries of a read-modify-write.
const maxETagRetries = 5

// tableClient is the subset of *aztables.Client the store uses.
type tableClient interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// TableStore keeps ledger documents in Azure Table Storage, one table per
// collection. The collection name is the partition key and the document id
// is the row key.
type TableStore struct {
	tables map[store.Collection]tableClient
}

// NewTableStore connects to the table service at tableURL and makes sure a
// table exists for every collection. Table names are prefix plus the
// collection name.
func NewTableStore(ctx context.Context, tableURL, prefix string) (*TableStore, error) {
	if tableURL == "" {
		return nil, fmt.Errorf("table service url is required")
	}

	var client *aztables.ServiceClient
	if isLocal(tableURL) {
		slog.Info("using Azurite credentials for table store")
		name, key := getAzuriteCredentials()
		cred, err := aztables.NewSharedKeyCredential(name, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = aztables.NewServiceClientWithSharedKey(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create table service client with shared key: %w", err)
		}
	} else {
		cred, err := newDefaultAzureCredential()
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
		client, err = aztables.NewServiceClient(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create table service client: %w", err)
		}
	}

	tables := make(map[store.Collection]tableClient, len(store.Collections))
	for _, c := range store.Collections {
		name := prefix + string(c)
		if _, err := client.CreateTable(ctx, name, nil); err != nil {
			var azErr *azcore.ResponseError
			if !errors.As(err, &azErr) || azErr.ErrorCode != "TableAlreadyExists" {
				return nil, fmt.Errorf("failed to create table %s: %w", name, err)
			}
		}
		tables[c] = client.NewClient(name)
	}

	slog.Info("table store initialized", "table_url", tableURL, "prefix", prefix)
	return &TableStore{tables: tables}, nil
}

func (s *TableStore) table(c store.Collection) (tableClient, error) {
	t, ok := s.tables[c]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", c)
	}
	return t, nil
}

func hasStatus(err error, status int) bool {
	var azErr *azcore.ResponseError
	return errors.As(err, &azErr) && azErr.StatusCode == status
}

// encodeEntity flattens doc into a table entity. Decimals are stored as
// strings so no precision is lost.
func encodeEntity(c store.Collection, id string, doc models.Document) ([]byte, error) {
	entity := map[string]any{
		"PartitionKey": string(c),
		"RowKey":       id,
	}
	for k, v := range doc {
		if k == models.FieldID {
			continue
		}
		switch val := v.(type) {
		case decimal.Decimal:
			entity[k] = val.String()
		case *decimal.Decimal:
			if val != nil {
				entity[k] = val.String()
			}
		case time.Time:
			entity[k] = val.UTC().Format(time.RFC3339Nano)
		default:
			entity[k] = v
		}
	}
	return json.Marshal(entity)
}

func decodeEntity(raw []byte) (models.Document, error) {
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}
	doc := make(models.Document, len(parsed))
	for k, v := range parsed {
		switch {
		case k == "RowKey":
			doc[models.FieldID] = v
		case k == "PartitionKey", k == "Timestamp", strings.HasPrefix(k, "odata."):
		default:
			doc[k] = v
		}
	}
	return doc, nil
}

func (s *TableStore) Get(ctx context.Context, c store.Collection, id string) (models.Document, error) {
	t, err := s.table(c)
	if err != nil {
		return nil, err
	}
	resp, err := t.GetEntity(ctx, string(c), id, nil)
	if err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", c, id, err)
	}
	return decodeEntity(resp.Value)
}

func (s *TableStore) Insert(ctx context.Context, c store.Collection, id string, doc models.Document) error {
	t, err := s.table(c)
	if err != nil {
		return err
	}
	entity, err := encodeEntity(c, id, doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", c, id, err)
	}
	if _, err := t.AddEntity(ctx, entity, nil); err != nil {
		if hasStatus(err, http.StatusConflict) {
			return fmt.Errorf("%w: %s/%s", store.ErrDuplicateID, c, id)
		}
		return fmt.Errorf("failed to insert %s/%s: %w", c, id, err)
	}
	return nil
}

// Increment reads the entity and writes it back conditioned on its ETag,
// retrying when another writer got there first.
func (s *TableStore) Increment(ctx context.Context, c store.Collection, id, field string, delta decimal.Decimal) (bool, error) {
	t, err := s.table(c)
	if err != nil {
		return false, err
	}
	for attempt := 0; attempt < maxETagRetries; attempt++ {
		resp, err := t.GetEntity(ctx, string(c), id, nil)
		if err != nil {
			if hasStatus(err, http.StatusNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("failed to get %s/%s: %w", c, id, err)
		}
		doc, err := decodeEntity(resp.Value)
		if err != nil {
			return false, err
		}

		entity, err := encodeEntity(c, id, models.Document{field: doc.Decimal(field).Add(delta)})
		if err != nil {
			return false, err
		}
		etag := resp.ETag
		_, err = t.UpdateEntity(ctx, entity, &aztables.UpdateEntityOptions{
			IfMatch:    &etag,
			UpdateMode: aztables.UpdateModeMerge,
		})
		switch {
		case err == nil:
			return true, nil
		case hasStatus(err, http.StatusPreconditionFailed):
			slog.Debug("etag mismatch, retrying increment", "collection", c, "id", id, "attempt", attempt+1)
			continue
		case hasStatus(err, http.StatusNotFound):
			return false, nil
		default:
			return false, fmt.Errorf("failed to increment %s on %s/%s: %w", field, c, id, err)
		}
	}
	return false, fmt.Errorf("failed to increment %s on %s/%s: too many concurrent writers", field, c, id)
}

func (s *TableStore) SetFields(ctx context.Context, c store.Collection, id string, fields models.Document) (bool, error) {
	t, err := s.table(c)
	if err != nil {
		return false, err
	}
	entity, err := encodeEntity(c, id, fields)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s/%s: %w", c, id, err)
	}
	etag := azcore.ETagAny
	_, err = t.UpdateEntity(ctx, entity, &aztables.UpdateEntityOptions{
		IfMatch:    &etag,
		UpdateMode: aztables.UpdateModeMerge,
	})
	if err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update %s/%s: %w", c, id, err)
	}
	return true, nil
}

func (s *TableStore) Delete(ctx context.Context, c store.Collection, id string) (bool, error) {
	t, err := s.table(c)
	if err != nil {
		return false, err
	}
	if _, err := t.DeleteEntity(ctx, string(c), id, nil); err != nil {
		if hasStatus(err, http.StatusNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete %s/%s: %w", c, id, err)
	}
	return true, nil
}

func quoteODataString(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func (s *TableStore) Find(ctx context.Context, c store.Collection, field, value string) ([]models.Document, error) {
	filter := fmt.Sprintf("PartitionKey eq %s and %s eq %s", quoteODataString(string(c)), field, quoteODataString(value))
	return s.query(ctx, c, filter)
}

func (s *TableStore) List(ctx context.Context, c store.Collection) ([]models.Document, error) {
	return s.query(ctx, c, "PartitionKey eq "+quoteODataString(string(c)))
}

func (s *TableStore) query(ctx context.Context, c store.Collection, filter string) ([]models.Document, error) {
	t, err := s.table(c)
	if err != nil {
		return nil, err
	}
	pager := t.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})

	var docs []models.Document
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", c, err)
		}
		for _, raw := range resp.Entities {
			doc, err := decodeEntity(raw)
			if err != nil {
				slog.Warn("skipping unreadable entity", "collection", c, "error", err)
				continue
			}
			docs = append(docs, doc)
		}
	}
	store.SortDocuments(docs)
	return docs, nil
}
