package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocjay1/budget-ledger/internal/models"
	"github.com/rocjay1/budget-ledger/internal/store"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DataStore is the subset of *mongo.Collection the ledger needs.
type DataStore interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// CollectionProvider hands out collections by name.
type CollectionProvider interface {
	Collection(name string) DataStore
}

// MongoProvider adapts *mongo.Client to CollectionProvider.
type MongoProvider struct {
	client   *mongo.Client
	database string
}

// NewMongoProvider creates a MongoProvider over one database.
func NewMongoProvider(client *mongo.Client, database string) *MongoProvider {
	return &MongoProvider{client: client, database: database}
}

func (p *MongoProvider) Collection(name string) DataStore {
	return p.client.Database(p.database).Collection(name)
}

// ConnectToMongoDB connects and pings the server at uri.
func ConnectToMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	slog.Debug("connecting to mongodb")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	slog.Info("connected to mongodb")
	return client, nil
}

// MongoStore keeps ledger documents in MongoDB. Document ids are stored as
// _id and amounts as Decimal128 so $inc stays exact.
type MongoStore struct {
	provider CollectionProvider
}

// NewMongoStore creates a MongoStore.
func NewMongoStore(provider CollectionProvider) *MongoStore {
	return &MongoStore{provider: provider}
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to convert %s to decimal128: %w", d.String(), err)
	}
	return v, nil
}

// toBSON converts document values to their BSON counterparts.
func toBSON(doc models.Document) (bson.M, error) {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		if k == models.FieldID {
			continue
		}
		switch val := v.(type) {
		case decimal.Decimal:
			d, err := toDecimal128(val)
			if err != nil {
				return nil, err
			}
			out[k] = d
		case *decimal.Decimal:
			if val == nil {
				continue
			}
			d, err := toDecimal128(*val)
			if err != nil {
				return nil, err
			}
			out[k] = d
		case time.Time:
			out[k] = primitive.NewDateTimeFromTime(val)
		default:
			out[k] = v
		}
	}
	return out, nil
}

// fromBSON turns a raw result back into a Document.
func fromBSON(raw bson.M) models.Document {
	doc := make(models.Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			doc[models.FieldID] = fmt.Sprint(v)
			continue
		}
		switch val := v.(type) {
		case primitive.Decimal128:
			d, err := decimal.NewFromString(val.String())
			if err != nil {
				slog.Warn("unreadable decimal128 field", "field", k, "value", val.String())
				continue
			}
			doc[k] = d
		case primitive.DateTime:
			doc[k] = val.Time().UTC()
		default:
			doc[k] = v
		}
	}
	return doc
}

func (s *MongoStore) Get(ctx context.Context, c store.Collection, id string) (models.Document, error) {
	var raw bson.M
	err := s.provider.Collection(string(c)).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", c, id, err)
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Insert(ctx context.Context, c store.Collection, id string, doc models.Document) error {
	m, err := toBSON(doc)
	if err != nil {
		return err
	}
	m["_id"] = id
	if _, err := s.provider.Collection(string(c)).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s/%s", store.ErrDuplicateID, c, id)
		}
		return fmt.Errorf("failed to insert %s/%s: %w", c, id, err)
	}
	return nil
}

func (s *MongoStore) Increment(ctx context.Context, c store.Collection, id, field string, delta decimal.Decimal) (bool, error) {
	d, err := toDecimal128(delta)
	if err != nil {
		return false, err
	}
	res, err := s.provider.Collection(string(c)).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{field: d}})
	if err != nil {
		return false, fmt.Errorf("failed to increment %s on %s/%s: %w", field, c, id, err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) SetFields(ctx context.Context, c store.Collection, id string, fields models.Document) (bool, error) {
	m, err := toBSON(fields)
	if err != nil {
		return false, err
	}
	res, err := s.provider.Collection(string(c)).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": m})
	if err != nil {
		return false, fmt.Errorf("failed to update %s/%s: %w", c, id, err)
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) Delete(ctx context.Context, c store.Collection, id string) (bool, error) {
	res, err := s.provider.Collection(string(c)).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete %s/%s: %w", c, id, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) Find(ctx context.Context, c store.Collection, field, value string) ([]models.Document, error) {
	return s.query(ctx, c, bson.M{field: value})
}

func (s *MongoStore) List(ctx context.Context, c store.Collection) ([]models.Document, error) {
	return s.query(ctx, c, bson.M{})
}

func (s *MongoStore) query(ctx context.Context, c store.Collection, filter bson.M) ([]models.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: models.FieldCreatedAt, Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.provider.Collection(string(c)).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c, err)
	}
	defer cur.Close(ctx)

	var raws []bson.M
	if err := cur.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c, err)
	}
	docs := make([]models.Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, fromBSON(raw))
	}
	return docs, nil
}
