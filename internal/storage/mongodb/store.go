// Package mongodb implements the sale store on a MongoDB collection, one
// document per sale with its bounty months embedded.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bountytracker/internal/core"
)

const (
	DefaultDatabase = "bountytracker"
	salesCollection = "sales"
	connectTimeout  = 10 * time.Second
)

type Store struct {
	client *mongo.Client
	sales  *mongo.Collection
}

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}
	slog.InfoContext(ctx, "Connecting to MongoDB", "uri", MaskURI(uri), "database", database)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{client: client, sales: client.Database(database).Collection(salesCollection)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// imeiCollation compares IMEIs case-insensitively, matching the SQLite
// NOCASE column and the memory store.
var imeiCollation = &options.Collation{Locale: "en", Strength: 2}

func saleIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "imei", Value: 1}},
			Options: options.Index().SetUnique(true).SetCollation(imeiCollation),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.sales.Indexes().CreateMany(ctx, saleIndexes())
	if err != nil {
		return fmt.Errorf("create sale indexes: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) ListSales(ctx context.Context) ([]core.Sale, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.sales.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer cur.Close(ctx)

	var docs []saleDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sales: %w", err)
	}
	out := make([]core.Sale, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toSale())
	}
	return out, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (core.Sale, error) {
	var doc saleDocument
	err := s.sales.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		return core.Sale{}, fmt.Errorf("get sale %s: %w", id, translate(err))
	}
	return doc.toSale(), nil
}

func (s *Store) CreateSale(ctx context.Context, sale core.Sale) error {
	if _, err := s.sales.InsertOne(ctx, toDocument(sale)); err != nil {
		return fmt.Errorf("create sale %s: %w", sale.ID, translate(err))
	}
	return nil
}

func (s *Store) UpdateSale(ctx context.Context, sale core.Sale) error {
	res, err := s.sales.ReplaceOne(ctx, bson.M{"_id": sale.ID}, toDocument(sale))
	if err != nil {
		return fmt.Errorf("update sale %s: %w", sale.ID, translate(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update sale %s: %w", sale.ID, core.ErrSaleNotFound)
	}
	return nil
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	res, err := s.sales.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete sale %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete sale %s: %w", id, core.ErrSaleNotFound)
	}
	return nil
}

// translate maps driver errors onto domain errors.
func translate(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return core.ErrSaleNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", core.ErrDuplicateIdentifier, err)
	default:
		return err
	}
}

// MaskURI hides the password of a mongodb:// URI for logging.
func MaskURI(uri string) string {
	if idx := strings.Index(uri, "@"); idx > 0 {
		if colonIdx := strings.LastIndex(uri[:idx], ":"); colonIdx > 0 && colonIdx > strings.Index(uri, "://")+2 {
			return uri[:colonIdx+1] + "***" + uri[idx:]
		}
	}
	return uri
}
