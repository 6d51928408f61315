// Package mongo implements the server storage on MongoDB.
package mongo

import (
	"context"
	"fmt"
	"net/url"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iudanet/productreviews/internal/server/storage"
)

// Collection names
const (
	usersCollection    = "users"
	productsCollection = "product"
	reviewsCollection  = "review"
)

var _ storage.Storage = (*Storage)(nil)

// Storage represents MongoDB storage implementation
type Storage struct {
	client   *mongo.Client
	users    *mongo.Collection
	products *mongo.Collection
	reviews  *mongo.Collection
}

// BuildURI assembles a connection string from its parts,
// user and password are escaped.
func BuildURI(protocol, user, password, host string) string {
	if protocol == "" {
		protocol = "mongodb"
	}

	u := url.URL{Scheme: protocol, Host: host, Path: "/"}
	if user != "" {
		u.User = url.UserPassword(user, password)
	}

	return u.String()
}

// New connects to MongoDB and ensures indexes
func New(ctx context.Context, uri, database string) (*Storage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Storage{
		client:   client,
		users:    db.Collection(usersCollection),
		products: db.Collection(productsCollection),
		reviews:  db.Collection(reviewsCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

// ensureIndexes создает уникальные индексы, на которых держится обнаружение дубликатов
func (s *Storage) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique}},
		{s.users, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		{s.products, mongo.IndexModel{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique}},
		{s.reviews, mongo.IndexModel{Keys: bson.D{{Key: "productId", Value: 1}}}},
		{s.reviews, mongo.IndexModel{Keys: bson.D{{Key: "rating", Value: 1}}}},
	}

	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.coll.Name(), err)
		}
	}

	return nil
}

// Close disconnects the client
func (s *Storage) Close() error {
	return s.client.Disconnect(context.Background())
}

// Ping checks the connection to the primary
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// dropDatabase удаляет базу, используется в тестах
func (s *Storage) dropDatabase(ctx context.Context) error {
	return s.users.Database().Drop(ctx)
}

// objectID разбирает hex id, некорректный id не может существовать в базе
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}
