package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/internal/server/storage"
)

// CreateProduct creates a new product, ID is assigned by the storage
func (s *Storage) CreateProduct(ctx context.Context, product *models.Product) error {
	doc := productDoc{
		ID:          primitive.NewObjectID(),
		Name:        product.Name,
		Description: product.Description,
		Category:    product.Category,
		Reviews:     []primitive.ObjectID{},
	}

	if _, err := s.products.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", storage.ErrProductAlreadyExists, err.Error())
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}

	product.ID = doc.ID.Hex()
	product.Reviews = []string{}
	return nil
}

// GetProduct retrieves product by ID
func (s *Storage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, storage.ErrProductNotFound
	}

	var doc productDoc
	err := s.products.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return doc.toModel(), nil
}

// ListProducts returns all products
func (s *Storage) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return s.findProducts(ctx, bson.M{})
}

// SearchProducts finds products by a case-insensitive substring of name or description
func (s *Storage) SearchProducts(ctx context.Context, query string) ([]*models.Product, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}

	return s.findProducts(ctx, bson.M{
		"$or": bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		},
	})
}

// UpdateProduct updates product fields
func (s *Storage) UpdateProduct(ctx context.Context, product *models.Product) error {
	oid, ok := objectID(product.ID)
	if !ok {
		return storage.ErrProductNotFound
	}

	update := bson.M{"$set": bson.M{
		"name":        product.Name,
		"description": product.Description,
		"category":    product.Category,
	}}

	result, err := s.products.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", storage.ErrProductAlreadyExists, err.Error())
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	if result.MatchedCount == 0 {
		return storage.ErrProductNotFound
	}

	return nil
}

// DeleteProduct deletes product and its reviews
func (s *Storage) DeleteProduct(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return storage.ErrProductNotFound
	}

	result, err := s.products.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if result.DeletedCount == 0 {
		return storage.ErrProductNotFound
	}

	if _, err := s.reviews.DeleteMany(ctx, bson.M{"productId": oid}); err != nil {
		return fmt.Errorf("failed to delete product reviews: %w", err)
	}

	return nil
}

// ProductAverageRating returns product's mean review rating
func (s *Storage) ProductAverageRating(ctx context.Context, productID string) (float64, error) {
	oid, ok := objectID(productID)
	if !ok {
		return 0, storage.ErrProductNotFound
	}

	count, err := s.products.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return 0, fmt.Errorf("failed to check product: %w", err)
	}
	if count == 0 {
		return 0, storage.ErrProductNotFound
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"productId": oid}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "averageRating": bson.M{"$avg": "$rating"}}}},
	}

	cursor, err := s.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate rating: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		AverageRating float64 `bson:"averageRating"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("failed to decode rating: %w", err)
	}

	if len(result) == 0 {
		return 0, nil
	}

	return result[0].AverageRating, nil
}

func (s *Storage) findProducts(ctx context.Context, filter bson.M) ([]*models.Product, error) {
	cursor, err := s.products.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]*models.Product, 0)
	for cursor.Next(ctx) {
		var doc productDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		products = append(products, doc.toModel())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return products, nil
}
