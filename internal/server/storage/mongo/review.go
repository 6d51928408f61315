package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/internal/server/storage"
)

// CreateReview creates a review and appends its id to the product
func (s *Storage) CreateReview(ctx context.Context, review *models.Review) error {
	productID, ok := objectID(review.ProductID)
	if !ok {
		return storage.ErrProductNotFound
	}

	if review.Date.IsZero() {
		review.Date = time.Now()
	}

	doc := reviewDoc{
		ID:        primitive.NewObjectID(),
		ProductID: productID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		Date:      review.Date.UTC().Truncate(time.Millisecond),
	}

	// Сначала привязываем id к товару: если товара нет, отзыв не создается
	result, err := s.products.UpdateOne(ctx,
		bson.M{"_id": productID},
		bson.M{"$push": bson.M{"reviews": doc.ID}},
	)
	if err != nil {
		return fmt.Errorf("failed to link review: %w", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrProductNotFound
	}

	if _, err := s.reviews.InsertOne(ctx, doc); err != nil {
		// Откатываем ссылку, чтобы у товара не осталось висячего id
		_, _ = s.products.UpdateOne(context.WithoutCancel(ctx),
			bson.M{"_id": productID},
			bson.M{"$pull": bson.M{"reviews": doc.ID}},
		)
		return fmt.Errorf("failed to insert review: %w", err)
	}

	review.ID = doc.ID.Hex()
	review.Date = doc.Date
	return nil
}

// GetReview retrieves review by ID
func (s *Storage) GetReview(ctx context.Context, id string) (*models.Review, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, storage.ErrReviewNotFound
	}

	var doc reviewDoc
	err := s.reviews.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return doc.toModel(), nil
}

// ListReviews returns reviews matching filter
func (s *Storage) ListReviews(ctx context.Context, filter storage.ReviewFilter) ([]*models.Review, error) {
	query := bson.M{}
	if filter.Rating != 0 {
		query["rating"] = filter.Rating
	}

	sort := bson.D{{Key: "_id", Value: 1}}
	switch filter.SortBy {
	case storage.SortByRating:
		sort = bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: 1}}
	case storage.SortByDate:
		sort = bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}}
	}

	cursor, err := s.reviews.Find(ctx, query, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer cursor.Close(ctx)

	reviews := make([]*models.Review, 0)
	for cursor.Next(ctx) {
		var doc reviewDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode review: %w", err)
		}
		reviews = append(reviews, doc.toModel())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return reviews, nil
}

// UpdateReview updates rating and comment
func (s *Storage) UpdateReview(ctx context.Context, review *models.Review) error {
	oid, ok := objectID(review.ID)
	if !ok {
		return storage.ErrReviewNotFound
	}

	update := bson.M{"$set": bson.M{
		"rating":  review.Rating,
		"comment": review.Comment,
	}}

	result, err := s.reviews.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}

	if result.MatchedCount == 0 {
		return storage.ErrReviewNotFound
	}

	return nil
}

// DeleteReview deletes review and removes its id from the product
func (s *Storage) DeleteReview(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return storage.ErrReviewNotFound
	}

	var doc reviewDoc
	err := s.reviews.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrReviewNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	_, err = s.products.UpdateOne(ctx,
		bson.M{"_id": doc.ProductID},
		bson.M{"$pull": bson.M{"reviews": oid}},
	)
	if err != nil {
		return fmt.Errorf("failed to unlink review: %w", err)
	}

	return nil
}

// TopRatedProducts returns reviewed products with the highest average rating
func (s *Storage) TopRatedProducts(ctx context.Context, limit int) ([]models.ProductRating, error) {
	if limit <= 0 {
		limit = storage.TopRatedLimit
	}

	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         reviewsCollection,
			"localField":   "_id",
			"foreignField": "productId",
			"as":           "reviews",
		}}},
		{{Key: "$unwind", Value: "$reviews"}},
		{{Key: "$group", Value: bson.M{
			"_id":           "$_id",
			"name":          bson.M{"$first": "$name"},
			"averageRating": bson.M{"$avg": "$reviews.rating"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "averageRating", Value: -1}, {Key: "name", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := s.products.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top rated products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []ratingDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode top rated products: %w", err)
	}

	ratings := make([]models.ProductRating, 0, len(docs))
	for _, d := range docs {
		ratings = append(ratings, models.ProductRating{
			ProductID:     d.ID.Hex(),
			Name:          d.Name,
			AverageRating: d.AverageRating,
		})
	}

	return ratings, nil
}
