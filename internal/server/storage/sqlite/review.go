package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/internal/server/storage"
)

const reviewColumns = `id, product_id, rating, comment, date`

// CreateReview creates a review linked to an existing product
func (s *Storage) CreateReview(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if review.Date.IsZero() {
		review.Date = time.Now()
	}
	review.Date = review.Date.UTC()

	query := `INSERT INTO reviews (` + reviewColumns + `) VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, review.ID, review.ProductID, review.Rating, review.Comment, review.Date)
	if err != nil {
		if isForeignKeyViolation(err) {
			return storage.ErrProductNotFound
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}

	return nil
}

// GetReview retrieves review by ID
func (s *Storage) GetReview(ctx context.Context, id string) (*models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = ?`

	review := &models.Review{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&review.ID,
		&review.ProductID,
		&review.Rating,
		&review.Comment,
		&review.Date,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}

	return review, nil
}

// ListReviews returns reviews matching filter
func (s *Storage) ListReviews(ctx context.Context, filter storage.ReviewFilter) ([]*models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews`
	var args []any

	if filter.Rating != 0 {
		query += ` WHERE rating = ?`
		args = append(args, filter.Rating)
	}

	switch filter.SortBy {
	case storage.SortByRating:
		query += ` ORDER BY rating DESC, rowid`
	case storage.SortByDate:
		query += ` ORDER BY date DESC, rowid DESC`
	default:
		query += ` ORDER BY rowid`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]*models.Review, 0)
	for rows.Next() {
		review := &models.Review{}
		if err := rows.Scan(&review.ID, &review.ProductID, &review.Rating, &review.Comment, &review.Date); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return reviews, nil
}

// UpdateReview updates rating and comment
func (s *Storage) UpdateReview(ctx context.Context, review *models.Review) error {
	query := `UPDATE reviews SET rating = ?, comment = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, review.Rating, review.Comment, review.ID)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}

	return requireAffected(result, storage.ErrReviewNotFound)
}

// DeleteReview deletes review, the product's review list is derived from this table
func (s *Storage) DeleteReview(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	return requireAffected(result, storage.ErrReviewNotFound)
}

// TopRatedProducts returns reviewed products with the highest average rating
func (s *Storage) TopRatedProducts(ctx context.Context, limit int) ([]models.ProductRating, error) {
	if limit <= 0 {
		limit = storage.TopRatedLimit
	}

	query := `
		SELECT p.id, p.name, AVG(r.rating) AS average_rating
		FROM products p
		JOIN reviews r ON r.product_id = p.id
		GROUP BY p.id, p.name
		ORDER BY average_rating DESC, p.name
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top rated products: %w", err)
	}
	defer rows.Close()

	ratings := make([]models.ProductRating, 0, limit)
	for rows.Next() {
		var r models.ProductRating
		if err := rows.Scan(&r.ProductID, &r.Name, &r.AverageRating); err != nil {
			return nil, fmt.Errorf("failed to scan product rating: %w", err)
		}
		ratings = append(ratings, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return ratings, nil
}
