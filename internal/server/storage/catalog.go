package storage

import (
	"context"
	"io"

	"github.com/iudanet/productreviews/internal/models"
)

// TopRatedLimit number of products returned by the top rated listing
const TopRatedLimit = 10

// ReviewSort selects the order of ListReviews
type ReviewSort string

const (
	// SortNone keeps insertion order
	SortNone ReviewSort = ""
	// SortByRating orders by rating descending
	SortByRating ReviewSort = "rating"
	// SortByDate orders by date descending, newest first
	SortByDate ReviewSort = "date"
)

// ReviewFilter narrows ListReviews
type ReviewFilter struct {
	SortBy ReviewSort
	// Rating selects reviews with exactly this rating, zero means any
	Rating int
}

// ProductStorage defines interface for product persistence
type ProductStorage interface {
	// CreateProduct stores a product, ID is assigned by the storage
	// Returns ErrProductAlreadyExists if name is taken
	CreateProduct(ctx context.Context, product *models.Product) error

	// GetProduct retrieves product with its review ids
	// Returns ErrProductNotFound if product doesn't exist
	GetProduct(ctx context.Context, id string) (*models.Product, error)

	// ListProducts returns all products, empty slice if none
	ListProducts(ctx context.Context) ([]*models.Product, error)

	// SearchProducts returns products whose name or description contains
	// query, case-insensitive. query is matched literally.
	SearchProducts(ctx context.Context, query string) ([]*models.Product, error)

	// UpdateProduct replaces name, description and category
	// Returns ErrProductNotFound or ErrProductAlreadyExists
	UpdateProduct(ctx context.Context, product *models.Product) error

	// DeleteProduct removes the product together with its reviews
	// Returns ErrProductNotFound if product doesn't exist
	DeleteProduct(ctx context.Context, id string) error

	// ProductAverageRating returns the mean rating, zero when there are no reviews
	// Returns ErrProductNotFound if product doesn't exist
	ProductAverageRating(ctx context.Context, productID string) (float64, error)
}

// ReviewStorage defines interface for review persistence
type ReviewStorage interface {
	// CreateReview stores a review and appends its id to the product
	// Returns ErrProductNotFound if review.ProductID doesn't exist
	CreateReview(ctx context.Context, review *models.Review) error

	// GetReview retrieves review by ID
	// Returns ErrReviewNotFound if review doesn't exist
	GetReview(ctx context.Context, id string) (*models.Review, error)

	// ListReviews returns reviews matching filter, empty slice if none
	ListReviews(ctx context.Context, filter ReviewFilter) ([]*models.Review, error)

	// UpdateReview replaces rating and comment
	// Returns ErrReviewNotFound if review doesn't exist
	UpdateReview(ctx context.Context, review *models.Review) error

	// DeleteReview removes the review and its id from the product
	// Returns ErrReviewNotFound if review doesn't exist
	DeleteReview(ctx context.Context, id string) error

	// TopRatedProducts returns up to limit reviewed products ordered by
	// average rating descending
	TopRatedProducts(ctx context.Context, limit int) ([]models.ProductRating, error)
}

// Storage is the complete persistence layer used by the server
type Storage interface {
	UserStorage
	ProductStorage
	ReviewStorage
	io.Closer

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error
}
