package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/internal/server/storage"
)

// CreateProduct creates a new product in the storage
func (s *Storage) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}

	query := `INSERT INTO products (id, name, description, category) VALUES (?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, product.ID, product.Name, product.Description, product.Category)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", storage.ErrProductAlreadyExists, err.Error())
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}

	product.Reviews = []string{}
	return nil
}

// GetProduct retrieves product by ID with its review ids
func (s *Storage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT id, name, description, category FROM products WHERE id = ?`

	product := &models.Product{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Category,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if err := s.attachReviewIDs(ctx, []*models.Product{product}); err != nil {
		return nil, err
	}

	return product, nil
}

// ListProducts returns all products in insertion order
func (s *Storage) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return s.queryProducts(ctx, `SELECT id, name, description, category FROM products ORDER BY rowid`)
}

// SearchProducts finds products by a case-insensitive substring of name or description
func (s *Storage) SearchProducts(ctx context.Context, query string) ([]*models.Product, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	return s.queryProducts(ctx, `
		SELECT id, name, description, category
		FROM products
		WHERE lower(name) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\'
		ORDER BY rowid
	`, pattern, pattern)
}

// UpdateProduct updates product fields
func (s *Storage) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `UPDATE products SET name = ?, description = ?, category = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, product.Name, product.Description, product.Category, product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", storage.ErrProductAlreadyExists, err.Error())
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return requireAffected(result, storage.ErrProductNotFound)
}

// DeleteProduct deletes product, its reviews are removed by ON DELETE CASCADE
func (s *Storage) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return requireAffected(result, storage.ErrProductNotFound)
}

// ProductAverageRating returns product's mean review rating
func (s *Storage) ProductAverageRating(ctx context.Context, productID string) (float64, error) {
	query := `
		SELECT COALESCE(AVG(r.rating), 0)
		FROM products p
		LEFT JOIN reviews r ON r.product_id = p.id
		WHERE p.id = ?
		GROUP BY p.id
	`

	var avg float64
	err := s.db.QueryRowContext(ctx, query, productID).Scan(&avg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrProductNotFound
		}
		return 0, fmt.Errorf("failed to get average rating: %w", err)
	}

	return avg, nil
}

func (s *Storage) queryProducts(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(&product.ID, &product.Name, &product.Description, &product.Category); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	// Закрываем rows до следующего запроса: соединение у SQLite одно
	rows.Close()

	if err := s.attachReviewIDs(ctx, products); err != nil {
		return nil, err
	}

	return products, nil
}

// attachReviewIDs заполняет Product.Reviews в порядке добавления отзывов
func (s *Storage) attachReviewIDs(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	byID := make(map[string]*models.Product, len(products))
	placeholders := make([]string, 0, len(products))
	args := make([]any, 0, len(products))
	for _, p := range products {
		p.Reviews = []string{}
		byID[p.ID] = p
		placeholders = append(placeholders, "?")
		args = append(args, p.ID)
	}

	query := `SELECT id, product_id FROM reviews WHERE product_id IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query review ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reviewID, productID string
		if err := rows.Scan(&reviewID, &productID); err != nil {
			return fmt.Errorf("failed to scan review id: %w", err)
		}
		if p, ok := byID[productID]; ok {
			p.Reviews = append(p.Reviews, reviewID)
		}
	}

	return rows.Err()
}

// escapeLike экранирует спецсимволы LIKE, чтобы запрос сравнивался буквально
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func requireAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return notFound
	}

	return nil
}
