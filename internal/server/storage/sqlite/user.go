package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/internal/server/storage"
)

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = user.CreatedAt.UTC()

	query := `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)

	if err != nil {
		// Проверяем на duplicate username или email
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", storage.ErrUserAlreadyExists, err.Error())
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByLogin retrieves user by username or email
func (s *Storage) GetUserByLogin(ctx context.Context, username, email string) (*models.User, error) {
	if username == "" && email == "" {
		return nil, storage.ErrUserNotFound
	}

	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE (? != '' AND username = ?) OR (? != '' AND email = ?)
		ORDER BY username = ? DESC
		LIMIT 1
	`

	return s.scanUser(s.db.QueryRowContext(ctx, query, username, username, email, email, username))
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE id = ?
	`

	return s.scanUser(s.db.QueryRowContext(ctx, query, userID))
}

func (s *Storage) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
