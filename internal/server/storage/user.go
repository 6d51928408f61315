package storage

import (
	"context"

	"github.com/iudanet/productreviews/internal/models"
)

// UserStorage defines interface for user account persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if username or email is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByLogin retrieves user whose username equals username or whose
	// email equals email. Empty arguments never match.
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByLogin(ctx context.Context, username, email string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}
