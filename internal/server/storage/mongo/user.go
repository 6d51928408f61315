package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iudanet/productreviews/internal/models"
	"github.com/iudanet/productreviews/internal/server/storage"
)

// CreateUser creates a new user, ID is assigned by the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.UTC().Truncate(time.Millisecond),
	}

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", storage.ErrUserAlreadyExists, err.Error())
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	user.ID = doc.ID.Hex()
	return nil
}

// GetUserByLogin retrieves user by username or email
func (s *Storage) GetUserByLogin(ctx context.Context, username, email string) (*models.User, error) {
	// Сначала username, чтобы совпадение по нему имело приоритет
	if username != "" {
		user, err := s.findUser(ctx, bson.M{"username": username})
		if !errors.Is(err, storage.ErrUserNotFound) {
			return user, err
		}
	}

	if email != "" {
		return s.findUser(ctx, bson.M{"email": email})
	}

	return nil, storage.ErrUserNotFound
}

// GetUserByID retrieves user by ID
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	oid, ok := objectID(userID)
	if !ok {
		return nil, storage.ErrUserNotFound
	}

	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Storage) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc

	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return doc.toModel(), nil
}
