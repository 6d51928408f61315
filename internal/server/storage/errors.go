package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username or email already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrProductNotFound indicates that product was not found in storage
	ErrProductNotFound = errors.New("product not found")

	// ErrProductAlreadyExists indicates that product with this name already exists
	ErrProductAlreadyExists = errors.New("product already exists")

	// ErrReviewNotFound indicates that review was not found in storage
	ErrReviewNotFound = errors.New("review not found")
)
