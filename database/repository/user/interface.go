package userRepo

import (
	"context"
	"errors"

	"proxo/models"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when the uid or username is already taken.
	ErrDuplicate = errors.New("user already exists")
)

// UserRepository defines profile storage.
type UserRepository interface {
	// GetByID retrieves a user by Firebase uid.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByUsername retrieves a user by normalized username.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// Create inserts a new profile. Fails with ErrDuplicate on a taken uid or username.
	Create(ctx context.Context, user *models.User) error
	// Search lists profiles matching the non-empty filters, ordered by username.
	Search(ctx context.Context, filter SearchFilter) ([]models.User, error)
	// UpdatePhotoURL sets the profile photo of a user.
	UpdatePhotoURL(ctx context.Context, id, photoURL string) error
}

// SearchFilter narrows a profile search. Empty fields match everything.
type SearchFilter struct {
	School     string
	SchoolYear string
	Limit      int
}
