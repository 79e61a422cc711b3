package user

import (
	"context"
	"io"

	"proxo/models"
)

// UserService defines the profile operations the feed needs.
type UserService interface {
	// UsernameForUID maps an authenticated Firebase uid to the community username.
	UsernameForUID(ctx context.Context, uid string) (string, error)
	// GetProfile retrieves a public profile by username.
	GetProfile(ctx context.Context, username string) (*models.User, error)
	// SetupProfile creates the community profile for a uid that has none yet.
	SetupProfile(ctx context.Context, uid string, in models.ProfileInput) (*models.User, error)
	// SearchUsers lists profiles by school and year, narrowed to shared interests when given.
	SearchUsers(ctx context.Context, q models.UserQuery) ([]models.User, error)
	// UpdatePhoto uploads a new profile photo and stores its URL on the user.
	UpdatePhoto(ctx context.Context, uid string, photo io.Reader) (*models.User, error)
}
