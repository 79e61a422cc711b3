package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"
	"time"

	userRepo "proxo/database/repository/user"
	"proxo/models"
	"proxo/services/storage"

	"go.uber.org/zap"
)

var (
	// ErrProfileNotFound is returned when the uid has no community profile yet.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrPhotoStorageUnavailable is returned when no photo store is configured.
	ErrPhotoStorageUnavailable = errors.New("photo storage is not configured")
	// ErrProfileExists is returned when the uid already completed setup.
	ErrProfileExists = errors.New("profile already set up")
	// ErrUsernameTaken is returned when another uid owns the username.
	ErrUsernameTaken = errors.New("username already taken")
)

const (
	MinUsernameLength = 4
	MaxUsernameLength = 30
	// MaxSearchResults caps a single user search.
	MaxSearchResults = 50
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9._]+$`)

// ValidationError reports a rejected profile field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NormalizeUsername trims and lowercases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// splitInterests turns a comma separated list into trimmed, non-empty entries.
func splitInterests(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validateProfile(in models.ProfileInput) (*models.User, error) {
	u := &models.User{
		Username:   NormalizeUsername(in.Username),
		Name:       strings.TrimSpace(in.Name),
		School:     strings.TrimSpace(in.School),
		SchoolYear: strings.TrimSpace(in.SchoolYear),
		Interests:  splitInterests(in.Interests),
	}
	switch {
	case u.Name == "":
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	case u.Username == "":
		return nil, &ValidationError{Field: "username", Message: "username is required"}
	case len(u.Username) < MinUsernameLength || len(u.Username) > MaxUsernameLength:
		return nil, &ValidationError{
			Field:   "username",
			Message: fmt.Sprintf("must be %d-%d characters", MinUsernameLength, MaxUsernameLength),
		}
	case !usernamePattern.MatchString(u.Username):
		return nil, &ValidationError{Field: "username", Message: "use only letters, numbers, dots and underscores"}
	case u.SchoolYear != "" && !slices.Contains(models.SchoolYears, u.SchoolYear):
		return nil, &ValidationError{Field: "schoolYear", Message: fmt.Sprintf("must be one of %v", models.SchoolYears)}
	}
	return u, nil
}

// DefaultUserService is the production implementation.
type DefaultUserService struct {
	Repo   userRepo.UserRepository
	Photos storage.PhotoStore
	Logger *zap.Logger
}

func (s *DefaultUserService) UsernameForUID(ctx context.Context, uid string) (string, error) {
	u, err := s.Repo.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("failed to look up user %s: %w", uid, err)
	}
	if u.Username == "" {
		return "", ErrProfileNotFound
	}
	return u.Username, nil
}

func (s *DefaultUserService) GetProfile(ctx context.Context, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrProfileNotFound
	}
	u, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile %s: %w", username, err)
	}
	return u, nil
}

func (s *DefaultUserService) UpdatePhoto(ctx context.Context, uid string, photo io.Reader) (*models.User, error) {
	if s.Photos == nil {
		return nil, ErrPhotoStorageUnavailable
	}
	u, err := s.Repo.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, userRepo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to look up user %s: %w", uid, err)
	}

	url, err := s.Photos.UploadProfilePhoto(ctx, u.Username, photo)
	if err != nil {
		s.Logger.Error("user: photo upload failed", zap.String("username", u.Username), zap.Error(err))
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}
	if err := s.Repo.UpdatePhotoURL(ctx, uid, url); err != nil {
		return nil, fmt.Errorf("failed to save photo URL: %w", err)
	}

	u.PhotoURL = url
	s.Logger.Info("user: profile photo updated", zap.String("username", u.Username))
	return u, nil
}

func (s *DefaultUserService) SetupProfile(ctx context.Context, uid string, in models.ProfileInput) (*models.User, error) {
	u, err := validateProfile(in)
	if err != nil {
		return nil, err
	}

	if _, err := s.Repo.GetByID(ctx, uid); err == nil {
		return nil, ErrProfileExists
	} else if !errors.Is(err, userRepo.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user %s: %w", uid, err)
	}
	if _, err := s.Repo.GetByUsername(ctx, u.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, userRepo.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username %s: %w", u.Username, err)
	}

	now := time.Now()
	u.ID = uid
	u.CreatedAt = now
	u.UpdatedAt = now
	if err := s.Repo.Create(ctx, u); err != nil {
		if !errors.Is(err, userRepo.ErrDuplicate) {
			return nil, fmt.Errorf("failed to save profile: %w", err)
		}
		// Lost a race against a concurrent setup.
		if _, lookupErr := s.Repo.GetByID(ctx, uid); lookupErr == nil {
			return nil, ErrProfileExists
		}
		return nil, ErrUsernameTaken
	}

	s.Logger.Info("user: profile created", zap.String("uid", uid), zap.String("username", u.Username))
	return u, nil
}

func (s *DefaultUserService) SearchUsers(ctx context.Context, q models.UserQuery) ([]models.User, error) {
	users, err := s.Repo.Search(ctx, userRepo.SearchFilter{
		School:     strings.TrimSpace(q.School),
		SchoolYear: strings.TrimSpace(q.SchoolYear),
		Limit:      MaxSearchResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	wanted := splitInterests(strings.ToLower(q.Interests))
	if len(wanted) == 0 {
		return users, nil
	}
	matched := users[:0]
	for _, u := range users {
		if sharesInterest(u.Interests, wanted) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

// sharesInterest reports whether any interest matches one of wanted, ignoring case.
func sharesInterest(interests, wanted []string) bool {
	for _, i := range interests {
		if slices.Contains(wanted, strings.ToLower(i)) {
			return true
		}
	}
	return false
}
