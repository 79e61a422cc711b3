package hangout

import (
	"context"
	"fmt"
	"strings"
	"time"

	hangoutRepo "proxo/database/repository/hangout"
	"proxo/models"
	"proxo/services/geo"

	"go.uber.org/zap"
)

// MaxSummaryLength bounds the activity description.
const MaxSummaryLength = 280

// HangoutService defines the write operations on hangout requests.
type HangoutService interface {
	// Create validates in, stamps server-side times and stores a new active request.
	Create(ctx context.Context, actor string, in models.CreateHangoutInput) (*models.HangoutRequest, error)
	// Cancel moves an active request owned by actor to cancelled.
	Cancel(ctx context.Context, id, actor string) error
}

// ExpiryScheduler arranges for live subscribers to be notified when a request expires.
type ExpiryScheduler interface {
	Schedule(ctx context.Context, req *models.HangoutRequest) error
}

// DefaultHangoutService is the production implementation.
type DefaultHangoutService struct {
	Repo      hangoutRepo.HangoutRepository
	Lifecycle *Lifecycle
	// Expiry is optional. Without it expired requests leave feeds on the next refresh.
	Expiry ExpiryScheduler
	Now    func() time.Time
	Logger *zap.Logger
}

// NewHangoutService wires a service over repo. now may be nil.
func NewHangoutService(repo hangoutRepo.HangoutRepository, now func() time.Time, logger *zap.Logger) *DefaultHangoutService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultHangoutService{
		Repo:      repo,
		Lifecycle: NewLifecycle(repo, now, logger),
		Now:       now,
		Logger:    logger,
	}
}

func validate(in *models.CreateHangoutInput) error {
	in.Summary = strings.TrimSpace(in.Summary)
	in.Location = strings.TrimSpace(in.Location)
	in.LocationDetails = strings.TrimSpace(in.LocationDetails)

	if in.Summary == "" {
		return newValidationError("summary", "describe what you want to do")
	}
	if len([]rune(in.Summary)) > MaxSummaryLength {
		return newValidationError("summary", fmt.Sprintf("must be at most %d characters", MaxSummaryLength))
	}
	if !models.IsAllowedDuration(in.DurationMinutes) {
		return newValidationError("durationMinutes", fmt.Sprintf("must be one of %v", models.AllowedDurations))
	}
	if in.Coordinates != nil && !in.Coordinates.Valid() {
		return newValidationError("coordinates", "latitude or longitude out of range")
	}
	if in.Location == "" && in.Coordinates == nil {
		return newValidationError("location", "choose a location")
	}
	return nil
}

// Create stores a new request. ExpiresAt is fixed at creation from the server clock.
func (s *DefaultHangoutService) Create(ctx context.Context, actor string, in models.CreateHangoutInput) (*models.HangoutRequest, error) {
	if actor == "" {
		return nil, newValidationError("createdBy", "a username is required")
	}
	if err := validate(&in); err != nil {
		return nil, err
	}

	location := in.Location
	if location == "" {
		location = geo.FormatCoordinates(in.Coordinates.Latitude, in.Coordinates.Longitude)
	}

	createdAt := s.Now().UTC()
	expiresAt := createdAt.Add(time.Duration(in.DurationMinutes) * time.Minute)
	req := &models.HangoutRequest{
		Summary:         in.Summary,
		DurationMinutes: in.DurationMinutes,
		Location:        location,
		LocationDetails: in.LocationDetails,
		Coordinates:     in.Coordinates,
		CreatedBy:       actor,
		CreatedAt:       &createdAt,
		ExpiresAt:       &expiresAt,
		Status:          models.StatusActive,
	}
	if err := s.Repo.Create(ctx, req); err != nil {
		s.Logger.Error("hangout: create failed", zap.String("by", actor), zap.Error(err))
		return nil, fmt.Errorf("%w: create: %w", ErrWriteFailed, err)
	}

	if s.Expiry != nil {
		if err := s.Expiry.Schedule(ctx, req); err != nil {
			s.Logger.Warn("hangout: failed to schedule expiry notice", zap.String("id", req.ID), zap.Error(err))
		}
	}

	s.Logger.Info("hangout: request created",
		zap.String("id", req.ID), zap.String("by", actor), zap.Int("durationMinutes", req.DurationMinutes))
	return req, nil
}

// Cancel delegates to the lifecycle controller.
func (s *DefaultHangoutService) Cancel(ctx context.Context, id, actor string) error {
	return s.Lifecycle.Cancel(ctx, id, actor)
}
