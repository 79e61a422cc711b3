package hangout

import (
	"context"
	"errors"
	"fmt"
	"time"

	hangoutRepo "proxo/database/repository/hangout"
	"proxo/models"

	"go.uber.org/zap"
)

// StateOf derives the lifecycle state of req at now. Expired is never stored:
// an active request whose expiry has passed is expired.
func StateOf(req models.HangoutRequest, now time.Time) models.RequestState {
	if req.Status == models.StatusCancelled {
		return models.StateCancelled
	}
	if req.ExpiresAt == nil || !req.ExpiresAt.After(now) {
		return models.StateExpired
	}
	return models.StateActive
}

// Lifecycle applies state transitions. The only one is active -> cancelled.
type Lifecycle struct {
	repo   hangoutRepo.HangoutRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewLifecycle creates a Lifecycle. now may be nil.
func NewLifecycle(repo hangoutRepo.HangoutRepository, now func() time.Time, logger *zap.Logger) *Lifecycle {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{repo: repo, now: now, logger: logger}
}

// Cancel moves request id to cancelled on behalf of actor. Cancelling a request
// that is already cancelled succeeds without writing. Callers observe the
// change through their store subscriptions, not through this call.
func (l *Lifecycle) Cancel(ctx context.Context, id, actor string) error {
	req, err := l.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, hangoutRepo.ErrNotFound) {
			return fmt.Errorf("cancel %s: %w", id, ErrRequestNotFound)
		}
		return fmt.Errorf("%w: load %s: %w", ErrWriteFailed, id, err)
	}
	if req.CreatedBy != actor {
		return fmt.Errorf("cancel %s: %w", id, ErrNotOwner)
	}

	switch StateOf(*req, l.now()) {
	case models.StateCancelled:
		l.logger.Debug("hangout: request already cancelled", zap.String("id", id))
		return nil
	case models.StateExpired:
		return fmt.Errorf("cancel %s: %w", id, ErrRequestExpired)
	}

	updated, err := l.repo.UpdateStatus(ctx, id, models.StatusActive, models.StatusCancelled)
	if err != nil {
		l.logger.Error("hangout: cancel write failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("%w: cancel %s: %w", ErrWriteFailed, id, err)
	}
	if !updated {
		// Someone else changed the status between read and write.
		current, err := l.repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("%w: reload %s: %w", ErrWriteFailed, id, err)
		}
		if current.Status == models.StatusCancelled {
			return nil
		}
		return fmt.Errorf("%w: cancel %s: status is %s", ErrWriteFailed, id, current.Status)
	}

	l.logger.Info("hangout: request cancelled", zap.String("id", id), zap.String("by", actor))
	return nil
}
