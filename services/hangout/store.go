package hangout

import (
	"context"
	"fmt"
	"time"

	hangoutRepo "proxo/database/repository/hangout"
	"proxo/models"

	"go.uber.org/zap"
)

// Filter selects which active requests a subscription follows. Status and
// expiry are always applied; at most one of CreatedBy and ExcludeCreatedBy
// is expected to be set.
type Filter struct {
	CreatedBy        string
	ExcludeCreatedBy string
	// Order overrides hangoutRepo.DefaultOrder.
	Order []hangoutRepo.SortKey
}

// Own follows the requests posted by username.
func Own(username string) Filter {
	return Filter{CreatedBy: username}
}

// Others follows everyone's requests except username's.
func Others(username string) Filter {
	return Filter{ExcludeCreatedBy: username}
}

func (f Filter) query(now time.Time) hangoutRepo.Query {
	order := f.Order
	if len(order) == 0 {
		order = hangoutRepo.DefaultOrder
	}
	return hangoutRepo.Query{
		Status:           models.StatusActive,
		CreatedBy:        f.CreatedBy,
		ExcludeCreatedBy: f.ExcludeCreatedBy,
		ExpiresAfter:     now,
		Order:            order,
	}
}

// StoreOptions configures a Store. Zero values fall back to defaults.
type StoreOptions struct {
	Now           func() time.Time
	RetryAttempts int
	RetryBackoff  time.Duration
	Logger        *zap.Logger
}

// Store keeps live, ordered views of the active requests in the backing repository.
type Store struct {
	repo          hangoutRepo.HangoutRepository
	now           func() time.Time
	retryAttempts int
	retryBackoff  time.Duration
	logger        *zap.Logger
}

// NewStore creates a Store over repo.
func NewStore(repo hangoutRepo.HangoutRepository, opts StoreOptions) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RetryAttempts < 0 {
		opts.RetryAttempts = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		repo:          repo,
		now:           opts.Now,
		retryAttempts: opts.RetryAttempts,
		retryBackoff:  opts.RetryBackoff,
		logger:        opts.Logger,
	}
}

// Snapshot reads the current ordered view once.
func (s *Store) Snapshot(ctx context.Context, f Filter) ([]models.HangoutRequest, error) {
	reqs, err := s.load(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubscriptionFailed, err)
	}
	return reqs, nil
}

// load queries the repository with expiry evaluated now and drops partially
// written records.
func (s *Store) load(ctx context.Context, f Filter) ([]models.HangoutRequest, error) {
	reqs, err := s.repo.Find(ctx, f.query(s.now()))
	if err != nil {
		return nil, err
	}
	out := reqs[:0]
	for _, r := range reqs {
		if !r.HasTimestamps() {
			s.logger.Debug("hangout: skipping request without timestamps", zap.String("id", r.ID))
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Subscribe starts following f. The first Snapshot carries the current state;
// every change notification from the repository produces another complete one.
// The subscription ends when ctx is done or Unsubscribe is called.
func (s *Store) Subscribe(ctx context.Context, f Filter) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ch:      make(chan Snapshot),
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	go s.run(ctx, sub, f)
	return sub
}
