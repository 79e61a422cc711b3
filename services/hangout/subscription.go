package hangout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"proxo/models"

	"go.uber.org/zap"
)

var errFeedEnded = errors.New("change feed ended")

// Snapshot is one complete, ordered emission. Err is set only on the last
// Snapshot of a subscription that gave up reconnecting.
type Snapshot struct {
	Seq      uint64
	Requests []models.HangoutRequest
	Err      error
}

// Subscription is an owned handle on a live view. Snapshots arrive on C in
// the order the store produced them.
type Subscription struct {
	ch      chan Snapshot
	refresh chan struct{}
	done    chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
	seq     uint64
}

// C returns the snapshot channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Snapshot {
	return s.ch
}

// Refresh asks for a fresh emission without a repository change, so requests
// that expired since the last one drop out.
func (s *Subscription) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Unsubscribe stops the subscription and waits for its goroutine to exit.
// Nothing is delivered on C after it returns. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the subscription has fully stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Store) run(ctx context.Context, sub *Subscription, f Filter) {
	defer close(sub.done)
	defer close(sub.ch)

	failures := 0
	for {
		established, err := s.stream(ctx, sub, f)
		if ctx.Err() != nil {
			return
		}
		if established {
			failures = 0
		}
		failures++
		if failures > s.retryAttempts {
			s.logger.Error("hangout: subscription failed, giving up",
				zap.Int("attempts", failures), zap.Error(err))
			s.emit(ctx, sub, Snapshot{Err: fmt.Errorf("%w: %w", ErrSubscriptionFailed, err)})
			return
		}

		wait := s.retryBackoff * time.Duration(failures)
		s.logger.Warn("hangout: subscription interrupted, reconnecting",
			zap.Int("attempt", failures), zap.Duration("backoff", wait), zap.Error(err))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

// stream opens a change feed, emits the current state, then re-emits on every
// notification. The feed is opened before the initial read so no change can
// fall between the two. established reports whether the initial emission was made.
func (s *Store) stream(ctx context.Context, sub *Subscription, f Filter) (established bool, err error) {
	feed, err := s.repo.Watch(ctx)
	if err != nil {
		return false, fmt.Errorf("open change feed: %w", err)
	}

	watchCtx, stop := context.WithCancel(ctx)
	notes := make(chan struct{})
	var feedErr error
	go func() {
		defer close(notes)
		for feed.Next(watchCtx) {
			select {
			case notes <- struct{}{}:
			case <-watchCtx.Done():
				return
			}
		}
		feedErr = feed.Err()
	}()
	defer func() {
		stop()
		for range notes {
		}
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := feed.Close(closeCtx); cerr != nil {
			s.logger.Debug("hangout: closing change feed", zap.Error(cerr))
		}
	}()

	if err := s.emitCurrent(ctx, sub, f); err != nil {
		return false, err
	}
	established = true

	for {
		select {
		case <-ctx.Done():
			return true, nil
		case _, ok := <-notes:
			if !ok {
				if ctx.Err() != nil {
					return true, nil
				}
				if feedErr == nil {
					feedErr = errFeedEnded
				}
				return true, fmt.Errorf("change feed: %w", feedErr)
			}
		case <-sub.refresh:
		}
		if err := s.emitCurrent(ctx, sub, f); err != nil {
			return true, err
		}
	}
}

func (s *Store) emitCurrent(ctx context.Context, sub *Subscription, f Filter) error {
	reqs, err := s.load(ctx, f)
	if err != nil {
		return fmt.Errorf("query requests: %w", err)
	}
	s.emit(ctx, sub, Snapshot{Requests: reqs})
	return nil
}

// emit delivers snap unless the subscription is cancelled first.
func (s *Store) emit(ctx context.Context, sub *Subscription, snap Snapshot) bool {
	sub.seq++
	snap.Seq = sub.seq
	select {
	case sub.ch <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
