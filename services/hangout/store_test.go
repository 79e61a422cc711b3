package hangout

import (
	"context"
	"testing"
	"time"

	hangoutRepo "proxo/database/repository/hangout"
	"proxo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(repo hangoutRepo.HangoutRepository, c *clock) *Store {
	return NewStore(repo, StoreOptions{
		Now:           c.Now,
		RetryAttempts: 2,
		RetryBackoff:  time.Millisecond,
		Logger:        zap.NewNop(),
	})
}

func TestSnapshotFiltersAndOrders(t *testing.T) {
	repo := hangoutRepo.NewMemoryHangoutRepo()
	c := newClock(t0)
	seed(t, repo, "maya", "coffee", t0.Add(-10*time.Minute), 30)
	seed(t, repo, "maya", "frisbee", t0.Add(-5*time.Minute), 120)
	seed(t, repo, "jonah", "study group", t0.Add(-1*time.Minute), 60)
	seed(t, repo, "jonah", "stale", t0.Add(-2*time.Hour), 60)

	store := newTestStore(repo, c)

	own, err := store.Snapshot(context.Background(), Own("maya"))
	require.NoError(t, err)
	assert.Equal(t, []string{"frisbee", "coffee"}, summaries(own))

	others, err := store.Snapshot(context.Background(), Others("maya"))
	require.NoError(t, err)
	assert.Equal(t, []string{"study group"}, summaries(others))
}

func TestSnapshotTieBreaksOnCreatedAt(t *testing.T) {
	repo := hangoutRepo.NewMemoryHangoutRepo()
	c := newClock(t0)
	// Both expire at t0+60m.
	seed(t, repo, "a", "older", t0.Add(-30*time.Minute), 90)
	seed(t, repo, "b", "newer", t0, 60)

	reqs, err := newTestStore(repo, c).Snapshot(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"newer", "older"}, summaries(reqs))
}

func TestSnapshotExcludesPartialRecords(t *testing.T) {
	repo := hangoutRepo.NewMemoryHangoutRepo()
	c := newClock(t0)
	seed(t, repo, "maya", "complete", t0, 60)

	expires := t0.Add(time.Hour)
	require.NoError(t, repo.Create(context.Background(), &models.HangoutRequest{
		Summary: "no createdAt", CreatedBy: "maya", ExpiresAt: &expires, Status: models.StatusActive,
	}))
	require.NoError(t, repo.Create(context.Background(), &models.HangoutRequest{
		Summary: "no expiresAt", CreatedBy: "maya", CreatedAt: &t0, Status: models.StatusActive,
	}))

	reqs, err := newTestStore(repo, c).Snapshot(context.Background(), Own("maya"))
	require.NoError(t, err)
	assert.Equal(t, []string{"complete"}, summaries(reqs))
}

func TestSnapshotFailureWrapsSubscriptionError(t *testing.T) {
	repo := &flakyRepo{MemoryHangoutRepo: hangoutRepo.NewMemoryHangoutRepo(), findErr: errBackend}
	_, err := newTestStore(repo, newClock(t0)).Snapshot(context.Background(), Filter{})
	assert.ErrorIs(t, err, ErrSubscriptionFailed)
	assert.ErrorIs(t, err, errBackend)
}

func TestVisibleUntilExpiry(t *testing.T) {
	repo := hangoutRepo.NewMemoryHangoutRepo()
	c := newClock(t0)
	seed(t, repo, "maya", "pickup basketball", t0, 60)
	store := newTestStore(repo, c)

	c.Advance(59 * time.Minute)
	reqs, err := store.Snapshot(context.Background(), Others("jonah"))
	require.NoError(t, err)
	assert.Len(t, reqs, 1)

	c.Advance(2 * time.Minute)
	reqs, err = store.Snapshot(context.Background(), Others("jonah"))
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestSubscribeEmitsOnEveryChange(t *testing.T) {
	repo := hangoutRepo.NewMemoryHangoutRepo()
	c := newClock(t0)
	seed(t, repo, "maya", "coffee", t0, 30)

	sub := newTestStore(repo, c).Subscribe(context.Background(), Others("jonah"))
	defer sub.Unsubscribe()

	first := next(t, sub)
	require.NoError(t, first.Err)
	assert.Equal(t, []string{"coffee"}, summaries(first.Requests))

	seed(t, repo, "priya", "board games", t0, 120)
	second := next(t, sub)
	assert.Equal(t, []string{"board games", "coffee"}, summaries(second.Requests))
	assert.Greater(t, second.Seq, first.Seq)

	// Own requests of the viewer never show up in the others view.
	seed(t, repo, "jonah", "my own", t0, 240)
	third := next(t, sub)
	assert.Equal(t, []string{"board games", "coffee"}, summaries(third.Requests))
}

func TestSubscribeRefreshDropsExpired(t *testing.T) {
	repo := hangoutRepo.NewMemoryHangoutRepo()
	c := newClock(t0)
	seed(t, repo, "maya", "pickup basketball", t0, 60)

	sub := newTestStore(repo, c).Subscribe(context.Background(), Own("maya"))
	defer sub.Unsubscribe()
	assert.Len(t, next(t, sub).Requests, 1)

	c.Advance(59 * time.Minute)
	sub.Refresh()
	assert.Len(t, next(t, sub).Requests, 1)

	c.Advance(2 * time.Minute)
	sub.Refresh()
	assert.Empty(t, next(t, sub).Requests)
}

func TestUnsubscribeIsIdempotentAndFinal(t *testing.T) {
	repo := hangoutRepo.NewMemoryHangoutRepo()
	c := newClock(t0)
	sub := newTestStore(repo, c).Subscribe(context.Background(), Filter{})
	next(t, sub)

	sub.Unsubscribe()
	sub.Unsubscribe()

	seed(t, repo, "maya", "after unsubscribe", t0, 30)
	select {
	case snap, ok := <-sub.C():
		assert.False(t, ok, "received %+v after unsubscribe", snap)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := newTestStore(hangoutRepo.NewMemoryHangoutRepo(), newClock(t0)).Subscribe(ctx, Filter{})
	next(t, sub)
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop")
	}
	sub.Unsubscribe()
}

func TestSubscriptionReconnects(t *testing.T) {
	repo := hangoutRepo.NewMemoryHangoutRepo()
	c := newClock(t0)
	seed(t, repo, "maya", "coffee", t0, 30)

	sub := newTestStore(repo, c).Subscribe(context.Background(), Filter{})
	defer sub.Unsubscribe()
	next(t, sub)

	repo.DropWatchers()
	resumed := next(t, sub)
	require.NoError(t, resumed.Err)
	assert.Equal(t, []string{"coffee"}, summaries(resumed.Requests))

	seed(t, repo, "priya", "board games", t0, 120)
	assert.Len(t, next(t, sub).Requests, 2)
}

func TestSubscriptionGivesUp(t *testing.T) {
	repo := &flakyRepo{MemoryHangoutRepo: hangoutRepo.NewMemoryHangoutRepo(), watchErr: errBackend}
	sub := newTestStore(repo, newClock(t0)).Subscribe(context.Background(), Filter{})

	snap := next(t, sub)
	assert.ErrorIs(t, snap.Err, ErrSubscriptionFailed)
	assert.ErrorIs(t, snap.Err, errBackend)
	assert.Nil(t, snap.Requests)

	_, ok := <-sub.C()
	assert.False(t, ok)
	sub.Unsubscribe()
}
