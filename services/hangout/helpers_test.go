package hangout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	hangoutRepo "proxo/database/repository/hangout"
	"proxo/models"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// seed inserts a request created at createdAt lasting minutes.
func seed(t *testing.T, repo hangoutRepo.HangoutRepository, by, summary string, createdAt time.Time, minutes int) models.HangoutRequest {
	t.Helper()
	expires := createdAt.Add(time.Duration(minutes) * time.Minute)
	req := &models.HangoutRequest{
		Summary:         summary,
		DurationMinutes: minutes,
		Location:        "Bobst Library",
		CreatedBy:       by,
		CreatedAt:       &createdAt,
		ExpiresAt:       &expires,
		Status:          models.StatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	return *req
}

func next(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func summaries(reqs []models.HangoutRequest) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.Summary
	}
	return out
}

// flakyRepo fails selected operations on top of an in-memory repository.
type flakyRepo struct {
	*hangoutRepo.MemoryHangoutRepo
	watchErr  error
	updateErr error
	findErr   error
}

func (r *flakyRepo) Watch(ctx context.Context) (hangoutRepo.ChangeFeed, error) {
	if r.watchErr != nil {
		return nil, r.watchErr
	}
	return r.MemoryHangoutRepo.Watch(ctx)
}

func (r *flakyRepo) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) (bool, error) {
	if r.updateErr != nil {
		return false, r.updateErr
	}
	return r.MemoryHangoutRepo.UpdateStatus(ctx, id, from, to)
}

func (r *flakyRepo) Find(ctx context.Context, q hangoutRepo.Query) ([]models.HangoutRequest, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.MemoryHangoutRepo.Find(ctx, q)
}

var errBackend = errors.New("backend unavailable")
