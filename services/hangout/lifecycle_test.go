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

func TestStateOf(t *testing.T) {
	expires := t0.Add(time.Hour)
	active := models.HangoutRequest{Status: models.StatusActive, CreatedAt: &t0, ExpiresAt: &expires}
	cancelled := active
	cancelled.Status = models.StatusCancelled
	partial := models.HangoutRequest{Status: models.StatusActive, CreatedAt: &t0}

	tests := []struct {
		name string
		req  models.HangoutRequest
		now  time.Time
		want models.RequestState
	}{
		{"active before expiry", active, t0.Add(59 * time.Minute), models.StateActive},
		{"expired at expiry", active, expires, models.StateExpired},
		{"expired after", active, t0.Add(61 * time.Minute), models.StateExpired},
		{"cancelled", cancelled, t0, models.StateCancelled},
		{"cancelled after expiry stays cancelled", cancelled, t0.Add(2 * time.Hour), models.StateCancelled},
		{"missing expiry", partial, t0, models.StateExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateOf(tt.req, tt.now))
		})
	}
}

func TestCancelRemovesFromViews(t *testing.T) {
	repo := hangoutRepo.NewMemoryHangoutRepo()
	c := newClock(t0)
	req := seed(t, repo, "maya", "coffee", t0, 30)
	seed(t, repo, "maya", "frisbee", t0, 60)

	store := newTestStore(repo, c)
	own := store.Subscribe(context.Background(), Own("maya"))
	defer own.Unsubscribe()
	nearby := store.Subscribe(context.Background(), Others("jonah"))
	defer nearby.Unsubscribe()
	assert.Len(t, next(t, own).Requests, 2)
	assert.Len(t, next(t, nearby).Requests, 2)

	lc := NewLifecycle(repo, c.Now, zap.NewNop())
	require.NoError(t, lc.Cancel(context.Background(), req.ID, "maya"))

	assert.Equal(t, []string{"frisbee"}, summaries(next(t, own).Requests))
	assert.Equal(t, []string{"frisbee"}, summaries(next(t, nearby).Requests))

	// Second cancel is a no-op and writes nothing.
	require.NoError(t, lc.Cancel(context.Background(), req.ID, "maya"))
	select {
	case snap := <-own.C():
		t.Fatalf("unexpected emission after no-op cancel: %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}

	stored, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
}

func TestCancelErrors(t *testing.T) {
	repo := hangoutRepo.NewMemoryHangoutRepo()
	c := newClock(t0)
	req := seed(t, repo, "maya", "coffee", t0, 30)
	lc := NewLifecycle(repo, c.Now, zap.NewNop())

	err := lc.Cancel(context.Background(), "missing", "maya")
	assert.ErrorIs(t, err, ErrRequestNotFound)

	err = lc.Cancel(context.Background(), req.ID, "jonah")
	assert.ErrorIs(t, err, ErrNotOwner)

	c.Advance(31 * time.Minute)
	err = lc.Cancel(context.Background(), req.ID, "maya")
	assert.ErrorIs(t, err, ErrRequestExpired)

	stored, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
}

func TestCancelWriteFailure(t *testing.T) {
	repo := &flakyRepo{MemoryHangoutRepo: hangoutRepo.NewMemoryHangoutRepo(), updateErr: errBackend}
	c := newClock(t0)
	req := seed(t, repo, "maya", "coffee", t0, 30)

	err := NewLifecycle(repo, c.Now, zap.NewNop()).Cancel(context.Background(), req.ID, "maya")
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, errBackend)

	stored, _ := repo.GetByID(context.Background(), req.ID)
	assert.Equal(t, models.StatusActive, stored.Status)
}

// racingRepo cancels the request itself just before the conditional write lands.
type racingRepo struct {
	*hangoutRepo.MemoryHangoutRepo
}

func (r *racingRepo) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) (bool, error) {
	if _, err := r.MemoryHangoutRepo.UpdateStatus(ctx, id, from, to); err != nil {
		return false, err
	}
	return r.MemoryHangoutRepo.UpdateStatus(ctx, id, from, to)
}

func TestCancelLosingRaceIsNoOp(t *testing.T) {
	repo := &racingRepo{MemoryHangoutRepo: hangoutRepo.NewMemoryHangoutRepo()}
	c := newClock(t0)
	req := seed(t, repo, "maya", "coffee", t0, 30)

	require.NoError(t, NewLifecycle(repo, c.Now, zap.NewNop()).Cancel(context.Background(), req.ID, "maya"))
}
