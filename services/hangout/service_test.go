package hangout

import (
	"context"
	"errors"
	"testing"
	"time"

	hangoutRepo "proxo/database/repository/hangout"
	"proxo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateStampsServerTimes(t *testing.T) {
	repo := hangoutRepo.NewMemoryHangoutRepo()
	c := newClock(t0)
	svc := NewHangoutService(repo, c.Now, zap.NewNop())

	req, err := svc.Create(context.Background(), "maya", models.CreateHangoutInput{
		Summary:         "  pickup basketball ",
		DurationMinutes: 60,
		Location:        "Coles Gym",
		Coordinates:     &models.Coordinates{Latitude: 40.7281, Longitude: -73.9973},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "pickup basketball", req.Summary)
	assert.Equal(t, "maya", req.CreatedBy)
	assert.Equal(t, models.StatusActive, req.Status)
	require.NotNil(t, req.CreatedAt)
	require.NotNil(t, req.ExpiresAt)
	assert.Equal(t, t0, *req.CreatedAt)
	assert.Equal(t, t0.Add(time.Hour), *req.ExpiresAt)

	stored, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.Summary, stored.Summary)
}

func TestCreateNumericLocationFallback(t *testing.T) {
	svc := NewHangoutService(hangoutRepo.NewMemoryHangoutRepo(), newClock(t0).Now, zap.NewNop())
	req, err := svc.Create(context.Background(), "maya", models.CreateHangoutInput{
		Summary:         "coffee",
		DurationMinutes: 30,
		Coordinates:     &models.Coordinates{Latitude: 40.7295, Longitude: -73.9965},
	})
	require.NoError(t, err)
	assert.Equal(t, "40.729500, -73.996500", req.Location)
}

func TestCreateValidation(t *testing.T) {
	svc := NewHangoutService(hangoutRepo.NewMemoryHangoutRepo(), newClock(t0).Now, zap.NewNop())
	valid := models.CreateHangoutInput{Summary: "coffee", DurationMinutes: 30, Location: "Think Coffee"}

	tests := []struct {
		name  string
		actor string
		edit  func(*models.CreateHangoutInput)
		field string
	}{
		{"blank summary", "maya", func(in *models.CreateHangoutInput) { in.Summary = "   " }, "summary"},
		{"odd duration", "maya", func(in *models.CreateHangoutInput) { in.DurationMinutes = 45 }, "durationMinutes"},
		{"no location", "maya", func(in *models.CreateHangoutInput) { in.Location = "" }, "location"},
		{"bad coordinates", "maya", func(in *models.CreateHangoutInput) {
			in.Coordinates = &models.Coordinates{Latitude: 91}
		}, "coordinates"},
		{"no actor", "", func(in *models.CreateHangoutInput) {}, "createdBy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.edit(&in)
			_, err := svc.Create(context.Background(), tt.actor, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCreateWriteFailure(t *testing.T) {
	repo := &failingCreateRepo{MemoryHangoutRepo: hangoutRepo.NewMemoryHangoutRepo()}
	svc := NewHangoutService(repo, newClock(t0).Now, zap.NewNop())
	_, err := svc.Create(context.Background(), "maya", models.CreateHangoutInput{Summary: "x", DurationMinutes: 15, Location: "y"})
	assert.ErrorIs(t, err, ErrWriteFailed)
}

type failingCreateRepo struct {
	*hangoutRepo.MemoryHangoutRepo
}

func (r *failingCreateRepo) Create(ctx context.Context, req *models.HangoutRequest) error {
	return errBackend
}

type recordingScheduler struct {
	scheduled []string
	err       error
}

func (s *recordingScheduler) Schedule(ctx context.Context, req *models.HangoutRequest) error {
	s.scheduled = append(s.scheduled, req.ID)
	return s.err
}

func TestCreateSchedulesExpiry(t *testing.T) {
	svc := NewHangoutService(hangoutRepo.NewMemoryHangoutRepo(), newClock(t0).Now, zap.NewNop())
	sched := &recordingScheduler{}
	svc.Expiry = sched

	req, err := svc.Create(context.Background(), "maya", models.CreateHangoutInput{
		Summary: "coffee", DurationMinutes: 30, Location: "Think Coffee",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{req.ID}, sched.scheduled)
}

func TestCreateSucceedsWhenSchedulingFails(t *testing.T) {
	svc := NewHangoutService(hangoutRepo.NewMemoryHangoutRepo(), newClock(t0).Now, zap.NewNop())
	svc.Expiry = &recordingScheduler{err: errors.New("queue down")}

	req, err := svc.Create(context.Background(), "maya", models.CreateHangoutInput{
		Summary: "coffee", DurationMinutes: 30, Location: "Think Coffee",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
}
