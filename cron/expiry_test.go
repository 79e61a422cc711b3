package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"proxo/models"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingAnnouncer struct {
	ids []string
	err error
}

func (a *recordingAnnouncer) Announce(ctx context.Context, id string) error {
	a.ids = append(a.ids, id)
	return a.err
}

func TestNewExpiryTask(t *testing.T) {
	at := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	task, err := NewExpiryTask(&models.HangoutRequest{ID: "r1", ExpiresAt: &at})
	require.NoError(t, err)
	assert.Equal(t, TypeHangoutExpired, task.Type())
	assert.JSONEq(t, `{"id":"r1","expiresAt":"2024-05-01T18:00:00Z"}`, string(task.Payload()))

	_, err = NewExpiryTask(&models.HangoutRequest{ID: "r2"})
	assert.Error(t, err)
	_, err = NewExpiryTask(nil)
	assert.Error(t, err)
}

func TestHandleExpiryTaskAnnounces(t *testing.T) {
	at := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	task, err := NewExpiryTask(&models.HangoutRequest{ID: "r1", ExpiresAt: &at})
	require.NoError(t, err)

	a := &recordingAnnouncer{}
	require.NoError(t, handleExpiryTask(a, zap.NewNop())(context.Background(), task))
	assert.Equal(t, []string{"r1"}, a.ids)
}

func TestHandleExpiryTaskRetriesOnPublishFailure(t *testing.T) {
	at := time.Now()
	task, err := NewExpiryTask(&models.HangoutRequest{ID: "r1", ExpiresAt: &at})
	require.NoError(t, err)

	a := &recordingAnnouncer{err: errors.New("redis down")}
	err = handleExpiryTask(a, zap.NewNop())(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleExpiryTaskSkipsBadPayload(t *testing.T) {
	a := &recordingAnnouncer{}
	handler := handleExpiryTask(a, zap.NewNop())

	err := handler(context.Background(), asynq.NewTask(TypeHangoutExpired, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = handler(context.Background(), asynq.NewTask(TypeHangoutExpired, []byte(`{"id":""}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, a.ids)
}
