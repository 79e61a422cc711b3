package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"proxo/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeHangoutExpired = "hangout:expired"

// ExpiryPayload identifies the request whose expiry time has been reached.
type ExpiryPayload struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Announcer pushes a change notification to live subscribers.
type Announcer interface {
	Announce(ctx context.Context, id string) error
}

// ExpiryScheduler enqueues a delayed task that fires when a request expires.
// Nothing is written when it fires; subscribers simply re-query.
type ExpiryScheduler struct {
	client *asynq.Client
	logger *zap.Logger
}

func NewExpiryScheduler(opt asynq.RedisClientOpt, logger *zap.Logger) *ExpiryScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryScheduler{client: asynq.NewClient(opt), logger: logger}
}

// NewExpiryTask builds the task for req. Requests without an expiry are rejected.
func NewExpiryTask(req *models.HangoutRequest) (*asynq.Task, error) {
	if req == nil || req.ID == "" || req.ExpiresAt == nil {
		return nil, errors.New("request has no id or expiry")
	}
	payload, err := json.Marshal(ExpiryPayload{ID: req.ID, ExpiresAt: *req.ExpiresAt})
	if err != nil {
		return nil, fmt.Errorf("failed to encode expiry payload: %w", err)
	}
	return asynq.NewTask(TypeHangoutExpired, payload), nil
}

// Schedule enqueues the expiry task for req at its ExpiresAt.
func (s *ExpiryScheduler) Schedule(ctx context.Context, req *models.HangoutRequest) error {
	task, err := NewExpiryTask(req)
	if err != nil {
		return err
	}
	info, err := s.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(*req.ExpiresAt),
		asynq.TaskID("expire:"+req.ID),
		asynq.MaxRetry(3),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue expiry for %s: %w", req.ID, err)
	}
	s.logger.Debug("cron: expiry scheduled",
		zap.String("id", req.ID), zap.String("taskID", info.ID), zap.Time("at", *req.ExpiresAt))
	return nil
}

func (s *ExpiryScheduler) Close() error {
	return s.client.Close()
}

// StartExpiryWorker runs the asynq server that announces expiries. The returned
// server must be shut down by the caller.
func StartExpiryWorker(opt asynq.RedisClientOpt, announcer Announcer, logger *zap.Logger) (*asynq.Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{"default": 1},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeHangoutExpired, handleExpiryTask(announcer, logger))

	const maxAttempts = 5
	var err error
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = srv.Start(mux); err == nil {
			logger.Info("cron: expiry worker started")
			return srv, nil
		}
		logger.Warn("cron: failed to start expiry worker",
			zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
		time.Sleep(time.Duration(attempts) * time.Second)
	}
	return nil, fmt.Errorf("expiry worker did not start: %w", err)
}

func handleExpiryTask(announcer Announcer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p ExpiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("cron: invalid expiry payload", zap.Error(err))
			return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
		}
		if p.ID == "" {
			return fmt.Errorf("payload has no id: %w", asynq.SkipRetry)
		}

		if err := announcer.Announce(ctx, p.ID); err != nil {
			logger.Warn("cron: failed to announce expiry", zap.String("id", p.ID), zap.Error(err))
			return err
		}
		logger.Info("cron: request expired", zap.String("id", p.ID), zap.Time("expiresAt", p.ExpiresAt))
		return nil
	}
}
