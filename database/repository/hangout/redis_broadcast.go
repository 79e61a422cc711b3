package hangoutRepo

import (
	"context"
	"fmt"
	"sync"

	"proxo/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// DefaultBroadcastChannel is the pub/sub channel carrying hangout write notifications.
const DefaultBroadcastChannel = "hangouts:changes"

// RedisBroadcastRepo decorates a repository so that every successful write is
// announced on a Redis channel, and serves Watch from that channel. It lets
// live subscriptions run against a MongoDB deployment without change streams.
type RedisBroadcastRepo struct {
	HangoutRepository
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisBroadcastRepo wraps inner with Redis pub/sub change notification.
func NewRedisBroadcastRepo(inner HangoutRepository, client *redis.Client, channel string, logger *zap.Logger) *RedisBroadcastRepo {
	if channel == "" {
		channel = DefaultBroadcastChannel
	}
	return &RedisBroadcastRepo{
		HangoutRepository: inner,
		client:            client,
		channel:           channel,
		logger:            logger,
	}
}

func (r *RedisBroadcastRepo) Create(ctx context.Context, req *models.HangoutRequest) error {
	if err := r.HangoutRepository.Create(ctx, req); err != nil {
		return err
	}
	r.publish(ctx, req.ID)
	return nil
}

func (r *RedisBroadcastRepo) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) (bool, error) {
	updated, err := r.HangoutRepository.UpdateStatus(ctx, id, from, to)
	if err != nil || !updated {
		return updated, err
	}
	r.publish(ctx, id)
	return true, nil
}

// Announce publishes a change for id without a write. Subscribers re-query and
// drop requests whose expiry has passed.
func (r *RedisBroadcastRepo) Announce(ctx context.Context, id string) error {
	if err := r.client.Publish(ctx, r.channel, id).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.channel, err)
	}
	return nil
}

// publish failures are logged, not returned: the write itself is committed.
func (r *RedisBroadcastRepo) publish(ctx context.Context, id string) {
	if err := r.client.Publish(ctx, r.channel, id).Err(); err != nil {
		r.logger.Warn("hangoutRepo: failed to publish change",
			zap.String("channel", r.channel), zap.String("id", id), zap.Error(err))
	}
}

func (r *RedisBroadcastRepo) Watch(ctx context.Context) (ChangeFeed, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	// Wait for the subscription confirmation so no publish after Watch returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	return &redisFeed{pubsub: pubsub, messages: pubsub.Channel()}, nil
}

// redisFeed reads notifications from the pub/sub channel so that Next can
// return as soon as ctx is done, with or without a pending message.
type redisFeed struct {
	pubsub   *redis.PubSub
	messages <-chan *redis.Message
	mu       sync.Mutex
	err      error
}

func (f *redisFeed) Next(ctx context.Context) bool {
	select {
	case _, ok := <-f.messages:
		if !ok {
			f.setErr(ErrFeedClosed)
			return false
		}
		return true
	case <-ctx.Done():
		f.setErr(ctx.Err())
		return false
	}
}

func (f *redisFeed) setErr(err error) {
	f.mu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.mu.Unlock()
}

func (f *redisFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *redisFeed) Close(ctx context.Context) error {
	return f.pubsub.Close()
}
