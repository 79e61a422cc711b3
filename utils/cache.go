// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"proxo/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient is the generic cache client (geocoding results).
	CacheClient *redis.Client
	// FeedClient carries hangout change notifications when CHANGE_FEED=redis.
	FeedClient *redis.Client
)

func newRedisClient(db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
}

// InitCache initializes the generic Redis cache client.
func InitCache() {
	CacheClient = newRedisClient(config.AppConfig.RedisCacheDB)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := CacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Cache): %v", err)
	}
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// InitFeedClient initializes the Redis client used for change broadcasts.
func InitFeedClient() {
	FeedClient = newRedisClient(config.AppConfig.RedisFeedDB)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := FeedClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Feed): %v", err)
	}
}

// GetFeedClient returns the Redis client used for change broadcasts.
func GetFeedClient() *redis.Client {
	if FeedClient == nil {
		InitFeedClient()
	}
	return FeedClient
}
