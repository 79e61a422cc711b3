package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"proxo/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const geocodeCacheKeyPrefix = "geocode:"

// CachedGeocoder keeps reverse lookups and place searches in Redis.
// Cache errors are logged and fall through to the wrapped geocoder.
type CachedGeocoder struct {
	inner  Geocoder
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedGeocoder wraps inner with a Redis cache.
func NewCachedGeocoder(inner Geocoder, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, client: client, ttl: ttl, logger: logger}
}

func reverseKey(lat, lng float64) string {
	return fmt.Sprintf("%srev:%.6f,%.6f", geocodeCacheKeyPrefix, lat, lng)
}

func searchKey(query string) string {
	return geocodeCacheKeyPrefix + "search:" + strings.ToLower(strings.TrimSpace(query))
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	key := reverseKey(lat, lng)
	cached, err := c.client.Get(ctx, key).Result()
	if err == nil && cached != "" {
		return cached, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("geo: geocode cache read failed", zap.String("key", key), zap.Error(err))
	}

	address, err := c.inner.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return "", err
	}
	if err := c.client.Set(ctx, key, address, c.ttl).Err(); err != nil {
		c.logger.Warn("geo: geocode cache write failed", zap.String("key", key), zap.Error(err))
	}
	return address, nil
}

func (c *CachedGeocoder) TextSearch(ctx context.Context, query string) ([]models.Place, error) {
	key := searchKey(query)
	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var places []models.Place
		if err := json.Unmarshal(data, &places); err == nil {
			return places, nil
		}
	}

	places, err := c.inner.TextSearch(ctx, query)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(places); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("geo: search cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return places, nil
}
