package geo

import (
	"context"
	"testing"
	"time"

	"proxo/models"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCachedGeocoderFallsThroughWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	inner := &fakeGeocoder{address: "Bobst Library", places: []models.Place{{Name: "Bobst"}}}
	c := NewCachedGeocoder(inner, client, time.Hour, zap.NewNop())

	addr, err := c.ReverseGeocode(context.Background(), 40.7295, -73.9972)
	require.NoError(t, err)
	assert.Equal(t, "Bobst Library", addr)

	places, err := c.TextSearch(context.Background(), "bobst")
	require.NoError(t, err)
	assert.Len(t, places, 1)
	assert.Equal(t, 1, inner.searches)
}

func TestGeocodeCacheKeys(t *testing.T) {
	assert.Equal(t, "geocode:rev:40.729500,-73.997200", reverseKey(40.7295, -73.9972))
	assert.Equal(t, "geocode:search:bobst library", searchKey("  Bobst Library "))
}
