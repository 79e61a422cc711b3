package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"proxo/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	defaultIPLookupURL = "https://ipapi.co"
	// ipAccuracyMeters is a rough city-level radius for IP-derived positions.
	ipAccuracyMeters = 5000
	ipCacheKeyPrefix = "geoip:"
)

// ipLocation is the subset of the ipapi.co response we use.
type ipLocation struct {
	IP        string  `json:"ip"`
	City      string  `json:"city"`
	Country   string  `json:"country_name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Error     bool    `json:"error"`
	Reason    string  `json:"reason"`
}

// IPLocator derives a coarse position from a client IP address.
type IPLocator struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	now     func() time.Time

	// cache holds lookups keyed by IP address for ttl. Nil disables caching.
	cache *redis.Client
	ttl   time.Duration
}

// NewIPLocator creates a locator. An empty baseURL uses ipapi.co. cache may be nil.
func NewIPLocator(baseURL string, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *IPLocator {
	if baseURL == "" {
		baseURL = defaultIPLookupURL
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IPLocator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
		now:     time.Now,
		cache:   cache,
		ttl:     ttl,
	}
}

func ipCacheKey(ip string) string {
	return ipCacheKeyPrefix + ip
}

func (l *IPLocator) cached(ctx context.Context, ip string) (models.Position, bool) {
	if l.cache == nil {
		return models.Position{}, false
	}
	data, err := l.cache.Get(ctx, ipCacheKey(ip)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.logger.Warn("geo: ip cache read failed", zap.String("ip", ip), zap.Error(err))
		}
		return models.Position{}, false
	}
	var pos models.Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return models.Position{}, false
	}
	return pos, true
}

func (l *IPLocator) store(ctx context.Context, ip string, pos models.Position) {
	if l.cache == nil {
		return
	}
	data, err := json.Marshal(pos)
	if err != nil {
		return
	}
	if err := l.cache.Set(ctx, ipCacheKey(ip), data, l.ttl).Err(); err != nil {
		l.logger.Warn("geo: ip cache write failed", zap.String("ip", ip), zap.Error(err))
	}
}

// isTimeout reports whether err is a deadline, including the client's own timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isPrivateIP checks if an IP is private or loopback.
func isPrivateIP(ip string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}
	return parsedIP.IsLoopback() || parsedIP.IsPrivate() || parsedIP.IsLinkLocalUnicast()
}

// Locate returns the position of ip. Private, loopback and unknown addresses
// are reported as position_unavailable.
func (l *IPLocator) Locate(ctx context.Context, ip string) (models.Position, error) {
	if ip == "" || net.ParseIP(ip) == nil {
		return models.Position{}, NewPositioningError(ErrKindPositionUnavailable, fmt.Errorf("invalid client ip %q", ip))
	}
	if isPrivateIP(ip) {
		l.logger.Debug("geo: client ip is private; cannot locate", zap.String("ip", ip))
		return models.Position{}, NewPositioningError(ErrKindPositionUnavailable, errors.New("private client ip"))
	}

	if pos, ok := l.cached(ctx, ip); ok {
		return pos, nil
	}

	url := fmt.Sprintf("%s/%s/json/", l.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Position{}, NewPositioningError(ErrKindPositionUnavailable, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.Error("geo: failed to query ip geolocation API", zap.String("ip", ip), zap.Error(err))
		if isTimeout(err) {
			return models.Position{}, NewPositioningError(ErrKindTimeout, err)
		}
		return models.Position{}, NewPositioningError(ErrKindPositionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Error("geo: ip geolocation API returned non-OK status", zap.String("ip", ip), zap.Int("status", resp.StatusCode))
		return models.Position{}, NewPositioningError(ErrKindPositionUnavailable, fmt.Errorf("status %d", resp.StatusCode))
	}

	var loc ipLocation
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return models.Position{}, NewPositioningError(ErrKindPositionUnavailable, err)
	}
	if loc.Error {
		return models.Position{}, NewPositioningError(ErrKindPositionUnavailable, errors.New(loc.Reason))
	}

	pos := models.Position{
		Coordinates:    models.Coordinates{Latitude: loc.Latitude, Longitude: loc.Longitude},
		AccuracyMeters: ipAccuracyMeters,
		Timestamp:      l.now(),
	}

	l.store(ctx, ip, pos)

	l.logger.Info("geo: ip located", zap.String("ip", ip), zap.String("city", loc.City), zap.String("country", loc.Country))
	return pos, nil
}

// ForIP returns a Positioner that always locates ip.
func (l *IPLocator) ForIP(ip string) Positioner {
	return PositionerFunc(func(ctx context.Context, _ models.PositionOptions) (models.Position, error) {
		return l.Locate(ctx, ip)
	})
}
