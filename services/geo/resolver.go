package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"proxo/models"

	"go.uber.org/zap"
)

const (
	// MinSearchLength is the shortest query sent to place search.
	MinSearchLength = 3
	// MaxSearchResults caps place search results.
	MaxSearchResults = 5

	defaultLookupTimeout = 5 * time.Second
)

// Positioner is a positioning capability: something that can report where the viewer is.
type Positioner interface {
	CurrentPosition(ctx context.Context, opts models.PositionOptions) (models.Position, error)
}

// PositionerFunc adapts a function to Positioner.
type PositionerFunc func(ctx context.Context, opts models.PositionOptions) (models.Position, error)

func (f PositionerFunc) CurrentPosition(ctx context.Context, opts models.PositionOptions) (models.Position, error) {
	return f(ctx, opts)
}

// Geocoder is the places/geocoding capability.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
	TextSearch(ctx context.Context, query string) ([]models.Place, error)
}

// AvailabilityFunc reports whether the geocoder can currently be used.
type AvailabilityFunc func() bool

// Resolver turns raw positions into displayable location fixes.
type Resolver struct {
	geocoder      Geocoder
	available     AvailabilityFunc
	lookupTimeout time.Duration
	logger        *zap.Logger
}

// NewResolver creates a Resolver. A nil geocoder or an availability check
// returning false makes every fix use the numeric fallback.
func NewResolver(geocoder Geocoder, available AvailabilityFunc, lookupTimeout time.Duration, logger *zap.Logger) *Resolver {
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		geocoder:      geocoder,
		available:     available,
		lookupTimeout: lookupTimeout,
		logger:        logger,
	}
}

// FormatCoordinates is the display address used when reverse lookup is not possible.
func FormatCoordinates(lat, lng float64) string {
	return fmt.Sprintf("%.6f, %.6f", lat, lng)
}

func (r *Resolver) geocoderReady() bool {
	if r.geocoder == nil {
		return false
	}
	return r.available == nil || r.available()
}

// Resolve builds a fix for coords. It never fails: any lookup problem degrades
// to the numeric display address, and the lookup is bounded by the resolver timeout.
func (r *Resolver) Resolve(ctx context.Context, coords models.Coordinates, accuracyMeters float64) models.UserLocationFix {
	fix := models.UserLocationFix{
		Latitude:       coords.Latitude,
		Longitude:      coords.Longitude,
		AccuracyMeters: accuracyMeters,
		DisplayAddress: FormatCoordinates(coords.Latitude, coords.Longitude),
	}
	if !r.geocoderReady() {
		r.logger.Debug("geo: geocoder unavailable, using coordinates")
		return fix
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()
	address, err := await(lookupCtx, func(ctx context.Context) (string, error) {
		return r.geocoder.ReverseGeocode(ctx, coords.Latitude, coords.Longitude)
	})
	if err != nil || strings.TrimSpace(address) == "" {
		r.logger.Warn("geo: reverse geocoding failed, using coordinates",
			zap.Float64("lat", coords.Latitude), zap.Float64("lng", coords.Longitude), zap.Error(err))
		return fix
	}

	fix.DisplayAddress = address
	fix.Geocoded = true
	return fix
}

// Acquire asks p for the current position and resolves it. Positioning problems
// are returned as *PositioningError; a timeout is enforced even if p ignores ctx.
func (r *Resolver) Acquire(ctx context.Context, p Positioner, opts models.PositionOptions) (models.UserLocationFix, error) {
	if p == nil {
		return models.UserLocationFix{}, NewPositioningError(ErrKindUnsupported, nil)
	}

	posCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		posCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	pos, err := await(posCtx, func(ctx context.Context) (models.Position, error) {
		return p.CurrentPosition(ctx, opts)
	})
	if err != nil {
		// The caller going away is not a positioning failure.
		if ctx.Err() != nil {
			return models.UserLocationFix{}, ctx.Err()
		}
		return models.UserLocationFix{}, classify(err)
	}
	if !pos.Coordinates.Valid() {
		return models.UserLocationFix{}, NewPositioningError(ErrKindPositionUnavailable,
			fmt.Errorf("invalid coordinates %v", pos.Coordinates))
	}

	r.logger.Debug("geo: position acquired", zap.Float64("accuracy", pos.AccuracyMeters))
	return r.Resolve(ctx, pos.Coordinates, pos.AccuracyMeters), nil
}

// SearchPlaces runs a text search. Queries shorter than MinSearchLength and an
// unavailable geocoder both yield no results.
func (r *Resolver) SearchPlaces(ctx context.Context, query string) ([]models.Place, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchLength || !r.geocoderReady() {
		return []models.Place{}, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()
	places, err := await(lookupCtx, func(ctx context.Context) ([]models.Place, error) {
		return r.geocoder.TextSearch(ctx, query)
	})
	if err != nil {
		if errors.Is(err, ErrNoResults) {
			return []models.Place{}, nil
		}
		return nil, fmt.Errorf("place search %q: %w", query, err)
	}
	if len(places) > MaxSearchResults {
		places = places[:MaxSearchResults]
	}
	return places, nil
}

func classify(err error) *PositioningError {
	if pe, ok := AsPositioningError(err); ok {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewPositioningError(ErrKindTimeout, err)
	}
	return NewPositioningError(ErrKindPositionUnavailable, err)
}

type outcome[T any] struct {
	value T
	err   error
}

// await runs fn in its own goroutine and stops waiting when ctx is done, so a
// collaborator that ignores ctx cannot stall the caller.
func await[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	ch := make(chan outcome[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome[T]{value: v, err: err}
	}()
	select {
	case o := <-ch:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
