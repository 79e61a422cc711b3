package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"proxo/models"
)

// PositionReport is what a client device sends after asking its own
// positioning hardware: either a position or a classified error. Timestamp is
// when the device took the fix, in milliseconds since the epoch.
type PositionReport struct {
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	AccuracyMeters float64  `json:"accuracy,omitempty"`
	Timestamp      int64    `json:"timestamp,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// ReportedPositioner replays a device report as a positioning capability.
type ReportedPositioner struct {
	report PositionReport
	now    func() time.Time
}

// NewReportedPositioner wraps a device report.
func NewReportedPositioner(report PositionReport) *ReportedPositioner {
	return &ReportedPositioner{report: report, now: time.Now}
}

func (p *ReportedPositioner) CurrentPosition(ctx context.Context, opts models.PositionOptions) (models.Position, error) {
	if p.report.Error != "" {
		kind, ok := ParsePositionErrorKind(p.report.Error)
		if !ok {
			kind = ErrKindPositionUnavailable
		}
		return models.Position{}, NewPositioningError(kind, errors.New(p.report.Error))
	}
	if p.report.Latitude == nil || p.report.Longitude == nil {
		return models.Position{}, NewPositioningError(ErrKindPositionUnavailable, errors.New("report carries no coordinates"))
	}

	now := p.now()
	taken := now
	if p.report.Timestamp > 0 {
		taken = time.UnixMilli(p.report.Timestamp)
		// A fix from a device clock slightly ahead of ours is treated as fresh.
		if taken.After(now) {
			taken = now
		}
	}
	if opts.MaxCacheAge > 0 && now.Sub(taken) > opts.MaxCacheAge {
		return models.Position{}, NewPositioningError(ErrKindPositionUnavailable,
			fmt.Errorf("reported fix is %s old, limit %s", now.Sub(taken).Round(time.Second), opts.MaxCacheAge))
	}

	return models.Position{
		Coordinates: models.Coordinates{
			Latitude:  *p.report.Latitude,
			Longitude: *p.report.Longitude,
		},
		AccuracyMeters: p.report.AccuracyMeters,
		Timestamp:      taken,
	}, nil
}

// CachedPositioner serves the last successful position while it is younger
// than the caller's MaxCacheAge.
type CachedPositioner struct {
	inner Positioner
	now   func() time.Time

	mu   sync.Mutex
	last *models.Position
}

// NewCachedPositioner wraps inner. now may be nil.
func NewCachedPositioner(inner Positioner, now func() time.Time) *CachedPositioner {
	if now == nil {
		now = time.Now
	}
	return &CachedPositioner{inner: inner, now: now}
}

func (p *CachedPositioner) CurrentPosition(ctx context.Context, opts models.PositionOptions) (models.Position, error) {
	p.mu.Lock()
	if p.last != nil && opts.MaxCacheAge > 0 && p.now().Sub(p.last.Timestamp) <= opts.MaxCacheAge {
		cached := *p.last
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	pos, err := p.inner.CurrentPosition(ctx, opts)
	if err != nil {
		return models.Position{}, err
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = p.now()
	}

	p.mu.Lock()
	p.last = &pos
	p.mu.Unlock()
	return pos, nil
}
