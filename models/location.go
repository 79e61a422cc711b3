// File: models/location.go
package models

import "time"

// PositionOptions mirrors the knobs a positioning capability accepts.
type PositionOptions struct {
	HighAccuracy bool          `json:"highAccuracy"`
	Timeout      time.Duration `json:"timeout"`
	MaxCacheAge  time.Duration `json:"maxCacheAge"`
}

// DevicePositionOptions is the form a device positioning API takes the options in.
type DevicePositionOptions struct {
	EnableHighAccuracy bool  `json:"enableHighAccuracy"`
	TimeoutMs          int64 `json:"timeoutMs"`
	MaxCacheAgeMs      int64 `json:"maxCacheAgeMs"`
}

// Device converts o for sending to a client device.
func (o PositionOptions) Device() DevicePositionOptions {
	return DevicePositionOptions{
		EnableHighAccuracy: o.HighAccuracy,
		TimeoutMs:          o.Timeout.Milliseconds(),
		MaxCacheAgeMs:      o.MaxCacheAge.Milliseconds(),
	}
}

// Position is a raw fix returned by a positioning capability.
type Position struct {
	Coordinates    Coordinates `json:"coordinates"`
	AccuracyMeters float64     `json:"accuracyMeters"`
	Timestamp      time.Time   `json:"timestamp"`
}

// UserLocationFix is a viewer's resolved position. It lives only as long as the
// feed session holding it and is never persisted.
type UserLocationFix struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracyMeters"`
	DisplayAddress string  `json:"displayAddress"`
	// Geocoded is false when DisplayAddress is the numeric fallback.
	Geocoded bool `json:"geocoded"`
}

// Coordinates returns the fix as a coordinate pair.
func (f UserLocationFix) Coordinates() Coordinates {
	return Coordinates{Latitude: f.Latitude, Longitude: f.Longitude}
}

// Place is a single text search result.
type Place struct {
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formattedAddress"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}
