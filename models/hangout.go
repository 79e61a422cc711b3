// File: models/hangout.go
package models

import "time"

// RequestStatus is the stored status of a hangout request.
type RequestStatus string

const (
	StatusActive    RequestStatus = "active"
	StatusCancelled RequestStatus = "cancelled"
)

// RequestState is the lifecycle state seen by a viewer. Expired is derived, never stored.
type RequestState string

const (
	StateActive    RequestState = "active"
	StateCancelled RequestState = "cancelled"
	StateExpired   RequestState = "expired"
)

// AllowedDurations lists the durations (in minutes) a request may be posted for.
var AllowedDurations = []int{15, 30, 60, 90, 120, 180, 240}

// IsAllowedDuration reports whether minutes is one of AllowedDurations.
func IsAllowedDuration(minutes int) bool {
	for _, d := range AllowedDurations {
		if d == minutes {
			return true
		}
	}
	return false
}

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Valid reports whether the pair lies within the latitude/longitude ranges.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// HangoutRequest is a short-lived post asking others to join an activity.
type HangoutRequest struct {
	ID              string        `bson:"id" json:"id"`
	Summary         string        `bson:"summary" json:"summary"`
	DurationMinutes int           `bson:"durationMinutes" json:"durationMinutes"`
	Location        string        `bson:"location" json:"location"`
	LocationDetails string        `bson:"locationDetails,omitempty" json:"locationDetails,omitempty"`
	Coordinates     *Coordinates  `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	CreatedBy       string        `bson:"createdBy" json:"createdBy"`
	CreatedAt       *time.Time    `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	ExpiresAt       *time.Time    `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	Status          RequestStatus `bson:"status" json:"status"`
}

// HasTimestamps reports whether both server-side temporal fields are present.
// Partially written records lack one of them.
func (r HangoutRequest) HasTimestamps() bool {
	return r.CreatedAt != nil && r.ExpiresAt != nil
}

// CreateHangoutInput is the payload for posting a new request.
type CreateHangoutInput struct {
	Summary         string       `json:"summary"`
	DurationMinutes int          `json:"durationMinutes"`
	Location        string       `json:"location"`
	LocationDetails string       `json:"locationDetails,omitempty"`
	Coordinates     *Coordinates `json:"coordinates,omitempty"`
}
