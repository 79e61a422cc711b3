// File: models/feed.go
package models

import "time"

// RankedRequest is a per-viewer, read-only projection of a HangoutRequest.
type RankedRequest struct {
	HangoutRequest
	// DistanceMiles is nil when either the viewer fix or the request coordinates are missing.
	DistanceMiles *float64 `json:"distanceMiles,omitempty"`
	TimeRemaining string   `json:"timeRemaining"`
}

// LocationStatus describes the outcome of the last location acquisition.
type LocationStatus struct {
	Acquiring bool   `json:"acquiring"`
	ErrorKind string `json:"errorKind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// FeedView is one complete rendering of a viewer's feed.
type FeedView struct {
	Revision        uint64           `json:"revision"`
	GeneratedAt     time.Time        `json:"generatedAt"`
	Location        *UserLocationFix `json:"location,omitempty"`
	LocationStatus  LocationStatus   `json:"locationStatus"`
	OwnRequests     []RankedRequest  `json:"ownRequests"`
	NearbyRequests  []RankedRequest  `json:"nearbyRequests"`
	OwnAvailable    bool             `json:"ownAvailable"`
	NearbyAvailable bool             `json:"nearbyAvailable"`
}
