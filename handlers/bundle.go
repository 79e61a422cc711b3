package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Hangout endpoints
	CreateHangoutHandler gin.HandlerFunc
	CancelHangoutHandler gin.HandlerFunc
	FeedHandler          gin.HandlerFunc
	LiveFeedHandler      gin.HandlerFunc

	// Places and location endpoints
	SearchPlacesHandler   gin.HandlerFunc
	ReverseGeocodeHandler gin.HandlerFunc
	IPLocationHandler     gin.HandlerFunc

	// Profile endpoints
	SetupProfileHandler gin.HandlerFunc
	GetProfileHandler   gin.HandlerFunc
	UploadPhotoHandler  gin.HandlerFunc
	SearchUsersHandler  gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}

// NewHandlerBundle wires the bundle from its handler groups.
func NewHandlerBundle(hangouts *HangoutHandler, places *PlacesHandler, profiles *ProfileHandler) *HandlerBundle {
	return &HandlerBundle{
		CreateHangoutHandler: hangouts.CreateHangoutHandler,
		CancelHangoutHandler: hangouts.CancelHangoutHandler,
		FeedHandler:          hangouts.FeedHandler,
		LiveFeedHandler:      hangouts.LiveFeedHandler,

		SearchPlacesHandler:   places.SearchPlacesHandler,
		ReverseGeocodeHandler: places.ReverseGeocodeHandler,
		IPLocationHandler:     places.IPLocationHandler,

		SetupProfileHandler: profiles.SetupProfileHandler,
		GetProfileHandler:   profiles.GetProfileHandler,
		UploadPhotoHandler:  profiles.UploadPhotoHandler,
		SearchUsersHandler:  profiles.SearchUsersHandler,

		HealthHandler: HealthHandler,
	}
}
