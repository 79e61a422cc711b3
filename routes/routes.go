package routes

import (
	"time"

	"proxo/handlers"
	"proxo/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Auth bundles what the protected groups need to authenticate callers.
type Auth struct {
	Verifier middleware.TokenVerifier
	Users    middleware.UsernameResolver
}

// RegisterHangoutRoutes registers hangout request endpoints.
func RegisterHangoutRoutes(r *gin.Engine, hb *handlers.HandlerBundle, auth gin.HandlerFunc) {
	api := r.Group("/api/hangouts")
	{
		api.Use(auth)
		api.POST("", hb.CreateHangoutHandler)
		api.POST("/:id/cancel", hb.CancelHangoutHandler)
		api.GET("/feed", hb.FeedHandler)
		api.GET("/live", hb.LiveFeedHandler)
	}
}

// RegisterPlacesRoutes registers place search and location endpoints.
func RegisterPlacesRoutes(r *gin.Engine, hb *handlers.HandlerBundle, auth gin.HandlerFunc) {
	places := r.Group("/api/places")
	{
		places.Use(auth)
		places.GET("/search", hb.SearchPlacesHandler)
		places.GET("/reverse", hb.ReverseGeocodeHandler)
	}

	location := r.Group("/api/location")
	{
		location.Use(auth)
		location.GET("/ip", hb.IPLocationHandler)
	}
}

// RegisterProfileRoutes registers profile endpoints. Setup only needs a
// verified token since the caller has no username yet.
func RegisterProfileRoutes(r *gin.Engine, hb *handlers.HandlerBundle, auth, tokenOnly gin.HandlerFunc) {
	r.POST("/api/profile", tokenOnly, hb.SetupProfileHandler)

	api := r.Group("/api/profile")
	{
		api.Use(auth)
		api.GET("/:username", hb.GetProfileHandler)
		api.POST("/photo", hb.UploadPhotoHandler)
	}

	users := r.Group("/api/users")
	{
		users.Use(auth)
		users.GET("", hb.SearchUsersHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, auth Auth, maxRequestsPerMin int) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestLogger())
	r.Use(middleware.RateLimitMiddleware(maxRequestsPerMin))

	authMiddleware := middleware.FirebaseAuthMiddleware(auth.Verifier, auth.Users)
	RegisterHangoutRoutes(r, hb, authMiddleware)
	RegisterPlacesRoutes(r, hb, authMiddleware)
	RegisterProfileRoutes(r, hb, authMiddleware, middleware.FirebaseTokenMiddleware(auth.Verifier))
	RegisterHealthRoute(r, hb)
}
