package handlers

import (
	"net/http"
	"strings"

	"proxo/middleware"
	"proxo/models"
	"proxo/services/geo"
	"proxo/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PlacesHandler serves place search and location lookups used by the create form.
type PlacesHandler struct {
	Resolver        *geo.Resolver
	IPLocator       *geo.IPLocator
	PositionOptions models.PositionOptions
}

// SearchPlacesHandler handles GET /api/places/search?q=.
func (h *PlacesHandler) SearchPlacesHandler(c *gin.Context) {
	logger := getLogger(c)
	query := strings.TrimSpace(c.Query("q"))

	places, err := h.Resolver.SearchPlaces(c.Request.Context(), query)
	if err != nil {
		logger.Warn("Place search failed", zap.String("query", query), zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "search_failed", "Place search is unavailable right now")
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "results": places})
}

// ReverseGeocodeHandler handles GET /api/places/reverse?lat=&lng=. It always
// answers with a usable fix, falling back to a coordinate string.
func (h *PlacesHandler) ReverseGeocodeHandler(c *gin.Context) {
	coords, accuracy, present, err := parseCoordinates(c)
	if !present {
		utils.JSONError(c, http.StatusBadRequest, "invalid_location", "lat and lng are required")
		return
	}
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_location", err.Error())
		return
	}
	c.JSON(http.StatusOK, h.Resolver.Resolve(c.Request.Context(), coords, accuracy))
}

// IPLocationHandler handles GET /api/location/ip: a coarse fix from the client address.
func (h *PlacesHandler) IPLocationHandler(c *gin.Context) {
	logger := getLogger(c)
	ip := middleware.ClientIP(c)

	var positioner geo.Positioner
	if h.IPLocator != nil {
		positioner = h.IPLocator.ForIP(ip)
	}
	fix, err := h.Resolver.Acquire(c.Request.Context(), positioner, h.PositionOptions)
	if err != nil {
		pe, ok := geo.AsPositioningError(err)
		if !ok {
			utils.JSONError(c, http.StatusInternalServerError, "location_failed", "Location lookup failed")
			return
		}
		logger.Info("IP location unavailable", zap.String("ip", ip), zap.String("kind", string(pe.Kind)))
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, utils.ErrorResponse{
			Message: pe.Message(),
			Code:    string(pe.Kind),
		})
		return
	}
	c.JSON(http.StatusOK, fix)
}
