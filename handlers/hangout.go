package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"proxo/models"
	"proxo/services/feed"
	"proxo/services/geo"
	"proxo/services/hangout"
	"proxo/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HangoutHandler serves hangout request endpoints.
type HangoutHandler struct {
	Service         hangout.HangoutService
	Store           *hangout.Store
	Resolver        *geo.Resolver
	IPLocator       *geo.IPLocator
	PositionOptions models.PositionOptions
	RefreshInterval time.Duration
}

// writeHangoutError maps service errors to HTTP responses.
func writeHangoutError(c *gin.Context, err error) {
	var verr *hangout.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.JSONError(c, http.StatusBadRequest, "validation_failed", verr.Error())
	case errors.Is(err, hangout.ErrRequestNotFound):
		utils.JSONError(c, http.StatusNotFound, "not_found", "Hangout request not found")
	case errors.Is(err, hangout.ErrNotOwner):
		utils.JSONError(c, http.StatusForbidden, "not_owner", "Only the creator can cancel this request")
	case errors.Is(err, hangout.ErrRequestExpired):
		utils.JSONError(c, http.StatusConflict, "expired", "This request has already expired")
	case errors.Is(err, hangout.ErrWriteFailed), errors.Is(err, hangout.ErrSubscriptionFailed):
		utils.JSONError(c, http.StatusServiceUnavailable, "store_unavailable", "Please try again later")
	default:
		utils.JSONError(c, http.StatusInternalServerError, "internal", "Please try again later")
	}
}

// CreateHangoutHandler handles POST /api/hangouts.
func (h *HangoutHandler) CreateHangoutHandler(c *gin.Context) {
	logger := getLogger(c)
	viewer, ok := viewerFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "auth_required", "Authentication required")
		return
	}

	var input models.CreateHangoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warn("Invalid create hangout payload", zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}

	req, err := h.Service.Create(c.Request.Context(), viewer, input)
	if err != nil {
		logger.Error("Create hangout failed", zap.String("viewer", viewer), zap.Error(err))
		writeHangoutError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// CancelHangoutHandler handles POST /api/hangouts/:id/cancel.
func (h *HangoutHandler) CancelHangoutHandler(c *gin.Context) {
	logger := getLogger(c)
	viewer, ok := viewerFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "auth_required", "Authentication required")
		return
	}

	id := c.Param("id")
	if err := h.Service.Cancel(c.Request.Context(), id, viewer); err != nil {
		logger.Warn("Cancel hangout failed", zap.String("id", id), zap.String("viewer", viewer), zap.Error(err))
		writeHangoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": models.StatusCancelled})
}

// parseCoordinates reads lat, lng and accuracy query parameters. present is
// false when neither lat nor lng is given.
func parseCoordinates(c *gin.Context) (coords models.Coordinates, accuracy float64, present bool, err error) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" && lngStr == "" {
		return coords, 0, false, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return coords, 0, true, errors.New("lat must be a number")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return coords, 0, true, errors.New("lng must be a number")
	}
	coords = models.Coordinates{Latitude: lat, Longitude: lng}
	if !coords.Valid() {
		return coords, 0, true, errors.New("coordinates out of range")
	}
	if accStr := c.Query("accuracy"); accStr != "" {
		if accuracy, err = strconv.ParseFloat(accStr, 64); err != nil || accuracy < 0 {
			return coords, 0, true, errors.New("accuracy must be a non-negative number")
		}
	}
	return coords, accuracy, true, nil
}

// FeedHandler handles GET /api/hangouts/feed: a one-shot assembled feed.
// Without lat/lng only the viewer's own requests are returned.
func (h *HangoutHandler) FeedHandler(c *gin.Context) {
	logger := getLogger(c)
	viewer, ok := viewerFrom(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "auth_required", "Authentication required")
		return
	}

	coords, accuracy, hasFix, err := parseCoordinates(c)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_location", err.Error())
		return
	}

	ctx := c.Request.Context()
	in := feed.Input{Now: time.Now()}

	own, err := h.Store.Snapshot(ctx, hangout.Own(viewer))
	if err != nil {
		logger.Warn("Own requests unavailable", zap.Error(err))
	} else {
		in.Own, in.OwnAvailable = own, true
	}

	if hasFix {
		fix := h.Resolver.Resolve(ctx, coords, accuracy)
		in.Fix = &fix
		nearby, err := h.Store.Snapshot(ctx, hangout.Others(viewer))
		if err != nil {
			logger.Warn("Nearby requests unavailable", zap.Error(err))
		} else {
			in.Nearby, in.NearbyAvailable = nearby, true
		}
	}

	view := feed.Assemble(in)
	view.Revision = 1
	c.JSON(http.StatusOK, view)
}
