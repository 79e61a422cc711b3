package handlers

import (
	"errors"
	"net/http"

	"proxo/middleware"
	"proxo/models"
	"proxo/services/user"
	"proxo/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxPhotoBytes bounds profile photo uploads.
const maxPhotoBytes = 5 << 20

// ProfileHandler serves profile endpoints.
type ProfileHandler struct {
	UserService user.UserService
}

// SetupProfileHandler handles POST /api/profile, the first step after sign-in.
func (h *ProfileHandler) SetupProfileHandler(c *gin.Context) {
	logger := getLogger(c)
	uid := c.GetString(middleware.ContextUID)
	if uid == "" {
		utils.JSONError(c, http.StatusUnauthorized, "auth_required", "Authentication required")
		return
	}

	var input models.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warn("Invalid profile payload", zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}

	u, err := h.UserService.SetupProfile(c.Request.Context(), uid, input)
	if err != nil {
		var verr *user.ValidationError
		switch {
		case errors.As(err, &verr):
			utils.JSONError(c, http.StatusBadRequest, "validation_failed", verr.Error())
		case errors.Is(err, user.ErrUsernameTaken):
			utils.JSONError(c, http.StatusConflict, "username_taken", "Username already taken")
		case errors.Is(err, user.ErrProfileExists):
			utils.JSONError(c, http.StatusConflict, "profile_exists", "Your profile is already set up")
		default:
			logger.Error("Profile setup failed", zap.String("uid", uid), zap.Error(err))
			utils.JSONError(c, http.StatusInternalServerError, "internal", "Please try again later")
		}
		return
	}
	c.JSON(http.StatusCreated, u)
}

// SearchUsersHandler handles GET /api/users?school=&year=&interests=.
func (h *ProfileHandler) SearchUsersHandler(c *gin.Context) {
	var q models.UserQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	users, err := h.UserService.SearchUsers(c.Request.Context(), q)
	if err != nil {
		getLogger(c).Error("User search failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal", "Please try again later")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetProfileHandler handles GET /api/profile/:username.
func (h *ProfileHandler) GetProfileHandler(c *gin.Context) {
	username := c.Param("username")
	u, err := h.UserService.GetProfile(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, user.ErrProfileNotFound) {
			utils.JSONError(c, http.StatusNotFound, "not_found", "Profile not found")
			return
		}
		getLogger(c).Error("Profile lookup failed", zap.String("username", username), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal", "Please try again later")
		return
	}
	c.JSON(http.StatusOK, u)
}

// UploadPhotoHandler handles POST /api/profile/photo with a multipart "photo" field.
func (h *ProfileHandler) UploadPhotoHandler(c *gin.Context) {
	logger := getLogger(c)
	uid := c.GetString(middleware.ContextUID)
	if uid == "" {
		utils.JSONError(c, http.StatusUnauthorized, "auth_required", "Authentication required")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoBytes)
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_payload", "A photo file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_payload", "Could not read the photo")
		return
	}
	defer file.Close()

	u, err := h.UserService.UpdatePhoto(c.Request.Context(), uid, file)
	if err != nil {
		logger.Error("Photo upload failed", zap.String("uid", uid), zap.Error(err))
		switch {
		case errors.Is(err, user.ErrProfileNotFound):
			utils.JSONError(c, http.StatusNotFound, "not_found", "Profile not found")
		case errors.Is(err, user.ErrPhotoStorageUnavailable):
			utils.JSONError(c, http.StatusServiceUnavailable, "storage_unavailable", "Photo uploads are not available")
		default:
			utils.JSONError(c, http.StatusBadGateway, "upload_failed", "Photo upload failed")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"photoURL": u.PhotoURL})
}
