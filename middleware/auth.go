package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"proxo/services/user"
	"proxo/utils"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by the auth middlewares.
const (
	ContextUID      = "uid"
	ContextUsername = "username"
)

// TokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UsernameResolver maps a Firebase uid to the community username.
type UsernameResolver interface {
	UsernameForUID(ctx context.Context, uid string) (string, error)
}

// bearerToken reads the ID token from the Authorization header, or from the
// token query parameter for websocket upgrades, which cannot carry headers from a browser.
func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return strings.TrimSpace(c.Query("token"))
}

// verifyToken authenticates the caller and returns the Firebase uid. On
// failure it has already written the error response.
func verifyToken(c *gin.Context, verifier TokenVerifier) (string, bool) {
	logger := utils.GetLogger()

	token := bearerToken(c)
	if token == "" {
		utils.JSONError(c, http.StatusUnauthorized, "auth_required", "Missing or invalid Authorization header")
		return "", false
	}
	if verifier == nil {
		logger.Error("auth: no token verifier configured")
		utils.JSONError(c, http.StatusServiceUnavailable, "auth_unavailable", "Authentication is not available")
		return "", false
	}

	verified, err := verifier.VerifyIDToken(c.Request.Context(), token)
	if err != nil {
		logger.Debug("auth: token rejected", zap.Error(err))
		utils.JSONError(c, http.StatusUnauthorized, "invalid_token", "Invalid token")
		return "", false
	}
	return verified.UID, true
}

// FirebaseTokenMiddleware verifies the caller's Firebase ID token and stores
// only the uid. It guards profile setup, which runs before a username exists.
func FirebaseTokenMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := verifyToken(c, verifier)
		if !ok {
			return
		}
		c.Set(ContextUID, uid)
		c.Next()
	}
}

// FirebaseAuthMiddleware verifies the caller's Firebase ID token and stores
// the uid and username in the context.
func FirebaseAuthMiddleware(verifier TokenVerifier, users UsernameResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := verifyToken(c, verifier)
		if !ok {
			return
		}

		username, err := users.UsernameForUID(c.Request.Context(), uid)
		if err != nil {
			status, code, msg := http.StatusInternalServerError, "profile_lookup_failed", "Could not load your profile"
			if errors.Is(err, user.ErrProfileNotFound) {
				status, code, msg = http.StatusForbidden, "profile_required", "Finish setting up your profile first"
			}
			utils.GetLogger().Warn("auth: username lookup failed", zap.String("uid", uid), zap.Error(err))
			utils.JSONError(c, status, code, msg)
			return
		}

		c.Set(ContextUID, uid)
		c.Set(ContextUsername, username)
		c.Next()
	}
}
