package handlers

import (
	"proxo/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger retrieves the request-scoped logger set by middleware.RequestLogger,
// falling back to the global one.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get("logger"); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return utils.GetLogger()
}

// viewerFrom returns the authenticated username set by the auth middleware.
func viewerFrom(c *gin.Context) (string, bool) {
	username := c.GetString("username")
	return username, username != ""
}
