// internal/interfaces/http/handlers/respond.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/fashion-store-backend/internal/pkg/apperrors"
)

// respondError maps a service error onto an HTTP response. Application errors
// carry their own status and an optional list of per-line issues; anything
// else is a 500 with a generic message.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperrors.As(err); ok {
		body := gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		}
		if len(appErr.Issues) > 0 {
			body["issues"] = appErr.Issues
		}
		c.JSON(appErr.HTTPStatus(), body)
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
	})
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return uint(id), true
}
