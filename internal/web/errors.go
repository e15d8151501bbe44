package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"memorylens/internal/api"
	"memorylens/internal/pkg/response"
)

// backendError maps a failed backend call onto the envelope. 401 stays
// distinct so the page can prompt for sign-in; everything else is a bad
// gateway with the upstream status attached.
func backendError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, "BACKEND_UNAUTHORIZED", message)
	case errors.Is(err, api.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", message)
	default:
		response.ErrorWithDetails(c, http.StatusBadGateway, "BACKEND_ERROR", message, gin.H{
			"upstream_status": api.StatusCode(err),
		})
	}
}
