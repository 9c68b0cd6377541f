// Package api implements the HTTP API: operation submission, task results,
// platform state, the event stream and schedule management.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/jobsweep/internal/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// parseLimitOffset parses limit and offset query params with defaults.
func parseLimitOffset(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// respondError sends a JSON error response.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondNotFound sends a 404 with resource not found message.
func respondNotFound(c *gin.Context, resource string) {
	respondError(c, http.StatusNotFound, resource+" not found")
}

// respondBadRequest sends a 400 with message.
func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, message)
}

// respondInternalError logs err with the request logger and sends a 500
// with message. The cause is never exposed to the client.
func respondInternalError(c *gin.Context, message string, err error) {
	logger.FromContext(c.Request.Context()).Error(message, logger.Error(err))
	respondError(c, http.StatusInternalServerError, message)
}
