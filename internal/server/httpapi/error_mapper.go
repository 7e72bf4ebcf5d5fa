package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hq/internal/queue"
)

// mapDomainError translates a domain error into an HTTP status code and a
// user-facing message. Returns (0, "") for unrecognized errors, letting the
// caller fall back to 500.
func mapDomainError(err error) (status int, message string) {
	if err == nil {
		return 0, ""
	}

	switch {
	case errors.Is(err, queue.ErrBadInput):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, queue.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()

	case errors.Is(err, queue.ErrConflict):
		return http.StatusConflict, err.Error()

	case errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound, err.Error()

	default:
		return 0, ""
	}
}

// writeError renders err as a JSON error response. Domain errors keep their
// message; everything else is logged and surfaces as an opaque 500 so store
// internals never leak to clients.
func (h *Handler) writeError(c *gin.Context, err error) {
	if status, msg := mapDomainError(err); status != 0 {
		c.JSON(status, gin.H{"error": msg})
		return
	}
	h.logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
