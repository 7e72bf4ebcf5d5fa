package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hq/internal/queue"
)

// parseQueueSetting parses a required numeric queue setting from a query
// parameter. Missing or non-numeric values are validation failures, matching
// the 422 contract for bad queue definitions.
func parseQueueSetting(c *gin.Context, key string) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, fmt.Errorf("%s is required: %w", key, queue.ErrValidation)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, queue.ErrValidation)
	}
	return value, nil
}

// parseOptionalQueueSetting is parseQueueSetting for PUT patches: an absent
// parameter means "leave unchanged".
func parseOptionalQueueSetting(c *gin.Context, key string) (*int64, error) {
	if _, present := c.GetQuery(key); !present {
		return nil, nil
	}
	value, err := parseQueueSetting(c, key)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// createQueue handles POST /queues?name=&max_attempts=&visibility_timeout_seconds=.
func (h *Handler) createQueue(c *gin.Context) {
	name := c.Query("name")
	maxAttempts, err := parseQueueSetting(c, "max_attempts")
	if err != nil {
		h.writeError(c, err)
		return
	}
	visibilityTimeout, err := parseQueueSetting(c, "visibility_timeout_seconds")
	if err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.engine.CreateQueue(c.Request.Context(), name, maxAttempts, visibilityTimeout); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// listQueues handles GET /queues.
func (h *Handler) listQueues(c *gin.Context) {
	queues, err := h.engine.ListQueues(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, queues)
}

// showQueue handles GET /queues/{name}. A missing queue renders JSON null
// with 200, mirroring receive on a missing queue.
func (h *Handler) showQueue(c *gin.Context) {
	q, err := h.engine.GetQueue(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if q == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, q)
}

// updateQueue handles PUT /queues/{name}?max_attempts=&visibility_timeout_seconds=.
// Both parameters are optional; with neither present the call is a no-op.
func (h *Handler) updateQueue(c *gin.Context) {
	var patch queue.QueuePatch
	var err error

	if patch.MaxAttempts, err = parseOptionalQueueSetting(c, "max_attempts"); err != nil {
		h.writeError(c, err)
		return
	}
	if patch.VisibilityTimeoutSeconds, err = parseOptionalQueueSetting(c, "visibility_timeout_seconds"); err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.engine.UpdateQueue(c.Request.Context(), c.Param("name"), patch); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// deleteQueue handles DELETE /queues/{name}; messages cascade with the queue.
func (h *Handler) deleteQueue(c *gin.Context) {
	if err := h.engine.DeleteQueue(c.Request.Context(), c.Param("name")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
