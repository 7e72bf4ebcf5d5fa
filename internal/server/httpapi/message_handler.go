package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"hq/internal/queue"
)

// maxEnqueueBodyBytes caps enqueue payload size. Payloads are opaque JSON
// documents, not blobs; anything this large belongs in external storage.
const maxEnqueueBodyBytes = 1 << 20

type enqueueResponse struct {
	MessageID uuid.UUID `json:"message_id"`
}

// enqueueMessage handles POST /queues/{name}/enqueue with an opaque JSON body.
func (h *Handler) enqueueMessage(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEnqueueBodyBytes+1))
	if err != nil {
		h.writeError(c, fmt.Errorf("read enqueue body: %w", err))
		return
	}
	if len(body) > maxEnqueueBodyBytes {
		h.writeError(c, fmt.Errorf("enqueue payload exceeds %d bytes: %w", maxEnqueueBodyBytes, queue.ErrBadInput))
		return
	}

	messageID, err := h.engine.Enqueue(c.Request.Context(), c.Param("name"), body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, enqueueResponse{MessageID: messageID})
}

// receiveMessage handles GET /queues/{name}/receive. With no eligible
// message (or no such queue) the body is JSON null with 200; a returned
// message carries the already-incremented attempts count.
func (h *Handler) receiveMessage(c *gin.Context) {
	msg, err := h.engine.Receive(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if msg == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// messageID parses the {id} path segment; a non-UUID is a 400.
func messageID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("message id must be a UUID: %w", queue.ErrBadInput)
	}
	return id, nil
}

// completeMessage handles PUT /messages/{id}/complete. Idempotent: completing
// a message that is not leased is a silent success.
func (h *Handler) completeMessage(c *gin.Context) {
	id, err := messageID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.engine.Complete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// failMessage handles PUT /messages/{id}/fail, symmetric to complete.
func (h *Handler) failMessage(c *gin.Context) {
	id, err := messageID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.engine.Fail(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// health handles GET /healthz with a store reachability check.
func (h *Handler) health(c *gin.Context) {
	if err := h.engine.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
