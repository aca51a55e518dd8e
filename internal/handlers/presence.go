package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatify-service/internal/presence"
)

// PresenceHandler exposes heartbeat and presence reads.
type PresenceHandler struct {
	tracker *presence.Tracker
}

// NewPresenceHandler builds a PresenceHandler.
func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// Heartbeat refreshes the caller's liveness marker. Sessions that stop
// calling it are swept offline.
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.tracker.Heartbeat(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get returns a user's presence record.
func (h *PresenceHandler) Get(c *gin.Context) {
	record, err := h.tracker.Get(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
