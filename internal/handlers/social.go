package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatify-service/internal/fanout"
	"chatify-service/internal/models"
	"chatify-service/internal/repositories"
	"chatify-service/internal/telemetry"
)

// SocialHandler manages the friend-request lifecycle and the connection
// graph endpoints.
type SocialHandler struct {
	socialRepo repositories.SocialRepository
	userRepo   repositories.UserRepository
	fan        *fanout.Fanout
	emitter    *telemetry.AuditEmitter
	log        *zap.SugaredLogger
}

// NewSocialHandler builds a SocialHandler.
func NewSocialHandler(socialRepo repositories.SocialRepository, userRepo repositories.UserRepository, fan *fanout.Fanout, emitter *telemetry.AuditEmitter, log *zap.SugaredLogger) *SocialHandler {
	return &SocialHandler{
		socialRepo: socialRepo,
		userRepo:   userRepo,
		fan:        fan,
		emitter:    emitter,
		log:        log,
	}
}

// SendRequest creates a pending friend request and pushes the recipient's
// fresh inbox snapshot.
func (h *SocialHandler) SendRequest(c *gin.Context) {
	var req struct {
		ToUserID string `json:"to_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	from, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	request, err := h.socialRepo.CreateRequest(c.Request.Context(), from, req.ToUserID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.fan.SocialChanged(c.Request.Context(), request.ToUserID)
	h.fan.Event(c.Request.Context(), "friend.requested", request, headersFromContext(c))
	c.JSON(http.StatusCreated, request)
}

// AcceptRequest resolves a pending request as accepted. The status
// transition and the symmetric connection insert commit atomically; both
// sides' subscribers get fresh snapshots.
func (h *SocialHandler) AcceptRequest(c *gin.Context) {
	requestID := c.Param("request_id")
	userID := c.GetString("userID")

	request, err := h.socialRepo.Accept(c.Request.Context(), requestID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.fan.SocialChanged(c.Request.Context(), request.FromUserID)
	h.fan.SocialChanged(c.Request.Context(), request.ToUserID)
	h.fan.Event(c.Request.Context(), "friend.accepted", request, headersFromContext(c))
	h.emitter.Emit(c.Request.Context(), "INFO", "friend request accepted", requestIDFromContext(c), userID)
	c.JSON(http.StatusOK, request)
}

// DeclineRequest resolves a pending request as declined. The connection
// graph is untouched.
func (h *SocialHandler) DeclineRequest(c *gin.Context) {
	requestID := c.Param("request_id")
	userID := c.GetString("userID")

	request, err := h.socialRepo.Decline(c.Request.Context(), requestID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.fan.SocialChanged(c.Request.Context(), request.ToUserID)
	h.fan.Event(c.Request.Context(), "friend.declined", request, headersFromContext(c))
	h.emitter.Emit(c.Request.Context(), "INFO", "friend request declined", requestIDFromContext(c), userID)
	c.JSON(http.StatusOK, request)
}

// ListRequests returns the caller's incoming pending requests.
func (h *SocialHandler) ListRequests(c *gin.Context) {
	userID := c.GetString("userID")

	requests, err := h.socialRepo.ListPendingFor(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load requests"})
		return
	}
	if requests == nil {
		requests = []models.FriendRequest{}
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ListFriends returns the caller's connections with presence flags.
func (h *SocialHandler) ListFriends(c *gin.Context) {
	userID := c.GetString("userID")

	snapshot, err := h.fan.SocialSnapshot(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friends"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"friends": snapshot.Friends})
}

// ConnectionStatus reports the derived relationship between the caller and
// another user.
func (h *SocialHandler) ConnectionStatus(c *gin.Context) {
	otherID := c.Param("user_id")
	userID := c.GetString("userID")

	status, err := h.socialRepo.Status(c.Request.Context(), userID, otherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to derive status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}
