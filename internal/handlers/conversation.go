package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatify-service/internal/fanout"
	"chatify-service/internal/models"
	"chatify-service/internal/repositories"
)

// ConversationHandler manages two-party messaging endpoints.
type ConversationHandler struct {
	convRepo   repositories.ConversationRepository
	msgRepo    repositories.MessageRepository
	userRepo   repositories.UserRepository
	socialRepo repositories.SocialRepository
	fan        *fanout.Fanout
	log        *zap.SugaredLogger
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(convRepo repositories.ConversationRepository, msgRepo repositories.MessageRepository, userRepo repositories.UserRepository, socialRepo repositories.SocialRepository, fan *fanout.Fanout, log *zap.SugaredLogger) *ConversationHandler {
	return &ConversationHandler{
		convRepo:   convRepo,
		msgRepo:    msgRepo,
		userRepo:   userRepo,
		socialRepo: socialRepo,
		fan:        fan,
		log:        log,
	}
}

// ListConversations returns the caller's conversations with peer info
// attached, most recently active first.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := c.GetString("userID")

	convs, err := h.convRepo.ListConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	peerIDs := make([]string, 0, len(convs))
	for _, conv := range convs {
		peerIDs = append(peerIDs, conv.PeerID)
	}

	peers, err := h.userRepo.BulkUsers(c.Request.Context(), peerIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load peer info"})
		return
	}
	peerByID := map[string]models.PublicUser{}
	for _, p := range peers {
		peerByID[p.ID] = p
	}

	responses := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		if peer, ok := peerByID[conv.PeerID]; ok {
			conv.PeerHandle = peer.Handle
			conv.PeerDisplayName = peer.DisplayName
		}
		responses = append(responses, conv)
	}

	c.JSON(http.StatusOK, gin.H{"conversations": responses})
}

// SendMessage stores a message and pushes the fresh conversation snapshot to
// every subscriber, the sender included.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	var req struct {
		ReceiverID string `json:"receiver_id" binding:"required"`
		Body       string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")

	if _, err := h.userRepo.GetByID(c.Request.Context(), req.ReceiverID); err != nil {
		respondError(c, err)
		return
	}

	connected, err := h.socialRepo.AreConnected(c.Request.Context(), userID, req.ReceiverID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify connection"})
		return
	}
	if !connected {
		c.JSON(http.StatusForbidden, gin.H{"error": "users are not connected"})
		return
	}

	msg, err := h.convRepo.SendMessage(c.Request.Context(), userID, req.ReceiverID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}

	h.fan.ConversationChanged(c.Request.Context(), msg.ConversationKey)
	h.fan.Event(c.Request.Context(), "message.sent", msg, headersFromContext(c))
	c.JSON(http.StatusCreated, msg)
}

// GetMessages returns the full ordered message list for a conversation the
// caller participates in.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	key := c.Param("key")
	user1, user2, ok := models.ParticipantsFromKey(key)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation key"})
		return
	}

	userID := c.GetString("userID")
	if userID != user1 && userID != user2 {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation participant"})
		return
	}

	msgs, err := h.msgRepo.ListMessages(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// MarkRead flips a message's read flag. Repeating the call on an
// already-read message succeeds without effect.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	key := c.Param("key")
	messageID := c.Param("message_id")
	if _, _, ok := models.ParticipantsFromKey(key); !ok || messageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation key or message id"})
		return
	}

	userID := c.GetString("userID")
	changed, err := h.msgRepo.MarkRead(c.Request.Context(), messageID, key, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if changed {
		h.fan.ConversationChanged(c.Request.Context(), key)
		h.fan.Event(c.Request.Context(), "message.read", gin.H{
			"message_id":       messageID,
			"conversation_key": key,
			"reader_id":        userID,
		}, headersFromContext(c))
	}

	c.Status(http.StatusNoContent)
}
