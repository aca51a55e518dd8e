package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"chatify-service/internal/auth"
	"chatify-service/internal/models"
	"chatify-service/internal/observability"
	"chatify-service/internal/presence"
	"chatify-service/internal/rabbitmq"
	"chatify-service/internal/repositories"
)

// SnapshotSource provides the current full state of a subscribable resource.
// A new subscription always replays current state before receiving pushes.
type SnapshotSource interface {
	ConversationSnapshot(ctx context.Context, key string) (models.ConversationEvent, error)
	SocialSnapshot(ctx context.Context, userID string) (models.SocialEvent, error)
}

// SubscriptionHandler upgrades websocket subscriptions for conversations,
// social inboxes and presence.
type SubscriptionHandler struct {
	hub       *Hub
	convRepo  repositories.ConversationRepository
	snapshots SnapshotSource
	tracker   *presence.Tracker
	validator auth.TokenValidator
	publisher rabbitmq.Publisher
	log       *zap.SugaredLogger
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(hub *Hub, convRepo repositories.ConversationRepository, snapshots SnapshotSource, tracker *presence.Tracker, validator auth.TokenValidator, publisher rabbitmq.Publisher, log *zap.SugaredLogger) *SubscriptionHandler {
	return &SubscriptionHandler{
		hub:       hub,
		convRepo:  convRepo,
		snapshots: snapshots,
		tracker:   tracker,
		validator: validator,
		publisher: publisher,
		log:       log,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleConversation subscribes a participant to a conversation's ordered
// message-list snapshots.
func (h *SubscriptionHandler) HandleConversation(c *gin.Context) {
	key := c.Param("key")
	if _, _, ok := models.ParticipantsFromKey(key); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation key"})
		return
	}

	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	member, err := h.convRepo.IsParticipant(c.Request.Context(), key, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		// Allow subscribing before the first message exists, as long as the
		// caller is one of the pair named by the key.
		user1, user2, _ := models.ParticipantsFromKey(key)
		if userID != user1 && userID != user2 {
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for conversation"})
			return
		}
	}

	h.attach(c, ConversationTopic(key), userID, func(ctx context.Context, conn *websocket.Conn) error {
		snapshot, err := h.snapshots.ConversationSnapshot(ctx, key)
		if err != nil {
			return err
		}
		return conn.WriteJSON(snapshot)
	})
}

// HandleSocial subscribes the caller to their own friend-request inbox and
// friend list.
func (h *SubscriptionHandler) HandleSocial(c *gin.Context) {
	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	h.attach(c, SocialTopic(userID), userID, func(ctx context.Context, conn *websocket.Conn) error {
		snapshot, err := h.snapshots.SocialSnapshot(ctx, userID)
		if err != nil {
			return err
		}
		return conn.WriteJSON(snapshot)
	})
}

// HandlePresence subscribes the caller to another user's presence flag.
func (h *SubscriptionHandler) HandlePresence(c *gin.Context) {
	target := c.Param("user_id")
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	h.attach(c, PresenceTopic(target), userID, func(ctx context.Context, conn *websocket.Conn) error {
		record, err := h.tracker.Get(ctx, target)
		if err != nil {
			return err
		}
		return conn.WriteJSON(models.PresenceEvent{Type: "snapshot", Presence: record})
	})
}

// attach upgrades the connection, replays current state, registers the
// subscription and runs the read loop. Removal happens on every exit path,
// so no push is delivered after teardown.
func (h *SubscriptionHandler) attach(c *gin.Context, topic, userID string, replay func(context.Context, *websocket.Conn) error) {
	ctx, span := otel.Tracer("chatify-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	kind := KindOf(topic)
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}

	// Register before replaying so a snapshot broadcast during the replay
	// queues behind it instead of slipping past an unregistered connection.
	if err := h.hub.Attach(topic, conn, info, func() error {
		return replay(ctx, conn)
	}); err != nil {
		h.log.Errorw("subscription replay failed", "topic", topic, "err", err)
		conn.Close()
		return
	}

	// An attached session counts as a live one.
	if err := h.tracker.Heartbeat(ctx, userID); err != nil {
		h.log.Warnw("heartbeat on attach failed", "user_id", userID, "err", err)
	}

	observability.IncWSActive(kind)
	observability.IncWSEvent(kind, "ws_connect")
	h.publishLifecycle(ctx, topic, info, "ws_connect", "")

	go h.readLoop(topic, userID, conn, info)
}

func (h *SubscriptionHandler) readLoop(topic, userID string, conn *websocket.Conn, info ConnInfo) {
	kind := KindOf(topic)
	ctx := context.Background()
	var closeReason string
	defer func() {
		h.hub.RemoveClient(topic, conn)
		observability.DecWSActive(kind)
		observability.IncWSEvent(kind, "ws_disconnect")
		h.publishLifecycle(ctx, topic, info, "ws_disconnect", closeReason)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent(kind, "ws_error")
				h.publishLifecycle(ctx, topic, info, "ws_error", closeReason)
			}
			return
		}
		// Any client frame doubles as a liveness heartbeat.
		if err := h.tracker.Heartbeat(ctx, userID); err != nil {
			h.log.Warnw("heartbeat failed", "user_id", userID, "err", err)
		}
	}
}

func (h *SubscriptionHandler) publishLifecycle(ctx context.Context, topic string, info ConnInfo, event, reason string) {
	kind := KindOf(topic)
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"topic":       topic,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	_ = h.publisher.Publish(ctx, "ws_events."+kind, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

// authenticate resolves the subscriber from the Authorization header or a
// token query parameter.
func (h *SubscriptionHandler) authenticate(c *gin.Context) (string, bool) {
	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", false
	}
	return userID, true
}

func (h *SubscriptionHandler) validateToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.validator.ValidateToken(parts[1])
	}
	return "", fmt.Errorf("invalid token")
}
