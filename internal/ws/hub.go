package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatify-service/internal/observability"
	"chatify-service/internal/rabbitmq"
)

// Topic builders. A topic identifies one subscribable resource.
func ConversationTopic(key string) string { return "conversation:" + key }
func SocialTopic(userID string) string    { return "social:" + userID }
func PresenceTopic(userID string) string  { return "presence:" + userID }

// KindOf extracts the resource kind from a topic, for metrics and events.
func KindOf(topic string) string {
	if idx := strings.IndexByte(topic, ':'); idx > 0 {
		return topic[:idx]
	}
	return "unknown"
}

// Hub maintains the set of live subscriptions per topic and pushes state
// snapshots to every subscriber of a topic, the originator included. Writes
// to one connection are serialized through a per-connection lock; gorilla
// connections allow only a single concurrent writer.
type Hub struct {
	rooms     map[string]map[*websocket.Conn]bool
	connInfo  map[string]map[*websocket.Conn]ConnInfo
	writeMu   map[*websocket.Conn]*sync.Mutex
	mu        sync.RWMutex
	publisher rabbitmq.Publisher
	log       *zap.SugaredLogger
}

// NewHub creates an empty hub.
func NewHub(publisher rabbitmq.Publisher, log *zap.SugaredLogger) *Hub {
	return &Hub{
		rooms:     make(map[string]map[*websocket.Conn]bool),
		connInfo:  make(map[string]map[*websocket.Conn]ConnInfo),
		writeMu:   make(map[*websocket.Conn]*sync.Mutex),
		publisher: publisher,
		log:       log,
	}
}

// AddClient registers a websocket connection under a topic.
func (h *Hub) AddClient(topic string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addLocked(topic, conn, info)
}

func (h *Hub) addLocked(topic string, conn *websocket.Conn, info ConnInfo) {
	if _, ok := h.rooms[topic]; !ok {
		h.rooms[topic] = make(map[*websocket.Conn]bool)
	}
	h.rooms[topic][conn] = true
	if _, ok := h.connInfo[topic]; !ok {
		h.connInfo[topic] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[topic][conn] = info
	if _, ok := h.writeMu[conn]; !ok {
		h.writeMu[conn] = &sync.Mutex{}
	}
}

// Attach registers the connection and then replays current state while
// holding the connection's write lock. Registration happens first, so a
// broadcast triggered during the replay is not lost: it queues on the write
// lock and lands right after the replayed snapshot. A failed replay removes
// the registration again.
func (h *Hub) Attach(topic string, conn *websocket.Conn, info ConnInfo, replay func() error) error {
	h.mu.Lock()
	h.addLocked(topic, conn, info)
	mu := h.writeMu[conn]
	// Take the write lock before releasing the registry lock, so no
	// broadcast can slip its payload in ahead of the replayed snapshot.
	mu.Lock()
	h.mu.Unlock()

	err := replay()
	mu.Unlock()

	if err != nil {
		h.RemoveClient(topic, conn)
		return err
	}
	return nil
}

// RemoveClient removes a connection from a topic. Removal is idempotent, so
// every disconnect path can call it safely.
func (h *Hub) RemoveClient(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[topic]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, topic)
		}
	}
	if infos, ok := h.connInfo[topic]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, topic)
		}
	}
	delete(h.writeMu, conn)
}

// SubscriberCount reports the number of live subscriptions for a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topic])
}

// Broadcast pushes a payload to every subscriber of the topic. A failed
// write closes and removes the connection; no delivery is attempted on a
// connection after its removal.
func (h *Hub) Broadcast(topic string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Errorw("broadcast marshal failed", "topic", topic, "err", err)
		return
	}

	type target struct {
		conn *websocket.Conn
		mu   *sync.Mutex
	}
	h.mu.RLock()
	targets := make([]target, 0, len(h.rooms[topic]))
	for conn := range h.rooms[topic] {
		targets = append(targets, target{conn: conn, mu: h.writeMu[conn]})
	}
	h.mu.RUnlock()

	for _, t := range targets {
		t.mu.Lock()
		err := t.conn.WriteMessage(websocket.TextMessage, payload)
		t.mu.Unlock()
		if err != nil {
			h.log.Warnw("websocket write error", "topic", topic, "err", err)
			t.conn.Close()
			h.RemoveClient(topic, t.conn)
			h.publishWSError(topic, t.conn, err)
		}
	}
}

func (h *Hub) publishWSError(topic string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(topic, conn)
	if !ok {
		return
	}

	kind := KindOf(topic)
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"topic":       topic,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = h.publisher.Publish(context.Background(), "ws_events."+kind, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func (h *Hub) getConnInfo(topic string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[topic]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}
