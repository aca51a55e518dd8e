package fanout

import (
	"context"

	"go.uber.org/zap"

	"chatify-service/internal/models"
	"chatify-service/internal/observability"
	"chatify-service/internal/presence"
	"chatify-service/internal/rabbitmq"
	"chatify-service/internal/repositories"
	"chatify-service/internal/ws"
)

// Fanout is the subscription/notification component: on any mutation it
// rebuilds the affected resource's snapshot and pushes it to every live
// subscriber, the originator included, and mirrors the change onto the event
// exchange.
type Fanout struct {
	hub         *ws.Hub
	messageRepo repositories.MessageRepository
	socialRepo  repositories.SocialRepository
	tracker     *presence.Tracker
	publisher   rabbitmq.Publisher
	log         *zap.SugaredLogger
}

// New constructs a Fanout.
func New(hub *ws.Hub, messageRepo repositories.MessageRepository, socialRepo repositories.SocialRepository, tracker *presence.Tracker, publisher rabbitmq.Publisher, log *zap.SugaredLogger) *Fanout {
	return &Fanout{
		hub:         hub,
		messageRepo: messageRepo,
		socialRepo:  socialRepo,
		tracker:     tracker,
		publisher:   publisher,
		log:         log,
	}
}

// ConversationSnapshot builds the full ordered message-list snapshot.
func (f *Fanout) ConversationSnapshot(ctx context.Context, key string) (models.ConversationEvent, error) {
	msgs, err := f.messageRepo.ListMessages(ctx, key)
	if err != nil {
		return models.ConversationEvent{}, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return models.ConversationEvent{Type: "snapshot", ConversationKey: key, Messages: msgs}, nil
}

// ConversationChanged pushes a fresh snapshot to the conversation's
// subscribers.
func (f *Fanout) ConversationChanged(ctx context.Context, key string) {
	event, err := f.ConversationSnapshot(ctx, key)
	if err != nil {
		f.log.Errorw("conversation snapshot failed", "key", key, "err", err)
		return
	}
	f.hub.Broadcast(ws.ConversationTopic(key), event)
}

// SocialSnapshot builds a user's social-inbox snapshot: pending incoming
// requests plus the connected-friend list with presence attached.
func (f *Fanout) SocialSnapshot(ctx context.Context, userID string) (models.SocialEvent, error) {
	requests, err := f.socialRepo.ListPendingFor(ctx, userID)
	if err != nil {
		return models.SocialEvent{}, err
	}
	if requests == nil {
		requests = []models.FriendRequest{}
	}

	connections, err := f.socialRepo.ListFriends(ctx, userID)
	if err != nil {
		return models.SocialEvent{}, err
	}

	ids := make([]string, 0, len(connections))
	for _, c := range connections {
		ids = append(ids, c.ID)
	}
	records, err := f.tracker.BulkGet(ctx, ids)
	if err != nil {
		// Presence is eventually consistent; a store outage degrades the
		// snapshot to offline flags instead of failing the whole emission.
		f.log.Errorw("presence lookup failed, degrading snapshot", "user_id", userID, "err", err)
		records = map[string]models.PresenceRecord{}
	}

	friends := make([]models.Friend, 0, len(connections))
	for _, c := range connections {
		friend := models.Friend{PublicUser: c}
		if record, ok := records[c.ID]; ok {
			friend.IsOnline = record.IsOnline
			if !record.LastSeenAt.IsZero() {
				lastSeen := record.LastSeenAt
				friend.LastSeenAt = &lastSeen
			}
		}
		friends = append(friends, friend)
	}

	return models.SocialEvent{Type: "snapshot", UserID: userID, Requests: requests, Friends: friends}, nil
}

// SocialChanged pushes a fresh social snapshot to one user's inbox
// subscribers.
func (f *Fanout) SocialChanged(ctx context.Context, userID string) {
	event, err := f.SocialSnapshot(ctx, userID)
	if err != nil {
		f.log.Errorw("social snapshot failed", "user_id", userID, "err", err)
		return
	}
	f.hub.Broadcast(ws.SocialTopic(userID), event)
}

// PresenceChanged implements presence.Notifier: every transition, explicit
// or swept, fans out to the user's presence subscribers and is published as
// a domain event.
func (f *Fanout) PresenceChanged(ctx context.Context, record models.PresenceRecord) {
	f.hub.Broadcast(ws.PresenceTopic(record.UserID), models.PresenceEvent{Type: "snapshot", Presence: record})
	f.Event(ctx, "presence.changed", record, nil)
}

// Event publishes a named domain event onto the exchange.
func (f *Fanout) Event(ctx context.Context, name string, payload any, headers map[string]string) {
	observability.IncDomainEvent(name)
	_ = f.publisher.Publish(ctx, name, observability.EventEnvelope{
		EventType: "domain_events",
		EventName: name,
		Payload:   payload,
	}, headers)
}
