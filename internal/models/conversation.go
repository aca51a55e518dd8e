package models

import (
	"strings"
	"time"
)

// Conversation is a two-party message thread. The key is canonical and
// order-independent: the sorted participant ids joined by an underscore, so
// ConversationKey(a, b) == ConversationKey(b, a).
type Conversation struct {
	Key                 string     `db:"key" json:"key"`
	User1ID             string     `db:"user1_id" json:"user1_id"`
	User2ID             string     `db:"user2_id" json:"user2_id"`
	LastMessage         string     `db:"last_message" json:"last_message"`
	LastMessageAt       *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	LastMessageSenderID string     `db:"last_message_sender_id" json:"last_message_sender_id"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

// ConversationSummary is the listing view for one side of a conversation.
type ConversationSummary struct {
	Key                 string     `json:"key"`
	PeerID              string     `json:"peer_id"`
	PeerHandle          string     `json:"peer_handle,omitempty"`
	PeerDisplayName     string     `json:"peer_display_name,omitempty"`
	LastMessage         string     `json:"last_message"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`
	LastMessageSenderID string     `json:"last_message_sender_id"`
}

// ConversationKey derives the canonical key for a user pair.
func ConversationKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// ParticipantsFromKey splits a canonical key back into the sorted pair.
func ParticipantsFromKey(key string) (string, string, bool) {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Peer returns the other participant for the given user, or false when the
// user is not part of the conversation.
func (c Conversation) Peer(userID string) (string, bool) {
	switch userID {
	case c.User1ID:
		return c.User2ID, true
	case c.User2ID:
		return c.User1ID, true
	}
	return "", false
}
