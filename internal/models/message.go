package models

import "time"

// Message is immutable once stored except for the IsRead flag, which
// transitions false to true exactly once, set only by the receiver. Seq is a
// server-assigned insertion counter used to break sent-at ties.
type Message struct {
	ID              string    `db:"id" json:"id"`
	Seq             int64     `db:"seq" json:"seq"`
	ConversationKey string    `db:"conversation_key" json:"conversation_key"`
	SenderID        string    `db:"sender_id" json:"sender_id"`
	ReceiverID      string    `db:"receiver_id" json:"receiver_id"`
	Body            string    `db:"body" json:"body"`
	SentAt          time.Time `db:"sent_at" json:"sent_at"`
	IsRead          bool      `db:"is_read" json:"is_read"`
}

// ConversationEvent is pushed over websocket subscriptions. Every emission
// carries the full ordered message list so a late subscriber and a live one
// always see the same state.
type ConversationEvent struct {
	Type            string    `json:"type"`
	ConversationKey string    `json:"conversation_key"`
	Messages        []Message `json:"messages"`
}
