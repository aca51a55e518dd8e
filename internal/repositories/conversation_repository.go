package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"chatify-service/internal/apperr"
	"chatify-service/internal/models"
)

// ConversationRepository owns conversation identity, message appends and the
// denormalized last-message fields.
type ConversationRepository interface {
	SendMessage(ctx context.Context, senderID, receiverID, body string) (models.Message, error)
	GetConversation(ctx context.Context, key string) (models.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	IsParticipant(ctx context.Context, key, userID string) (bool, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// SendMessage appends a message and updates the conversation's denormalized
// fields in one transaction. The conversation row is locked for the duration,
// so concurrent sends to the same pair serialize and sent-at never decreases
// within a conversation regardless of clock adjustments.
func (r *ConversationRepo) SendMessage(ctx context.Context, senderID, receiverID, body string) (models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return models.Message{}, apperr.ErrEmptyMessageBody
	}
	if senderID == receiverID {
		return models.Message{}, apperr.InvalidArg("cannot message yourself")
	}
	key := models.ConversationKey(senderID, receiverID)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	user1, user2, _ := models.ParticipantsFromKey(key)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (key, user1_id, user2_id) VALUES ($1, $2, $3)
         ON CONFLICT (key) DO NOTHING`, key, user1, user2); err != nil {
		return models.Message{}, err
	}

	var lastAt sql.NullTime
	if err := tx.GetContext(ctx, &lastAt,
		`SELECT last_message_at FROM conversations WHERE key=$1 FOR UPDATE`, key); err != nil {
		return models.Message{}, err
	}

	sentAt := nextSentAt(time.Now().UTC(), lastAt)

	var msg models.Message
	if err := tx.QueryRowxContext(ctx,
		`INSERT INTO messages (id, conversation_key, sender_id, receiver_id, body, sent_at)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING id, seq, conversation_key, sender_id, receiver_id, body, sent_at, is_read`,
		uuid.NewString(), key, senderID, receiverID, body, sentAt).
		StructScan(&msg); err != nil {
		return models.Message{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_message=$1, last_message_at=$2, last_message_sender_id=$3 WHERE key=$4`,
		msg.Body, msg.SentAt, msg.SenderID, key); err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// nextSentAt clamps a message timestamp against the conversation's previous
// one, so sent_at never decreases within a conversation whatever the wall
// clock does between sends.
func nextSentAt(now time.Time, last sql.NullTime) time.Time {
	if last.Valid && !now.After(last.Time) {
		return last.Time.Add(time.Microsecond)
	}
	return now
}

// GetConversation fetches a conversation by key.
func (r *ConversationRepo) GetConversation(ctx context.Context, key string) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT key, user1_id, user2_id, last_message, last_message_at, last_message_sender_id, created_at
         FROM conversations WHERE key=$1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, apperr.ErrConversationNotFound
	}
	return conv, err
}

// ListConversations returns the user's conversations, most recent first.
func (r *ConversationRepo) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT key, user1_id, user2_id, last_message, last_message_at, last_message_sender_id, created_at
         FROM conversations
         WHERE user1_id=$1 OR user2_id=$1
         ORDER BY last_message_at DESC NULLS LAST`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ConversationSummary
	for rows.Next() {
		var conv models.Conversation
		if err := rows.StructScan(&conv); err != nil {
			return nil, err
		}
		peerID, _ := conv.Peer(userID)
		result = append(result, models.ConversationSummary{
			Key:                 conv.Key,
			PeerID:              peerID,
			LastMessage:         conv.LastMessage,
			LastMessageAt:       conv.LastMessageAt,
			LastMessageSenderID: conv.LastMessageSenderID,
		})
	}
	return result, rows.Err()
}

// IsParticipant checks whether a user belongs to the conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, key, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversations WHERE key=$1 AND (user1_id=$2 OR user2_id=$2))`,
		key, userID)
	return exists, err
}
