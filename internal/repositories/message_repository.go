package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chatify-service/internal/apperr"
	"chatify-service/internal/models"
)

// MessageRepository defines read and read-state operations for messages.
type MessageRepository interface {
	ListMessages(ctx context.Context, conversationKey string) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	MarkRead(ctx context.Context, messageID, conversationKey, readerID string) (bool, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// ListMessages returns the conversation's messages totally ordered by
// (sent_at, seq).
func (r *MessageRepo) ListMessages(ctx context.Context, conversationKey string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT id, seq, conversation_key, sender_id, receiver_id, body, sent_at, is_read
         FROM messages
         WHERE conversation_key=$1
         ORDER BY sent_at ASC, seq ASC`, conversationKey)
	return msgs, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, seq, conversation_key, sender_id, receiver_id, body, sent_at, is_read
         FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, apperr.ErrMessageNotFound
	}
	return msg, err
}

// MarkRead flips is_read to true. Only the receiver may do it, and the flag
// never regresses. The returned bool reports whether state actually changed;
// marking an already-read message is a no-op, not an error.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID, conversationKey, readerID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET is_read=TRUE
         WHERE id=$1 AND conversation_key=$2 AND receiver_id=$3 AND is_read=FALSE`,
		messageID, conversationKey, readerID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	// Nothing updated: distinguish idempotent repeat from bad input.
	msg, err := r.GetMessage(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg.ConversationKey != conversationKey {
		return false, apperr.ErrMessageNotFound
	}
	if msg.ReceiverID != readerID {
		return false, apperr.Forbidden("only the receiver can mark a message read")
	}
	return false, nil
}
