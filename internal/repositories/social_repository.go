package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chatify-service/internal/apperr"
	"chatify-service/internal/models"
)

// SocialRepository owns friend requests and the connection graph.
type SocialRepository interface {
	CreateRequest(ctx context.Context, from models.User, toUserID string) (models.FriendRequest, error)
	Accept(ctx context.Context, requestID, userID string) (models.FriendRequest, error)
	Decline(ctx context.Context, requestID, userID string) (models.FriendRequest, error)
	GetRequest(ctx context.Context, requestID string) (models.FriendRequest, error)
	ListPendingFor(ctx context.Context, userID string) ([]models.FriendRequest, error)
	ListFriends(ctx context.Context, userID string) ([]models.PublicUser, error)
	AreConnected(ctx context.Context, userA, userB string) (bool, error)
	Status(ctx context.Context, userA, userB string) (models.ConnectionStatus, error)
}

// SocialRepo is a sqlx implementation of SocialRepository.
type SocialRepo struct {
	db *sqlx.DB
}

// NewSocialRepo constructs a SocialRepo.
func NewSocialRepo(db *sqlx.DB) *SocialRepo {
	return &SocialRepo{db: db}
}

const requestColumns = `id, from_user_id, from_handle, from_display_name, to_user_id, status, created_at, resolved_at`

func canonicalPair(a, b string) (string, string) {
	if a > b {
		a, b = b, a
	}
	return a, b
}

// CreateRequest inserts a pending request. Duplicate pending requests in
// either direction are rejected, as is a request between already-connected
// users. The partial unique index backs the same guarantee under races.
func (r *SocialRepo) CreateRequest(ctx context.Context, from models.User, toUserID string) (models.FriendRequest, error) {
	if from.ID == toUserID {
		return models.FriendRequest{}, apperr.ErrSelfRequest
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.FriendRequest{}, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, toUserID); err != nil {
		return models.FriendRequest{}, err
	}
	if !exists {
		return models.FriendRequest{}, apperr.ErrUserNotFound
	}

	user1, user2 := canonicalPair(from.ID, toUserID)
	if err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM friendships WHERE user1_id=$1 AND user2_id=$2)`, user1, user2); err != nil {
		return models.FriendRequest{}, err
	}
	if exists {
		return models.FriendRequest{}, apperr.ErrAlreadyConnected
	}

	if err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM friend_requests
         WHERE status='pending'
         AND ((from_user_id=$1 AND to_user_id=$2) OR (from_user_id=$2 AND to_user_id=$1)))`,
		from.ID, toUserID); err != nil {
		return models.FriendRequest{}, err
	}
	if exists {
		return models.FriendRequest{}, apperr.ErrRequestAlreadyPending
	}

	var req models.FriendRequest
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO friend_requests (id, from_user_id, from_handle, from_display_name, to_user_id)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING `+requestColumns,
		uuid.NewString(), from.ID, from.Handle, from.DisplayName, toUserID).
		StructScan(&req)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.FriendRequest{}, apperr.ErrRequestAlreadyPending
		}
		return models.FriendRequest{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.FriendRequest{}, err
	}
	return req, nil
}

// Accept resolves a pending request and inserts the symmetric connection in
// the same transaction, so the status transition and the graph update commit
// or roll back together. Concurrent accept/decline on one request resolve
// deterministically: the guarded update lets exactly one transition win and
// the loser gets ErrAlreadyResolved.
func (r *SocialRepo) Accept(ctx context.Context, requestID, userID string) (models.FriendRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.FriendRequest{}, err
	}
	defer tx.Rollback()

	req, err := r.resolve(ctx, tx, requestID, userID, models.RequestAccepted)
	if err != nil {
		return models.FriendRequest{}, err
	}

	user1, user2 := canonicalPair(req.FromUserID, req.ToUserID)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO friendships (user1_id, user2_id) VALUES ($1, $2)`, user1, user2); err != nil {
		return models.FriendRequest{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.FriendRequest{}, err
	}
	return req, nil
}

// Decline resolves a pending request without touching the graph.
func (r *SocialRepo) Decline(ctx context.Context, requestID, userID string) (models.FriendRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.FriendRequest{}, err
	}
	defer tx.Rollback()

	req, err := r.resolve(ctx, tx, requestID, userID, models.RequestDeclined)
	if err != nil {
		return models.FriendRequest{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.FriendRequest{}, err
	}
	return req, nil
}

// resolve performs the exactly-once pending transition. The WHERE guard on
// status makes the update a compare-and-swap; zero rows means someone else
// already resolved it.
func (r *SocialRepo) resolve(ctx context.Context, tx *sqlx.Tx, requestID, userID string, status models.FriendRequestStatus) (models.FriendRequest, error) {
	var current models.FriendRequest
	err := tx.GetContext(ctx, &current,
		`SELECT `+requestColumns+` FROM friend_requests WHERE id=$1 FOR UPDATE`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendRequest{}, apperr.ErrRequestNotFound
	}
	if err != nil {
		return models.FriendRequest{}, err
	}
	if current.ToUserID != userID {
		return models.FriendRequest{}, apperr.Forbidden("only the recipient can resolve a friend request")
	}
	if current.Status != models.RequestPending {
		return models.FriendRequest{}, apperr.ErrAlreadyResolved
	}

	now := time.Now().UTC()
	var req models.FriendRequest
	err = tx.QueryRowxContext(ctx,
		`UPDATE friend_requests SET status=$1, resolved_at=$2
         WHERE id=$3 AND status='pending'
         RETURNING `+requestColumns,
		status, now, requestID).
		StructScan(&req)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendRequest{}, apperr.ErrAlreadyResolved
	}
	if err != nil {
		return models.FriendRequest{}, err
	}
	return req, nil
}

// GetRequest fetches a request by id.
func (r *SocialRepo) GetRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	var req models.FriendRequest
	err := r.db.GetContext(ctx, &req,
		`SELECT `+requestColumns+` FROM friend_requests WHERE id=$1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendRequest{}, apperr.ErrRequestNotFound
	}
	return req, err
}

// ListPendingFor returns the user's incoming pending requests, oldest first.
func (r *SocialRepo) ListPendingFor(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	var reqs []models.FriendRequest
	err := r.db.SelectContext(ctx, &reqs,
		`SELECT `+requestColumns+` FROM friend_requests
         WHERE to_user_id=$1 AND status='pending'
         ORDER BY created_at ASC`, userID)
	return reqs, err
}

// ListFriends returns the user's connections with their public info.
func (r *SocialRepo) ListFriends(ctx context.Context, userID string) ([]models.PublicUser, error) {
	var friends []models.PublicUser
	err := r.db.SelectContext(ctx, &friends,
		`SELECT u.id, u.display_name, u.handle
         FROM friendships f
         JOIN users u ON u.id = CASE WHEN f.user1_id=$1 THEN f.user2_id ELSE f.user1_id END
         WHERE f.user1_id=$1 OR f.user2_id=$1
         ORDER BY u.handle ASC`, userID)
	return friends, err
}

// AreConnected checks the symmetric connection set.
func (r *SocialRepo) AreConnected(ctx context.Context, userA, userB string) (bool, error) {
	user1, user2 := canonicalPair(userA, userB)
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM friendships WHERE user1_id=$1 AND user2_id=$2)`, user1, user2)
	return exists, err
}

// Status derives the relationship between two users: accepted when
// connected, pending when an unresolved request exists in either direction,
// none otherwise.
func (r *SocialRepo) Status(ctx context.Context, userA, userB string) (models.ConnectionStatus, error) {
	connected, err := r.AreConnected(ctx, userA, userB)
	if err != nil {
		return models.ConnectionNone, err
	}
	if connected {
		return models.ConnectionAccepted, nil
	}

	var pending bool
	err = r.db.GetContext(ctx, &pending,
		`SELECT EXISTS(SELECT 1 FROM friend_requests
         WHERE status='pending'
         AND ((from_user_id=$1 AND to_user_id=$2) OR (from_user_id=$2 AND to_user_id=$1)))`,
		userA, userB)
	if err != nil {
		return models.ConnectionNone, err
	}
	if pending {
		return models.ConnectionPending, nil
	}
	return models.ConnectionNone, nil
}
