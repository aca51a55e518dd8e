package models

import "time"

// FriendRequestStatus is the request lifecycle state. Pending transitions to
// accepted or declined exactly once; terminal states are immutable.
type FriendRequestStatus string

const (
	RequestPending  FriendRequestStatus = "pending"
	RequestAccepted FriendRequestStatus = "accepted"
	RequestDeclined FriendRequestStatus = "declined"
)

// FriendRequest carries denormalized sender info so inbox listings need no
// join against the users table.
type FriendRequest struct {
	ID              string              `db:"id" json:"id"`
	FromUserID      string              `db:"from_user_id" json:"from_user_id"`
	FromHandle      string              `db:"from_handle" json:"from_handle"`
	FromDisplayName string              `db:"from_display_name" json:"from_display_name"`
	ToUserID        string              `db:"to_user_id" json:"to_user_id"`
	Status          FriendRequestStatus `db:"status" json:"status"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	ResolvedAt      *time.Time          `db:"resolved_at" json:"resolved_at,omitempty"`
}

// Friend is a connected user joined with presence.
type Friend struct {
	PublicUser
	IsOnline   bool       `json:"is_online"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

// ConnectionStatus is the derived relationship between two users.
type ConnectionStatus string

const (
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionNone     ConnectionStatus = "none"
)

// SocialEvent is pushed to a user's social inbox subscription: the full set
// of pending incoming requests plus the current friend list.
type SocialEvent struct {
	Type     string          `json:"type"`
	UserID   string          `json:"user_id"`
	Requests []FriendRequest `json:"requests"`
	Friends  []Friend        `json:"friends"`
}
