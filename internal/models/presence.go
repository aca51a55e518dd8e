package models

import "time"

// PresenceRecord is one per user, created at signup and never deleted.
// LastSeenAt is the sole historical signal once the user is offline.
type PresenceRecord struct {
	UserID     string    `json:"user_id"`
	IsOnline   bool      `json:"is_online"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// PresenceEvent is pushed on every presence transition, including ones
// produced by the liveness sweeper.
type PresenceEvent struct {
	Type     string         `json:"type"`
	Presence PresenceRecord `json:"presence"`
}
