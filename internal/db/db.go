package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string, log *zap.SugaredLogger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Infow("database migrations applied")

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            display_name TEXT NOT NULL,
            handle TEXT NOT NULL UNIQUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS conversations (
            key TEXT PRIMARY KEY,
            user1_id UUID NOT NULL REFERENCES users(id),
            user2_id UUID NOT NULL REFERENCES users(id),
            last_message TEXT NOT NULL DEFAULT '',
            last_message_at TIMESTAMPTZ,
            last_message_sender_id TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (user1_id < user2_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY,
            seq BIGSERIAL,
            conversation_key TEXT NOT NULL REFERENCES conversations(key) ON DELETE CASCADE,
            sender_id UUID NOT NULL,
            receiver_id UUID NOT NULL,
            body TEXT NOT NULL,
            sent_at TIMESTAMPTZ NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_order
            ON messages (conversation_key, sent_at, seq);`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
            id UUID PRIMARY KEY,
            from_user_id UUID NOT NULL REFERENCES users(id),
            from_handle TEXT NOT NULL,
            from_display_name TEXT NOT NULL,
            to_user_id UUID NOT NULL REFERENCES users(id),
            status TEXT NOT NULL DEFAULT 'pending',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            resolved_at TIMESTAMPTZ
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_friend_requests_pending
            ON friend_requests (from_user_id, to_user_id) WHERE status = 'pending';`,
		`CREATE TABLE IF NOT EXISTS friendships (
            user1_id UUID NOT NULL REFERENCES users(id),
            user2_id UUID NOT NULL REFERENCES users(id),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (user1_id, user2_id),
            CHECK (user1_id < user2_id)
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
