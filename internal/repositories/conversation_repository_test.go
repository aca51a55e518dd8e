package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatify-service/internal/apperr"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

// afterTime matches any timestamp argument strictly after the reference.
type afterTime struct {
	ref time.Time
}

func (a afterTime) Match(v driver.Value) bool {
	ts, ok := v.(time.Time)
	return ok && ts.After(a.ref)
}

func TestNextSentAt(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		last sql.NullTime
		want time.Time
	}{
		{
			name: "first message uses the clock",
			now:  now,
			last: sql.NullTime{},
			want: now,
		},
		{
			name: "clock ahead of last message uses the clock",
			now:  now,
			last: sql.NullTime{Valid: true, Time: now.Add(-time.Second)},
			want: now,
		},
		{
			name: "clock equal to last message bumps by a microsecond",
			now:  now,
			last: sql.NullTime{Valid: true, Time: now},
			want: now.Add(time.Microsecond),
		},
		{
			name: "clock behind last message never regresses",
			now:  now,
			last: sql.NullTime{Valid: true, Time: now.Add(time.Hour)},
			want: now.Add(time.Hour + time.Microsecond),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, nextSentAt(tc.now, tc.last))
		})
	}
}

func TestNextSentAtIsMonotonicAcrossSends(t *testing.T) {
	// A skewed clock stuck in the past must still yield strictly increasing
	// timestamps send after send.
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	last := sql.NullTime{}
	for i := 0; i < 5; i++ {
		next := nextSentAt(now, last)
		if last.Valid {
			assert.True(t, next.After(last.Time))
		}
		last = sql.NullTime{Valid: true, Time: next}
	}
}

func TestSendMessageClampsTimestampUnderRowLock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepo(db)

	// The conversation's last message sits in the future relative to the
	// wall clock; the stored sent_at must land after it anyway.
	future := time.Now().UTC().Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversations").
		WithArgs("u1_u2", "u1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT last_message_at FROM conversations WHERE key=\\$1 FOR UPDATE").
		WithArgs("u1_u2").
		WillReturnRows(sqlmock.NewRows([]string{"last_message_at"}).AddRow(future))
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(sqlmock.AnyArg(), "u1_u2", "u1", "u2", "hello", afterTime{ref: future}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "seq", "conversation_key", "sender_id", "receiver_id", "body", "sent_at", "is_read"}).
			AddRow("m1", 1, "u1_u2", "u1", "u2", "hello", future.Add(time.Microsecond), false))
	mock.ExpectExec("UPDATE conversations SET last_message=").
		WithArgs("hello", future.Add(time.Microsecond), "u1", "u1_u2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg, err := repo.SendMessage(context.Background(), "u1", "u2", "hello")
	require.NoError(t, err)
	assert.True(t, msg.SentAt.After(future))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendMessageRejectsEmptyBody(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewConversationRepo(db)

	_, err := repo.SendMessage(context.Background(), "u1", "u2", "   ")
	assert.ErrorIs(t, err, apperr.ErrEmptyMessageBody)
}

func TestSendMessageRejectsSelfSend(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewConversationRepo(db)

	_, err := repo.SendMessage(context.Background(), "u1", "u1", "hi")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}
