package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatify-service/internal/apperr"
	"chatify-service/internal/models"
)

var requestTestColumns = []string{"id", "from_user_id", "from_handle", "from_display_name", "to_user_id", "status", "created_at", "resolved_at"}

func pendingRequestRow(id, from, to string) *sqlmock.Rows {
	return sqlmock.NewRows(requestTestColumns).
		AddRow(id, from, "alice", "Alice", to, "pending", time.Now().UTC(), nil)
}

func TestAcceptResolvesAndConnectsAtomically(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSocialRepo(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM friend_requests WHERE id=\\$1 FOR UPDATE").
		WithArgs("r1").
		WillReturnRows(pendingRequestRow("r1", "u1", "u2"))
	mock.ExpectQuery("UPDATE friend_requests SET status=\\$1").
		WithArgs(models.RequestAccepted, sqlmock.AnyArg(), "r1").
		WillReturnRows(sqlmock.NewRows(requestTestColumns).
			AddRow("r1", "u1", "alice", "Alice", "u2", "accepted", now, now))
	mock.ExpectExec("INSERT INTO friendships").
		WithArgs("u1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	req, err := repo.Accept(context.Background(), "r1", "u2")
	require.NoError(t, err)
	assert.Equal(t, models.RequestAccepted, req.Status)
	require.NotNil(t, req.ResolvedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptAlreadyResolvedRequest(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSocialRepo(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM friend_requests WHERE id=\\$1 FOR UPDATE").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(requestTestColumns).
			AddRow("r1", "u1", "alice", "Alice", "u2", "declined", now, now))
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), "r1", "u2")
	assert.ErrorIs(t, err, apperr.ErrAlreadyResolved)
	// No friendship insert, no commit: the guard stops the transaction cold.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveRaceLoserGetsAlreadyResolved(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSocialRepo(db)

	// The row still read pending under the lock, but the guarded update
	// matched nothing: the other transition committed first.
	mock.ExpectBegin()
	mock.ExpectQuery("FROM friend_requests WHERE id=\\$1 FOR UPDATE").
		WithArgs("r1").
		WillReturnRows(pendingRequestRow("r1", "u1", "u2"))
	mock.ExpectQuery("UPDATE friend_requests SET status=\\$1").
		WithArgs(models.RequestDeclined, sqlmock.AnyArg(), "r1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Decline(context.Background(), "r1", "u2")
	assert.ErrorIs(t, err, apperr.ErrAlreadyResolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveOnlyByRecipient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSocialRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM friend_requests WHERE id=\\$1 FOR UPDATE").
		WithArgs("r1").
		WillReturnRows(pendingRequestRow("r1", "u1", "u2"))
	mock.ExpectRollback()

	_, err := repo.Accept(context.Background(), "r1", "u1")
	require.Error(t, err)
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclineLeavesGraphUntouched(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSocialRepo(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM friend_requests WHERE id=\\$1 FOR UPDATE").
		WithArgs("r1").
		WillReturnRows(pendingRequestRow("r1", "u1", "u2"))
	mock.ExpectQuery("UPDATE friend_requests SET status=\\$1").
		WithArgs(models.RequestDeclined, sqlmock.AnyArg(), "r1").
		WillReturnRows(sqlmock.NewRows(requestTestColumns).
			AddRow("r1", "u1", "alice", "Alice", "u2", "declined", now, now))
	mock.ExpectCommit()

	req, err := repo.Decline(context.Background(), "r1", "u2")
	require.NoError(t, err)
	assert.Equal(t, models.RequestDeclined, req.Status)
	// ExpectationsWereMet doubles as proof no friendship insert ran.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequestRejectsAlreadyConnected(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSocialRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM users").
		WithArgs("u2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM friendships").
		WithArgs("u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.CreateRequest(context.Background(), models.User{ID: "u1"}, "u2")
	assert.ErrorIs(t, err, apperr.ErrAlreadyConnected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequestMapsUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSocialRepo(db)

	// The transactional pending check passed, but a concurrent insert won;
	// the partial unique index reports it as 23505.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM users").
		WithArgs("u2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM friendships").
		WithArgs("u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM friend_requests").
		WithArgs("u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO friend_requests").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.CreateRequest(context.Background(), models.User{ID: "u1", Handle: "alice"}, "u2")
	assert.ErrorIs(t, err, apperr.ErrRequestAlreadyPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}
