package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chatify-service/internal/apperr"
	"chatify-service/internal/models"
	"chatify-service/internal/telemetry"
)

func setupSocialRouter(deps *testDeps, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()
	emitter := telemetry.NewAuditEmitter(deps.publisher, "audit.chatify", "chatify-service", "test", log)
	handler := NewSocialHandler(deps.socialRepo, deps.userRepo, deps.fan, emitter, log)
	r := gin.New()
	r.Use(authAs(userID))
	r.POST("/friends/requests", handler.SendRequest)
	r.GET("/friends/requests", handler.ListRequests)
	r.POST("/friends/requests/:request_id/accept", handler.AcceptRequest)
	r.POST("/friends/requests/:request_id/decline", handler.DeclineRequest)
	r.GET("/friends", handler.ListFriends)
	r.GET("/friends/status/:user_id", handler.ConnectionStatus)
	return r
}

// expectSocialSnapshot arms the repo calls SocialChanged makes for one user.
func expectSocialSnapshot(deps *testDeps, userID string) {
	deps.socialRepo.On("ListPendingFor", mock.Anything, userID).Return([]models.FriendRequest{}, nil).Once()
	deps.socialRepo.On("ListFriends", mock.Anything, userID).Return([]models.PublicUser{}, nil).Once()
}

func TestSendRequestSuccess(t *testing.T) {
	deps := newTestDeps(t)
	router := setupSocialRouter(deps, "u1")

	from := models.User{ID: "u1", Handle: "alice", DisplayName: "Alice"}
	deps.userRepo.On("GetByID", mock.Anything, "u1").Return(from, nil).Once()
	deps.socialRepo.On("CreateRequest", mock.Anything, from, "u2").
		Return(models.FriendRequest{ID: "r1", FromUserID: "u1", FromHandle: "alice", ToUserID: "u2", Status: models.RequestPending}, nil).Once()
	expectSocialSnapshot(deps, "u2")

	body := bytes.NewBufferString(`{"to_user_id":"u2"}`)
	req := httptest.NewRequest(http.MethodPost, "/friends/requests", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var request models.FriendRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&request))
	assert.Equal(t, "r1", request.ID)
	assert.Equal(t, models.RequestPending, request.Status)

	deps.socialRepo.AssertExpectations(t)
}

func TestSendRequestDuplicatePending(t *testing.T) {
	deps := newTestDeps(t)
	router := setupSocialRouter(deps, "u1")

	deps.userRepo.On("GetByID", mock.Anything, "u1").Return(models.User{ID: "u1"}, nil).Once()
	deps.socialRepo.On("CreateRequest", mock.Anything, mock.Anything, "u2").
		Return(models.FriendRequest{}, apperr.ErrRequestAlreadyPending).Once()

	body := bytes.NewBufferString(`{"to_user_id":"u2"}`)
	req := httptest.NewRequest(http.MethodPost, "/friends/requests", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSendRequestToSelf(t *testing.T) {
	deps := newTestDeps(t)
	router := setupSocialRouter(deps, "u1")

	deps.userRepo.On("GetByID", mock.Anything, "u1").Return(models.User{ID: "u1"}, nil).Once()
	deps.socialRepo.On("CreateRequest", mock.Anything, mock.Anything, "u1").
		Return(models.FriendRequest{}, apperr.ErrSelfRequest).Once()

	body := bytes.NewBufferString(`{"to_user_id":"u1"}`)
	req := httptest.NewRequest(http.MethodPost, "/friends/requests", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcceptRequestSuccess(t *testing.T) {
	deps := newTestDeps(t)
	router := setupSocialRouter(deps, "u2")

	deps.socialRepo.On("Accept", mock.Anything, "r1", "u2").
		Return(models.FriendRequest{ID: "r1", FromUserID: "u1", ToUserID: "u2", Status: models.RequestAccepted}, nil).Once()
	expectSocialSnapshot(deps, "u1")
	expectSocialSnapshot(deps, "u2")

	req := httptest.NewRequest(http.MethodPost, "/friends/requests/r1/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var request models.FriendRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&request))
	assert.Equal(t, models.RequestAccepted, request.Status)

	deps.socialRepo.AssertExpectations(t)
}

func TestAcceptRequestAlreadyResolved(t *testing.T) {
	deps := newTestDeps(t)
	router := setupSocialRouter(deps, "u2")

	deps.socialRepo.On("Accept", mock.Anything, "r1", "u2").
		Return(models.FriendRequest{}, apperr.ErrAlreadyResolved).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests/r1/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	deps.socialRepo.AssertNotCalled(t, "ListPendingFor", mock.Anything, mock.Anything)
}

func TestDeclineRequestSuccess(t *testing.T) {
	deps := newTestDeps(t)
	router := setupSocialRouter(deps, "u2")

	deps.socialRepo.On("Decline", mock.Anything, "r1", "u2").
		Return(models.FriendRequest{ID: "r1", FromUserID: "u1", ToUserID: "u2", Status: models.RequestDeclined}, nil).Once()
	expectSocialSnapshot(deps, "u2")

	req := httptest.NewRequest(http.MethodPost, "/friends/requests/r1/decline", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var request models.FriendRequest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&request))
	assert.Equal(t, models.RequestDeclined, request.Status)
}

func TestDeclineRequestNotFound(t *testing.T) {
	deps := newTestDeps(t)
	router := setupSocialRouter(deps, "u2")

	deps.socialRepo.On("Decline", mock.Anything, "nope", "u2").
		Return(models.FriendRequest{}, apperr.ErrRequestNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/friends/requests/nope/decline", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRequestsEmpty(t *testing.T) {
	deps := newTestDeps(t)
	router := setupSocialRouter(deps, "u1")

	deps.socialRepo.On("ListPendingFor", mock.Anything, "u1").Return(([]models.FriendRequest)(nil), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/friends/requests", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"requests":[]}`, rec.Body.String())
}

func TestListFriendsAttachesPresence(t *testing.T) {
	deps := newTestDeps(t)
	router := setupSocialRouter(deps, "u1")

	_, err := deps.tracker.SetOnline(context.Background(), "u2")
	require.NoError(t, err)

	deps.socialRepo.On("ListPendingFor", mock.Anything, "u1").Return([]models.FriendRequest{}, nil).Once()
	deps.socialRepo.On("ListFriends", mock.Anything, "u1").
		Return([]models.PublicUser{{ID: "u2", Handle: "bob"}, {ID: "u3", Handle: "carol"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/friends", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Friends []models.Friend `json:"friends"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Friends, 2)
	assert.True(t, resp.Friends[0].IsOnline)
	assert.False(t, resp.Friends[1].IsOnline)
}

func TestConnectionStatus(t *testing.T) {
	deps := newTestDeps(t)
	router := setupSocialRouter(deps, "u1")

	deps.socialRepo.On("Status", mock.Anything, "u1", "u2").Return(models.ConnectionAccepted, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/friends/status/u2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"accepted"}`, rec.Body.String())
}
