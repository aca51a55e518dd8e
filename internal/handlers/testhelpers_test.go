package handlers

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"chatify-service/internal/fanout"
	"chatify-service/internal/mocks"
	"chatify-service/internal/presence"
	"chatify-service/internal/ws"
)

// testDeps bundles every collaborator a handler test needs. The fanout is
// real; only the repositories and the event publisher are mocked.
type testDeps struct {
	userRepo   *mocks.UserRepositoryMock
	convRepo   *mocks.ConversationRepositoryMock
	msgRepo    *mocks.MessageRepositoryMock
	socialRepo *mocks.SocialRepositoryMock
	publisher  *mocks.PublisherMock
	tracker    *presence.Tracker
	fan        *fanout.Fanout
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	log := zap.NewNop().Sugar()
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	deps := &testDeps{
		userRepo:   new(mocks.UserRepositoryMock),
		convRepo:   new(mocks.ConversationRepositoryMock),
		msgRepo:    new(mocks.MessageRepositoryMock),
		socialRepo: new(mocks.SocialRepositoryMock),
		publisher:  publisher,
		tracker:    presence.NewTracker(client, 45*time.Second, log),
	}
	hub := ws.NewHub(publisher, log)
	deps.fan = fanout.New(hub, deps.msgRepo, deps.socialRepo, deps.tracker, publisher, log)
	return deps
}

// authAs injects the authenticated user id the way the auth middleware does.
func authAs(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}
