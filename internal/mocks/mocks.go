package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chatify-service/internal/models"
	"chatify-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, email, passwordHash, displayName, handle string) (models.User, error) {
	args := m.Called(ctx, email, passwordHash, displayName, handle)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByHandle(ctx context.Context, handle string) (models.User, error) {
	args := m.Called(ctx, handle)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []string) ([]models.PublicUser, error) {
	args := m.Called(ctx, ids)
	var users []models.PublicUser
	if val := args.Get(0); val != nil {
		users = val.([]models.PublicUser)
	}
	return users, args.Error(1)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) SendMessage(ctx context.Context, senderID, receiverID, body string) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, key string) (models.Conversation, error) {
	args := m.Called(ctx, key)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) IsParticipant(ctx context.Context, key, userID string) (bool, error) {
	args := m.Called(ctx, key, userID)
	return args.Bool(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, conversationKey string) ([]models.Message, error) {
	args := m.Called(ctx, conversationKey)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, messageID, conversationKey, readerID string) (bool, error) {
	args := m.Called(ctx, messageID, conversationKey, readerID)
	return args.Bool(0), args.Error(1)
}

type SocialRepositoryMock struct {
	mock.Mock
}

func (m *SocialRepositoryMock) CreateRequest(ctx context.Context, from models.User, toUserID string) (models.FriendRequest, error) {
	args := m.Called(ctx, from, toUserID)
	var req models.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(models.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *SocialRepositoryMock) Accept(ctx context.Context, requestID, userID string) (models.FriendRequest, error) {
	args := m.Called(ctx, requestID, userID)
	var req models.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(models.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *SocialRepositoryMock) Decline(ctx context.Context, requestID, userID string) (models.FriendRequest, error) {
	args := m.Called(ctx, requestID, userID)
	var req models.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(models.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *SocialRepositoryMock) GetRequest(ctx context.Context, requestID string) (models.FriendRequest, error) {
	args := m.Called(ctx, requestID)
	var req models.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(models.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *SocialRepositoryMock) ListPendingFor(ctx context.Context, userID string) ([]models.FriendRequest, error) {
	args := m.Called(ctx, userID)
	var reqs []models.FriendRequest
	if val := args.Get(0); val != nil {
		reqs = val.([]models.FriendRequest)
	}
	return reqs, args.Error(1)
}

func (m *SocialRepositoryMock) ListFriends(ctx context.Context, userID string) ([]models.PublicUser, error) {
	args := m.Called(ctx, userID)
	var friends []models.PublicUser
	if val := args.Get(0); val != nil {
		friends = val.([]models.PublicUser)
	}
	return friends, args.Error(1)
}

func (m *SocialRepositoryMock) AreConnected(ctx context.Context, userA, userB string) (bool, error) {
	args := m.Called(ctx, userA, userB)
	return args.Bool(0), args.Error(1)
}

func (m *SocialRepositoryMock) Status(ctx context.Context, userA, userB string) (models.ConnectionStatus, error) {
	args := m.Called(ctx, userA, userB)
	var status models.ConnectionStatus
	if val := args.Get(0); val != nil {
		status = val.(models.ConnectionStatus)
	}
	return status, args.Error(1)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.SocialRepository = (*SocialRepositoryMock)(nil)
