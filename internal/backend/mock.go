package backend

import (
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockStore) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockStore) CreateMatchRequest(params CreateMatchRequestParams) (MatchRequest, error) {
	args := m.Called(params)
	return args.Get(0).(MatchRequest), args.Error(1)
}
func (m *MockStore) MatchRequestExists(requestId int) (bool, error) {
	args := m.Called(requestId)
	return args.Bool(0), args.Error(1)
}
func (m *MockStore) DeleteMatchRequest(requestId int) error {
	args := m.Called(requestId)
	return args.Error(0)
}
func (m *MockStore) GetFriendForUser(userId, friendId int) (Friend, error) {
	args := m.Called(userId, friendId)
	return args.Get(0).(Friend), args.Error(1)
}
func (m *MockStore) ListFriends(userId int) ([]Friend, error) {
	args := m.Called(userId)
	return args.Get(0).([]Friend), args.Error(1)
}
func (m *MockStore) GetMessages(conversationId int) ([]Message, error) {
	args := m.Called(conversationId)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockStore) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockStore) MarkConversationRead(conversationId, readerId int) error {
	args := m.Called(conversationId, readerId)
	return args.Error(0)
}
func (m *MockStore) MarkMessageRead(messageId int) error {
	args := m.Called(messageId)
	return args.Error(0)
}
func (m *MockStore) CountUnread(userId int) (int, error) {
	args := m.Called(userId)
	return args.Int(0), args.Error(1)
}
func (m *MockStore) BlockUser(userId, peerId, conversationId int) error {
	args := m.Called(userId, peerId, conversationId)
	return args.Error(0)
}
