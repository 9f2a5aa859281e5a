package database

import (
	"github.com/stretchr/testify/mock"
)

type MockSocialChatRepository struct {
	mock.Mock
}

func (m *MockSocialChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockSocialChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockSocialChatRepository) GetAccountByUsername(username string) (User, error) {
	args := m.Called(username)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockSocialChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockSocialChatRepository) GetMessages(room string, limit int) ([]Message, error) {
	args := m.Called(room, limit)
	return args.Get(0).([]Message), args.Error(1)
}
