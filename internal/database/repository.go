package database

import "errors"

// ErrDuplicateUsername is returned by CreateAccount when the username is
// already taken.
var ErrDuplicateUsername = errors.New("username already taken")

type SocialChatRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountByUsername(username string) (User, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessages(room string, limit int) ([]Message, error)
}
