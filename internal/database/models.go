package database

import (
	"time"

	"github.com/kingodev/socialchat/internal/types"
)

type User struct {
	Id           int
	Username     string
	DisplayName  string
	PasswordHash string
	Role         types.Role
	CreatedAt    time.Time
}

type Message struct {
	Id        int
	Content   string
	SenderId  int
	Username  string
	Room      string
	IsRead    bool
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	DisplayName  string
	PasswordHash string
	Role         types.Role
}

type CreateMessageParams struct {
	Content  string
	SenderId int
	Room     string
}
