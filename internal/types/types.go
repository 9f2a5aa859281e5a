package types

import (
	"time"
)

// Role is the privilege tier assigned to an account. Tiers are ordered
// root > admin > intern.
type Role string

const (
	RoleIntern Role = "intern"
	RoleAdmin  Role = "admin"
	RoleRoot   Role = "root"
)

var roleRank = map[Role]int{
	RoleIntern: 1,
	RoleAdmin:  2,
	RoleRoot:   3,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r holds privileges at or above other.
// Unknown roles rank below every known role.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

type User struct {
	Id          int       `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	Password    string    `json:"-"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type Room struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       string    `json:"owner"`
	Locked      bool      `json:"locked"`
	Online      int       `json:"online"`
	OnlineUsers []string  `json:"online_users,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type Message struct {
	Id        int       `json:"id"`
	Text      string    `json:"text"`
	SenderId  int       `json:"sender_id"`
	Username  string    `json:"username"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
}
