package server

import (
	"fmt"
	"time"
)

type EventType string

const (
	EventSystem EventType = "system"
	EventChat   EventType = "chat"
)

// ServerEvent is the wire envelope for everything fanned out to a room.
// One logical event is exactly one JSON text frame, discriminated by Type.
type ServerEvent struct {
	Type EventType `json:"type"`
	Text string    `json:"text"`
	Room string    `json:"room"`
	// Users carries the current online-username list on system events.
	Users []string `json:"users,omitempty"`
	// Username and Timestamp are set on chat events only.
	Username  string `json:"username,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func SystemEvent(room, text string, users []string) *ServerEvent {
	return &ServerEvent{
		Type:  EventSystem,
		Text:  text,
		Room:  room,
		Users: users,
	}
}

func ChatEvent(room, username, text string, timestamp time.Time) *ServerEvent {
	return &ServerEvent{
		Type:      EventChat,
		Text:      text,
		Room:      room,
		Username:  username,
		Timestamp: timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func JoinedEvent(room, username string, users []string) *ServerEvent {
	return SystemEvent(room, fmt.Sprintf("%s has joined the room", username), users)
}

func LeftEvent(room, username string, users []string) *ServerEvent {
	return SystemEvent(room, fmt.Sprintf("%s has left the room", username), users)
}
