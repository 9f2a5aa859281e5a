// Package registry holds the process-wide catalog of chat rooms. The
// registry exclusively owns room records; it is created at startup and
// passed by handle to every component that needs it.
package registry

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kingodev/socialchat/internal/types"
)

const (
	// GeneralRoom always exists and can never be deleted.
	GeneralRoom = "general"

	maxRoomNameLen = 32
)

var (
	ErrInvalidName   = errors.New("invalid room name")
	ErrNameTooLong   = fmt.Errorf("room name exceeds %d characters", maxRoomNameLen)
	ErrRoomExists    = errors.New("room already exists")
	ErrRoomNotFound  = errors.New("room not found")
	ErrProtectedRoom = errors.New("room is protected")
	ErrNotAuthorized = errors.New("not authorized to delete room")
)

// Presence is the read-only view of the connection manager the registry
// uses to annotate listings with live membership.
type Presence interface {
	OnlineCount(room string) int
	OnlineUsernames(room string) []string
}

type RoomRegistry struct {
	log      *log.Logger
	presence Presence

	mu    sync.RWMutex
	rooms map[string]types.Room
	// order preserves insertion order for listings
	order []string
}

func NewRoomRegistry(logger *log.Logger, presence Presence) *RoomRegistry {
	r := &RoomRegistry{
		log:      logger,
		presence: presence,
		rooms:    make(map[string]types.Room),
	}

	// the default room exists from process start
	r.rooms[GeneralRoom] = types.Room{
		Name:        GeneralRoom,
		Description: "The main room, open to everyone",
		Owner:       "system",
		CreatedAt:   time.Now().UTC(),
	}
	r.order = append(r.order, GeneralRoom)

	return r
}

// Slugify normalizes a room name: lowercased, internal whitespace collapsed
// to single hyphens.
func Slugify(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, "-")
}

// ListRooms returns all rooms in insertion order, each annotated with the
// current online count and usernames.
func (r *RoomRegistry) ListRooms() []types.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]types.Room, 0, len(r.order))
	for _, name := range r.order {
		room := r.rooms[name]
		room.Online = r.presence.OnlineCount(name)
		room.OnlineUsers = r.presence.OnlineUsernames(name)
		rooms = append(rooms, room)
	}

	return rooms
}

// Get returns the room with the given name, or ErrRoomNotFound.
func (r *RoomRegistry) Get(name string) (types.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[name]
	if !ok {
		return types.Room{}, ErrRoomNotFound
	}

	return room, nil
}

// CreateRoom normalizes name and inserts a new room owned by owner. The new
// room is visible to listings and handshakes as soon as this returns.
func (r *RoomRegistry) CreateRoom(name, description, owner string) (types.Room, error) {
	slug := Slugify(name)
	if slug == "" {
		return types.Room{}, ErrInvalidName
	}
	if len(slug) > maxRoomNameLen {
		return types.Room{}, ErrNameTooLong
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[slug]; ok {
		return types.Room{}, ErrRoomExists
	}

	room := types.Room{
		Name:        slug,
		Description: description,
		Owner:       owner,
		CreatedAt:   time.Now().UTC(),
	}
	r.rooms[slug] = room
	r.order = append(r.order, slug)

	r.log.Printf("created room %q (owner %q)", slug, owner)
	return room, nil
}

// DeleteRoom removes the named room. Only the room's owner or a requester
// holding at least the admin role may delete it; the general room is
// protected regardless of privilege. Live connections in the room are not
// closed; the room simply stops accepting new handshakes.
func (r *RoomRegistry) DeleteRoom(name, requester string, role types.Role) error {
	if name == GeneralRoom {
		return ErrProtectedRoom
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[name]
	if !ok {
		return ErrRoomNotFound
	}

	if room.Owner != requester && !role.AtLeast(types.RoleAdmin) {
		return ErrNotAuthorized
	}

	delete(r.rooms, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.log.Printf("deleted room %q (requested by %q)", name, requester)
	return nil
}
