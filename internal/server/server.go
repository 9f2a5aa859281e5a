// Package server implements the real-time core: the per-room connection
// manager and the per-connection broadcast loop.
package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kingodev/socialchat/internal/database"
	"github.com/kingodev/socialchat/internal/stats"
)

const (
	statNumConnections = "NumConnections"
	statNumActiveRooms = "NumActiveRooms"
	statNumMessages    = "NumMessages"
	statNumBroadcasts  = "NumBroadcasts"
)

// ChatServer tracks which connections belong to which room and fans events
// out to them. Membership lists are mutated from admissions, explicit
// disconnects and broadcast-triggered evictions concurrently; each room's
// list is guarded by its own lock so rooms never block each other.
type ChatServer struct {
	log   *log.Logger
	db    database.SocialChatRepository
	stats stats.StatsProvider

	mu      sync.RWMutex
	rooms   map[string]*roomMembers
	clients map[*Client]struct{}
}

// roomMembers is one room's live membership list, in admission order.
// unloaded marks a list that has been dropped from the room table so that an
// admission racing the unload retries against a fresh list.
type roomMembers struct {
	mu       sync.Mutex
	clients  []*Client
	unloaded bool
}

func NewChatServer(logger *log.Logger, db database.SocialChatRepository, sp stats.StatsProvider) (*ChatServer, error) {
	for _, metric := range []string{statNumConnections, statNumActiveRooms, statNumMessages, statNumBroadcasts} {
		sp.RegisterMetric(metric)
	}

	return &ChatServer{
		log:     logger,
		db:      db,
		stats:   sp,
		rooms:   make(map[string]*roomMembers),
		clients: make(map[*Client]struct{}),
	}, nil
}

// membership returns the named room's list, creating it on demand when
// create is set.
func (cs *ChatServer) membership(room string, create bool) *roomMembers {
	cs.mu.RLock()
	rm := cs.rooms[room]
	cs.mu.RUnlock()
	if rm != nil || !create {
		return rm
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if rm = cs.rooms[room]; rm == nil {
		rm = &roomMembers{}
		cs.rooms[room] = rm
		cs.stats.Incr(statNumActiveRooms)
	}
	return rm
}

// Join admits c to its room and fans out the joined event, delivered to all
// members including the joiner with the updated online-username list.
func (cs *ChatServer) Join(c *Client) {
	cs.connect(c)
	cs.Broadcast(c.room, JoinedEvent(c.room, c.user.Username, cs.OnlineUsernames(c.room)), nil)
	cs.log.Printf("session %s: %q joined room %q", c.sessionId, c.user.Username, c.room)
}

func (cs *ChatServer) connect(c *Client) {
	for {
		rm := cs.membership(c.room, true)
		rm.mu.Lock()
		if rm.unloaded {
			rm.mu.Unlock()
			continue
		}
		rm.clients = append(rm.clients, c)
		rm.mu.Unlock()
		break
	}

	cs.mu.Lock()
	cs.clients[c] = struct{}{}
	cs.mu.Unlock()

	cs.stats.Incr(statNumConnections)
}

// Leave evicts c from its room and fans out the left event to the remaining
// members. Safe to call after a broadcast-triggered eviction has already
// removed the membership.
func (cs *ChatServer) Leave(c *Client) {
	cs.Disconnect(c)
	cs.Broadcast(c.room, LeftEvent(c.room, c.user.Username, cs.OnlineUsernames(c.room)), nil)
	cs.log.Printf("session %s: %q left room %q", c.sessionId, c.user.Username, c.room)
}

// Disconnect removes c's membership if present. Removing a non-member is a
// no-op.
func (cs *ChatServer) Disconnect(c *Client) {
	rm := cs.membership(c.room, false)
	if rm != nil {
		rm.mu.Lock()
		rm.remove(c)
		empty := len(rm.clients) == 0
		rm.mu.Unlock()

		if empty {
			cs.unloadRoom(c.room)
		}
	}

	cs.mu.Lock()
	if _, ok := cs.clients[c]; ok {
		delete(cs.clients, c)
		cs.stats.Decr(statNumConnections)
	}
	cs.mu.Unlock()
}

// unloadRoom drops the room's membership list once it has emptied.
func (cs *ChatServer) unloadRoom(room string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	rm := cs.rooms[room]
	if rm == nil {
		return
	}

	rm.mu.Lock()
	if len(rm.clients) == 0 {
		rm.unloaded = true
		delete(cs.rooms, room)
		cs.stats.Decr(statNumActiveRooms)
		cs.log.Printf("unloaded empty room %q", room)
	}
	rm.mu.Unlock()
}

// Broadcast sends ev to every member of room except skip. A member whose
// send fails is evicted as part of this call; delivery to the remaining
// members continues.
func (cs *ChatServer) Broadcast(room string, ev *ServerEvent, skip *Client) {
	rm := cs.membership(room, false)
	if rm == nil {
		return
	}

	rm.mu.Lock()
	var failed []*Client
	for _, c := range rm.clients {
		if c == skip {
			continue
		}
		if !c.queueEvent(ev) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		cs.log.Printf("session %s: send failed, evicting from room %q", c.sessionId, room)
		rm.remove(c)
	}
	rm.mu.Unlock()

	// stopping the pumps closes the transport, which drives the client's own
	// cleanup and left broadcast
	for _, c := range failed {
		c.stopClient()
	}

	cs.stats.Incr(statNumBroadcasts)
}

func (cs *ChatServer) OnlineCount(room string) int {
	rm := cs.membership(room, false)
	if rm == nil {
		return 0
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.clients)
}

func (cs *ChatServer) OnlineUsernames(room string) []string {
	rm := cs.membership(room, false)
	if rm == nil {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	usernames := make([]string, 0, len(rm.clients))
	for _, c := range rm.clients {
		usernames = append(usernames, c.user.Username)
	}
	return usernames
}

// remove deletes c from the list. Callers hold rm.mu.
func (rm *roomMembers) remove(c *Client) {
	for i, member := range rm.clients {
		if member == c {
			rm.clients = append(rm.clients[:i], rm.clients[i+1:]...)
			return
		}
	}
}

// Shutdown stops every live connection and waits for their cleanup to
// finish or ctx to expire.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.mu.RLock()
	clients := make([]*Client, 0, len(cs.clients))
	for c := range cs.clients {
		clients = append(clients, c)
	}
	cs.mu.RUnlock()

	cs.log.Printf("stopping %d connections", len(clients))
	for _, c := range clients {
		c.stopClient()
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		cs.mu.RLock()
		remaining := len(cs.clients)
		cs.mu.RUnlock()
		if remaining == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
