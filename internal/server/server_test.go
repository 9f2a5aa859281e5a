package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kingodev/socialchat/internal/database"
	"github.com/kingodev/socialchat/internal/stats"
	"github.com/kingodev/socialchat/internal/testutil"
	"github.com/kingodev/socialchat/internal/types"
)

// newTestChatServer creates a new ChatServer instance for testing purposes
func newTestChatServer(t *testing.T, db database.SocialChatRepository, su *stats.MockStatsUpdater) *ChatServer {
	su.On("RegisterMetric", mock.Anything).Return(nil).Times(4)

	logger := testutil.TestLogger(t)
	cs, err := NewChatServer(logger, db, su)
	if err != nil {
		t.Fatalf("failed to create test ChatServer: %v", err)
	}
	return cs
}

// newLooseStats returns a mock that tolerates any counter traffic, for
// tests that assert on membership rather than metrics.
func newLooseStats() *stats.MockStatsUpdater {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()
	return su
}

// newTestClient builds a client without a live transport; queueEvent and
// the membership paths never touch the connection.
func newTestClient(t *testing.T, cs *ChatServer, id int, username, room string) *Client {
	return &Client{
		chatServer: cs,
		log:        testutil.TestLogger(t),
		user:       types.User{Id: id, Username: username},
		room:       room,
		sessionId:  username,
		send:       make(chan *ServerEvent, 16),
		stop:       make(chan struct{}),
	}
}

func TestNewChatServer(t *testing.T) {
	db := &database.MockSocialChatRepository{}
	defer db.AssertExpectations(t)

	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("RegisterMetric", mock.Anything).Return(nil).Times(4)

	logger := testutil.TestLogger(t)
	cs, err := NewChatServer(logger, db, su)
	assert.NoError(t, err, "expected no error creating ChatServer")
	assert.NotNil(t, cs, "expected ChatServer to be non-nil")
	assert.Equal(t, logger, cs.log, "expected logger to be set")
	assert.Equal(t, db, cs.db, "expected database repository to be set")
	assert.NotNil(t, cs.rooms, "expected rooms map to be initialized")
	assert.NotNil(t, cs.clients, "expected clients map to be initialized")
}

func Test_connect_disconnect(t *testing.T) {
	su := newLooseStats()
	cs := newTestChatServer(t, &database.MockSocialChatRepository{}, su)

	c := newTestClient(t, cs, 1, "alice", "general")

	cs.connect(c)
	assert.Equal(t, 1, cs.OnlineCount("general"), "expected one member after connect")
	assert.Equal(t, []string{"alice"}, cs.OnlineUsernames("general"), "expected username snapshot")

	cs.Disconnect(c)
	assert.Equal(t, 0, cs.OnlineCount("general"), "expected membership to return to pre-connect state")
	assert.Empty(t, cs.OnlineUsernames("general"), "expected no usernames after disconnect")

	// removing a non-member is a silent no-op
	cs.Disconnect(c)
	assert.Equal(t, 0, cs.OnlineCount("general"), "expected repeated disconnect to be a no-op")
}

func Test_onlineCountMatchesUsernames(t *testing.T) {
	su := newLooseStats()
	cs := newTestChatServer(t, &database.MockSocialChatRepository{}, su)

	cs.connect(newTestClient(t, cs, 1, "alice", "general"))
	cs.connect(newTestClient(t, cs, 2, "bob", "general"))
	cs.connect(newTestClient(t, cs, 3, "carol", "team-chat"))

	for _, room := range []string{"general", "team-chat", "empty-room"} {
		assert.Equal(t, len(cs.OnlineUsernames(room)), cs.OnlineCount(room),
			"expected online count to equal username list length for room %q", room)
	}
	assert.Equal(t, []string{"alice", "bob"}, cs.OnlineUsernames("general"), "expected admission order")
}

func TestBroadcast(t *testing.T) {
	t.Run("delivers to all members except skip", func(t *testing.T) {
		su := newLooseStats()
		cs := newTestChatServer(t, &database.MockSocialChatRepository{}, su)

		a := newTestClient(t, cs, 1, "alice", "general")
		b := newTestClient(t, cs, 2, "bob", "general")
		c := newTestClient(t, cs, 3, "carol", "general")
		for _, cl := range []*Client{a, b, c} {
			cs.connect(cl)
		}

		ev := SystemEvent("general", "hello", nil)
		cs.Broadcast("general", ev, b)

		for _, cl := range []*Client{a, c} {
			select {
			case got := <-cl.send:
				assert.Equal(t, ev, got, "expected event to be delivered to %s", cl.user.Username)
			default:
				t.Errorf("expected %s to receive the broadcast", cl.user.Username)
			}
		}

		select {
		case <-b.send:
			t.Error("expected skipped member not to receive the broadcast")
		default:
		}
	})

	t.Run("broadcast to absent room is a no-op", func(t *testing.T) {
		su := newLooseStats()
		cs := newTestChatServer(t, &database.MockSocialChatRepository{}, su)

		cs.Broadcast("nowhere", SystemEvent("nowhere", "hello", nil), nil)
	})

	t.Run("failed send evicts the member and delivery continues", func(t *testing.T) {
		su := newLooseStats()
		cs := newTestChatServer(t, &database.MockSocialChatRepository{}, su)

		a := newTestClient(t, cs, 1, "alice", "general")
		b := newTestClient(t, cs, 2, "bob", "general")
		c := newTestClient(t, cs, 3, "carol", "general")
		// bob's buffer is full, simulating a dead peer
		b.send = make(chan *ServerEvent)
		for _, cl := range []*Client{a, b, c} {
			cs.connect(cl)
		}

		cs.Broadcast("general", SystemEvent("general", "hello", nil), nil)

		for _, cl := range []*Client{a, c} {
			select {
			case <-cl.send:
			default:
				t.Errorf("expected %s to receive the broadcast despite bob's failure", cl.user.Username)
			}
		}

		assert.Equal(t, 2, cs.OnlineCount("general"), "expected failed member to be evicted")
		assert.Equal(t, []string{"alice", "carol"}, cs.OnlineUsernames("general"), "expected bob to be removed")

		select {
		case <-b.stop:
			// evicted client is stopped so its transport closes
		case <-time.After(100 * time.Millisecond):
			t.Error("expected evicted client to be stopped")
		}
	})
}

func TestJoinAndLeave(t *testing.T) {
	su := newLooseStats()
	cs := newTestChatServer(t, &database.MockSocialChatRepository{}, su)

	a := newTestClient(t, cs, 1, "A", "general")
	cs.Join(a)

	select {
	case ev := <-a.send:
		assert.Equal(t, EventSystem, ev.Type, "expected a system event")
		assert.Equal(t, "general", ev.Room, "expected room to be set")
		assert.Equal(t, []string{"A"}, ev.Users, "expected joiner to receive own joined event listing [A]")
	default:
		t.Fatal("expected joiner to receive the joined event")
	}

	b := newTestClient(t, cs, 2, "B", "general")
	cs.Join(b)

	for _, cl := range []*Client{a, b} {
		select {
		case ev := <-cl.send:
			assert.Equal(t, EventSystem, ev.Type, "expected a system event")
			assert.Equal(t, []string{"A", "B"}, ev.Users, "expected joined event to list both members")
		default:
			t.Errorf("expected %s to receive the joined event", cl.user.Username)
		}
	}

	cs.Leave(b)

	select {
	case ev := <-a.send:
		assert.Equal(t, EventSystem, ev.Type, "expected a system event")
		assert.Equal(t, []string{"A"}, ev.Users, "expected left event to list the remaining member")
	default:
		t.Error("expected remaining member to receive the left event")
	}

	assert.Equal(t, 1, cs.OnlineCount("general"), "expected one member after leave")
}

func TestChatServerShutdown(t *testing.T) {
	t.Run("returns once all clients are gone", func(t *testing.T) {
		su := newLooseStats()
		cs := newTestChatServer(t, &database.MockSocialChatRepository{}, su)

		c := newTestClient(t, cs, 1, "alice", "general")
		cs.connect(c)

		// simulate the transport-side cleanup that follows a stop
		go func() {
			<-c.stop
			cs.Disconnect(c)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		err := cs.Shutdown(ctx)
		assert.NoError(t, err, "expected successful shutdown without error")
	})

	t.Run("fails with context deadline exceeded", func(t *testing.T) {
		su := newLooseStats()
		cs := newTestChatServer(t, &database.MockSocialChatRepository{}, su)

		c := newTestClient(t, cs, 1, "alice", "general")
		cs.connect(c)
		// no cleanup ever runs, simulating a hung connection

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := cs.Shutdown(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "expected context deadline exceeded error, got %v", err)
	})
}
