package server

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"

	"github.com/kingodev/socialchat/internal/database"
	"github.com/kingodev/socialchat/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client is one admitted connection's membership in a room. The username
// and id are captured at admission and immutable for the connection's
// lifetime.
type Client struct {
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	user       types.User
	room       string
	sessionId  string
	send       chan *ServerEvent
	stop       chan struct{}

	stopOnce    sync.Once
	cleanupOnce sync.Once
}

func NewClient(user types.User, room string, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	sid, err := shortid.Generate()
	if err != nil {
		sid = "-"
	}

	return &Client{
		conn:       conn,
		chatServer: cs,
		log:        l,
		user:       user,
		room:       room,
		sessionId:  sid,
		send:       make(chan *ServerEvent, 256),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("session %s: write exiting", c.sessionId)
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(ev)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Printf("session %s: read exiting", c.sessionId)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("session %s: ws read: %v", c.sessionId, err)
			}
			break
		}

		c.handleFrame(string(raw))
	}
}

// handleFrame runs one step of the receive/dispatch cycle: persist the
// frame, then fan it out as a chat event. A frame that cannot be recorded
// is never broadcast.
func (c *Client) handleFrame(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		// idle keep-alive noise
		return
	}

	msg, err := c.chatServer.db.CreateMessage(database.CreateMessageParams{
		Content:  text,
		SenderId: c.user.Id,
		Room:     c.room,
	})
	if err != nil {
		c.log.Printf("session %s: save message: %v", c.sessionId, err)
		c.queueEvent(SystemEvent(c.room, "message could not be delivered", nil))
		return
	}

	c.chatServer.stats.Incr(statNumMessages)
	c.chatServer.Broadcast(c.room, ChatEvent(c.room, c.user.Username, text, msg.CreatedAt), nil)
}

// queueEvent hands ev to the write pump. It reports false once the client
// is stopped or its buffer is full, which the broadcast path treats as a
// dead peer.
func (c *Client) queueEvent(ev *ServerEvent) bool {
	select {
	case <-c.stop:
		return false
	default:
	}

	select {
	case c.send <- ev:
		return true
	default:
		c.log.Printf("session %s: send buffer full", c.sessionId)
		return false
	}
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("session %s: write message: %s", c.sessionId, err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// cleanup runs the OPEN -> CLOSED transition exactly once: eviction from
// the membership table and the left broadcast to the remaining members.
func (c *Client) cleanup() {
	c.cleanupOnce.Do(func() {
		c.chatServer.Leave(c)
		c.stopClient()
	})
}
