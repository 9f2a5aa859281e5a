package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kingodev/socialchat/internal/registry"
	"github.com/kingodev/socialchat/internal/server"
)

// CloseRoomNotFound is sent when the handshake names a room the registry
// doesn't know. Authentication failures use the standard policy-violation
// code (1008) so clients can tell the two apart.
const CloseRoomNotFound = 4004

const closeWriteWait = 10 * time.Second

// serveWs is the session handshake: the connection is upgraded, the bearer
// token and target room are validated, and only then is the connection
// admitted to the room.
func (s *SocialChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	user, err := s.tokens.VerifyToken(r.URL.Query().Get("token"))
	if err != nil {
		s.log.Printf("ws handshake: verify token: %v", err)
		s.rejectConn(conn, websocket.ClosePolicyViolation, "authentication failed")
		return
	}

	room := r.URL.Query().Get("room")
	if room == "" {
		room = registry.GeneralRoom
	}
	if _, err := s.registry.Get(room); err != nil {
		s.log.Printf("ws handshake: unknown room %q", room)
		s.rejectConn(conn, CloseRoomNotFound, "room not found")
		return
	}

	client := server.NewClient(user, room, conn, s.cs, s.log)
	s.cs.Join(client)
	go client.Write()
	go client.Read()
}

// rejectConn closes an unadmitted connection with a distinguishing code.
func (s *SocialChatApp) rejectConn(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(closeWriteWait)
	if err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		s.log.Println("write close message:", err)
	}
	conn.Close()
}
