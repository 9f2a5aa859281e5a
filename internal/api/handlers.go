package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kingodev/socialchat/internal/auth"
	"github.com/kingodev/socialchat/internal/database"
	"github.com/kingodev/socialchat/internal/registry"
	"github.com/kingodev/socialchat/internal/types"
)

const defaultTokenExpiration = 24 * time.Hour

type RegisterRequest struct {
	Username    string     `json:"username"`
	Password    string     `json:"password"`
	DisplayName string     `json:"display_name"`
	Role        types.Role `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        types.User `json:"user"`
}

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ChatLogEntry is one persisted message as served by the history endpoint.
type ChatLogEntry struct {
	Id        int       `json:"id"`
	Text      string    `json:"text"`
	SenderId  int       `json:"sender_id"`
	Username  string    `json:"username"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

func (s *SocialChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *SocialChatApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Role == "" {
		req.Role = types.RoleIntern
	}
	if !req.Role.Valid() {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := auth.HashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	newUser, err := s.db.CreateAccount(database.CreateAccountParams{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: pwdHash,
		Role:         req.Role,
	})
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, database.ErrDuplicateUsername) {
			errResp = NewConflictError(err)
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.User{
		Id:          newUser.Id,
		Username:    newUser.Username,
		DisplayName: newUser.DisplayName,
		Role:        newUser.Role,
		CreatedAt:   newUser.CreatedAt,
	})
}

func (s *SocialChatApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Username == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByUsername(lr.Username)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			// same response as a bad password, no account enumeration
			errResp = NewUnauthorizedError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !auth.VerifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := types.User{
		Id:          dbUser.Id,
		Username:    dbUser.Username,
		DisplayName: dbUser.DisplayName,
		Role:        dbUser.Role,
		CreatedAt:   dbUser.CreatedAt,
	}

	token, err := s.tokens.CreateToken(u, defaultTokenExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        u,
	})
}

func (s *SocialChatApp) listRooms(w http.ResponseWriter, _ *http.Request) {
	s.writeJson(w, http.StatusOK, s.registry.ListRooms())
}

func (s *SocialChatApp) createRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := SessionUser(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var createRoomReq CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&createRoomReq); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.registry.CreateRoom(createRoomReq.Name, createRoomReq.Description, user.Username)
	if err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, registry.ErrRoomExists):
			errResp = NewConflictError(err)
		case errors.Is(err, registry.ErrInvalidName), errors.Is(err, registry.ErrNameTooLong):
			errResp = NewValidationError(err)
		default:
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, room)
}

func (s *SocialChatApp) deleteRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := SessionUser(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	name := r.PathValue("name")
	if name == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.registry.DeleteRoom(name, user.Username, user.Role); err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, registry.ErrRoomNotFound):
			errResp = NewNotFoundError()
		case errors.Is(err, registry.ErrProtectedRoom), errors.Is(err, registry.ErrNotAuthorized):
			errResp = NewForbiddenError()
		default:
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *SocialChatApp) getChatLogs(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.registry.Get(room); err != nil {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var limit int
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	messages, err := s.db.GetMessages(room, limit)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	logs := make([]ChatLogEntry, 0, len(messages))
	for _, msg := range messages {
		logs = append(logs, ChatLogEntry{
			Id:        msg.Id,
			Text:      msg.Content,
			SenderId:  msg.SenderId,
			Username:  msg.Username,
			Room:      msg.Room,
			Timestamp: msg.CreatedAt,
			Type:      "chat",
		})
	}

	s.writeJson(w, http.StatusOK, logs)
}
