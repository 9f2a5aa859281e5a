package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/kingodev/socialchat/internal/auth"
	"github.com/kingodev/socialchat/internal/config"
	"github.com/kingodev/socialchat/internal/database"
	"github.com/kingodev/socialchat/internal/registry"
	"github.com/kingodev/socialchat/internal/server"
)

type SocialChatApp struct {
	log            *log.Logger
	db             database.SocialChatRepository
	mux            *http.Server
	cs             *server.ChatServer
	registry       *registry.RoomRegistry
	tokens         *auth.TokenService
	allowedOrigins []string
}

func NewSocialChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer,
	reg *registry.RoomRegistry, db database.SocialChatRepository,
	tokens *auth.TokenService, cfg *config.Config) *SocialChatApp {
	s := &SocialChatApp{
		log:            logger,
		db:             db,
		cs:             cs,
		registry:       reg,
		tokens:         tokens,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/rooms", s.listRooms)
	mux.Handle("POST /api/rooms", s.authMiddleware(s.createRoom))
	mux.Handle("DELETE /api/rooms/{name}", s.authMiddleware(s.deleteRoom))
	mux.Handle("GET /api/chat_logs", s.authMiddleware(s.getChatLogs))
	mux.HandleFunc("GET /ws/chat", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.requestIdMiddleware(h)
	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *SocialChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *SocialChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
