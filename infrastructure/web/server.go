// Package web exposes the relay over HTTP: plain account and history
// endpoints plus the websocket endpoint that feeds the routing engine.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chat-relay/observability"
	"chat-relay/relay"
	"chat-relay/services"
)

type Server struct {
	httpServer  *http.Server
	authService services.IAuthService
	chatService services.IChatService
	router      *relay.Router
	registry    *relay.Registry
	stats       *observability.Stats
	log         *slog.Logger

	connectionBufferSize int
	deliveryTimeout      time.Duration
	readTimeout          time.Duration
}

type Options struct {
	Host                 string
	Port                 int
	ConnectionBufferSize int
	DeliveryTimeout      time.Duration
	ReadTimeout          time.Duration
}

func NewServer(
	opts Options,
	authService services.IAuthService,
	chatService services.IChatService,
	router *relay.Router,
	registry *relay.Registry,
	stats *observability.Stats,
	log *slog.Logger,
) *Server {
	s := &Server{
		authService:          authService,
		chatService:          chatService,
		router:               router,
		registry:             registry,
		stats:                stats,
		log:                  log,
		connectionBufferSize: opts.ConnectionBufferSize,
		deliveryTimeout:      opts.DeliveryTimeout,
		readTimeout:          opts.ReadTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /users", s.requireAuth(s.handleListUsers))
	mux.HandleFunc("GET /messages/global", s.requireAuth(s.handleGlobalMessages))
	mux.HandleFunc("GET /messages/search", s.requireAuth(s.handleSearchMessages))
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler: mux,
	}
	return s
}

// Handler exposes the route table for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, then closes every live connection from
// a registry snapshot. Each per-connection worker observes its transport
// closing and runs the normal teardown path; there is no mass-removal
// shortcut.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)

	for _, entry := range s.registry.Snapshot() {
		_ = entry.Conn.Close(relay.CloseGoingAway, "server shutting down")
	}
	return err
}
