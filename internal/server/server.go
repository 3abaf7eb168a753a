// Package server exposes the HTTP surface: Slack event and interactivity
// webhooks plus health endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/config"
	"github.com/hyperjump/annai/internal/transport"
)

// Dispatcher consumes decoded Slack events. Handlers return immediately;
// dispatch runs on its own goroutine so Slack's 3-second acknowledgment
// window is never at risk.
type Dispatcher interface {
	HandleEvent(ctx context.Context, ev *transport.Event)
	HandleFeedback(ctx context.Context, act *transport.FeedbackAction)
}

// Server is the HTTP server receiving Slack webhooks.
type Server struct {
	dispatcher    Dispatcher
	config        *config.ServerConfig
	signingSecret string
	logger        *zap.Logger
	server        *http.Server
	startedAt     time.Time
}

// NewServer creates a server with the given dependencies. An empty signing
// secret disables request signature verification.
func NewServer(dispatcher Dispatcher, cfg *config.ServerConfig, signingSecret string, logger *zap.Logger) *Server {
	return &Server{
		dispatcher:    dispatcher,
		config:        cfg,
		signingSecret: signingSecret,
		logger:        logger,
	}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/slack/events", s.handleEvents)
	r.Post("/slack/interactions", s.handleInteractions)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.startedAt = time.Now()
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
