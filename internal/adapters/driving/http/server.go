package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jithsungh/wisebot/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	appName    string
	version    string
	maxUpload  int64
	logger     *slog.Logger

	// Services
	docService       driving.DocumentService
	ingestionService driving.IngestionService
	chatService      driving.ChatService
	memoryService    driving.MemoryService
	sessions         driving.SessionManager

	// websocket upgrade handler for /ws/{user_id}
	ws http.Handler

	// Infrastructure checked by /ready, keyed by name
	deps map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	AppName        string
	Version        string
	AllowedOrigins []string
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8000,
		AppName:        "WiseBot",
		Version:        "dev",
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 50 << 20,
	}
}

// Services groups the driving ports the server exposes.
type Services struct {
	Documents driving.DocumentService
	Ingestion driving.IngestionService
	Chat      driving.ChatService
	Memory    driving.MemoryService
	Sessions  driving.SessionManager
	WebSocket http.Handler
}

// NewServer creates a new HTTP server. deps may be nil.
func NewServer(cfg Config, svc Services, deps map[string]Pinger) *Server {
	defaults := DefaultConfig()
	if cfg.AppName == "" {
		cfg.AppName = defaults.AppName
	}
	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = defaults.AllowedOrigins
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:           http.NewServeMux(),
		appName:          cfg.AppName,
		version:          cfg.Version,
		maxUpload:        cfg.MaxUploadBytes,
		logger:           logger.With("component", "http"),
		docService:       svc.Documents,
		ingestionService: svc.Ingestion,
		chatService:      svc.Chat,
		memoryService:    svc.Memory,
		sessions:         svc.Sessions,
		ws:               svc.WebSocket,
		deps:             deps,
	}

	s.setupRoutes()

	handler := NewRecoveryMiddleware(s.logger).Handler(
		NewLoggingMiddleware(s.logger).Handler(
			NewCORSMiddleware(cfg.AllowedOrigins).Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Upload and ingestion endpoints
	s.router.HandleFunc("POST /upload/{$}", s.handleUpload)
	s.router.HandleFunc("POST /upload/process", s.handleProcess)
	s.router.HandleFunc("POST /upload/process-async", s.handleProcessAsync)
	s.router.HandleFunc("GET /upload/status/{job_id}", s.handleJobStatus)
	s.router.HandleFunc("GET /upload/jobs", s.handleListJobs)
	s.router.HandleFunc("POST /upload/process-text", s.handleProcessText)
	s.router.HandleFunc("POST /upload/feed", s.handleFeed)
	s.router.HandleFunc("GET /upload/list", s.handleListUploads)

	// Chat endpoints
	s.router.HandleFunc("POST /chat/{$}", s.handleChat)
	s.router.HandleFunc("GET /chat/users", s.handleActiveUsers)
	s.router.HandleFunc("GET /chat/status", s.handleChatStatus)
	s.router.HandleFunc("DELETE /chat/clear/{user_id}", s.handleClearMemory)
	s.router.HandleFunc("POST /chat/clear/{user_id}", s.handleClearMemory)
	s.router.HandleFunc("GET /chat/history/{user_id}", s.handleHistory)

	if s.ws != nil {
		s.router.Handle("GET /ws/{user_id}", s.ws)
	}
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
