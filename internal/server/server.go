// Package server implements the local preview server: it serves the built
// site with service worker headers, compresses responses and pushes reload
// notifications to open pages after each worker regeneration.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/klauspost/compress/gzhttp"

	"github.com/conneroisu/sitekit/internal/config"
	"github.com/conneroisu/sitekit/internal/logging"
	"github.com/conneroisu/sitekit/internal/version"
)

// Internal routes live under this prefix so they cannot clash with site
// content.
const (
	ReloadPath       = "/_sitekit/reload"
	ReloadScriptPath = "/_sitekit/reload.js"
	HealthPath       = "/_sitekit/health"
)

const shutdownTimeout = 5 * time.Second

// Client represents a WebSocket client
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *PreviewServer
}

// PreviewServer serves a built site with live reload.
type PreviewServer struct {
	config       *config.Config
	logger       logging.Logger
	httpServer   *http.Server
	serverMutex  sync.RWMutex
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn
	files        http.Handler
	liveReload   bool
	lastVersion  string
	versionMutex sync.RWMutex
	shutdownOnce sync.Once
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Options tune a PreviewServer.
type Options struct {
	// LiveReload injects the reload client into served HTML pages.
	LiveReload bool
}

// New creates a new preview server
func New(cfg *config.Config, logger logging.Logger, opts Options) *PreviewServer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &PreviewServer{
		config:     cfg,
		logger:     logger.WithComponent("server"),
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		files:      http.FileServer(http.Dir(cfg.Site.Dir)),
		liveReload: opts.LiveReload,
	}
}

// Addr returns the configured listen address.
func (s *PreviewServer) Addr() string {
	return net.JoinHostPort(s.config.Server.Host, fmt.Sprint(s.config.Server.Port))
}

// Handler returns the HTTP handler of the server. The reload hub must be
// running for websocket clients to be registered.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	// The websocket route bypasses gzip so the connection can be hijacked.
	mux.HandleFunc(ReloadPath, s.handleWebSocket)
	mux.Handle(ReloadScriptPath, gzhttp.GzipHandler(http.HandlerFunc(s.handleReloadScript)))
	mux.HandleFunc(HealthPath, s.handleHealth)
	mux.Handle("/", gzhttp.GzipHandler(http.HandlerFunc(s.handleSite)))
	return s.logRequests(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *PreviewServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener.
func (s *PreviewServer) Serve(ctx context.Context, listener net.Listener) error {
	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	go s.runWebSocketHub(hubCtx)

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "Graceful shutdown failed")
		}
	}()

	s.logger.Info(ctx, "Preview server listening", "addr", listener.Addr().String(), "site", s.config.Site.Dir)

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// NotifyReload tells every connected page that a new worker version was
// generated.
func (s *PreviewServer) NotifyReload(version string) {
	s.versionMutex.Lock()
	s.lastVersion = version
	s.versionMutex.Unlock()

	s.broadcastMessage(UpdateMessage{Type: "reload", Version: version, Timestamp: time.Now().UTC()})
}

func (s *PreviewServer) broadcastMessage(msg UpdateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error(context.Background(), err, "Failed to marshal message")
		return
	}

	select {
	case s.broadcast <- data:
	default:
		s.logger.Warn(context.Background(), nil, "Reload queue full, dropping message", "type", msg.Type)
	}
}

// ClientCount returns the number of connected reload clients.
func (s *PreviewServer) ClientCount() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}

// Shutdown closes every websocket and stops the HTTP server.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down preview server")

		s.clientsMutex.Lock()
		for conn := range s.clients {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		s.clientsMutex.Unlock()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.versionMutex.RLock()
	cacheVersion := s.lastVersion
	s.versionMutex.RUnlock()

	health := map[string]interface{}{
		"status":        "healthy",
		"timestamp":     time.Now().UTC(),
		"version":       version.GetBuildInfo().Short(),
		"cache_version": cacheVersion,
		"clients":       s.ClientCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}

func (s *PreviewServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}
