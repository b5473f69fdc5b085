package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"lightwave/internal/command"
	"lightwave/internal/dispatch"
	"lightwave/internal/entity"
	"lightwave/internal/model"
	"lightwave/internal/state"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	eventBuffer = 64
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Features is the read side of the feature store.
type Features interface {
	Snapshot(featuresetID string) (model.FeatureSet, error)
	Snapshots() []model.FeatureSet
}

// Executor runs named commands against a feature set.
type Executor interface {
	Execute(ctx context.Context, featuresetID string, req command.Request) error
}

// Server provides HTTP API endpoints and the WebSocket event stream.
type Server struct {
	features Features
	commands Executor
	registry *dispatch.Registry
	logger   *zap.Logger
	server   *http.Server

	mu       sync.RWMutex
	entities []entity.Projection

	streams atomic.Uint64
}

// NewServer creates a new API server
func NewServer(features Features, commands Executor, registry *dispatch.Registry, logger *zap.Logger, port int) *Server {
	s := &Server{
		features: features,
		commands: commands,
		registry: registry,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSitemap)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/featuresets", s.handleListFeatureSets)
	mux.HandleFunc("GET /api/featuresets/{id}", s.handleGetFeatureSet)
	mux.HandleFunc("POST /api/featuresets/{id}/commands", s.handleCommand)
	mux.HandleFunc("GET /api/entities", s.handleEntities)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the routing table, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// SetEntities replaces the projections served by /api/entities.
func (s *Server) SetEntities(projections []entity.Projection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = projections
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleHealth returns a simple health check response
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) handleListFeatureSets(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.features.Snapshots())
}

func (s *Server) handleGetFeatureSet(w http.ResponseWriter, r *http.Request) {
	fs, err := s.features.Snapshot(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, fs)
}

// handleEntities renders every projection against the current store.
// Entities whose feature set has gone are skipped.
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	projections := s.entities
	s.mu.RUnlock()

	views := make([]entity.View, 0, len(projections))
	for _, p := range projections {
		v, err := entity.Render(s.features, p)
		if err != nil {
			s.logger.Debug("Skipping entity",
				zap.String("unique_id", p.UniqueID()),
				zap.Error(err))
			continue
		}
		views = append(views, v)
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req command.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if err := s.commands.Execute(r.Context(), id, req); err != nil {
		s.logger.Warn("Command failed",
			zap.String("featureset_id", id),
			zap.String("command", req.Command),
			zap.Error(err))
		s.writeError(w, commandStatus(err), err)
		return
	}

	s.logger.Info("Command accepted",
		zap.String("featureset_id", id),
		zap.String("command", req.Command))
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func commandStatus(err error) int {
	switch {
	case errors.Is(err, state.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, command.ErrUnknownCommand),
		errors.Is(err, command.ErrInvalidValue),
		errors.Is(err, command.ErrOutOfRange),
		errors.Is(err, command.ErrUnknownPreset),
		errors.Is(err, command.ErrUnknownHVACMode):
		return http.StatusBadRequest
	case errors.Is(err, command.ErrNoTargetTemperature):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// handleEvents upgrades to a WebSocket and streams every dispatched event
// as JSON until the client goes away. A slow client loses events rather
// than stalling dispatch.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	id := fmt.Sprintf("ws-%d", s.streams.Add(1))
	logger := s.logger.With(zap.String("stream", id))

	events := make(chan dispatch.Event, eventBuffer)
	sub := s.registry.RegisterGeneral(id, func(ev dispatch.Event) error {
		select {
		case events <- ev:
			return nil
		default:
			return fmt.Errorf("event stream %s is full", id)
		}
	})
	defer sub.Unsubscribe()

	logger.Info("Event stream opened", zap.String("remote_addr", r.RemoteAddr))

	// The reader only exists to notice the close and answer pings.
	done := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			logger.Info("Event stream closed")
			return
		case ev := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Warn("Event stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.Warn("Event stream ping failed", zap.Error(err))
				return
			}
		}
	}
}

// Endpoint represents an API endpoint with its documentation
type Endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

var endpoints = []Endpoint{
	{Path: "/", Method: "GET", Description: "This sitemap"},
	{Path: "/health", Method: "GET", Description: "Health check, returns {\"status\": \"ok\"}"},
	{Path: "/api/featuresets", Method: "GET", Description: "Raw state of every feature set"},
	{Path: "/api/featuresets/{id}", Method: "GET", Description: "Raw state of one feature set"},
	{Path: "/api/featuresets/{id}/commands", Method: "POST", Description: "Run a command, e.g. {\"command\": \"set_temperature\", \"value\": 21.5}"},
	{Path: "/api/entities", Method: "GET", Description: "Projected entity states"},
	{Path: "/api/events", Method: "GET", Description: "WebSocket stream of decoded events"},
}

// handleSitemap lists the available endpoints, as JSON when asked for it
// and as plain text otherwise.
func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		s.writeJSON(w, http.StatusOK, endpoints)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Lightwave API\n")
	fmt.Fprintf(w, "=============\n\n")
	fmt.Fprintf(w, "Available endpoints:\n\n")
	for _, ep := range endpoints {
		fmt.Fprintf(w, "  %-6s %-32s %s\n", ep.Method, ep.Path, ep.Description)
	}
	fmt.Fprintf(w, "\nExamples:\n\n")
	fmt.Fprintf(w, "  curl http://localhost%s/api/entities | jq\n", s.server.Addr)
	fmt.Fprintf(w, "  websocat ws://localhost%s/api/events\n", s.server.Addr)
}

// Start begins serving HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP API server", zap.String("addr", s.server.Addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping HTTP API server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
