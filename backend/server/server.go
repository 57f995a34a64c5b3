// Package server exposes the narrator over HTTP: newline-delimited JSON and
// server-sent event streams on POST, and a WebSocket that carries frames in
// both directions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nathoo/backroom/backend/narrator"
	"github.com/nathoo/backroom/backend/store"
	"github.com/nathoo/backroom/types"
)

// maxRequestBody bounds a decoded ChatRequest.
const maxRequestBody = 1 << 20

// Config holds the server's dependencies.
type Config struct {
	Narrator *narrator.Narrator
	// Store is optional. Without it, requests that carry no snapshot
	// restart the scenario.
	Store *store.Store
	// ChunkDelay spaces out streamed chunks the way a model would.
	ChunkDelay time.Duration
	Log        *zap.Logger
}

// Validate ensures all required dependencies are provided.
func (c *Config) Validate() error {
	if c.Narrator == nil {
		return errors.New("server: narrator is required")
	}
	if c.ChunkDelay < 0 {
		return fmt.Errorf("server: negative chunk delay %s", c.ChunkDelay)
	}
	return nil
}

// Server answers chat requests.
type Server struct {
	narrator *narrator.Narrator
	store    *store.Store
	delay    time.Duration
	log      *zap.Logger
}

// New creates a server from a validated config.
func New(cfg *Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		narrator: cfg.Narrator,
		store:    cfg.Store,
		delay:    cfg.ChunkDelay,
		log:      log,
	}, nil
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.health)
	r.Post("/api/chat", s.chatNDJSON)
	r.Post("/api/chat/sse", s.chatSSE)
	r.Get("/ws", s.serveWS)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{"status": "ok", "scenario": s.narrator.Scenario().Title}
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["store"] = err.Error()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// turn answers one request and records the snapshot it ends on.
func (s *Server) turn(ctx context.Context, req types.ChatRequest) []types.Chunk {
	current := req.CurrentState
	if current == nil && req.Event.Type != types.EventInit {
		current = s.lookup(ctx, req.SessionID)
	}

	chunks, final := s.narrator.Respond(req, current)
	s.log.Info("turn",
		zap.String("session", req.SessionID),
		zap.String("event", string(req.Event.Type)),
		zap.Int("chunks", len(chunks)),
	)

	if s.store != nil && req.SessionID != "" && final != nil {
		if _, err := s.store.Put(ctx, req.SessionID, final); err != nil {
			s.log.Warn("saving snapshot", zap.String("session", req.SessionID), zap.Error(err))
		}
	}
	return chunks
}

// lookup returns the stored snapshot for a session, or nil.
func (s *Server) lookup(ctx context.Context, sessionID string) *types.GameState {
	if s.store == nil || sessionID == "" {
		return nil
	}
	snap, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("loading snapshot", zap.String("session", sessionID), zap.Error(err))
		}
		return nil
	}
	return snap.State
}

// pace writes chunks in order, sleeping between them. It stops early when
// ctx is done or a write fails.
func (s *Server) pace(ctx context.Context, chunks []types.Chunk, write func(types.Chunk) error) error {
	for i, c := range chunks {
		if i > 0 && s.delay > 0 {
			t := time.NewTimer(s.delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		if err := write(c); err != nil {
			return err
		}
	}
	return nil
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (types.ChatRequest, bool) {
	var req types.ChatRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	if req.Event.Type == "" {
		http.Error(w, "bad request: missing event type", http.StatusBadRequest)
		return req, false
	}
	return req, true
}
