// Package http exposes an agent's tool registry as a small JSON API.
// Handlers are hand-written on chi; the tool list doubles as machine-readable
// documentation since each tool carries its argument schema.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parley-ai/parley"
	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/domain"
	"github.com/parley-ai/parley/pkg/registry"
)

// Server exposes one agent over HTTP.
type Server struct {
	agent   parley.Agent
	logger  *slog.Logger
	metrics http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the diagnostics logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts a metrics handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates the HTTP handler for the agent.
func NewHandler(agent parley.Agent, opts ...Option) http.Handler {
	s := &Server{
		agent:  agent,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/agent", s.getAgent)
	r.Get("/tools", s.listTools)
	r.Post("/tools/{name}", s.invokeTool)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "parley-http",
		"version": parley.Version,
		"agent":   s.agent.Name(),
	})
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":         s.agent.Name(),
		"instructions": s.agent.Instructions(),
	})
}

// toolInfo is the wire form of one registry entry.
type toolInfo struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Schema      *registry.Schema `json:"schema,omitempty"`
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	tools := s.agent.Registry().Tools()
	out := make([]toolInfo, len(tools))
	for i, t := range tools {
		out[i] = toolInfo{Name: t.Name, Description: t.Description, Schema: t.Schema}
	}
	writeJSON(w, http.StatusOK, out)
}

// invokeResponse is the wire form of a dispatch outcome. Result carries the
// spoken string for both successes and refusals.
type invokeResponse struct {
	Result string `json:"result"`
}

func (s *Server) invokeTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	args := map[string]any{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.logger.Warn("invoke: invalid request body", "tool", name, "err", err)
			return
		}
	}

	result, err := s.agent.Registry().Dispatch(r.Context(), name, args)
	if err != nil {
		if errors.Is(err, domain.ErrToolNotFound) {
			http.Error(w, fmt.Sprintf("unknown tool: %s", name), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("tool error: %v", err), http.StatusInternalServerError)
		s.logger.Error("invoke failed", "tool", name, "err", err)
		return
	}
	writeJSON(w, http.StatusOK, invokeResponse{Result: result})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}
