// Package diagapi exposes a read-only HTTP diagnostic surface over a
// running session: health, Prometheus metrics, a status snapshot, and a
// live SSE feed of Notifier events. Grounded on api/server.go's chi router
// and middleware stack and api/engagement.go's EarningsHub, with all
// model/engine/registry/credits content replaced.
package diagapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/memoster/reviewcore/internal/session"
)

// Server is the review-core diagnostic HTTP server. It never accepts a
// mutating request — every gesture/session operation is driven by the
// host application directly through session.Manager, not over HTTP.
type Server struct {
	mgr *session.Manager
	hub *EventHub
}

// NewServer constructs a Server over mgr, broadcasting mgr's Notifier
// events through hub.
func NewServer(mgr *session.Manager, hub *EventHub) *Server {
	return &Server{mgr: mgr, hub: hub}
}

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/status", s.handleStatus)

	if s.hub != nil {
		r.Get("/events", s.hub.HandleSSE)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such route: "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed: "+r.Method+" "+r.URL.Path)
	})

	return r
}

// handleStatus returns the current session's snapshot.
// GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"message": msg},
	})
}
