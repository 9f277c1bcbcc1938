// ABOUTME: HTTP API server wiring for accounts, tasks, and the Google integration flow
// ABOUTME: Builds the route table and shared JSON response helpers

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/taskmill/taskmill/internal/auth"
	"github.com/taskmill/taskmill/internal/store"
)

// Server holds the handler dependencies for the HTTP API.
type Server struct {
	store    store.Store
	verifier *auth.JWTVerifier
	oauth    *oauth2.Config
	logger   *slog.Logger
}

// New creates an API server. oauthCfg may carry a test token endpoint.
func New(s store.Store, verifier *auth.JWTVerifier, oauthCfg *oauth2.Config) *Server {
	return &Server{
		store:    s,
		verifier: verifier,
		oauth:    oauthCfg,
		logger:   slog.Default().With("component", "api"),
	}
}

// Routes builds the route table. Task and integration endpoints sit
// behind the bearer middleware; registration, login, health, and the
// OAuth callback (driven by a browser redirect, carrying its own signed
// state) stay open.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /integrations/google/callback", s.handleGoogleCallback)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /auth/me", s.handleMe)
	protected.HandleFunc("GET /integrations/google/integrate", s.handleGoogleIntegrate)
	protected.HandleFunc("GET /api/tasks", s.handleListTasks)
	protected.HandleFunc("POST /api/tasks", s.handleCreateTask)
	protected.HandleFunc("GET /api/tasks/{id}", s.handleGetTask)
	protected.HandleFunc("PUT /api/tasks/{id}", s.handleUpdateTask)
	protected.HandleFunc("PATCH /api/tasks/{id}/complete", s.handleCompleteTask)
	protected.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)

	withAuth := auth.Middleware(s.store, s.verifier)(protected)
	mux.Handle("/auth/me", withAuth)
	mux.Handle("/integrations/google/integrate", withAuth)
	mux.Handle("/api/", withAuth)

	return mux
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// sendJSONError writes a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
