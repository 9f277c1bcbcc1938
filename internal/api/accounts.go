// ABOUTME: Account endpoints: registration, login, and the current-user lookup
// ABOUTME: Issues HS256 session tokens on successful login

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmill/taskmill/internal/auth"
	"github.com/taskmill/taskmill/internal/store"
)

// RegisterRequest is the JSON request body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the JSON response for POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
}

// UserResponse is the JSON shape of an account, with the password hash
// never serialized.
type UserResponse struct {
	ID                  string `json:"id"`
	Email               string `json:"email"`
	Active              bool   `json:"active"`
	GoogleAuthenticated bool   `json:"google_authenticated"`
	CreatedAt           string `json:"created_at"`
}

func userResponse(user *store.User) UserResponse {
	return UserResponse{
		ID:                  user.ID,
		Email:               user.Email,
		Active:              user.Active,
		GoogleAuthenticated: user.GoogleAuthenticated,
		CreatedAt:           user.CreatedAt.Format(time.RFC3339),
	}
}

// handleRegister handles POST /auth/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		s.sendJSONError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if len(req.Password) < 8 {
		s.sendJSONError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hashing password", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &store.User{
		ID:             uuid.New().String(),
		Email:          req.Email,
		HashedPassword: hash,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			s.sendJSONError(w, http.StatusConflict, "email already registered")
			return
		}
		s.logger.Error("creating user", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("user registered", "user_id", user.ID)
	s.writeJSON(w, http.StatusCreated, userResponse(user))
}

// handleLogin handles POST /auth/login. Unknown accounts and wrong
// passwords get the same response.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	user, err := s.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.logger.Error("loading user", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := auth.CheckPassword(user.HashedPassword, req.Password); err != nil {
		s.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.Active {
		s.sendJSONError(w, http.StatusForbidden, "account deactivated")
		return
	}

	token, err := s.verifier.Generate(user.ID, auth.TokenLifetime)
	if err != nil {
		s.logger.Error("issuing token", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}

// handleMe handles GET /auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := auth.MustFromContext(r.Context())
	s.writeJSON(w, http.StatusOK, userResponse(user))
}
