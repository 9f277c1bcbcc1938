// ABOUTME: Google account integration endpoints for the OAuth consent flow
// ABOUTME: Issues the consent URL and handles the redirect callback, storing mailbox credentials

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/taskmill/taskmill/internal/auth"
	"github.com/taskmill/taskmill/internal/store"
)

// stateLifetime bounds how long a consent redirect stays usable.
const stateLifetime = 10 * time.Minute

const exchangeTimeout = 15 * time.Second

// IntegrateResponse is the JSON response for GET /integrations/google/integrate.
type IntegrateResponse struct {
	AuthURL string `json:"auth_url"`
}

// handleGoogleIntegrate handles GET /integrations/google/integrate.
// The state parameter is a short-lived token naming the requesting user,
// so the callback can tie the consent back to an account without a
// session cookie. access_type=offline with prompt=consent forces Google
// to issue a refresh token.
func (s *Server) handleGoogleIntegrate(w http.ResponseWriter, r *http.Request) {
	user := auth.MustFromContext(r.Context())

	state, err := s.verifier.Generate(user.ID, stateLifetime)
	if err != nil {
		s.logger.Error("issuing state token", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	url := s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	s.writeJSON(w, http.StatusOK, IntegrateResponse{AuthURL: url})
}

// handleGoogleCallback handles GET /integrations/google/callback. It
// exchanges the authorization code, reads the Google account email from
// the id_token, and requires it to belong to the user the state names.
// On success the user is flagged google_authenticated and the tokens are
// stored encrypted.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		s.sendJSONError(w, http.StatusBadRequest, "code and state are required")
		return
	}

	userID, err := s.verifier.Verify(state)
	if err != nil {
		s.sendJSONError(w, http.StatusUnauthorized, "invalid state")
		return
	}
	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.sendJSONError(w, http.StatusUnauthorized, "unknown account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
	defer cancel()
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("code exchange failed", "user_id", user.ID, "error", err)
		s.sendJSONError(w, http.StatusBadGateway, "code exchange failed")
		return
	}

	email, err := emailFromIDToken(token)
	if err != nil {
		s.logger.Warn("id_token missing email", "user_id", user.ID, "error", err)
		s.sendJSONError(w, http.StatusBadRequest, "id_token missing email")
		return
	}
	if email != user.Email {
		s.sendJSONError(w, http.StatusForbidden, "google account does not match this user")
		return
	}

	cred := &store.Credential{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		Provider:     store.ProviderGmail,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	if err := s.store.UpsertCredential(r.Context(), cred); err != nil {
		s.logger.Error("storing credential", "user_id", user.ID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := s.store.SetGoogleAuthenticated(r.Context(), user.ID, true); err != nil {
		s.logger.Error("flagging user", "user_id", user.ID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("google account connected", "user_id", user.ID)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

// emailFromIDToken pulls the email claim out of the OpenID id_token.
// The token arrived over TLS directly from the token endpoint, so the
// signature is not re-verified here.
func emailFromIDToken(token *oauth2.Token) (string, error) {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", errors.New("no id_token in exchange response")
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims shape")
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", errors.New("email claim absent")
	}
	return email, nil
}
