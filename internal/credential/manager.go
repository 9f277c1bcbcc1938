// ABOUTME: Credential freshness checks and OAuth2 refresh-token grants
// ABOUTME: A failed refresh leaves the stored credential intact for a later tick

package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taskmill/taskmill/internal/store"
)

// Credential errors surfaced to the orchestrator.
var (
	// ErrMissingRefreshToken indicates an expired credential that cannot
	// be refreshed because no refresh token was ever granted.
	ErrMissingRefreshToken = errors.New("credential has no refresh token")

	// ErrRefreshRejected indicates the provider refused the refresh grant.
	ErrRefreshRejected = errors.New("provider rejected token refresh")
)

// googleTokenURL is the OAuth2 token endpoint for the Google provider.
const googleTokenURL = "https://oauth2.googleapis.com/token"

// refreshTimeout bounds one refresh-token grant round trip.
const refreshTimeout = 15 * time.Second

// tokenResponse is the provider's refresh grant response body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Manager keeps stored credentials fresh. It owns the only write path to
// credential rows after first authorization.
type Manager struct {
	store        store.CredentialStore
	clientID     string
	clientSecret string
	tokenURL     string
	client       *http.Client
	logger       *slog.Logger
}

// NewManager creates a credential manager for the Google provider.
func NewManager(s store.CredentialStore, clientID, clientSecret string) *Manager {
	return &Manager{
		store:        s,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     googleTokenURL,
		client:       &http.Client{Timeout: refreshTimeout},
		logger:       slog.Default().With("component", "credential"),
	}
}

// EnsureFresh returns the credential unchanged when it has not expired.
// An expired credential is refreshed via the refresh-token grant and the
// new tokens are written atomically; the returned credential carries them.
// On any failure the stored credential is untouched, so the next tick can
// retry.
func (m *Manager) EnsureFresh(ctx context.Context, cred *store.Credential) (*store.Credential, error) {
	if !cred.Expired(time.Now()) {
		return cred, nil
	}

	if cred.RefreshToken == "" {
		return nil, ErrMissingRefreshToken
	}

	m.logger.Debug("refreshing expired credential", "user_id", cred.UserID, "provider", cred.Provider)

	token, err := m.refresh(ctx, cred.RefreshToken)
	if err != nil {
		return nil, err
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		// Provider did not rotate the refresh token; keep the old one.
		refreshToken = cred.RefreshToken
	}
	expiry := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second).UTC()

	if err := m.store.UpdateCredentialTokens(ctx, cred.ID, token.AccessToken, refreshToken, expiry); err != nil {
		return nil, fmt.Errorf("persisting refreshed tokens: %w", err)
	}

	fresh := *cred
	fresh.AccessToken = token.AccessToken
	fresh.RefreshToken = refreshToken
	fresh.Expiry = expiry

	m.logger.Info("refreshed credential", "user_id", cred.UserID, "provider", cred.Provider, "expiry", expiry)
	return &fresh, nil
}

// refresh performs the OAuth2 refresh-token grant.
func (m *Manager) refresh(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("client_id", m.clientID)
	form.Set("client_secret", m.clientSecret)
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshRejected, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRefreshRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("%w: parsing response: %v", ErrRefreshRejected, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carried no access token", ErrRefreshRejected)
	}

	return &token, nil
}
