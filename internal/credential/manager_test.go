// ABOUTME: Tests for credential freshness and refresh-token grants
// ABOUTME: Uses a fake token endpoint and an in-memory credential store

package credential

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmill/taskmill/internal/store"
)

// memCredentialStore is an in-memory store.CredentialStore for tests.
type memCredentialStore struct {
	creds   map[string]*store.Credential
	updates int
}

func newMemCredentialStore() *memCredentialStore {
	return &memCredentialStore{creds: make(map[string]*store.Credential)}
}

func (m *memCredentialStore) UpsertCredential(_ context.Context, cred *store.Credential) error {
	copied := *cred
	m.creds[cred.ID] = &copied
	return nil
}

func (m *memCredentialStore) GetCredential(_ context.Context, userID string, provider store.Provider) (*store.Credential, error) {
	for _, c := range m.creds {
		if c.UserID == userID && c.Provider == provider {
			copied := *c
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memCredentialStore) UpdateCredentialTokens(_ context.Context, id string, accessToken, refreshToken string, expiry time.Time) error {
	cred, ok := m.creds[id]
	if !ok {
		return store.ErrNotFound
	}
	cred.AccessToken = accessToken
	cred.RefreshToken = refreshToken
	cred.Expiry = expiry
	m.updates++
	return nil
}

func newTestManager(t *testing.T, s store.CredentialStore, handler http.HandlerFunc) *Manager {
	t.Helper()

	m := NewManager(s, "client-id", "client-secret")
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		m.tokenURL = srv.URL
	}
	return m
}

func storedCredential(s *memCredentialStore, refreshToken string, expiry time.Time) *store.Credential {
	cred := &store.Credential{
		ID:           "cred-1",
		UserID:       "user-1",
		Provider:     store.ProviderGmail,
		AccessToken:  "old-access",
		RefreshToken: refreshToken,
		Expiry:       expiry,
	}
	_ = s.UpsertCredential(context.Background(), cred)
	return cred
}

func TestEnsureFresh_NotExpired(t *testing.T) {
	s := newMemCredentialStore()
	cred := storedCredential(s, "refresh-1", time.Now().Add(time.Hour))

	m := newTestManager(t, s, func(w http.ResponseWriter, r *http.Request) {
		t.Error("token endpoint must not be called for a fresh credential")
	})

	got, err := m.EnsureFresh(context.Background(), cred)
	require.NoError(t, err)
	assert.Same(t, cred, got)
	assert.Zero(t, s.updates)
}

func TestEnsureFresh_Refreshes(t *testing.T) {
	s := newMemCredentialStore()
	cred := storedCredential(s, "refresh-1", time.Now().Add(-time.Hour))

	m := newTestManager(t, s, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"new-access","expires_in":3600,"token_type":"Bearer"}`)
	})

	got, err := m.EnsureFresh(context.Background(), cred)
	require.NoError(t, err)

	assert.Equal(t, "new-access", got.AccessToken)
	// No rotation in the response keeps the old refresh token.
	assert.Equal(t, "refresh-1", got.RefreshToken)
	assert.False(t, got.Expired(time.Now()))

	// The store saw exactly one atomic token write.
	assert.Equal(t, 1, s.updates)
	stored, err := s.GetCredential(context.Background(), "user-1", store.ProviderGmail)
	require.NoError(t, err)
	assert.Equal(t, "new-access", stored.AccessToken)
}

func TestEnsureFresh_RotatedRefreshToken(t *testing.T) {
	s := newMemCredentialStore()
	cred := storedCredential(s, "refresh-1", time.Now().Add(-time.Hour))

	m := newTestManager(t, s, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"new-access","refresh_token":"refresh-2","expires_in":3600}`)
	})

	got, err := m.EnsureFresh(context.Background(), cred)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", got.RefreshToken)

	stored, err := s.GetCredential(context.Background(), "user-1", store.ProviderGmail)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", stored.RefreshToken)
}

func TestEnsureFresh_MissingRefreshToken(t *testing.T) {
	s := newMemCredentialStore()
	cred := storedCredential(s, "", time.Now().Add(-time.Hour))

	m := newTestManager(t, s, nil)

	_, err := m.EnsureFresh(context.Background(), cred)
	assert.ErrorIs(t, err, ErrMissingRefreshToken)
	assert.Zero(t, s.updates)
}

func TestEnsureFresh_RefreshRejected(t *testing.T) {
	s := newMemCredentialStore()
	cred := storedCredential(s, "refresh-1", time.Now().Add(-time.Hour))

	m := newTestManager(t, s, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	})

	_, err := m.EnsureFresh(context.Background(), cred)
	assert.ErrorIs(t, err, ErrRefreshRejected)

	// Rejection leaves the stored credential fully intact for a retry.
	assert.Zero(t, s.updates)
	stored, err := s.GetCredential(context.Background(), "user-1", store.ProviderGmail)
	require.NoError(t, err)
	assert.Equal(t, "old-access", stored.AccessToken)
	assert.Equal(t, "refresh-1", stored.RefreshToken)
}

func TestEnsureFresh_MalformedResponse(t *testing.T) {
	s := newMemCredentialStore()
	cred := storedCredential(s, "refresh-1", time.Now().Add(-time.Hour))

	m := newTestManager(t, s, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	})

	_, err := m.EnsureFresh(context.Background(), cred)
	assert.ErrorIs(t, err, ErrRefreshRejected)
	assert.Zero(t, s.updates)
}
