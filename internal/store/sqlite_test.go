// ABOUTME: Tests for SQLite store setup and user persistence
// ABOUTME: Covers schema creation, user CRUD, and pollable-user enumeration

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/taskmill/taskmill/internal/secrets"
)

// setupTestStore creates a store in a temp directory with a fixed test key.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	var key [32]byte
	for i := range key {
		key[i] = 42
	}

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath, secrets.NewCipher(key))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	var key [32]byte
	s, err := NewSQLiteStore(dbPath, secrets.NewCipher(key))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	var key [32]byte
	s, err := NewSQLiteStore(dbPath, secrets.NewCipher(key))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()
}

func TestCreateUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := &User{
		Email:          "alice@example.com",
		HashedPassword: "hashed",
		Active:         true,
	}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == "" {
		t.Error("expected ID to be set")
	}
	if user.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	// Duplicate email is rejected
	dup := &User{Email: "alice@example.com", HashedPassword: "other"}
	if err := s.CreateUser(ctx, dup); err != ErrDuplicateEmail {
		t.Errorf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestGetUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := &User{
		Email:          "bob@example.com",
		HashedPassword: "hashed",
		Active:         true,
	}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if retrieved.Email != "bob@example.com" {
		t.Errorf("expected email bob@example.com, got %s", retrieved.Email)
	}
	if !retrieved.Active {
		t.Error("expected user to be active")
	}
	if retrieved.GoogleAuthenticated {
		t.Error("expected google_authenticated to default to false")
	}

	byEmail, err := s.GetUserByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("expected ID %s, got %s", user.ID, byEmail.ID)
	}

	if _, err := s.GetUser(ctx, "nonexistent"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetGoogleAuthenticated(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := &User{Email: "carol@example.com", HashedPassword: "hashed", Active: true}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := s.SetGoogleAuthenticated(ctx, user.ID, true); err != nil {
		t.Fatalf("SetGoogleAuthenticated failed: %v", err)
	}

	retrieved, err := s.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if !retrieved.GoogleAuthenticated {
		t.Error("expected google_authenticated to be true")
	}

	if err := s.SetGoogleAuthenticated(ctx, "nonexistent", true); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListPollableUsers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mkUser := func(email string, active, google bool) *User {
		u := &User{Email: email, HashedPassword: "hashed", Active: active, GoogleAuthenticated: google, CreatedAt: time.Now().UTC()}
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", email, err)
		}
		return u
	}

	eligible := mkUser("eligible@example.com", true, true)
	mkUser("inactive@example.com", false, true)
	mkUser("unauthenticated@example.com", true, false)

	users, err := s.ListPollableUsers(ctx)
	if err != nil {
		t.Fatalf("ListPollableUsers failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 pollable user, got %d", len(users))
	}
	if users[0].ID != eligible.ID {
		t.Errorf("expected user %s, got %s", eligible.ID, users[0].ID)
	}
}
