// ABOUTME: Store interfaces and data types for taskmill persistence
// ABOUTME: Defines User, Credential, Task structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when creating a user with an email that is already registered
var ErrDuplicateEmail = errors.New("email already registered")

// Provider identifies the external mailbox service a credential belongs to.
type Provider string

// ProviderGmail is the only mailbox provider currently implemented.
const ProviderGmail Provider = "gmail"

// User represents an account that owns tasks and provider credentials.
// The polling pipeline only reads users to decide eligibility; mutation
// happens through the API layer.
type User struct {
	ID                  string
	Email               string
	HashedPassword      string
	Active              bool
	GoogleAuthenticated bool
	CreatedAt           time.Time
}

// Credential holds a user's OAuth tokens for one provider. Fields carry
// plaintext in memory; the SQLite layer encrypts on write and decrypts on
// read, so rows never hold plaintext and callers never see ciphertext.
type Credential struct {
	ID           string
	UserID       string
	Provider     Provider
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the access token's expiry has passed.
func (c *Credential) Expired(now time.Time) bool {
	return c.Expiry.Before(now)
}

// Task represents a stored work item extracted from a message or created
// directly through the API.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	DueDate     *time.Time
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskFilter narrows ListTasks results.
type TaskFilter struct {
	Completed *bool
	Limit     int
}

// UserStore defines methods for account persistence.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	SetGoogleAuthenticated(ctx context.Context, userID string, authenticated bool) error

	// ListPollableUsers returns users with the active flag set and at
	// least one provider-authenticated flag set.
	ListPollableUsers(ctx context.Context) ([]*User, error)
}

// CredentialStore defines methods for provider credential persistence.
// Tokens are encrypted at this boundary.
type CredentialStore interface {
	UpsertCredential(ctx context.Context, cred *Credential) error
	GetCredential(ctx context.Context, userID string, provider Provider) (*Credential, error)

	// UpdateCredentialTokens writes access token, refresh token and expiry
	// in a single statement so a concurrent reader never observes a new
	// expiry paired with a stale token.
	UpdateCredentialTokens(ctx context.Context, id string, accessToken, refreshToken string, expiry time.Time) error
}

// TaskStore defines methods for task persistence.
type TaskStore interface {
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, userID string, filter TaskFilter) ([]*Task, error)
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id string) error
}

// ProcessedStore tracks which provider messages have already produced a
// pipeline decision, so repeated ticks over a still-unread message do not
// create duplicate tasks.
type ProcessedStore interface {
	MarkMessageProcessed(ctx context.Context, userID string, provider Provider, messageID string) error
	IsMessageProcessed(ctx context.Context, userID string, provider Provider, messageID string) (bool, error)
}

// Store is the full persistence interface backing both the API layer and
// the polling pipeline.
type Store interface {
	UserStore
	CredentialStore
	TaskStore
	ProcessedStore

	// Close releases any resources held by the store
	Close() error
}
