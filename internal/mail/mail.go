// ABOUTME: Message provider abstraction over external mailbox services
// ABOUTME: Defines Message/Attachment types, the Provider interface, and the fetch error taxonomy

package mail

import (
	"context"
	"errors"

	"github.com/taskmill/taskmill/internal/store"
)

// Provider fetch errors. Implementations wrap the underlying cause so the
// orchestrator can log it while still matching with errors.Is.
var (
	// ErrAuthFailed indicates the provider rejected the credential.
	ErrAuthFailed = errors.New("provider authentication failed")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrFetchFailed covers transport and API errors during listing or
	// detail fetch.
	ErrFetchFailed = errors.New("provider fetch failed")
)

// Attachment is a file attached to a message. Data is the provider's
// base64url-encoded payload, fetched individually by attachment id.
type Attachment struct {
	Filename string
	MimeType string
	Data     string
}

// Message is one unread mailbox message. The ID is provider-scoped, not
// globally unique. The body may be a truncated snippet. Messages are
// transient: fetched per tick, never persisted.
type Message struct {
	ID          string
	Subject     string
	Sender      string
	Body        string
	Attachments []Attachment
}

// Provider fetches unread messages from an external mailbox service on a
// user's behalf. Implementations exist per provider kind.
type Provider interface {
	// Kind returns the provider identifier matching the credential rows
	// this provider can consume.
	Kind() store.Provider

	// FetchUnread returns up to limit unread primary-inbox messages,
	// excluding social and promotions mail. The result reflects live
	// provider state: re-invocation may return a different set. A fetch
	// failure is returned as an error wrapping one of the sentinels
	// above, distinct from an empty mailbox.
	FetchUnread(ctx context.Context, cred *store.Credential, limit int64) ([]Message, error)
}
