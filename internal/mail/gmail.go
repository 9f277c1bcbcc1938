// ABOUTME: Gmail implementation of the mail.Provider interface
// ABOUTME: Lists unread inbox messages, fetches details and attachment payloads per message

package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/taskmill/taskmill/internal/store"
)

// unreadQuery restricts listing to unread mail in the primary inbox,
// excluding the social and promotions categories.
const unreadQuery = "is:unread in:inbox -category:social -category:promotions"

// fetchTimeout bounds one full FetchUnread pass, including per-message
// detail and attachment fetches.
const fetchTimeout = 30 * time.Second

// serviceFactory builds a Gmail API client authorized by a credential.
// Swapped out in tests to point at a fake server.
type serviceFactory func(ctx context.Context, cred *store.Credential) (*gmail.Service, error)

// GmailProvider fetches unread messages via the Gmail REST API.
type GmailProvider struct {
	logger     *slog.Logger
	newService serviceFactory
}

// NewGmailProvider creates a provider that authorizes Gmail calls with the
// credential's access token.
func NewGmailProvider() *GmailProvider {
	return &GmailProvider{
		logger: slog.Default().With("component", "gmail"),
		newService: func(ctx context.Context, cred *store.Credential) (*gmail.Service, error) {
			ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken})
			return gmail.NewService(ctx, option.WithTokenSource(ts))
		},
	}
}

// Kind returns the provider identifier for Gmail credentials.
func (p *GmailProvider) Kind() store.Provider {
	return store.ProviderGmail
}

// FetchUnread lists unread primary-inbox messages and resolves each one to
// a Message with headers, snippet body, and attachment payloads.
func (p *GmailProvider) FetchUnread(ctx context.Context, cred *store.Credential, limit int64) ([]Message, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	svc, err := p.newService(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("%w: creating gmail client: %v", ErrAuthFailed, err)
	}

	list, err := svc.Users.Messages.List("me").
		Q(unreadQuery).
		MaxResults(limit).
		Context(ctx).Do()
	if err != nil {
		return nil, wrapGmailError("listing messages", err)
	}

	var messages []Message
	for _, ref := range list.Messages {
		detail, err := svc.Users.Messages.Get("me", ref.Id).Context(ctx).Do()
		if err != nil {
			return nil, wrapGmailError("fetching message "+ref.Id, err)
		}

		// The query excludes social/promotions mail, but labels are
		// checked again so the policy holds even when the provider's
		// query matching drifts.
		if !wantedLabels(detail.LabelIds) {
			continue
		}

		msg, err := p.buildMessage(ctx, svc, detail)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	p.logger.Debug("fetched unread messages", "user_id", cred.UserID, "count", len(messages))
	return messages, nil
}

// wantedLabels reports whether a message's labels keep it in scope:
// unread, in the inbox, and neither social nor promotions.
func wantedLabels(labelIDs []string) bool {
	var unread, inbox bool
	for _, id := range labelIDs {
		switch id {
		case "UNREAD":
			unread = true
		case "INBOX":
			inbox = true
		case "CATEGORY_SOCIAL", "CATEGORY_PROMOTIONS":
			return false
		}
	}
	return unread && inbox
}

// buildMessage converts a Gmail API message into a Message, fetching each
// attachment payload by its attachment id.
func (p *GmailProvider) buildMessage(ctx context.Context, svc *gmail.Service, detail *gmail.Message) (Message, error) {
	msg := Message{
		ID:   detail.Id,
		Body: detail.Snippet,
	}

	if detail.Payload != nil {
		for _, header := range detail.Payload.Headers {
			switch header.Name {
			case "Subject":
				msg.Subject = header.Value
			case "From":
				msg.Sender = header.Value
			}
		}

		for _, part := range detail.Payload.Parts {
			if part.Filename == "" || part.Body == nil || part.Body.AttachmentId == "" {
				continue
			}

			body, err := svc.Users.Messages.Attachments.
				Get("me", detail.Id, part.Body.AttachmentId).
				Context(ctx).Do()
			if err != nil {
				return Message{}, wrapGmailError("fetching attachment "+part.Filename, err)
			}

			msg.Attachments = append(msg.Attachments, Attachment{
				Filename: part.Filename,
				MimeType: part.MimeType,
				Data:     body.Data,
			})
		}
	}

	return msg, nil
}

// wrapGmailError maps a Gmail API error onto the provider error taxonomy.
func wrapGmailError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s: %v", ErrAuthFailed, op, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s: %v", ErrRateLimited, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrFetchFailed, op, err)
}

// Ensure GmailProvider implements Provider.
var _ Provider = (*GmailProvider)(nil)
