// ABOUTME: Tests for the Gmail provider against a fake Gmail REST server
// ABOUTME: Covers message building, category filtering, attachments, and error mapping

package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/taskmill/taskmill/internal/store"
)

// fakeGmail serves a minimal slice of the Gmail REST API for tests.
type fakeGmail struct {
	messages    map[string]*gmail.Message
	order       []string
	attachments map[string]*gmail.MessagePartBody
	failList    int // HTTP status to fail listing with, 0 for success
}

func (f *fakeGmail) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		if f.failList != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.failList)
			fmt.Fprintf(w, `{"error":{"code":%d,"message":%q}}`, f.failList, http.StatusText(f.failList))
			return
		}
		resp := &gmail.ListMessagesResponse{}
		for _, id := range f.order {
			resp.Messages = append(resp.Messages, &gmail.Message{Id: id})
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		msg, ok := f.messages[r.PathValue("id")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, msg)
	})

	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}/attachments/{attID}", func(w http.ResponseWriter, r *http.Request) {
		body, ok := f.attachments[r.PathValue("attID")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, body)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newTestProvider wires a GmailProvider at a fake server.
func newTestProvider(t *testing.T, fake *fakeGmail) *GmailProvider {
	t.Helper()

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	return &GmailProvider{
		logger: slog.Default(),
		newService: func(ctx context.Context, cred *store.Credential) (*gmail.Service, error) {
			return gmail.NewService(ctx,
				option.WithoutAuthentication(),
				option.WithEndpoint(srv.URL),
			)
		},
	}
}

func testCredential() *store.Credential {
	return &store.Credential{
		ID:          "cred-1",
		UserID:      "user-1",
		Provider:    store.ProviderGmail,
		AccessToken: "test-token",
		Expiry:      time.Now().Add(time.Hour),
	}
}

func inboxMessage(id, subject, from, snippet string, labels ...string) *gmail.Message {
	if labels == nil {
		labels = []string{"UNREAD", "INBOX"}
	}
	return &gmail.Message{
		Id:       id,
		Snippet:  snippet,
		LabelIds: labels,
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: subject},
				{Name: "From", Value: from},
			},
		},
	}
}

func TestFetchUnread(t *testing.T) {
	fake := &fakeGmail{
		order: []string{"m1", "m2"},
		messages: map[string]*gmail.Message{
			"m1": inboxMessage("m1", "Website Update Request", "manager@company.com", "we need to update the pricing page"),
			"m2": inboxMessage("m2", "Q4 Report Draft Review", "finance@company.com", "please review the attached draft"),
		},
	}
	p := newTestProvider(t, fake)

	messages, err := p.FetchUnread(context.Background(), testCredential(), 50)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "Website Update Request", messages[0].Subject)
	assert.Equal(t, "manager@company.com", messages[0].Sender)
	assert.Equal(t, "we need to update the pricing page", messages[0].Body)
	assert.Empty(t, messages[0].Attachments)
}

func TestFetchUnread_FiltersCategories(t *testing.T) {
	fake := &fakeGmail{
		order: []string{"m1", "m2", "m3"},
		messages: map[string]*gmail.Message{
			"m1": inboxMessage("m1", "Real work", "boss@company.com", "do the thing"),
			"m2": inboxMessage("m2", "Holiday Sale Announcement", "marketing@company.com", "25% off",
				"UNREAD", "INBOX", "CATEGORY_PROMOTIONS"),
			"m3": inboxMessage("m3", "Friend request", "social@network.com", "someone followed you",
				"UNREAD", "INBOX", "CATEGORY_SOCIAL"),
		},
	}
	p := newTestProvider(t, fake)

	messages, err := p.FetchUnread(context.Background(), testCredential(), 50)
	require.NoError(t, err)

	// Promotions and social mail never surface, even when unread and in
	// the inbox.
	require.Len(t, messages, 1)
	assert.Equal(t, "m1", messages[0].ID)
}

func TestFetchUnread_Attachments(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte("%PDF-1.4 report"))

	withAttachment := inboxMessage("m1", "Q4 Report", "finance@company.com", "see attached")
	withAttachment.Payload.Parts = []*gmail.MessagePart{
		{
			// Inline body part without a filename is not an attachment.
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: "aGVsbG8="},
		},
		{
			Filename: "q4-report.pdf",
			MimeType: "application/pdf",
			Body:     &gmail.MessagePartBody{AttachmentId: "att-1"},
		},
	}

	fake := &fakeGmail{
		order:    []string{"m1"},
		messages: map[string]*gmail.Message{"m1": withAttachment},
		attachments: map[string]*gmail.MessagePartBody{
			"att-1": {Data: payload, Size: 15},
		},
	}
	p := newTestProvider(t, fake)

	messages, err := p.FetchUnread(context.Background(), testCredential(), 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Attachments, 1)

	att := messages[0].Attachments[0]
	assert.Equal(t, "q4-report.pdf", att.Filename)
	assert.Equal(t, "application/pdf", att.MimeType)
	assert.Equal(t, payload, att.Data)
}

func TestFetchUnread_AuthError(t *testing.T) {
	fake := &fakeGmail{failList: http.StatusUnauthorized}
	p := newTestProvider(t, fake)

	_, err := p.FetchUnread(context.Background(), testCredential(), 50)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestFetchUnread_FetchError(t *testing.T) {
	fake := &fakeGmail{failList: http.StatusInternalServerError}
	p := newTestProvider(t, fake)

	_, err := p.FetchUnread(context.Background(), testCredential(), 50)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestWantedLabels(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   bool
	}{
		{"unread inbox", []string{"UNREAD", "INBOX"}, true},
		{"read mail", []string{"INBOX"}, false},
		{"not in inbox", []string{"UNREAD", "SENT"}, false},
		{"promotions", []string{"UNREAD", "INBOX", "CATEGORY_PROMOTIONS"}, false},
		{"social", []string{"UNREAD", "INBOX", "CATEGORY_SOCIAL"}, false},
		{"updates category ok", []string{"UNREAD", "INBOX", "CATEGORY_UPDATES"}, true},
		{"no labels", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wantedLabels(tt.labels))
		})
	}
}
