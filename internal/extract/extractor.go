// ABOUTME: Task extraction from mailbox messages via a language-model classification call
// ABOUTME: Wraps prompt construction, the Classifier capability, and response normalization

package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskmill/taskmill/internal/mail"
)

// ExtractedTask is the structured result of classifying one message.
// Title is always non-empty; DueDate is nil when the message names none.
type ExtractedTask struct {
	Title       string
	DueDate     *time.Time
	Description string
}

// Classifier is the language-model capability the extractor delegates to.
type Classifier interface {
	// Complete sends a system instruction and one user message, returning
	// the model's raw text response.
	Complete(ctx context.Context, system, user string) (string, error)
}

// Extractor classifies messages as task-bearing or not.
type Extractor struct {
	classifier Classifier
	logger     *slog.Logger
}

// New creates an Extractor backed by the given classifier.
func New(classifier Classifier) *Extractor {
	return &Extractor{
		classifier: classifier,
		logger:     slog.Default().With("component", "extract"),
	}
}

// Extract classifies one message. It returns (nil, nil) when the model
// decides the message carries no task, (task, nil) on a recognized task,
// ErrMalformedResponse when the model's response cannot be parsed, and
// any other error when the classification call itself fails.
//
// referenceDate is the invocation time; it reaches the model so relative
// phrases ("by next Friday") resolve against the actual poll time.
// A malformed response is not retried within a tick: the message is
// reconsidered only if the provider still reports it unread later.
func (e *Extractor) Extract(ctx context.Context, msg mail.Message, referenceDate time.Time) (*ExtractedTask, error) {
	response, err := e.classifier.Complete(ctx, buildSystemPrompt(referenceDate), renderMessage(msg))
	if err != nil {
		return nil, fmt.Errorf("classifying message %s: %w", msg.ID, err)
	}

	task, err := parseTaskResponse(response)
	if err != nil {
		e.logger.Warn("malformed classification response",
			"message_id", msg.ID,
			"response", truncate(response, 200),
			"error", err,
		)
		return nil, err
	}

	if task == nil {
		e.logger.Debug("message carries no task", "message_id", msg.ID)
		return nil, nil
	}

	e.logger.Debug("extracted task", "message_id", msg.ID, "title", task.Title)
	return task, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
