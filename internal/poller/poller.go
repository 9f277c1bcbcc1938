// ABOUTME: Polling orchestrator driving the mailbox-to-task pipeline
// ABOUTME: Runs a fixed-interval loop over eligible users with per-user and per-message isolation

package poller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/taskmill/taskmill/internal/dedupe"
	"github.com/taskmill/taskmill/internal/extract"
	"github.com/taskmill/taskmill/internal/mail"
	"github.com/taskmill/taskmill/internal/store"
)

// Store is the slice of persistence the poller needs.
type Store interface {
	ListPollableUsers(ctx context.Context) ([]*store.User, error)
	GetCredential(ctx context.Context, userID string, provider store.Provider) (*store.Credential, error)
	CreateTask(ctx context.Context, task *store.Task) error
	MarkMessageProcessed(ctx context.Context, userID string, provider store.Provider, messageID string) error
	IsMessageProcessed(ctx context.Context, userID string, provider store.Provider, messageID string) (bool, error)
}

// TokenSource returns a credential whose access token is valid now,
// refreshing and persisting it first when needed.
type TokenSource interface {
	EnsureFresh(ctx context.Context, cred *store.Credential) (*store.Credential, error)
}

// Extractor classifies one message as task-bearing or not.
type Extractor interface {
	Extract(ctx context.Context, msg mail.Message, referenceDate time.Time) (*extract.ExtractedTask, error)
}

// TickReport summarizes one polling tick. Counts are cumulative across
// all users and providers visited in the tick.
type TickReport struct {
	UsersPolled     int
	UsersSkipped    int
	MessagesFetched int
	MessagesSkipped int
	TasksCreated    int
	Errors          int
}

// Poller drives the fetch-extract-store pipeline on a fixed interval.
// Users are processed sequentially within a tick; a failure for one user
// or one message never aborts the rest of the tick.
type Poller struct {
	store     Store
	tokens    TokenSource
	extractor Extractor
	providers []mail.Provider
	cache     *dedupe.Cache
	interval  time.Duration
	limit     int64
	logger    *slog.Logger

	// now is the tick clock, overridable in tests.
	now func() time.Time
}

// Options configures a Poller.
type Options struct {
	Interval     time.Duration
	MessageLimit int64
}

// New creates a Poller over the given providers. The dedupe cache is
// owned by the poller and closed when the loop exits.
func New(s Store, tokens TokenSource, extractor Extractor, providers []mail.Provider, opts Options) *Poller {
	return &Poller{
		store:     s,
		tokens:    tokens,
		extractor: extractor,
		providers: providers,
		cache:     dedupe.New(30*time.Minute, 100_000),
		interval:  opts.Interval,
		limit:     opts.MessageLimit,
		logger:    slog.Default().With("component", "poller"),
		now:       time.Now,
	}
}

// Run polls immediately, then on every interval tick until ctx is
// cancelled. A tick always runs to completion; cancellation is observed
// between ticks and by the outbound calls within one.
func (p *Poller) Run(ctx context.Context) {
	defer p.cache.Close()

	p.logger.Info("polling started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("polling stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	report := p.RunOnce(ctx)
	if report.TasksCreated > 0 || report.Errors > 0 {
		p.logger.Info("tick complete",
			"users_polled", report.UsersPolled,
			"messages_fetched", report.MessagesFetched,
			"tasks_created", report.TasksCreated,
			"errors", report.Errors,
		)
	}
}

// RunOnce executes a single polling tick and reports what happened.
func (p *Poller) RunOnce(ctx context.Context) TickReport {
	var report TickReport

	users, err := p.store.ListPollableUsers(ctx)
	if err != nil {
		p.logger.Error("listing pollable users", "error", err)
		report.Errors++
		return report
	}

	for _, user := range users {
		if ctx.Err() != nil {
			return report
		}
		if p.pollUser(ctx, user, &report) {
			report.UsersPolled++
		} else {
			report.UsersSkipped++
		}
	}
	return report
}

// pollUser runs one user's unit of work across all providers. It returns
// false when every provider was skipped, so the report distinguishes a
// polled user from one whose credentials were unusable this tick.
func (p *Poller) pollUser(ctx context.Context, user *store.User, report *TickReport) bool {
	logger := p.logger.With("user_id", user.ID)

	polled := false
	for _, provider := range p.providers {
		cred, err := p.store.GetCredential(ctx, user.ID, provider.Kind())
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				logger.Error("loading credential", "provider", provider.Kind(), "error", err)
				report.Errors++
			}
			continue
		}

		cred, err = p.tokens.EnsureFresh(ctx, cred)
		if err != nil {
			logger.Warn("token refresh failed, skipping user", "provider", provider.Kind(), "error", err)
			report.Errors++
			continue
		}

		messages, err := provider.FetchUnread(ctx, cred, p.limit)
		if err != nil {
			logger.Warn("fetch failed, skipping user", "provider", provider.Kind(), "error", err)
			report.Errors++
			continue
		}

		polled = true
		report.MessagesFetched += len(messages)
		for _, msg := range messages {
			p.handleMessage(ctx, user, provider.Kind(), msg, report)
		}
	}
	return polled
}

// handleMessage runs one message through dedup, extraction and storage.
// The processed mark is written only after a clean decision: a stored
// task or a definite "no task". Malformed responses and storage failures
// leave the message unmarked so a later tick can reconsider it.
func (p *Poller) handleMessage(ctx context.Context, user *store.User, provider store.Provider, msg mail.Message, report *TickReport) {
	logger := p.logger.With("user_id", user.ID, "message_id", msg.ID)

	if p.cache.Seen(user.ID, provider, msg.ID) {
		report.MessagesSkipped++
		return
	}
	processed, err := p.store.IsMessageProcessed(ctx, user.ID, provider, msg.ID)
	if err != nil {
		logger.Error("dedup lookup failed", "error", err)
		report.Errors++
		return
	}
	if processed {
		p.cache.Remember(user.ID, provider, msg.ID)
		report.MessagesSkipped++
		return
	}

	task, err := p.extractor.Extract(ctx, msg, p.now())
	if err != nil {
		if errors.Is(err, extract.ErrMalformedResponse) {
			logger.Warn("unusable classification response, message skipped")
		} else {
			logger.Error("extraction failed", "error", err)
		}
		report.Errors++
		return
	}

	if task != nil {
		record := &store.Task{
			UserID:      user.ID,
			Title:       task.Title,
			Description: task.Description,
			DueDate:     task.DueDate,
		}
		if err := p.store.CreateTask(ctx, record); err != nil {
			logger.Error("storing task", "error", err)
			report.Errors++
			return
		}
		logger.Info("task created", "task_id", record.ID, "title", record.Title)
		report.TasksCreated++
	}

	if err := p.store.MarkMessageProcessed(ctx, user.ID, provider, msg.ID); err != nil {
		logger.Error("marking message processed", "error", err)
		report.Errors++
		return
	}
	p.cache.Remember(user.ID, provider, msg.ID)
}
