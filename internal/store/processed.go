// ABOUTME: Durable log of provider messages the pipeline has already decided on
// ABOUTME: Keyed by (user, provider, message id) so repeated ticks cannot duplicate tasks

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MarkMessageProcessed records that a provider message has produced a
// pipeline decision for a user. Safe to call repeatedly for the same key.
func (s *SQLiteStore) MarkMessageProcessed(ctx context.Context, userID string, provider Provider, messageID string) error {
	query := `
		INSERT OR IGNORE INTO processed_messages (user_id, provider, message_id, processed_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		userID,
		string(provider),
		messageID,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("marking message processed: %w", err)
	}

	return nil
}

// IsMessageProcessed reports whether a provider message already produced a
// decision for this user.
func (s *SQLiteStore) IsMessageProcessed(ctx context.Context, userID string, provider Provider, messageID string) (bool, error) {
	query := `
		SELECT 1 FROM processed_messages
		WHERE user_id = ? AND provider = ? AND message_id = ?
	`

	var one int
	err := s.db.QueryRowContext(ctx, query, userID, string(provider), messageID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying processed message: %w", err)
	}

	return true, nil
}
