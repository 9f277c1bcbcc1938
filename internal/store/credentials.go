// ABOUTME: Credential persistence with token encryption at the storage boundary
// ABOUTME: Tokens are sealed before hitting a row and opened right after scanning

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UpsertCredential inserts or replaces the credential for (user, provider).
// The caller supplies plaintext tokens; they are encrypted here.
func (s *SQLiteStore) UpsertCredential(ctx context.Context, cred *Credential) error {
	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	cred.UpdatedAt = time.Now().UTC()

	accessCiphertext, err := s.cipher.Encrypt(cred.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypting access token: %w", err)
	}
	refreshCiphertext, err := s.cipher.Encrypt(cred.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypting refresh token: %w", err)
	}

	query := `
		INSERT INTO credentials (id, user_id, provider, access_token, refresh_token, expiry, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		cred.ID,
		cred.UserID,
		string(cred.Provider),
		accessCiphertext,
		nullString(refreshCiphertext),
		cred.Expiry.UTC().Format(time.RFC3339),
		cred.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting credential: %w", err)
	}

	s.logger.Debug("stored credential", "user_id", cred.UserID, "provider", cred.Provider)
	return nil
}

// GetCredential retrieves the credential for (user, provider) with tokens
// decrypted. Returns ErrNotFound if the user never authorized the provider.
func (s *SQLiteStore) GetCredential(ctx context.Context, userID string, provider Provider) (*Credential, error) {
	query := `
		SELECT id, user_id, provider, access_token, refresh_token, expiry, updated_at
		FROM credentials
		WHERE user_id = ? AND provider = ?
	`

	var cred Credential
	var providerRaw string
	var accessCiphertext string
	var refreshCiphertext sql.NullString
	var expiry, updatedAt string

	err := s.db.QueryRowContext(ctx, query, userID, string(provider)).Scan(
		&cred.ID,
		&cred.UserID,
		&providerRaw,
		&accessCiphertext,
		&refreshCiphertext,
		&expiry,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}

	cred.Provider = Provider(providerRaw)

	cred.AccessToken, err = s.cipher.Decrypt(accessCiphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypting access token: %w", err)
	}
	if refreshCiphertext.Valid {
		cred.RefreshToken, err = s.cipher.Decrypt(refreshCiphertext.String)
		if err != nil {
			return nil, fmt.Errorf("decrypting refresh token: %w", err)
		}
	}

	expiryParsed, err := time.Parse(time.RFC3339, expiry)
	if err != nil {
		return nil, fmt.Errorf("parsing credential expiry: %w", err)
	}
	cred.Expiry = expiryParsed
	cred.UpdatedAt = parseTime(s.logger, "credential updated_at", cred.ID, updatedAt)

	return &cred, nil
}

// UpdateCredentialTokens atomically replaces the access token, refresh token
// and expiry of a credential. A failed refresh never reaches this method, so
// the previous row survives intact for a later retry.
func (s *SQLiteStore) UpdateCredentialTokens(ctx context.Context, id string, accessToken, refreshToken string, expiry time.Time) error {
	accessCiphertext, err := s.cipher.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("encrypting access token: %w", err)
	}
	refreshCiphertext, err := s.cipher.Encrypt(refreshToken)
	if err != nil {
		return fmt.Errorf("encrypting refresh token: %w", err)
	}

	query := `
		UPDATE credentials
		SET access_token = ?, refresh_token = ?, expiry = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		accessCiphertext,
		nullString(refreshCiphertext),
		expiry.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("updating credential tokens: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("refreshed credential tokens", "id", id, "expiry", expiry)
	return nil
}
