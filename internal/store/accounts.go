package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/triv3/musicvault/internal/domain"
)

// CreateSourceAccount records a newly connected external provider account.
func (db *DB) CreateSourceAccount(ctx context.Context, a *domain.SourceAccount) (*domain.SourceAccount, error) {
	row := db.QueryRowxContext(ctx, `
		INSERT INTO source_accounts (provider, display_name) VALUES (?, ?)
		RETURNING id, provider, display_name, created_at`,
		a.Provider, a.DisplayName,
	)
	var created domain.SourceAccount
	if err := row.StructScan(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetSourceAccount fetches a SourceAccount by id.
func (db *DB) GetSourceAccount(ctx context.Context, id int) (*domain.SourceAccount, error) {
	var a domain.SourceAccount
	err := db.GetContext(ctx, &a, "SELECT * FROM source_accounts WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListSourceAccountsByProvider returns every connected account for a
// provider, e.g. every linked Spotify account.
func (db *DB) ListSourceAccountsByProvider(ctx context.Context, provider domain.IdentityProvider) ([]domain.SourceAccount, error) {
	var accounts []domain.SourceAccount
	err := db.SelectContext(ctx, &accounts,
		"SELECT * FROM source_accounts WHERE provider = ? ORDER BY created_at ASC", provider)
	return accounts, err
}

// DeleteSourceAccount removes an account and its token, disconnecting it.
func (db *DB) DeleteSourceAccount(ctx context.Context, id int) error {
	_, err := db.ExecContext(ctx, "DELETE FROM oauth_tokens WHERE source_account_id = ?", id)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, "DELETE FROM source_accounts WHERE id = ?", id)
	return err
}

// UpsertOAuthToken stores or replaces the token for a SourceAccount.
// RefreshTokenEncrypted must already be ciphertext: this layer never sees
// a plaintext refresh token.
func (db *DB) UpsertOAuthToken(ctx context.Context, t *domain.OAuthToken) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO oauth_tokens (source_account_id, access_token, refresh_token_encrypted, expires_at, scope, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_account_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token_encrypted = excluded.refresh_token_encrypted,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			updated_at = excluded.updated_at`,
		t.SourceAccountID, t.AccessToken, t.RefreshTokenEncrypted, t.ExpiresAt, t.Scope, time.Now(),
	)
	return err
}

// GetOAuthToken fetches the token for a SourceAccount, if one exists.
func (db *DB) GetOAuthToken(ctx context.Context, sourceAccountID int) (*domain.OAuthToken, error) {
	var t domain.OAuthToken
	err := db.GetContext(ctx, &t, "SELECT * FROM oauth_tokens WHERE source_account_id = ?", sourceAccountID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateOAuthState records a short-lived PKCE/csrf handshake value.
func (db *DB) CreateOAuthState(ctx context.Context, state, codeVerifier string, ttl time.Duration) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO oauth_states (state, code_verifier, expires_at) VALUES (?, ?, ?)",
		state, codeVerifier, time.Now().Add(ttl),
	)
	return err
}

// ConsumeOAuthState looks up and deletes a state value in one step so a
// callback replay can never redeem the same state twice.
func (db *DB) ConsumeOAuthState(ctx context.Context, state string) (*domain.OAuthState, error) {
	var s domain.OAuthState
	err := db.GetContext(ctx, &s, "SELECT * FROM oauth_states WHERE state = ?", state)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM oauth_states WHERE state = ?", state); err != nil {
		return nil, err
	}
	if time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	return &s, nil
}

// PruneExpiredOAuthStates deletes stale handshake rows, called periodically
// so an abandoned login flow doesn't linger in the table forever.
func (db *DB) PruneExpiredOAuthStates(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, "DELETE FROM oauth_states WHERE expires_at < ?", time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
