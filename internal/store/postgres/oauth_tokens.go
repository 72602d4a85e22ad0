package postgres

import (
	"context"

	"sponte/internal/store"

	"github.com/google/uuid"
)

// UpsertOAuthToken replaces the sealed credentials for (location, provider).
// An empty refresh token keeps the stored one, since providers only return it on first consent.
func (s *Store) UpsertOAuthToken(ctx context.Context, tok *store.OAuthToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_tokens (id, user_id, location_id, provider, access_token, refresh_token, expires_at, scope, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT ON CONSTRAINT uq_oauth_location_provider DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, oauth_tokens.refresh_token),
			expires_at = EXCLUDED.expires_at,
			scope = EXCLUDED.scope,
			updated_at = EXCLUDED.updated_at
	`, tok.ID, tok.UserID, tok.LocationID, tok.Provider, tok.AccessTokenSealed, nullBytes(tok.RefreshTokenSealed),
		tok.ExpiresAt, tok.Scope, tok.UpdatedAt)
	return err
}

func (s *Store) GetOAuthToken(ctx context.Context, locationID uuid.UUID, provider store.Provider) (*store.OAuthToken, error) {
	var t store.OAuthToken
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, location_id, provider, access_token, refresh_token, expires_at, scope, created_at, updated_at
		FROM oauth_tokens
		WHERE location_id = $1 AND provider = $2
	`, locationID, provider).Scan(
		&t.ID, &t.UserID, &t.LocationID, &t.Provider, &t.AccessTokenSealed, &t.RefreshTokenSealed,
		&t.ExpiresAt, &t.Scope, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *Store) DeleteOAuthToken(ctx context.Context, locationID uuid.UUID, provider store.Provider) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM oauth_tokens WHERE location_id = $1 AND provider = $2", locationID, provider)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
