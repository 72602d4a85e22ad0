package postgres

import (
	"context"

	"sponte/internal/store"

	"github.com/google/uuid"
)

const userColumns = "id, email, onboarding_completed, subscription_tier, created_at"

// CreateUser inserts a new user together with the hash of its API key.
// A taken email or key hash surfaces as store.ErrDuplicateUser.
func (s *Store) CreateUser(ctx context.Context, user *store.User, hashedKey string) error {
	query := `
		INSERT INTO users (id, email, api_key_hash, onboarding_completed, subscription_tier, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		hashedKey,
		user.OnboardingCompleted,
		user.SubscriptionTier,
		user.CreatedAt,
	)
	if isUniqueViolation(err, "") {
		return store.ErrDuplicateUser
	}
	return err
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetUserByAPIKeyHash(ctx context.Context, hash string) (*store.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE api_key_hash = $1"
	return scanUser(s.db.QueryRowContext(ctx, query, hash))
}

func (s *Store) SetOnboardingCompleted(ctx context.Context, tx store.DBTransaction, id uuid.UUID) error {
	res, err := s.getExecutor(tx).ExecContext(ctx, "UPDATE users SET onboarding_completed = TRUE WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(row scanner) (*store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Email, &u.OnboardingCompleted, &u.SubscriptionTier, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}
