package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadline/storefront-api/internal/domain/auth"
)

const getSessionByHashSQL = `SELECT s.id, s.user_id, s.token_hash, s.expires_at,
		u.id, u.email, u.full_name
	FROM sessions s
	JOIN users u ON u.id = s.user_id
	WHERE s.token_hash = $1 AND s.expires_at > now()`

var _ auth.SessionStore = (*SessionRepository)(nil)

// SessionRepository provides bearer session lookups backed by PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// FindByTokenHash looks up an unexpired session and its user by token hash.
func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*auth.Session, *auth.User, error) {
	var (
		s auth.Session
		u auth.User
	)
	err := r.pool.QueryRow(ctx, getSessionByHashSQL, hash).Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt,
		&u.ID, &u.Email, &u.FullName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("session not found: %w", err)
		}
		return nil, nil, fmt.Errorf("finding session by hash: %w", err)
	}
	return &s, &u, nil
}
