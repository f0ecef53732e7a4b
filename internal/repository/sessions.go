package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophVault/internal/common"
	"github.com/atinyakov/GophVault/internal/models"
)

// PostgresSessionRepository stores issued sessions keyed by token digest.
type PostgresSessionRepository struct {
	DB *sql.DB
}

// NewPostgresSessionRepository creates a new PostgresSessionRepository.
func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{DB: db}
}

// Create stores a new session.
func (r *PostgresSessionRepository) Create(ctx context.Context, s *models.Session) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO sessions (token_hash, user_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, s.TokenHash, s.UserID, s.IssuedAt, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Find returns the session with the given token digest, revoked or not.
// Returns common.ErrNotFound if no such session was issued.
func (r *PostgresSessionRepository) Find(ctx context.Context, tokenHash string) (*models.Session, error) {
	var (
		s                  models.Session
		expires, revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT token_hash, user_id, issued_at, expires_at, revoked_at
		FROM sessions WHERE token_hash = $1
	`, tokenHash).Scan(&s.TokenHash, &s.UserID, &s.IssuedAt, &expires, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	s.ExpiresAt = timePtr(expires)
	s.RevokedAt = timePtr(revokedAt)
	return &s, nil
}

// Revoke marks the session as revoked at the given time.
// Revoking an unknown or already revoked session is a no-op.
func (r *PostgresSessionRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = $2 WHERE token_hash = $1 AND revoked_at IS NULL
	`, tokenHash, at)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// PurgeExpired deletes sessions that expired or were revoked before the cutoff.
func (r *PostgresSessionRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM sessions
		 WHERE (expires_at IS NOT NULL AND expires_at < $1)
		    OR (revoked_at IS NOT NULL AND revoked_at < $1)
	`, before)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
