package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophVault/internal/common"
	"github.com/atinyakov/GophVault/internal/models"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "gophvault:session:"

// RedisSessionRepository stores sessions in Redis. Expiring sessions use the
// key TTL, so PurgeExpired has nothing to do. Revocation deletes the key.
type RedisSessionRepository struct {
	client redis.Cmdable
}

// NewRedisSessionRepository wraps an existing Redis client.
func NewRedisSessionRepository(client redis.Cmdable) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

type redisSession struct {
	UserID    string     `json:"user_id"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Create stores the session; SETNX keeps an existing session untouched.
func (r *RedisSessionRepository) Create(ctx context.Context, s *models.Session) error {
	data, err := json.Marshal(redisSession{UserID: s.UserID, IssuedAt: s.IssuedAt, ExpiresAt: s.ExpiresAt})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	var ttl time.Duration
	if s.ExpiresAt != nil {
		ttl = time.Until(*s.ExpiresAt)
		if ttl <= 0 {
			return fmt.Errorf("create session: already expired at %s", s.ExpiresAt.Format(time.RFC3339))
		}
	}

	ok, err := r.client.SetNX(ctx, sessionKeyPrefix+s.TokenHash, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return fmt.Errorf("create session: token already issued")
	}
	return nil
}

// Find returns the session stored under tokenHash or common.ErrNotFound.
func (r *RedisSessionRepository) Find(ctx context.Context, tokenHash string) (*models.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+tokenHash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	var rs redisSession
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &models.Session{
		TokenHash: tokenHash,
		UserID:    rs.UserID,
		IssuedAt:  rs.IssuedAt,
		ExpiresAt: rs.ExpiresAt,
	}, nil
}

// Revoke deletes the session key.
func (r *RedisSessionRepository) Revoke(ctx context.Context, tokenHash string, _ time.Time) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+tokenHash).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op: Redis evicts expired keys itself.
func (r *RedisSessionRepository) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
