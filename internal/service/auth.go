// Package service provides the business logic of the vault: identity and
// session management, the access control gate, and file operations, delegating
// persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophVault/internal/common"
	"github.com/atinyakov/GophVault/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// tokenBytes is the amount of randomness in a session token.
const tokenBytes = 32

// UserRepository defines the identity persistence operations
// required by the authentication service.
type UserRepository interface {
	// Create inserts a user, failing with common.ErrDuplicateIdentity if the username is taken.
	Create(ctx context.Context, user *models.User) error
	// GetByUsername returns the user or common.ErrNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetByID returns the user or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// SessionRepository defines the session persistence operations.
type SessionRepository interface {
	Create(ctx context.Context, s *models.Session) error
	// Find returns the session or common.ErrNotFound.
	Find(ctx context.Context, tokenHash string) (*models.Session, error)
	Revoke(ctx context.Context, tokenHash string, at time.Time) error
}

// AuthService implements the identity store and session registry on top of
// its repositories.
type AuthService struct {
	users    UserRepository
	sessions SessionRepository

	// sessionTTL of zero means sessions never expire.
	sessionTTL time.Duration
	cost       int
	now        func() time.Time
	// dummyHash is compared against for unknown usernames, at the same cost
	// as real hashes.
	dummyHash []byte
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithSessionTTL makes issued sessions expire after ttl. Zero disables expiry.
func WithSessionTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) { s.sessionTTL = ttl }
}

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) AuthOption {
	return func(s *AuthService) { s.cost = cost }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService constructs an AuthService using the provided repositories.
func NewAuthService(users UserRepository, sessions SessionRepository, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:    users,
		sessions: sessions,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gophvault-timing-equalizer"), s.cost)
	return s
}

// Register creates a user with a bcrypt hash of password.
// Returns common.ErrDuplicateIdentity if the username is already registered.
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Verify checks a claimed identity and returns the matching user.
// Unknown usernames and wrong passwords both yield common.ErrInvalidCredentials.
func (s *AuthService) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Spend the same bcrypt work so response time does not reveal
			// whether the username exists.
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}
	return user, nil
}

// Login verifies the credentials and issues a new session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.Verify(ctx, username, password)
	if err != nil {
		return "", err
	}
	return s.CreateSession(ctx, user.ID)
}

// CreateSession issues a fresh random token bound to userID.
// Only the token's digest is persisted.
func (s *AuthService) CreateSession(ctx context.Context, userID string) (string, error) {
	token, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	now := s.now().UTC()
	session := &models.Session{
		TokenHash: common.HashToken(token),
		UserID:    userID,
		IssuedAt:  now,
	}
	if s.sessionTTL > 0 {
		exp := now.Add(s.sessionTTL)
		session.ExpiresAt = &exp
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the user bound to token. Empty, unknown, expired and
// revoked tokens all fail with common.ErrUnauthenticated.
func (s *AuthService) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", common.ErrUnauthenticated
	}
	session, err := s.sessions.Find(ctx, common.HashToken(token))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrUnauthenticated
		}
		return "", err
	}
	if !session.Active(s.now()) {
		return "", common.ErrUnauthenticated
	}
	return session.UserID, nil
}

// Revoke invalidates token. Unknown tokens are ignored.
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, common.HashToken(token), s.now().UTC())
}

// Me returns the user behind an authenticated id.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}
