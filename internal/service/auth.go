package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/cloo-solutions/docuchat/internal/domain"
)

// UserSessionRepository resolves hashed bearer tokens to login sessions.
type UserSessionRepository interface {
	GetByTokenHash(ctx context.Context, hash string) (*domain.UserSession, error)
}

// UserRepository resolves user ids to account records.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// AuthService performs the identity check: given a bearer credential,
// returns who is calling or signals invalid/expired. Token issuance is
// owned by the auth layer; only validation lives here.
type AuthService struct {
	userSessions UserSessionRepository
	users        UserRepository
	now          func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(userSessions UserSessionRepository, users UserRepository) *AuthService {
	return &AuthService{userSessions: userSessions, users: users, now: time.Now}
}

// Identify validates a bearer token and returns the caller's identity.
// Unknown and expired tokens both fail with ErrInvalidToken so callers
// cannot distinguish the two.
func (s *AuthService) Identify(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	session, err := s.userSessions.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}
	if session == nil || session.Expired(s.now().UTC()) {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	return &domain.Identity{UserID: user.ID, Username: user.Username}, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
