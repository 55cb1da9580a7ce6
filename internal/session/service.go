package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go_library/internal/apperr"
	"go_library/internal/auth"
	"go_library/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RevocationStore remembers logged-out tokens until they expire
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string    `json:"token"`
	ExpireAt  time.Time `json:"expireAt"`
	Principal Principal `json:"user"`
}

// Service implements login, token resolution and logout
type Service struct {
	db      *gorm.DB
	tokens  *auth.TokenManager
	revoked RevocationStore
	logger  *logrus.Entry
}

// NewService creates a session service
func NewService(db *gorm.DB, tokens *auth.TokenManager, revoked RevocationStore, logger *logrus.Entry) *Service {
	return &Service{
		db:      db,
		tokens:  tokens,
		revoked: revoked,
		logger:  logger.WithField("component", "session"),
	}
}

// Login verifies credentials and issues a token
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Same answer as a wrong password
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, apperr.FromDB("failed to load user", err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if !user.Active {
		return nil, apperr.Forbidden("user is inactive")
	}

	token, claims, err := s.tokens.Generate(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}

	s.logger.WithFields(logrus.Fields{"uid": user.ID, "role": user.Role}).Info("User logged in")
	return &LoginResult{
		Token:     token,
		ExpireAt:  claims.ExpiresAt.Time,
		Principal: Principal{ID: user.ID, Username: user.Username, Role: user.Role},
	}, nil
}

// Authenticate resolves a bearer token into the current principal.
// The role is read from the database so role changes and deactivation apply immediately.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, *auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if auth.IsExpired(err) {
			return Principal{}, nil, apperr.Wrap(apperr.KindUnauthorized, "token expired", err)
		}
		return Principal{}, nil, apperr.Wrap(apperr.KindUnauthorized, "invalid token", err)
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Principal{}, nil, apperr.FromDB("failed to check token", err)
		}
		if revoked {
			return Principal{}, nil, apperr.Unauthorized("token revoked")
		}
	}

	var user model.User
	if err := s.db.WithContext(ctx).First(&user, claims.UID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Principal{}, nil, apperr.Unauthorized("user no longer exists")
		}
		return Principal{}, nil, apperr.FromDB("failed to load user", err)
	}
	if !user.Active {
		return Principal{}, nil, apperr.Forbidden("user is inactive")
	}

	return Principal{ID: user.ID, Username: user.Username, Role: user.Role}, claims, nil
}

// Logout revokes the token described by claims
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || s.revoked == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperr.FromDB("failed to revoke token", err)
	}
	s.logger.WithField("uid", claims.UID).Info("User logged out")
	return nil
}

// MemoryRevocations is a process-local RevocationStore for single-instance deployments without Redis
type MemoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocations creates an empty in-process store
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke implements RevocationStore
func (m *MemoryRevocations) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, id)
		}
	}
	m.entries[tokenID] = now.Add(ttl)
	return nil
}

// IsRevoked implements RevocationStore
func (m *MemoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[tokenID]
	return ok && exp.After(m.now()), nil
}
