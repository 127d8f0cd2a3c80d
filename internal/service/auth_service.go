package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/soyolab/sns-bridge/internal/domain"
	"github.com/soyolab/sns-bridge/internal/logger"
)

// AuthAPI is the slice of the backend client the auth service depends on.
type AuthAPI interface {
	Login(ctx context.Context, userID, password string) (*domain.Identity, error)
	Logout(ctx context.Context) error
	ValidateToken(ctx context.Context) (*domain.Identity, error)
}

// AuthService holds the current identity. It is populated once at startup by
// validating the server-side session, then only changes through Login and
// Logout. Controllers receive the identity by value and never mutate it.
type AuthService struct {
	api  AuthAPI
	zlog zerolog.Logger

	mu       sync.RWMutex
	identity *domain.Identity
	loading  bool
}

func NewAuthService(apiClient AuthAPI) *AuthService {
	return &AuthService{
		api:     apiClient,
		zlog:    logger.Module("auth"),
		loading: true,
	}
}

// ValidateSession restores a previous login from the session cookie. A
// failed validation just means the user has to log in; it is not an error.
func (s *AuthService) ValidateSession(ctx context.Context) {
	identity, err := s.api.ValidateToken(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.zlog.Debug().Err(err).Msg("session validation failed")
		s.identity = nil
		return
	}
	s.identity = identity
}

func (s *AuthService) Login(ctx context.Context, userID, password string) (*domain.Identity, error) {
	identity, err := s.api.Login(ctx, userID, password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.identity = identity
	s.loading = false
	s.mu.Unlock()

	s.zlog.Info().Int64("user_id", identity.UserID).Msg("logged in")
	return identity, nil
}

// Logout clears the local identity even when the backend call fails.
func (s *AuthService) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)

	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()

	if err != nil {
		s.zlog.Warn().Err(err).Msg("logout request failed")
	}
	return err
}

// Current returns the logged-in identity, if any.
func (s *AuthService) Current() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

// Loading reports whether the startup session validation is still pending.
func (s *AuthService) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
