package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const invalidCredentials = "No active account found with the given credentials"

// TokenPair is the result of a login or refresh.
type TokenPair struct {
	Access           string
	Refresh          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuthService issues and rotates token pairs.
type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokenMgr *auth.TokenManager
	now      func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	SessionRepo  repository.SessionRepository
	TokenManager *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:    deps.UserRepo,
		sessions: deps.SessionRepo,
		tokenMgr: deps.TokenManager,
		now:      time.Now,
	}
}

// Login checks credentials and returns a fresh token pair. Unknown users, wrong
// passwords and inactive accounts are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, *domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, apperrors.NewUnauthorized(invalidCredentials)
	}
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil || !user.IsActive {
		return nil, nil, apperrors.NewUnauthorized(invalidCredentials)
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	user.LastLogin = &now
	return pair, user, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token's session is
// consumed, so each refresh token works once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenMgr.ParseToken(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, apperrors.NewUnauthorized("token is invalid or expired")
	}
	userID, err := s.sessions.Consume(ctx, claims.ID)
	if errors.Is(err, repository.ErrSessionNotFound) || (err == nil && userID != claims.Subject) {
		return nil, apperrors.NewUnauthorized("token is invalid or expired")
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewUnauthorized("user not found")
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorized("user is inactive")
	}
	return s.issue(ctx, user)
}

func (s *AuthService) issue(ctx context.Context, user *domain.User) (*TokenPair, error) {
	access, err := s.tokenMgr.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refresh, err := s.tokenMgr.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.sessions.Save(ctx, refresh.ID, user.ID, s.tokenMgr.RefreshTTL()); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &TokenPair{
		Access:           access.Token,
		Refresh:          refresh.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
