package auth

import (
	"context"
	"fmt"

	"github.com/natour-api/internal/domain"
	jwtinfra "github.com/natour-api/internal/infrastructure/jwt"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type Service interface {
	// Login verifies credentials and issues an access/refresh token pair.
	Login(ctx context.Context, req LoginRequest) (access, refresh string, u *domain.User, err error)
	// Refresh rotates the access token from a valid refresh token.
	Refresh(ctx context.Context, refreshToken string) (access string, err error)
}

// authenticator is the credential check, backed by the account service.
type authenticator interface {
	Authenticate(ctx context.Context, email, plaintext string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type tokenProvider interface {
	SignAccess(userID, username, email, role string) (string, error)
	SignRefresh(userID, username, email, role string) (string, error)
	VerifyRefresh(tokenStr string) (*jwtinfra.Claims, error)
}

type service struct {
	accounts authenticator
	tokens   tokenProvider
}

type ServiceDeps struct {
	Accounts authenticator
	Tokens   tokenProvider
}

func NewService(deps ServiceDeps) Service {
	return &service{accounts: deps.Accounts, tokens: deps.Tokens}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (string, string, *domain.User, error) {
	u, err := s.accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return "", "", nil, err
	}
	access, err := s.tokens.SignAccess(u.UserID, u.Username, u.Email, u.Role)
	if err != nil {
		return "", "", nil, err
	}
	refresh, err := s.tokens.SignRefresh(u.UserID, u.Username, u.Email, u.Role)
	if err != nil {
		return "", "", nil, err
	}
	return access, refresh, u, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
	}
	// Tokens are stateless, so revocation happens here: a deactivated or
	// deleted account cannot refresh.
	u, err := s.accounts.Get(ctx, claims.UserID)
	if err != nil {
		return "", fmt.Errorf("account no longer exists: %w", domain.ErrUnauthorized)
	}
	if !u.IsActive {
		return "", fmt.Errorf("account is deactivated: %w", domain.ErrForbidden)
	}
	return s.tokens.SignAccess(u.UserID, u.Username, u.Email, u.Role)
}
