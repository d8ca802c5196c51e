package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/natour-api/internal/domain"
	jwtinfra "github.com/natour-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) Authenticate(ctx context.Context, email, plaintext string) (*domain.User, error) {
	args := m.Called(ctx, email, plaintext)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAccounts) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) SignAccess(userID, username, email, role string) (string, error) {
	args := m.Called(userID, username, email, role)
	return args.String(0), args.Error(1)
}
func (m *mockTokens) SignRefresh(userID, username, email, role string) (string, error) {
	args := m.Called(userID, username, email, role)
	return args.String(0), args.Error(1)
}
func (m *mockTokens) VerifyRefresh(tokenStr string) (*jwtinfra.Claims, error) {
	args := m.Called(tokenStr)
	if c, _ := args.Get(0).(*jwtinfra.Claims); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func activeUser() *domain.User {
	return &domain.User{UserID: "u1", Username: "alice", Email: "alice@example.com", Role: domain.RoleUser, IsActive: true}
}

func TestLogin_PropagatesAuthError(t *testing.T) {
	ac := &mockAccounts{}
	ac.On("Authenticate", mock.Anything, "alice@example.com", "wrong").
		Return(nil, domain.ErrUnauthorized)

	svc := NewService(ServiceDeps{Accounts: ac, Tokens: &mockTokens{}})
	_, _, _, err := svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "wrong"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_IssuesTokenPair(t *testing.T) {
	ac := &mockAccounts{}
	tk := &mockTokens{}
	ac.On("Authenticate", mock.Anything, "alice@example.com", "password123").Return(activeUser(), nil)
	tk.On("SignAccess", "u1", "alice", "alice@example.com", domain.RoleUser).Return("access-token", nil)
	tk.On("SignRefresh", "u1", "alice", "alice@example.com", domain.RoleUser).Return("refresh-token", nil)

	svc := NewService(ServiceDeps{Accounts: ac, Tokens: tk})
	access, refresh, u, err := svc.Login(context.Background(), LoginRequest{Email: "alice@example.com", Password: "password123"})

	require.NoError(t, err)
	assert.Equal(t, "access-token", access)
	assert.Equal(t, "refresh-token", refresh)
	assert.Equal(t, "u1", u.UserID)
	tk.AssertExpectations(t)
}

func TestRefresh_InvalidToken(t *testing.T) {
	tk := &mockTokens{}
	tk.On("VerifyRefresh", "garbage").Return(nil, errors.New("token is malformed"))

	svc := NewService(ServiceDeps{Accounts: &mockAccounts{}, Tokens: tk})
	_, err := svc.Refresh(context.Background(), "garbage")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestRefresh_DeactivatedAccountCannotRefresh(t *testing.T) {
	ac := &mockAccounts{}
	tk := &mockTokens{}
	tk.On("VerifyRefresh", "refresh-token").Return(&jwtinfra.Claims{UserID: "u1"}, nil)
	inactive := activeUser()
	inactive.IsActive = false
	ac.On("Get", mock.Anything, "u1").Return(inactive, nil)

	svc := NewService(ServiceDeps{Accounts: ac, Tokens: tk})
	_, err := svc.Refresh(context.Background(), "refresh-token")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestRefresh_RotatesAccessToken(t *testing.T) {
	ac := &mockAccounts{}
	tk := &mockTokens{}
	tk.On("VerifyRefresh", "refresh-token").Return(&jwtinfra.Claims{UserID: "u1"}, nil)
	ac.On("Get", mock.Anything, "u1").Return(activeUser(), nil)
	tk.On("SignAccess", "u1", "alice", "alice@example.com", domain.RoleUser).Return("new-access", nil)

	svc := NewService(ServiceDeps{Accounts: ac, Tokens: tk})
	access, err := svc.Refresh(context.Background(), "refresh-token")

	require.NoError(t, err)
	assert.Equal(t, "new-access", access)
}
