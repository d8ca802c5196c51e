package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/natour-api/internal/config"
	"github.com/natour-api/internal/domain"
	jwtinfra "github.com/natour-api/internal/infrastructure/jwt"
	"github.com/natour-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- helpers shared by handler tests ---

func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	cfg := &config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
		RefreshExpiry:     30 * 24 * time.Hour,
	}
	p, err := jwtinfra.NewProvider(cfg)
	require.NoError(t, err)
	return p
}

// bearerReq builds a JSON request carrying a freshly signed access token.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, userID, role string, body []byte) *http.Request {
	t.Helper()
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	token, err := p.SignAccess(userID, "tester", "tester@example.com", role)
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// withChiID injects a chi route context so chi.URLParam(r, "id") resolves
// without going through the full router.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// serveAuthed runs a handler behind the auth middleware, the way the
// router mounts it.
func serveAuthed(p *jwtinfra.Provider, h http.HandlerFunc, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}

// --- mock ---

type mockAccountSvc struct{ mock.Mock }

func (m *mockAccountSvc) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *mockAccountSvc) Authenticate(ctx context.Context, email, plaintext string) (*domain.User, error) {
	args := m.Called(ctx, email, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *mockAccountSvc) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *mockAccountSvc) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *mockAccountSvc) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockAccountSvc) List(ctx context.Context, page, perPage int, search string) ([]domain.User, domain.Page, error) {
	args := m.Called(ctx, page, perPage, search)
	return args.Get(0).([]domain.User), args.Get(1).(domain.Page), args.Error(2)
}
func (m *mockAccountSvc) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}
func (m *mockAccountSvc) ResetPassword(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}
func (m *mockAccountSvc) SetStatus(ctx context.Context, userID string, req domain.UserStatusRequest) (*domain.User, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// --- Create ---

func TestCreateUser_InvalidBody(t *testing.T) {
	h := NewUserHandler(&mockAccountSvc{})
	r := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader([]byte("{")))
	rr := httptest.NewRecorder()
	h.Create(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateUser_UnverifiedEmail(t *testing.T) {
	svc := &mockAccountSvc{}
	svc.On("Create", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("email must be verified first: %w", domain.ErrBadRequest))
	h := NewUserHandler(svc)

	body := mustJSON(t, map[string]string{"username": "alice", "email": "alice@example.com", "password": "Secret123"})
	r := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp DetailEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp.Detail, "verified")
}

func TestCreateUser_DuplicateEmailIs409(t *testing.T) {
	svc := &mockAccountSvc{}
	svc.On("Create", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("email already in use: %w", domain.ErrConflict))
	h := NewUserHandler(svc)

	body := mustJSON(t, map[string]string{"username": "alice", "email": "alice@example.com", "password": "Secret123"})
	r := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, r)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCreateUser_HappyPath(t *testing.T) {
	svc := &mockAccountSvc{}
	svc.On("Create", mock.Anything, mock.MatchedBy(func(req domain.CreateUserRequest) bool {
		return req.Email == "alice@example.com" && req.Username == "alice"
	})).Return(&domain.User{UserID: "u1", Username: "alice", Email: "alice@example.com", Role: domain.RoleUser}, nil)
	h := NewUserHandler(svc)

	body := mustJSON(t, map[string]string{"username": "alice", "email": "alice@example.com", "password": "Secret123"})
	r := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, r)

	require.Equal(t, http.StatusCreated, rr.Code)
	var u domain.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&u))
	assert.Equal(t, "u1", u.UserID)
	svc.AssertExpectations(t)
}

// --- Me ---

func TestMe_RequiresToken(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewUserHandler(&mockAccountSvc{})
	r := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, h.Me, rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_ReturnsOwnAccount(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("Get", mock.Anything, "u1").
		Return(&domain.User{UserID: "u1", Username: "alice", Email: "alice@example.com"}, nil)
	h := NewUserHandler(svc)

	r := bearerReq(t, p, http.MethodGet, "/v1/users/me", "u1", domain.RoleUser, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, h.Me, rr, r)

	require.Equal(t, http.StatusOK, rr.Code)
	var u domain.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&u))
	assert.Equal(t, "alice", u.Username)
}

// --- ChangePassword ---

func TestChangePassword_WrongOldPasswordIs401(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("ChangePassword", mock.Anything, "u1", mock.Anything).
		Return(fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized))
	h := NewUserHandler(svc)

	body := mustJSON(t, map[string]string{
		"old_password": "wrong", "new_password": "Secret123", "confirm_password": "Secret123",
	})
	r := bearerReq(t, p, http.MethodPut, "/v1/users/me/password", "u1", domain.RoleUser, body)
	rr := httptest.NewRecorder()
	serveAuthed(p, h.ChangePassword, rr, r)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestChangePassword_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("ChangePassword", mock.Anything, "u1", mock.MatchedBy(func(req domain.ChangePasswordRequest) bool {
		return req.NewPassword == "Secret123" && req.ConfirmPassword == "Secret123"
	})).Return(nil)
	h := NewUserHandler(svc)

	body := mustJSON(t, map[string]string{
		"old_password": "OldSecret1", "new_password": "Secret123", "confirm_password": "Secret123",
	})
	r := bearerReq(t, p, http.MethodPut, "/v1/users/me/password", "u1", domain.RoleUser, body)
	rr := httptest.NewRecorder()
	serveAuthed(p, h.ChangePassword, rr, r)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp DetailEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "password changed", resp.Detail)
	svc.AssertExpectations(t)
}

// --- admin List ---

func TestListUsers_PageIsRequired(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewUserHandler(&mockAccountSvc{})

	r := bearerReq(t, p, http.MethodGet, "/v1/users", "m1", domain.RoleMaster, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, h.List, rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp DetailEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp.Detail, "page")
}

func TestListUsers_ForwardsQueryParams(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("List", mock.Anything, 2, 10, "ali").
		Return([]domain.User{{UserID: "u1", Username: "alice"}}, domain.NewPage(11, 2, 10), nil)
	h := NewUserHandler(svc)

	r := bearerReq(t, p, http.MethodGet, "/v1/users?page=2&per_page=10&search=ali", "m1", domain.RoleMaster, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, h.List, rr, r)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data  []domain.User `json:"data"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, 11, resp.Total)
	svc.AssertExpectations(t)
}

// --- admin ResetPassword ---

func TestResetPassword_MailFailureIs500(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("ResetPassword", mock.Anything, "u1").
		Return(fmt.Errorf("send new password: %w", domain.ErrMailDelivery))
	h := NewUserHandler(svc)

	r := withChiID(bearerReq(t, p, http.MethodPost, "/v1/users/u1/password-reset", "m1", domain.RoleMaster, nil), "u1")
	rr := httptest.NewRecorder()
	serveAuthed(p, h.ResetPassword, rr, r)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestResetPassword_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockAccountSvc{}
	svc.On("ResetPassword", mock.Anything, "u1").Return(nil)
	h := NewUserHandler(svc)

	r := withChiID(bearerReq(t, p, http.MethodPost, "/v1/users/u1/password-reset", "m1", domain.RoleMaster, nil), "u1")
	rr := httptest.NewRecorder()
	serveAuthed(p, h.ResetPassword, rr, r)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp DetailEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "new password sent by email", resp.Detail)
	svc.AssertExpectations(t)
}
