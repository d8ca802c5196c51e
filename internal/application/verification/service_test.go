package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/natour-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockVerificationStore struct{ mock.Mock }

func (m *mockVerificationStore) Put(ctx context.Context, v *domain.EmailVerification) error {
	return m.Called(ctx, v).Error(0)
}
func (m *mockVerificationStore) Get(ctx context.Context, email, purpose string) (*domain.EmailVerification, error) {
	args := m.Called(ctx, email, purpose)
	if v, _ := args.Get(0).(*domain.EmailVerification); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockVerificationStore) Delete(ctx context.Context, email, purpose string) error {
	return m.Called(ctx, email, purpose).Error(0)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, textBody, htmlBody string) error {
	return m.Called(to, subject, textBody, htmlBody).Error(0)
}

// --- helpers ---

func newService(vs *mockVerificationStore, us *mockUserStore, ml *mockMailer) Service {
	return NewService(ServiceDeps{
		VerificationRepo: vs,
		UserRepo:         us,
		Mailer:           ml,
	})
}

func pendingRow(email, c string, ttl time.Duration) *domain.EmailVerification {
	return &domain.EmailVerification{
		Email:     email,
		Purpose:   domain.PurposeCode,
		Code:      c,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
}

// --- IssueCode ---

func TestIssueCode_MissingFields(t *testing.T) {
	svc := newService(&mockVerificationStore{}, nil, nil)

	err := svc.IssueCode(context.Background(), "", "alice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))

	err = svc.IssueCode(context.Background(), "alice@example.com", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestIssueCode_ThrottledWhilePending(t *testing.T) {
	vs := &mockVerificationStore{}
	vs.On("Get", mock.Anything, "alice@example.com", domain.PurposeCode).
		Return(pendingRow("alice@example.com", "ab1c2", time.Minute), nil)

	svc := newService(vs, nil, nil)
	err := svc.IssueCode(context.Background(), "alice@example.com", "alice")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	vs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestIssueCode_ExpiredPendingIsReplaced(t *testing.T) {
	vs := &mockVerificationStore{}
	ml := &mockMailer{}
	vs.On("Get", mock.Anything, "alice@example.com", domain.PurposeCode).
		Return(pendingRow("alice@example.com", "old00", -time.Minute), nil)
	vs.On("Put", mock.Anything, mock.AnythingOfType("*domain.EmailVerification")).Return(nil)
	ml.On("SendEmail", "alice@example.com", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newService(vs, nil, ml)
	err := svc.IssueCode(context.Background(), "alice@example.com", "alice")

	require.NoError(t, err)
	vs.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestIssueCode_NormalizesEmail(t *testing.T) {
	vs := &mockVerificationStore{}
	ml := &mockMailer{}
	vs.On("Get", mock.Anything, "alice@example.com", domain.PurposeCode).
		Return(nil, domain.ErrNotFound)
	vs.On("Put", mock.Anything, mock.MatchedBy(func(v *domain.EmailVerification) bool {
		return v.Email == "alice@example.com" && v.Purpose == domain.PurposeCode && len(v.Code) == 5
	})).Return(nil)
	ml.On("SendEmail", "alice@example.com", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newService(vs, nil, ml)
	err := svc.IssueCode(context.Background(), "  Alice@Example.COM ", "alice")

	require.NoError(t, err)
	vs.AssertExpectations(t)
}

func TestIssueCode_MailFailureKeepsStoredCode(t *testing.T) {
	vs := &mockVerificationStore{}
	ml := &mockMailer{}
	vs.On("Get", mock.Anything, "alice@example.com", domain.PurposeCode).
		Return(nil, domain.ErrNotFound)
	vs.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", "alice@example.com", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("smtp: connection refused"))

	svc := newService(vs, nil, ml)
	err := svc.IssueCode(context.Background(), "alice@example.com", "alice")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMailDelivery))
	// The code was stored before the send; no rollback.
	vs.AssertCalled(t, "Put", mock.Anything, mock.Anything)
	vs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

// --- VerifyCode ---

func TestVerifyCode_NotFound(t *testing.T) {
	vs := &mockVerificationStore{}
	vs.On("Get", mock.Anything, "alice@example.com", domain.PurposeCode).
		Return(nil, domain.ErrNotFound)

	svc := newService(vs, nil, nil)
	err := svc.VerifyCode(context.Background(), "alice@example.com", "ab1c2")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestVerifyCode_ExpiredRowCountsAsAbsent(t *testing.T) {
	vs := &mockVerificationStore{}
	vs.On("Get", mock.Anything, "alice@example.com", domain.PurposeCode).
		Return(pendingRow("alice@example.com", "ab1c2", -time.Second), nil)

	svc := newService(vs, nil, nil)
	err := svc.VerifyCode(context.Background(), "alice@example.com", "ab1c2")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	vs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyCode_MismatchKeepsPendingRow(t *testing.T) {
	vs := &mockVerificationStore{}
	vs.On("Get", mock.Anything, "alice@example.com", domain.PurposeCode).
		Return(pendingRow("alice@example.com", "ab1c2", time.Minute), nil)

	svc := newService(vs, nil, nil)
	err := svc.VerifyCode(context.Background(), "alice@example.com", "wrong")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	vs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	vs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestVerifyCode_MatchSetsVerifiedMarker(t *testing.T) {
	vs := &mockVerificationStore{}
	vs.On("Get", mock.Anything, "alice@example.com", domain.PurposeCode).
		Return(pendingRow("alice@example.com", "ab1c2", time.Minute), nil)
	vs.On("Delete", mock.Anything, "alice@example.com", domain.PurposeCode).Return(nil)
	vs.On("Put", mock.Anything, mock.MatchedBy(func(v *domain.EmailVerification) bool {
		return v.Purpose == domain.PurposeVerified && v.ExpiresAt > time.Now().Unix()
	})).Return(nil)

	svc := newService(vs, nil, nil)
	err := svc.VerifyCode(context.Background(), "alice@example.com", "ab1c2")

	require.NoError(t, err)
	vs.AssertExpectations(t)
}

// --- IssuePasswordResetCode ---

func TestIssuePasswordResetCode_UnknownEmailSucceedsSilently(t *testing.T) {
	vs := &mockVerificationStore{}
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrNotFound)

	svc := newService(vs, us, &mockMailer{})
	err := svc.IssuePasswordResetCode(context.Background(), "ghost@example.com")

	require.NoError(t, err)
	vs.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestIssuePasswordResetCode_KnownEmailSendsCode(t *testing.T) {
	vs := &mockVerificationStore{}
	us := &mockUserStore{}
	ml := &mockMailer{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").
		Return(&domain.User{UserID: "u1", Username: "alice", Email: "alice@example.com"}, nil)
	vs.On("Get", mock.Anything, "alice@example.com", domain.PurposeCode).
		Return(nil, domain.ErrNotFound)
	vs.On("Put", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendEmail", "alice@example.com", "Reset your password", mock.Anything, mock.Anything).Return(nil)

	svc := newService(vs, us, ml)
	err := svc.IssuePasswordResetCode(context.Background(), "alice@example.com")

	require.NoError(t, err)
	vs.AssertExpectations(t)
	ml.AssertExpectations(t)
}

// --- VerifyPasswordResetCode ---

func TestVerifyPasswordResetCode_UnknownEmailIs404(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrNotFound)

	svc := newService(&mockVerificationStore{}, us, nil)
	err := svc.VerifyPasswordResetCode(context.Background(), "ghost@example.com", "ab1c2", "newpass123")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestVerifyPasswordResetCode_WeakPasswordKeepsPendingRow(t *testing.T) {
	vs := &mockVerificationStore{}
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").
		Return(&domain.User{UserID: "u1", Email: "alice@example.com"}, nil)
	vs.On("Get", mock.Anything, "alice@example.com", domain.PurposeCode).
		Return(pendingRow("alice@example.com", "ab1c2", time.Minute), nil)

	svc := newService(vs, us, nil)
	err := svc.VerifyPasswordResetCode(context.Background(), "alice@example.com", "ab1c2", "short")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	vs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyPasswordResetCode_HappyPath(t *testing.T) {
	vs := &mockVerificationStore{}
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").
		Return(&domain.User{UserID: "u1", Email: "alice@example.com"}, nil)
	vs.On("Get", mock.Anything, "alice@example.com", domain.PurposeCode).
		Return(pendingRow("alice@example.com", "ab1c2", time.Minute), nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		hash, ok := updates["password_hash"].(string)
		if !ok {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpass123")) == nil
	})).Return(nil)
	vs.On("Delete", mock.Anything, "alice@example.com", domain.PurposeCode).Return(nil)
	vs.On("Put", mock.Anything, mock.MatchedBy(func(v *domain.EmailVerification) bool {
		return v.Purpose == domain.PurposeResetVerified
	})).Return(nil)

	svc := newService(vs, us, &mockMailer{})
	err := svc.VerifyPasswordResetCode(context.Background(), "alice@example.com", "ab1c2", "newpass123")

	require.NoError(t, err)
	vs.AssertExpectations(t)
	us.AssertExpectations(t)
}
