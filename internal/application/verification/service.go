package verification

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/natour-api/internal/domain"
	"github.com/natour-api/internal/pkg/code"
	"github.com/natour-api/internal/pkg/password"
	"golang.org/x/crypto/bcrypt"
)

// Lifetimes of the short-lived verification rows.
const (
	codeTTL     = 180 * time.Second
	verifiedTTL = 600 * time.Second
)

type Service interface {
	// IssueCode starts email verification for registration: generates a
	// code, stores it with a 3-minute TTL and mails it.
	IssueCode(ctx context.Context, email, username string) error
	// VerifyCode checks a submitted code and, on match, replaces the
	// pending row with a verified marker that gates account creation.
	VerifyCode(ctx context.Context, email, submitted string) error
	// IssuePasswordResetCode mails a reset code to an existing account.
	// Unknown emails succeed silently so the endpoint does not reveal
	// which addresses are registered.
	IssuePasswordResetCode(ctx context.Context, email string) error
	// VerifyPasswordResetCode checks the reset code and, on match, sets
	// the new password.
	VerifyPasswordResetCode(ctx context.Context, email, submitted, newPassword string) error
}

type verificationStore interface {
	Put(ctx context.Context, v *domain.EmailVerification) error
	Get(ctx context.Context, email, purpose string) (*domain.EmailVerification, error)
	Delete(ctx context.Context, email, purpose string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type mailSender interface {
	SendEmail(to, subject, textBody, htmlBody string) error
}

type service struct {
	verificationRepo verificationStore
	userRepo         userStore
	mailer           mailSender
}

type ServiceDeps struct {
	VerificationRepo verificationStore
	UserRepo         userStore
	Mailer           mailSender
}

func NewService(deps ServiceDeps) Service {
	return &service{
		verificationRepo: deps.VerificationRepo,
		userRepo:         deps.UserRepo,
		mailer:           deps.Mailer,
	}
}

func (s *service) IssueCode(ctx context.Context, email, username string) error {
	email = normalizeEmail(email)
	if email == "" || username == "" {
		return fmt.Errorf("email and username are required: %w", domain.ErrBadRequest)
	}
	if err := s.throttle(ctx, email); err != nil {
		return err
	}

	c, err := code.New()
	if err != nil {
		return err
	}
	v := &domain.EmailVerification{
		Email:     email,
		Purpose:   domain.PurposeCode,
		Code:      c,
		ExpiresAt: time.Now().Add(codeTTL).Unix(),
	}
	if err := s.verificationRepo.Put(ctx, v); err != nil {
		return err
	}

	// The stored code stays valid even when the send fails, so a retry
	// within the TTL hits the throttle instead of rotating the code.
	text := fmt.Sprintf("Hello %s,\n\nYour verification code is: %s\n\nIt expires in 3 minutes.", username, c)
	html := fmt.Sprintf("<p>Hello %s,</p><p>Your verification code is: <strong>%s</strong></p><p>It expires in 3 minutes.</p>", username, c)
	if err := s.mailer.SendEmail(email, "Confirm your email", text, html); err != nil {
		return fmt.Errorf("send verification code to %s: %w", email, domain.ErrMailDelivery)
	}
	return nil
}

func (s *service) VerifyCode(ctx context.Context, email, submitted string) error {
	email = normalizeEmail(email)
	if email == "" || submitted == "" {
		return fmt.Errorf("email and code are required: %w", domain.ErrBadRequest)
	}
	if err := s.matchCode(ctx, email, submitted); err != nil {
		return err
	}

	if err := s.verificationRepo.Delete(ctx, email, domain.PurposeCode); err != nil {
		slog.Warn("failed to delete pending verification code", "email", email, "err", err)
	}
	return s.verificationRepo.Put(ctx, &domain.EmailVerification{
		Email:     email,
		Purpose:   domain.PurposeVerified,
		ExpiresAt: time.Now().Add(verifiedTTL).Unix(),
	})
}

func (s *service) IssuePasswordResetCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("email is required: %w", domain.ErrBadRequest)
	}
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Respond exactly as for a known address.
		slog.Info("password reset requested for unknown email", "email", email)
		return nil
	}
	if err := s.throttle(ctx, email); err != nil {
		return err
	}

	c, err := code.New()
	if err != nil {
		return err
	}
	v := &domain.EmailVerification{
		Email:     email,
		Purpose:   domain.PurposeCode,
		Code:      c,
		ExpiresAt: time.Now().Add(codeTTL).Unix(),
	}
	if err := s.verificationRepo.Put(ctx, v); err != nil {
		return err
	}

	text := fmt.Sprintf("Hello %s,\n\nYour password reset code is: %s\n\nIt expires in 3 minutes. If you did not request this, ignore this email.", u.Username, c)
	html := fmt.Sprintf("<p>Hello %s,</p><p>Your password reset code is: <strong>%s</strong></p><p>It expires in 3 minutes. If you did not request this, ignore this email.</p>", u.Username, c)
	if err := s.mailer.SendEmail(email, "Reset your password", text, html); err != nil {
		return fmt.Errorf("send password reset code to %s: %w", email, domain.ErrMailDelivery)
	}
	return nil
}

func (s *service) VerifyPasswordResetCode(ctx context.Context, email, submitted, newPassword string) error {
	email = normalizeEmail(email)
	if email == "" || submitted == "" || newPassword == "" {
		return fmt.Errorf("email, code and new password are required: %w", domain.ErrBadRequest)
	}
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("no account for this email: %w", domain.ErrNotFound)
	}
	if err := s.matchCode(ctx, email, submitted); err != nil {
		return err
	}
	// Weak passwords keep the pending code: the user fixes the password
	// and resubmits the same code within its TTL.
	if err := password.Validate(newPassword); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return err
	}

	if err := s.verificationRepo.Delete(ctx, email, domain.PurposeCode); err != nil {
		slog.Warn("failed to delete pending reset code", "email", email, "err", err)
	}
	// Audit marker only; nothing consumes it.
	return s.verificationRepo.Put(ctx, &domain.EmailVerification{
		Email:     email,
		Purpose:   domain.PurposeResetVerified,
		ExpiresAt: time.Now().Add(verifiedTTL).Unix(),
	})
}

// throttle rejects a new code while an unexpired one is pending. There is
// no locking across the check and the subsequent Put; two concurrent
// requests for the same email can both pass and the later Put wins.
func (s *service) throttle(ctx context.Context, email string) error {
	existing, err := s.verificationRepo.Get(ctx, email, domain.PurposeCode)
	if err == nil && existing.ExpiresAt > time.Now().Unix() {
		return fmt.Errorf("a code was already sent, wait 3 minutes before requesting a new one: %w", domain.ErrBadRequest)
	}
	return nil
}

// matchCode validates a submitted code against the pending row. TTL reaping
// is lazy, so an expired row still present in the table counts as absent.
// A mismatch keeps the row so the user can retry until it expires.
func (s *service) matchCode(ctx context.Context, email, submitted string) error {
	v, err := s.verificationRepo.Get(ctx, email, domain.PurposeCode)
	if err != nil {
		return fmt.Errorf("verification code expired or not found: %w", domain.ErrBadRequest)
	}
	if v.ExpiresAt <= time.Now().Unix() {
		return fmt.Errorf("verification code expired or not found: %w", domain.ErrBadRequest)
	}
	if subtle.ConstantTimeCompare([]byte(v.Code), []byte(submitted)) != 1 {
		return fmt.Errorf("incorrect verification code: %w", domain.ErrBadRequest)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
