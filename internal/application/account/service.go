package account

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/natour-api/internal/domain"
	"github.com/natour-api/internal/pkg/id"
	"github.com/natour-api/internal/pkg/password"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldUsername           = "username"
	fieldPasswordHash       = "password_hash"
	fieldIsActive           = "is_active"
	fieldDeactivationReason = "deactivation_reason"
	fieldLastLogin          = "last_login"
)

// usernameRe matches word characters plus the separators allowed in
// usernames.
var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

const generatedPasswordLen = 8

type Service interface {
	// Create registers a new account. The email must carry an unexpired
	// verified marker, which is consumed even when validation fails.
	Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	// Authenticate checks credentials and stamps last_login.
	Authenticate(ctx context.Context, email, plaintext string) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context, page, perPage int, search string) ([]domain.User, domain.Page, error)
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
	// ResetPassword generates a random password, stores its hash and mails
	// the plaintext to the user. The password stays changed even when the
	// mail fails.
	ResetPassword(ctx context.Context, userID string) error
	SetStatus(ctx context.Context, userID string, req domain.UserStatusRequest) (*domain.User, error)
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	Delete(ctx context.Context, userID string) error
	ScanAll(ctx context.Context) ([]domain.User, error)
}

type verificationStore interface {
	Get(ctx context.Context, email, purpose string) (*domain.EmailVerification, error)
	Delete(ctx context.Context, email, purpose string) error
}

type mailSender interface {
	SendEmail(to, subject, textBody, htmlBody string) error
}

type service struct {
	userRepo         userStore
	verificationRepo verificationStore
	mailer           mailSender
}

type ServiceDeps struct {
	UserRepo         userStore
	VerificationRepo verificationStore
	Mailer           mailSender
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo:         deps.UserRepo,
		verificationRepo: deps.VerificationRepo,
		mailer:           deps.Mailer,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	marker, err := s.verificationRepo.Get(ctx, email, domain.PurposeVerified)
	if err != nil || marker.ExpiresAt <= time.Now().Unix() {
		return nil, fmt.Errorf("email must be verified before creating an account: %w", domain.ErrBadRequest)
	}
	// The marker gates exactly one creation attempt: it is consumed before
	// validation, so a rejected request sends the user back through
	// verification.
	if err := s.verificationRepo.Delete(ctx, email, domain.PurposeVerified); err != nil {
		slog.Warn("failed to delete verified marker", "email", email, "err", err)
	}

	if !usernameRe.MatchString(req.Username) {
		return nil, fmt.Errorf("username may only contain letters, digits and @/./+/-/_: %w", domain.ErrBadRequest)
	}
	if err := password.Validate(req.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("invalid role: %w", domain.ErrBadRequest)
	}
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		IsStaff:      role == domain.RoleMaster,
		IsSuperuser:  role == domain.RoleMaster,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, err
	}

	go func() {
		text := fmt.Sprintf("Hello %s,\n\nWelcome to Natour! Your account is ready.", u.Username)
		html := fmt.Sprintf("<p>Hello %s,</p><p>Welcome to Natour! Your account is ready.</p>", u.Username)
		if err := s.mailer.SendEmail(u.Email, "Welcome to Natour", text, html); err != nil {
			slog.Warn("failed to send welcome email", "email", u.Email, "err", err)
		}
	}()
	return u, nil
}

func (s *service) Authenticate(ctx context.Context, email, plaintext string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("no account for this email: %w", domain.ErrNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)); err != nil {
		return nil, fmt.Errorf("incorrect password: %w", domain.ErrUnauthorized)
	}
	if !u.IsActive {
		reason := "account is deactivated"
		if u.DeactivationReason != nil && *u.DeactivationReason != "" {
			reason = "account is deactivated: " + *u.DeactivationReason
		}
		return nil, fmt.Errorf("%s: %w", reason, domain.ErrForbidden)
	}

	now := time.Now().UTC()
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{fieldLastLogin: now}); err != nil {
		slog.Warn("failed to stamp last login", "user_id", u.UserID, "err", err)
	}
	u.LastLogin = &now
	return u, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.Get(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	if req.Username == nil {
		return s.userRepo.Get(ctx, userID)
	}
	if !usernameRe.MatchString(*req.Username) {
		return nil, fmt.Errorf("username may only contain letters, digits and @/./+/-/_: %w", domain.ErrBadRequest)
	}
	if existing, err := s.userRepo.GetByUsername(ctx, *req.Username); err == nil && existing.UserID != userID {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}
	if err := s.userRepo.Update(ctx, userID, map[string]interface{}{fieldUsername: *req.Username}); err != nil {
		return nil, err
	}
	return s.userRepo.Get(ctx, userID)
}

func (s *service) Delete(ctx context.Context, userID string) error {
	if _, err := s.userRepo.Get(ctx, userID); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, userID)
}

// List paginates the user directory in memory, ordered by username, with an
// optional case-insensitive username prefix filter.
func (s *service) List(ctx context.Context, page, perPage int, search string) ([]domain.User, domain.Page, error) {
	if page < 1 {
		return nil, domain.Page{}, fmt.Errorf("page must be a positive integer: %w", domain.ErrBadRequest)
	}
	if perPage < 1 {
		perPage = 20
	}
	users, err := s.userRepo.ScanAll(ctx)
	if err != nil {
		return nil, domain.Page{}, err
	}
	if search != "" {
		prefix := strings.ToLower(search)
		filtered := users[:0]
		for _, u := range users {
			if strings.HasPrefix(strings.ToLower(u.Username), prefix) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	p := domain.NewPage(len(users), page, perPage)
	start := (page - 1) * perPage
	if start >= len(users) {
		return []domain.User{}, p, nil
	}
	end := start + perPage
	if end > len(users) {
		end = len(users)
	}
	return users[start:end], p, nil
}

func (s *service) ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	if req.NewPassword != req.ConfirmPassword {
		return fmt.Errorf("new password and confirmation do not match: %w", domain.ErrBadRequest)
	}
	if req.NewPassword == req.OldPassword {
		return fmt.Errorf("new password must differ from the current one: %w", domain.ErrBadRequest)
	}
	if err := password.Validate(req.NewPassword); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: string(hash)})
}

func (s *service) ResetPassword(ctx context.Context, userID string) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	plaintext, err := password.Generate(generatedPasswordLen)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: string(hash)}); err != nil {
		return err
	}

	text := fmt.Sprintf("Hello %s,\n\nYour password was reset by an administrator.\nNew password: %s\n\nChange it after your next login.", u.Username, plaintext)
	html := fmt.Sprintf("<p>Hello %s,</p><p>Your password was reset by an administrator.</p><p>New password: <strong>%s</strong></p><p>Change it after your next login.</p>", u.Username, plaintext)
	if err := s.mailer.SendEmail(u.Email, "Your password was reset", text, html); err != nil {
		// The new hash is already stored; the caller must know the user
		// never received it.
		return fmt.Errorf("send reset password to %s: %w", u.Email, domain.ErrMailDelivery)
	}
	return nil
}

func (s *service) SetStatus(ctx context.Context, userID string, req domain.UserStatusRequest) (*domain.User, error) {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := *req.IsActive
	updates := map[string]interface{}{fieldIsActive: active}
	if active {
		updates[fieldDeactivationReason] = nil
	} else {
		if strings.TrimSpace(req.DeactivationReason) == "" {
			return nil, fmt.Errorf("deactivation requires a reason: %w", domain.ErrBadRequest)
		}
		updates[fieldDeactivationReason] = req.DeactivationReason
	}
	if err := s.userRepo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}

	go func(email, username string) {
		var subject, text, html string
		if active {
			subject = "Your account was reactivated"
			text = fmt.Sprintf("Hello %s,\n\nYour account is active again.", username)
			html = fmt.Sprintf("<p>Hello %s,</p><p>Your account is active again.</p>", username)
		} else {
			subject = "Your account was deactivated"
			text = fmt.Sprintf("Hello %s,\n\nYour account was deactivated. Reason: %s", username, req.DeactivationReason)
			html = fmt.Sprintf("<p>Hello %s,</p><p>Your account was deactivated. Reason: %s</p>", username, req.DeactivationReason)
		}
		if err := s.mailer.SendEmail(email, subject, text, html); err != nil {
			slog.Warn("failed to send account status email", "email", email, "err", err)
		}
	}(u.Email, u.Username)

	return s.userRepo.Get(ctx, userID)
}
