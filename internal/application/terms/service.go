package terms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/natour-api/internal/domain"
	"github.com/natour-api/internal/pkg/id"
)

// The platform keeps at most this many documents (terms of use and privacy
// policy).
const maxDocuments = 2

type Service interface {
	Create(ctx context.Context, req domain.TermsRequest) (*domain.Terms, error)
	Get(ctx context.Context, termsID string) (*domain.Terms, error)
	// Update replaces a document's content and mails every active user
	// about the change, best-effort.
	Update(ctx context.Context, termsID string, req domain.TermsRequest) (*domain.Terms, error)
}

type termsStore interface {
	Put(ctx context.Context, t *domain.Terms) error
	Get(ctx context.Context, termsID string) (*domain.Terms, error)
	Update(ctx context.Context, termsID, content string) error
	Count(ctx context.Context) (int, error)
}

type userStore interface {
	ScanAll(ctx context.Context) ([]domain.User, error)
}

type mailSender interface {
	SendEmail(to, subject, textBody, htmlBody string) error
}

type service struct {
	termsRepo termsStore
	userRepo  userStore
	mailer    mailSender
}

type ServiceDeps struct {
	TermsRepo termsStore
	UserRepo  userStore
	Mailer    mailSender
}

func NewService(deps ServiceDeps) Service {
	return &service{termsRepo: deps.TermsRepo, userRepo: deps.UserRepo, mailer: deps.Mailer}
}

func (s *service) Create(ctx context.Context, req domain.TermsRequest) (*domain.Terms, error) {
	count, err := s.termsRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count >= maxDocuments {
		return nil, fmt.Errorf("at most %d terms documents are allowed: %w", maxDocuments, domain.ErrBadRequest)
	}
	now := time.Now().UTC()
	t := &domain.Terms{
		TermsID:   id.New(),
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.termsRepo.Put(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *service) Get(ctx context.Context, termsID string) (*domain.Terms, error) {
	return s.termsRepo.Get(ctx, termsID)
}

func (s *service) Update(ctx context.Context, termsID string, req domain.TermsRequest) (*domain.Terms, error) {
	if err := s.termsRepo.Update(ctx, termsID, req.Content); err != nil {
		return nil, err
	}
	go s.mailActiveUsers()
	return s.termsRepo.Get(ctx, termsID)
}

// mailActiveUsers tells every active user the terms changed. Send failures
// are logged per recipient; the update itself already committed.
func (s *service) mailActiveUsers() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	users, err := s.userRepo.ScanAll(ctx)
	if err != nil {
		slog.Warn("failed to list users for terms update email", "err", err)
		return
	}
	const subject = "Our terms and policies changed"
	const text = "Hello,\n\nOur terms and policies were updated. Please review them in the app."
	const html = "<p>Hello,</p><p>Our terms and policies were updated. Please review them in the app.</p>"
	for _, u := range users {
		if !u.IsActive {
			continue
		}
		if err := s.mailer.SendEmail(u.Email, subject, text, html); err != nil {
			slog.Warn("failed to send terms update email", "email", u.Email, "err", err)
		}
	}
}
