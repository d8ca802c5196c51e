package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/natour-api/internal/application/account"
	"github.com/natour-api/internal/application/auth"
	"github.com/natour-api/internal/application/notification"
	"github.com/natour-api/internal/application/photo"
	"github.com/natour-api/internal/application/point"
	"github.com/natour-api/internal/application/review"
	"github.com/natour-api/internal/application/terms"
	"github.com/natour-api/internal/application/verification"
	"github.com/natour-api/internal/config"
	"github.com/natour-api/internal/domain"
	"github.com/natour-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/natour-api/internal/infrastructure/jwt"
	s3infra "github.com/natour-api/internal/infrastructure/s3"
	"github.com/natour-api/internal/infrastructure/smtp"
	"github.com/natour-api/internal/infrastructure/sns"
	"github.com/natour-api/internal/transport/http/handler"
	appmiddleware "github.com/natour-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	VerificationRepo *dynamo.VerificationRepo
	PointRepo        *dynamo.PointRepo
	ReviewRepo       *dynamo.ReviewRepo
	TermsRepo        *dynamo.TermsRepo
	PhotoRepo        *dynamo.PhotoRepo
	NotificationRepo *dynamo.NotificationRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	Publisher        sns.Publisher // nil disables ops alerts
	JWTProvider      *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/minute per IP on the sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Every(12*time.Second), 5)

	verificationSvc := verification.NewService(verification.ServiceDeps{
		VerificationRepo: deps.VerificationRepo,
		UserRepo:         deps.UserRepo,
		Mailer:           deps.Mailer,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		UserRepo:         deps.UserRepo,
		VerificationRepo: deps.VerificationRepo,
		Mailer:           deps.Mailer,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		Accounts: accountSvc,
		Tokens:   deps.JWTProvider,
	})
	pointSvc := point.NewService(point.ServiceDeps{
		PointRepo:        deps.PointRepo,
		UserRepo:         deps.UserRepo,
		NotificationRepo: deps.NotificationRepo,
		Mailer:           deps.Mailer,
		Publisher:        deps.Publisher,
	})
	reviewSvc := review.NewService(review.ServiceDeps{
		ReviewRepo: deps.ReviewRepo,
		PointRepo:  deps.PointRepo,
	})
	termsSvc := terms.NewService(terms.ServiceDeps{
		TermsRepo: deps.TermsRepo,
		UserRepo:  deps.UserRepo,
		Mailer:    deps.Mailer,
	})
	photoSvc := photo.NewService(photo.ServiceDeps{
		PhotoRepo:   deps.PhotoRepo,
		PointRepo:   deps.PointRepo,
		ObjectStore: deps.S3Store,
	})
	notifSvc := notification.NewService(notification.ServiceDeps{
		NotificationRepo: deps.NotificationRepo,
	})

	healthH := handler.NewHealthHandler()
	codesH := handler.NewVerificationHandler(verificationSvc)
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(accountSvc)
	pointH := handler.NewPointHandler(pointSvc)
	reviewH := handler.NewReviewHandler(reviewSvc)
	termsH := handler.NewTermsHandler(termsSvc)
	photoH := handler.NewPhotoHandler(photoSvc)
	notifH := handler.NewNotificationHandler(notifSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ─────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/users/verification-codes", codesH.SendCode)
		r.With(sensitiveRL.Limit).Post("/users/verification-codes/verify", codesH.VerifyCode)
		r.With(sensitiveRL.Limit).Post("/users/password-reset", codesH.RequestPasswordReset)
		r.With(sensitiveRL.Limit).Post("/users/password-reset/confirm", codesH.ConfirmPasswordReset)
		r.With(sensitiveRL.Limit).Post("/users", userH.Create)
		r.With(sensitiveRL.Limit).Post("/login", authH.Login)
		r.Post("/login/refresh", authH.Refresh)
		r.Get("/terms/{id}", termsH.Get)

		// ── Authenticated routes ────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/users/me", userH.Me)
			r.Put("/users/me", userH.UpdateMe)
			r.Delete("/users/me", userH.DeleteMe)
			r.Put("/users/me/password", userH.ChangePassword)

			r.Post("/points", pointH.Create)
			r.Get("/points", pointH.List)
			r.Get("/points/map", pointH.Map)
			r.Get("/points/mine", pointH.ListMine)
			r.Get("/points/{id}", pointH.Get)
			r.Put("/points/{id}", pointH.Update)
			r.Put("/points/{id}/status", pointH.SetStatus)
			r.Delete("/points/{id}", pointH.DeleteMine)
			r.Post("/points/{id}/views", pointH.AddView)

			r.Post("/points/{id}/reviews", reviewH.Create)
			r.Get("/points/{id}/reviews", reviewH.ListByPoint)

			r.Post("/photos", photoH.Upload)
			r.Get("/photos/{id}", photoH.Get)
			r.Delete("/photos/{id}", photoH.Delete)
			r.Get("/points/{id}/photos", photoH.ListByPoint)
			r.Get("/users/{id}/photos", photoH.ListByUser)

			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/{id}", notifH.MarkAsRead)

			// ── Master-only routes ──────────────────────────────────
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleMaster))

				r.Get("/users", userH.List)
				r.Get("/users/{id}", userH.Get)
				r.Get("/users/{id}/points", pointH.ListByUser)
				r.Put("/users/{id}/status", userH.SetStatus)
				r.Post("/users/{id}/password-reset", userH.ResetPassword)
				r.Delete("/users/{id}", userH.Delete)

				r.Put("/points/{id}/approval", pointH.Approve)
				r.Put("/points/{id}/rejection", pointH.Reject)
				r.Delete("/moderation/points/{id}", pointH.Delete)

				r.Post("/terms", termsH.Create)
				r.Put("/terms/{id}", termsH.Update)
			})
		})
	})

	return r
}
