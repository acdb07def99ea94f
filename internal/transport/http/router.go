package http

import (
	"net/http"

	"github.com/auth-api-nosql/internal/application/reset"
	"github.com/auth-api-nosql/internal/application/session"
	"github.com/auth-api-nosql/internal/config"
	"github.com/auth-api-nosql/internal/pkg/password"
	"github.com/auth-api-nosql/internal/transport/http/handler"
	appmiddleware "github.com/auth-api-nosql/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
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

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	policy := password.Default()
	policy.MinLength = cfg.PasswordMinLength

	registry := reset.NewRegistry(deps.ResetCodeRepo, cfg.ResetCodeLength, cfg.ResetIssueRetries)
	resetSvc := reset.NewService(reset.ServiceDeps{
		UserRepo:    deps.UserRepo,
		SessionRepo: deps.SessionRepo,
		Registry:    registry,
		Mailer:      deps.Mailer,
		SMSSender:   deps.SMSSender,
		CodeTTL:     cfg.ResetCodeTTL,
		MaxAttempts: cfg.ResetMaxAttempts,
		Policy:      policy,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		UserRepo:        deps.UserRepo,
		SessionRepo:     deps.SessionRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenTTL,
	})

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(sessionSvc)
	resetH := handler.NewPasswordResetHandler(resetSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/auth/forgot-password", resetH.Forgot)
		r.With(sensitiveRL.Limit).Post("/auth/verify-code", resetH.VerifyCode)
		r.With(sensitiveRL.Limit).Post("/auth/reset-password", resetH.ResetPassword)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/auth/logout", sessionH.Logout)
		})
	})

	return r
}
