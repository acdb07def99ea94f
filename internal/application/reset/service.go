package reset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/auth-api-nosql/internal/domain"
	"github.com/auth-api-nosql/internal/infrastructure/smtp"
	"github.com/auth-api-nosql/internal/infrastructure/sns"
	"github.com/auth-api-nosql/internal/pkg/password"
	"golang.org/x/crypto/bcrypt"
)

const fieldPasswordHash = "password_hash"

// notifyTimeout bounds the background delivery of a reset notification. The
// delivery is detached from the request so its duration and outcome cannot be
// observed by the caller.
const notifyTimeout = 30 * time.Second

type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
	Token string `json:"token" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// UserStore is the credential-store contract the flow needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// SessionStore revokes sessions after a successful reset.
type SessionStore interface {
	SoftDeleteByUser(ctx context.Context, userID string) error
}

// CodeRegistry is the registry contract; *Registry satisfies it.
type CodeRegistry interface {
	Issue(ctx context.Context, userID string) (*domain.ResetCode, error)
	Find(ctx context.Context, userID, code, token string) (*domain.ResetCode, error)
	RecordAttempt(ctx context.Context, rc *domain.ResetCode) (*domain.ResetCode, error)
	Invalidate(ctx context.Context, rc *domain.ResetCode) error
	Clear(ctx context.Context, userID string) error
}

// Service drives the three-step password reset flow: request a code, verify
// it, then set the new password. All state lives in the registry.
type Service interface {
	RequestReset(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, req VerifyCodeRequest) (token string, err error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type ServiceDeps struct {
	UserRepo    UserStore
	SessionRepo SessionStore
	Registry    CodeRegistry
	Mailer      smtp.Mailer
	SMSSender   sns.SMSSender
	CodeTTL     time.Duration
	MaxAttempts int
	Policy      password.Policy
}

type service struct {
	users       UserStore
	sessions    SessionStore
	registry    CodeRegistry
	mailer      smtp.Mailer
	smsSender   sns.SMSSender
	codeTTL     time.Duration
	maxAttempts int
	policy      password.Policy
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:       deps.UserRepo,
		sessions:    deps.SessionRepo,
		registry:    deps.Registry,
		mailer:      deps.Mailer,
		smsSender:   deps.SMSSender,
		codeTTL:     deps.CodeTTL,
		maxAttempts: deps.MaxAttempts,
		policy:      deps.Policy,
	}
}

// RequestReset issues a fresh code for the account behind email and dispatches
// it to the user. When no account matches, it does nothing and still returns
// nil — the caller's response must not betray whether the email exists.
func (s *service) RequestReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("password reset requested for unknown email", "email", email)
			return nil
		}
		return fmt.Errorf("look up account for reset: %w", err)
	}

	rc, err := s.registry.Issue(ctx, u.UserID)
	if err != nil {
		return fmt.Errorf("issue reset code for %s: %w", u.UserID, err)
	}

	go s.deliver(u, rc)
	return nil
}

// deliver sends the code+token pair over every channel the user has.
// Runs detached from the request; failures are logged, never surfaced.
func (s *service) deliver(u *domain.User, rc *domain.ResetCode) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	body := fmt.Sprintf("Your password reset code is: %s\nToken: %s", rc.Code, rc.Token)
	if err := s.mailer.SendEmail(u.Email, "Password reset code", body); err != nil {
		slog.Warn("failed to send reset email", "user_id", u.UserID, "err", err)
	}
	if u.Phone != nil && s.smsSender != nil {
		if err := s.smsSender.SendSMS(ctx, *u.Phone, "Your password reset code: "+rc.Code); err != nil {
			slog.Warn("failed to send reset SMS", "user_id", u.UserID, "err", err)
		}
	}
}

// VerifyCode checks a (code, token) pair for the account behind email. Every
// call against an existing record consumes one attempt, even when the record
// turns out to be expired — the attempt is recorded first, then expiry is
// checked. On success the token is echoed back as the continuation handle for
// ResetPassword.
func (s *service) VerifyCode(ctx context.Context, req VerifyCodeRequest) (string, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("code verification for unknown email", "email", req.Email)
			return "", fmt.Errorf("invalid credentials: %w", domain.ErrBadRequest)
		}
		return "", fmt.Errorf("look up account: %w", err)
	}

	rc, err := s.registry.Find(ctx, u.UserID, req.Code, req.Token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("reset code mismatch", "user_id", u.UserID)
			return "", fmt.Errorf("%w", domain.ErrInvalidCode)
		}
		return "", fmt.Errorf("look up reset code for %s: %w", u.UserID, err)
	}

	if rc.MaxAttemptsReached(s.maxAttempts) {
		if err := s.registry.Invalidate(ctx, rc); err != nil {
			slog.Warn("failed to invalidate exhausted reset code", "user_id", u.UserID, "err", err)
		}
		return "", fmt.Errorf("request a new code: %w", domain.ErrTooManyAttempts)
	}

	rc, err = s.registry.RecordAttempt(ctx, rc)
	if err != nil {
		return "", fmt.Errorf("record attempt for %s: %w", u.UserID, err)
	}

	if rc.Expired(s.codeTTL) {
		slog.Warn("expired reset code used", "user_id", u.UserID)
		return "", fmt.Errorf("%w", domain.ErrCodeExpired)
	}

	slog.Info("reset code verified", "user_id", u.UserID)
	return rc.Token, nil
}

// ResetPassword sets a new password after re-proving the (code, token) pair.
// Unlike VerifyCode it does not consume an attempt on the expiry path; verify
// and reset are separate checks. On success every outstanding code and session
// for the user is invalidated.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := s.policy.Validate(req.NewPassword); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("password reset for unknown email", "email", req.Email)
			return fmt.Errorf("invalid credentials: %w", domain.ErrBadRequest)
		}
		return fmt.Errorf("look up account: %w", err)
	}

	rc, err := s.registry.Find(ctx, u.UserID, req.Code, req.Token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("password reset with mismatched code", "user_id", u.UserID)
			return fmt.Errorf("invalid credentials: %w", domain.ErrBadRequest)
		}
		return fmt.Errorf("look up reset code for %s: %w", u.UserID, err)
	}

	if rc.Expired(s.codeTTL) {
		slog.Warn("password reset with expired code", "user_id", u.UserID)
		return fmt.Errorf("%w", domain.ErrCodeExpired)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.Update(ctx, u.UserID, map[string]interface{}{fieldPasswordHash: string(hash)}); err != nil {
		return fmt.Errorf("update password hash for %s: %w", u.UserID, err)
	}

	if err := s.registry.Clear(ctx, u.UserID); err != nil {
		return fmt.Errorf("clear reset codes for %s: %w", u.UserID, err)
	}
	if err := s.sessions.SoftDeleteByUser(ctx, u.UserID); err != nil {
		slog.Warn("failed to revoke sessions after password reset", "user_id", u.UserID, "err", err)
	}

	slog.Info("password reset completed", "user_id", u.UserID)
	return nil
}
