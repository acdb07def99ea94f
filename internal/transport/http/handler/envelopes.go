package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/auth-api-nosql/internal/domain"
	"github.com/auth-api-nosql/internal/pkg/password"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string   `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
	Details []string `json:"details,omitempty"`
}

// AuthEnvelope wraps login responses.
type AuthEnvelope struct {
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	Session      *domain.Session `json:"session,omitempty"`
	User         *domain.User    `json:"user,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// VerifyEnvelope wraps verify-code responses; Token is the continuation handle
// for the reset step.
type VerifyEnvelope struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// SessionEnvelope wraps current-session responses.
type SessionEnvelope struct {
	Session *domain.Session `json:"session,omitempty"`
	User    *domain.User    `json:"user,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to HTTP statuses. Anything unmapped is
// an internal failure: logged with context, surfaced opaquely.
func httpError(w http.ResponseWriter, err error) {
	var pe *password.PolicyError
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusBadRequest, MessageEnvelope{Error: "password does not meet requirements", Details: pe.Issues})
	case errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrTooManyAttempts),
		errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("unhandled error in handler", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// toSafeSession strips secrets a client should never see back.
func toSafeSession(s *domain.Session) *domain.Session {
	if s == nil {
		return nil
	}
	safe := *s
	safe.RefreshToken = ""
	safe.User = nil
	return &safe
}

// toSafeUser relies on json:"-" for the password hash; kept for symmetry and
// so a future sensitive field has one place to be scrubbed.
func toSafeUser(u *domain.User) *domain.User {
	return u
}
