package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking
// infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// Password-reset flow sentinels. These are safe to surface to callers;
	// user-existence information is never attached to them.
	ErrInvalidCode     = errors.New("code invalid")
	ErrCodeExpired     = errors.New("code expired")
	ErrTooManyAttempts = errors.New("too many attempts")

	// ErrRetryExhausted means code generation kept colliding with active codes.
	// Surfaced as an internal error; never caused by caller input.
	ErrRetryExhausted = errors.New("retries exhausted")
)
