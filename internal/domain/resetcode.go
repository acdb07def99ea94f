package domain

import "time"

// ResetCode is a single-use password-reset credential: a short numeric code
// the user types plus an opaque token carried by the client between steps.
// PK: reset_id (ULID, creation-ordered). At most one active record exists per
// user; issuing a new one deletes all priors.
type ResetCode struct {
	ResetID   string    `json:"id" dynamodbav:"reset_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Code      string    `json:"code" dynamodbav:"code"`
	Token     string    `json:"token" dynamodbav:"token"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	Attempts  int       `json:"attempts" dynamodbav:"attempts"`
	TTL       int64     `json:"-" dynamodbav:"ttl"` // DynamoDB GC only; expiry is decided from CreatedAt
}

// Expired reports whether the code is older than the given window.
func (c *ResetCode) Expired(window time.Duration) bool {
	return time.Since(c.CreatedAt) > window
}

// MaxAttemptsReached reports whether the code has consumed all allowed
// verification attempts.
func (c *ResetCode) MaxAttemptsReached(max int) bool {
	return c.Attempts >= max
}
