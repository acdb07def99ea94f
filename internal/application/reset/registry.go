package reset

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/auth-api-nosql/internal/domain"
	"github.com/auth-api-nosql/internal/pkg/id"
	pkgtoken "github.com/auth-api-nosql/internal/pkg/token"
)

// recordGCGrace is how long after creation a record stays eligible for storage
// TTL garbage collection. Expiry itself is always decided from CreatedAt; the
// TTL only keeps dead rows from accumulating.
const recordGCGrace = 24 * time.Hour

// CodeStore is the persistence contract the registry requires.
type CodeStore interface {
	Insert(ctx context.Context, rc *domain.ResetCode) error
	FindActiveByCode(ctx context.Context, code string) (*domain.ResetCode, error)
	LatestMatch(ctx context.Context, userID, code, token string) (*domain.ResetCode, error)
	AddAttempt(ctx context.Context, resetID string) (*domain.ResetCode, error)
	Delete(ctx context.Context, resetID string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

// Registry owns the reset-code lifecycle: issuing with system-wide code
// uniqueness, ordered lookup, attempt accounting and invalidation.
//
// Attempt recording is an atomic per-row increment, but the max-attempts read
// in the verify flow happens before the increment. Two verifications racing at
// attempts=4 of 5 can therefore both pass the precheck; the loser's increment
// still lands, so the record is rejected on any later use. Accepted limitation.
type Registry struct {
	store        CodeStore
	codeLength   int
	issueRetries int
}

func NewRegistry(store CodeStore, codeLength, issueRetries int) *Registry {
	return &Registry{store: store, codeLength: codeLength, issueRetries: issueRetries}
}

// Issue replaces any existing codes for the user with a fresh one.
// Code generation retries on collision with another active code, up to the
// configured bound, then fails with domain.ErrRetryExhausted.
func (r *Registry) Issue(ctx context.Context, userID string) (*domain.ResetCode, error) {
	if err := r.store.DeleteAllForUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("clear prior reset codes: %w", err)
	}

	for try := 0; try < r.issueRetries; try++ {
		code, err := randomCode(r.codeLength)
		if err != nil {
			return nil, err
		}
		if _, err := r.store.FindActiveByCode(ctx, code); err == nil {
			slog.Info("reset code collision, retrying", "try", try)
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		token, err := pkgtoken.NewResetToken()
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		rc := &domain.ResetCode{
			ResetID:   id.New(),
			UserID:    userID,
			Code:      code,
			Token:     token,
			CreatedAt: now,
			Attempts:  0,
			TTL:       now.Add(recordGCGrace).Unix(),
		}
		if err := r.store.Insert(ctx, rc); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				slog.Info("reset code insert conflict, retrying", "try", try)
				continue
			}
			return nil, err
		}
		return rc, nil
	}
	return nil, fmt.Errorf("could not issue unique reset code after %d tries: %w", r.issueRetries, domain.ErrRetryExhausted)
}

// Find returns the most recent record matching the (user, code, token) triple,
// or domain.ErrNotFound.
func (r *Registry) Find(ctx context.Context, userID, code, token string) (*domain.ResetCode, error) {
	return r.store.LatestMatch(ctx, userID, code, token)
}

// RecordAttempt consumes one verification attempt and returns the updated record.
func (r *Registry) RecordAttempt(ctx context.Context, rc *domain.ResetCode) (*domain.ResetCode, error) {
	return r.store.AddAttempt(ctx, rc.ResetID)
}

// Invalidate deletes a single record. Used when the attempt limit is hit.
func (r *Registry) Invalidate(ctx context.Context, rc *domain.ResetCode) error {
	return r.store.Delete(ctx, rc.ResetID)
}

// Clear deletes every record for the user. Used after a successful reset.
func (r *Registry) Clear(ctx context.Context, userID string) error {
	return r.store.DeleteAllForUser(ctx, userID)
}

// randomCode draws a uniformly random n-digit numeric string with no leading
// zero, e.g. 100000–999999 for n=6.
func randomCode(n int) (string, error) {
	min := int64(1)
	for i := 1; i < n; i++ {
		min *= 10
	}
	v, err := rand.Int(rand.Reader, big.NewInt(9*min))
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return fmt.Sprintf("%d", min+v.Int64()), nil
}
