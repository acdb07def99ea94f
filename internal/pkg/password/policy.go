package password

import (
	"fmt"
	"strings"
	"unicode"
)

// Symbols is the punctuation set that satisfies the symbol requirement.
const Symbols = `!@#$%^&*(),.?":{}|<>`

// Policy describes the password strength requirements enforced on reset.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// Default returns the standard policy: at least 8 characters with one
// uppercase letter, one lowercase letter, one digit and one symbol.
func Default() Policy {
	return Policy{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
}

// PolicyError carries every requirement the candidate password failed, so the
// caller can present the full list at once instead of one failure per round trip.
type PolicyError struct {
	Issues []string
}

func (e *PolicyError) Error() string {
	return "password does not meet requirements: " + strings.Join(e.Issues, "; ")
}

// Validate checks the candidate against the policy. The returned error is
// always a *PolicyError when non-nil.
func (p Policy) Validate(candidate string) error {
	var issues []string
	if len(candidate) < p.MinLength {
		issues = append(issues, fmt.Sprintf("must be at least %d characters", p.MinLength))
	}
	var upper, lower, digit, symbol bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}
	if p.RequireUpper && !upper {
		issues = append(issues, "must contain at least 1 uppercase letter")
	}
	if p.RequireLower && !lower {
		issues = append(issues, "must contain at least 1 lowercase letter")
	}
	if p.RequireDigit && !digit {
		issues = append(issues, "must contain at least 1 digit")
	}
	if p.RequireSymbol && !symbol {
		issues = append(issues, "must contain at least 1 special character")
	}
	if len(issues) > 0 {
		return &PolicyError{Issues: issues}
	}
	return nil
}
