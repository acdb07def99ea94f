package password

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AcceptsStrongPassword(t *testing.T) {
	assert.NoError(t, Default().Validate("NewP@ss1"))
}

func TestValidate_ShortNoSymbol_ItemizesBoth(t *testing.T) {
	err := Default().Validate("short1") // 6 chars, no upper, no symbol
	require.Error(t, err)

	var pe *PolicyError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Issues, "must be at least 8 characters")
	assert.Contains(t, pe.Issues, "must contain at least 1 uppercase letter")
	assert.Contains(t, pe.Issues, "must contain at least 1 special character")
	assert.Len(t, pe.Issues, 3)
}

func TestValidate_MissingDigit(t *testing.T) {
	err := Default().Validate("NoDigits!")
	require.Error(t, err)

	var pe *PolicyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{"must contain at least 1 digit"}, pe.Issues)
}

func TestValidate_MissingLower(t *testing.T) {
	err := Default().Validate("ALLCAPS1!")
	require.Error(t, err)

	var pe *PolicyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{"must contain at least 1 lowercase letter"}, pe.Issues)
}

func TestValidate_SymbolOutsideSet_DoesNotCount(t *testing.T) {
	// Underscore is not in the accepted punctuation set.
	err := Default().Validate("Password1_")
	require.Error(t, err)

	var pe *PolicyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{"must contain at least 1 special character"}, pe.Issues)
}

func TestValidate_EverySymbolInSetCounts(t *testing.T) {
	for _, r := range Symbols {
		assert.NoError(t, Default().Validate("Passw0rd"+string(r)), "symbol %q", r)
	}
}
