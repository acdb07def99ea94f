package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpdateExpr_SingleField(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"password_hash": "$2a$10$abc"})
	require.NoError(t, err)
	assert.Equal(t, "SET #f0 = :v0", ue.Expr)
	assert.Equal(t, map[string]string{"#f0": "password_hash"}, ue.Names)
	_, ok := ue.Values[":v0"]
	assert.True(t, ok)
}

func TestBuildUpdateExpr_MultipleFields_Deterministic(t *testing.T) {
	updates := map[string]interface{}{
		"refresh_token":      "abc",
		"enable":             false,
		"refresh_expires_at": int64(42),
	}
	// Call twice to verify determinism.
	ue1, err := buildUpdateExpr(updates)
	require.NoError(t, err)
	ue2, err := buildUpdateExpr(updates)
	require.NoError(t, err)

	assert.Equal(t, ue1.Expr, ue2.Expr)

	// Keys must be sorted: enable < refresh_expires_at < refresh_token
	assert.Equal(t, "enable", ue1.Names["#f0"])
	assert.Equal(t, "refresh_expires_at", ue1.Names["#f1"])
	assert.Equal(t, "refresh_token", ue1.Names["#f2"])
	assert.Equal(t, "SET #f0 = :v0, #f1 = :v1, #f2 = :v2", ue1.Expr)
}

func TestBuildUpdateExpr_ValuesMarshalledCorrectly(t *testing.T) {
	ue, err := buildUpdateExpr(map[string]interface{}{"enable": true})
	require.NoError(t, err)
	av, ok := ue.Values[":v0"]
	require.True(t, ok)
	boolVal, isBool := av.(*types.AttributeValueMemberBOOL)
	require.True(t, isBool)
	assert.True(t, boolVal.Value)
}

func TestBuildUpdateExpr_EmptyMap_ReturnsError(t *testing.T) {
	_, err := buildUpdateExpr(map[string]interface{}{})
	assert.ErrorContains(t, err, "no fields to update")
}

func TestWithUpdatedAt_AddsStamp(t *testing.T) {
	out := withUpdatedAt(map[string]interface{}{"enable": false})
	assert.Equal(t, false, out["enable"])
	stamp, ok := out["updated_at"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, stamp)
}

func TestWithUpdatedAt_DoesNotMutateCaller(t *testing.T) {
	updates := map[string]interface{}{"password_hash": "$2a$10$abc"}
	_ = withUpdatedAt(updates)
	assert.Len(t, updates, 1)
	_, leaked := updates["updated_at"]
	assert.False(t, leaked)
}
