package reset

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/auth-api-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCodeStore struct{ mock.Mock }

func (m *mockCodeStore) Insert(ctx context.Context, rc *domain.ResetCode) error {
	return m.Called(ctx, rc).Error(0)
}
func (m *mockCodeStore) FindActiveByCode(ctx context.Context, code string) (*domain.ResetCode, error) {
	args := m.Called(ctx, code)
	if rc, _ := args.Get(0).(*domain.ResetCode); rc != nil {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeStore) LatestMatch(ctx context.Context, userID, code, token string) (*domain.ResetCode, error) {
	args := m.Called(ctx, userID, code, token)
	if rc, _ := args.Get(0).(*domain.ResetCode); rc != nil {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeStore) AddAttempt(ctx context.Context, resetID string) (*domain.ResetCode, error) {
	args := m.Called(ctx, resetID)
	if rc, _ := args.Get(0).(*domain.ResetCode); rc != nil {
		return rc, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCodeStore) Delete(ctx context.Context, resetID string) error {
	return m.Called(ctx, resetID).Error(0)
}
func (m *mockCodeStore) DeleteAllForUser(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

// --- Issue ---

func TestIssue_HappyPath(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("DeleteAllForUser", mock.Anything, "u1").Return(nil)
	cs.On("FindActiveByCode", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	cs.On("Insert", mock.Anything, mock.AnythingOfType("*domain.ResetCode")).Return(nil)

	r := NewRegistry(cs, 6, 5)
	rc, err := r.Issue(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "u1", rc.UserID)
	assert.NotEmpty(t, rc.ResetID)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), rc.Code)
	assert.Len(t, rc.Token, 32) // 16 random bytes, hex-encoded
	assert.Equal(t, 0, rc.Attempts)
	assert.Greater(t, rc.TTL, time.Now().Unix())
	cs.AssertExpectations(t)
}

func TestIssue_ReplacesPriorCodes(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("DeleteAllForUser", mock.Anything, "u1").Return(nil).Once()
	cs.On("FindActiveByCode", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	cs.On("Insert", mock.Anything, mock.Anything).Return(nil)

	r := NewRegistry(cs, 6, 5)
	_, err := r.Issue(context.Background(), "u1")

	require.NoError(t, err)
	cs.AssertNumberOfCalls(t, "DeleteAllForUser", 1)
}

func TestIssue_CodeCollision_Retries(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("DeleteAllForUser", mock.Anything, "u1").Return(nil)
	// First draw collides with another user's active code; second is free.
	cs.On("FindActiveByCode", mock.Anything, mock.Anything).Return(&domain.ResetCode{ResetID: "other"}, nil).Once()
	cs.On("FindActiveByCode", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	cs.On("Insert", mock.Anything, mock.Anything).Return(nil)

	r := NewRegistry(cs, 6, 5)
	rc, err := r.Issue(context.Background(), "u1")

	require.NoError(t, err)
	assert.NotNil(t, rc)
	cs.AssertNumberOfCalls(t, "FindActiveByCode", 2)
	cs.AssertNumberOfCalls(t, "Insert", 1)
}

func TestIssue_InsertConflict_Retries(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("DeleteAllForUser", mock.Anything, "u1").Return(nil)
	cs.On("FindActiveByCode", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	cs.On("Insert", mock.Anything, mock.Anything).Return(domain.ErrConflict).Once()
	cs.On("Insert", mock.Anything, mock.Anything).Return(nil)

	r := NewRegistry(cs, 6, 5)
	rc, err := r.Issue(context.Background(), "u1")

	require.NoError(t, err)
	assert.NotNil(t, rc)
	cs.AssertNumberOfCalls(t, "Insert", 2)
}

func TestIssue_RetriesExhausted(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("DeleteAllForUser", mock.Anything, "u1").Return(nil)
	cs.On("FindActiveByCode", mock.Anything, mock.Anything).Return(&domain.ResetCode{ResetID: "other"}, nil)

	r := NewRegistry(cs, 6, 3)
	_, err := r.Issue(context.Background(), "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRetryExhausted))
	cs.AssertNumberOfCalls(t, "FindActiveByCode", 3)
}

func TestIssue_ClearFails(t *testing.T) {
	cs := &mockCodeStore{}
	cs.On("DeleteAllForUser", mock.Anything, "u1").Return(errors.New("dynamo down"))

	r := NewRegistry(cs, 6, 5)
	_, err := r.Issue(context.Background(), "u1")

	require.Error(t, err)
	cs.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

// --- randomCode ---

func TestRandomCode_SixDigitRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := randomCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestRandomCode_OtherLengths(t *testing.T) {
	code, err := randomCode(4)
	require.NoError(t, err)
	require.Len(t, code, 4)
	n, _ := strconv.Atoi(code)
	assert.GreaterOrEqual(t, n, 1000)
	assert.LessOrEqual(t, n, 9999)
}
