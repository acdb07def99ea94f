package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/auth-api-nosql/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSessionStore struct{ mock.Mock }

func (m *mockSessionStore) Put(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s, _ := args.Get(0).(*domain.Session); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSessionStore) RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error {
	return m.Called(ctx, sessionID, newToken, newExpiry).Error(0)
}
func (m *mockSessionStore) Update(ctx context.Context, sessionID string, updates map[string]interface{}) error {
	return m.Called(ctx, sessionID, updates).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(userID, role, sessionID string) (string, error) {
	args := m.Called(userID, role, sessionID)
	return args.String(0), args.Error(1)
}

// --- builder ---

func newService(us *mockUserStore, ss *mockSessionStore, jwt *mockJWTSigner) Service {
	return NewService(ServiceDeps{
		UserRepo:        us,
		SessionRepo:     ss,
		JWTProvider:     jwt,
		RefreshTokenDur: 30 * 24 * time.Hour,
	})
}

func enabledUser(t *testing.T, pw string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		UserID:       "u1",
		Email:        "a@b.com",
		PasswordHash: string(hash),
		Role:         "user",
		Enable:       true,
	}
}

// --- Login ---

func TestLogin_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil)
	_, err := svc.Login(context.Background(), LoginRequest{Email: "ghost@x.com", Password: "pw"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_StoreOutage_NotUnauthorized(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, errors.New("dynamo: connection refused"))

	svc := newService(us, nil, nil)
	_, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "secret123"})

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_DisabledAccount(t *testing.T) {
	us := &mockUserStore{}
	u := enabledUser(t, "secret123")
	u.Enable = false
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(u, nil)

	svc := newService(us, nil, nil)
	_, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "secret123"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(enabledUser(t, "secret123"), nil)

	svc := newService(us, nil, nil)
	_, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "wrong"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	jwt := &mockJWTSigner{}

	us.On("GetByEmail", mock.Anything, "a@b.com").Return(enabledUser(t, "secret123"), nil)
	ss.On("Put", mock.Anything, mock.AnythingOfType("*domain.Session")).Return(nil)
	jwt.On("Sign", "u1", "user", mock.Anything).Return("bearer-token", nil)

	svc := newService(us, ss, jwt)
	result, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "secret123"})

	require.NoError(t, err)
	assert.Equal(t, "bearer-token", result.Bearer)
	assert.Len(t, result.RefreshToken, 64) // 32 random bytes, hex-encoded
	assert.Equal(t, "u1", result.Session.UserID)
	assert.True(t, result.Session.Enable)
	assert.NotNil(t, result.Session.User)
	ss.AssertExpectations(t)
}

// --- Logout ---

func TestLogout_UnknownRefreshToken(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("GetByRefreshToken", mock.Anything, "tok").Return(nil, domain.ErrNotFound)

	svc := newService(nil, ss, nil)
	err := svc.Logout(context.Background(), "u1", "tok")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestLogout_TokenOwnedByAnotherUser(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("GetByRefreshToken", mock.Anything, "tok").Return(&domain.Session{SessionID: "s1", UserID: "u2"}, nil)

	svc := newService(nil, ss, nil)
	err := svc.Logout(context.Background(), "u1", "tok")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	ss.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogout_HappyPath_DisablesSession(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("GetByRefreshToken", mock.Anything, "tok").Return(&domain.Session{SessionID: "s1", UserID: "u1"}, nil)
	ss.On("Update", mock.Anything, "s1", mock.MatchedBy(func(m map[string]interface{}) bool {
		v, ok := m["enable"].(bool)
		return ok && !v
	})).Return(nil)

	svc := newService(nil, ss, nil)
	err := svc.Logout(context.Background(), "u1", "tok")

	require.NoError(t, err)
	ss.AssertExpectations(t)
}

// --- GetCurrent ---

func TestGetCurrent_DisabledSession(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: false}, nil)

	svc := newService(nil, ss, nil)
	_, err := svc.GetCurrent(context.Background(), "s1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestGetCurrent_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	ss.On("Get", mock.Anything, "s1").Return(&domain.Session{SessionID: "s1", UserID: "u1", Enable: true}, nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "a@b.com"}, nil)

	svc := newService(us, ss, nil)
	sess, err := svc.GetCurrent(context.Background(), "s1")

	require.NoError(t, err)
	require.NotNil(t, sess.User)
	assert.Equal(t, "a@b.com", sess.User.Email)
}

// --- Refresh ---

func TestRefresh_UnknownToken(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("GetByRefreshToken", mock.Anything, "tok").Return(nil, domain.ErrNotFound)

	svc := newService(nil, ss, nil)
	_, _, err := svc.Refresh(context.Background(), "tok")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestRefresh_ExpiredToken(t *testing.T) {
	ss := &mockSessionStore{}
	ss.On("GetByRefreshToken", mock.Anything, "tok").Return(&domain.Session{
		SessionID:        "s1",
		UserID:           "u1",
		Enable:           true,
		RefreshExpiresAt: time.Now().Add(-time.Hour).Unix(),
	}, nil)

	svc := newService(nil, ss, nil)
	_, _, err := svc.Refresh(context.Background(), "tok")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	ss.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefresh_HappyPath_RotatesToken(t *testing.T) {
	us := &mockUserStore{}
	ss := &mockSessionStore{}
	jwt := &mockJWTSigner{}

	ss.On("GetByRefreshToken", mock.Anything, "old-token").Return(&domain.Session{
		SessionID:        "s1",
		UserID:           "u1",
		Enable:           true,
		RefreshExpiresAt: time.Now().Add(time.Hour).Unix(),
	}, nil)
	ss.On("RotateRefreshToken", mock.Anything, "s1", mock.Anything, mock.Anything).Return(nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Role: "user"}, nil)
	jwt.On("Sign", "u1", "user", "s1").Return("new-bearer", nil)

	svc := newService(us, ss, jwt)
	bearer, newToken, err := svc.Refresh(context.Background(), "old-token")

	require.NoError(t, err)
	assert.Equal(t, "new-bearer", bearer)
	assert.NotEqual(t, "old-token", newToken)
	assert.Len(t, newToken, 64)
	ss.AssertExpectations(t)
}
