package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yigit/roster/internal/app/repositories"
	"github.com/yigit/roster/internal/db"
	"github.com/yigit/roster/internal/pkg/apperrors"
	"github.com/yigit/roster/internal/pkg/auth"
	"github.com/yigit/roster/internal/pkg/validation"
)

// recordingNotifier captures reset links instead of logging them
type recordingNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (n *recordingNotifier) SendPasswordResetLink(username, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.tokens == nil {
		n.tokens = make(map[string]string)
	}
	n.tokens[username] = token
	return nil
}

type authFixture struct {
	db       *db.DB
	svc      *AuthService
	repo     *repositories.UserRepository
	notifier *recordingNotifier
	now      time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	database := newTestDB(t)
	repo := repositories.NewUserRepository(database, database.Dialect)
	notifier := &recordingNotifier{}

	f := &authFixture{
		db:       database,
		repo:     repo,
		notifier: notifier,
		now:      time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewAuthService(database, repo, auth.NewPasswordHasher(bcrypt.MinCost), notifier,
		AuthServiceConfig{Rules: validation.DefaultAccountRules, ResetTokenTTL: time.Hour}, zerolog.Nop())
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func (f *authFixture) userCount(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	return n
}

func TestAuthService_RegisterValidation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	tests := []struct {
		name, username, password, confirm, message string
	}{
		{"short username", "al", "secret1", "secret1", "Username must be at least 3 characters"},
		{"empty username", "", "secret1", "secret1", "Username must be at least 3 characters"},
		{"short password", "alice", "12345", "12345", "Password must be at least 6 characters"},
		{"mismatch", "alice", "secret1", "secret2", "Passwords do not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tt.username, tt.password, tt.confirm)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
			assert.Equal(t, tt.message, apperrors.Message(err, ""))
		})
	}
	assert.Equal(t, 0, f.userCount(t))
}

func TestAuthService_RegisterStoresHash(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "alice", "secret1", "secret1")
	require.NoError(t, err)

	stored, err := f.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice", "secret1", "secret1")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "alice", "other12", "other12")
	require.Error(t, err)
	assert.Equal(t, 1, f.userCount(t))
	assert.ErrorIs(t, err, apperrors.ErrUsernameTaken)
	assert.Equal(t, "Username already taken", apperrors.Message(err, ""))

	// the original password still works
	_, err = f.svc.Login(ctx, "alice", "secret1")
	assert.NoError(t, err)
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	registered, err := f.svc.Register(ctx, "alice", "secret1", "secret1")
	require.NoError(t, err)

	user, err := f.svc.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, wrongPassword := f.svc.Login(ctx, "alice", "nope123")
	_, unknownUser := f.svc.Login(ctx, "bob", "secret1")
	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.Equal(t, apperrors.Message(wrongPassword, ""), apperrors.Message(unknownUser, ""))
	assert.Equal(t, "Invalid username or password", apperrors.Message(unknownUser, ""))
	assert.ErrorIs(t, unknownUser, apperrors.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "", "secret1")
	assert.Equal(t, "Username and password are required", apperrors.Message(err, ""))
	_, err = f.svc.Login(ctx, "alice", "")
	assert.Equal(t, "Username and password are required", apperrors.Message(err, ""))
}

func TestAuthService_CurrentUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "alice", "secret1", "secret1")
	require.NoError(t, err)

	got, err := f.svc.CurrentUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = f.svc.CurrentUser(ctx, user.ID+100)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestAuthService_ForgotPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "alice", "secret1", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "alice"))

	stored, err := f.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)
	require.NotNil(t, stored.ResetTokenExpiry)
	assert.Equal(t, f.notifier.tokens["alice"], *stored.ResetToken)
	assert.True(t, f.now.Add(time.Hour).Equal(*stored.ResetTokenExpiry))

	err = f.svc.ForgotPassword(ctx, "nobody")
	assert.Equal(t, "Username does not exist", apperrors.Message(err, ""))
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestAuthService_ForgotPasswordReplacesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "alice", "secret1", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "alice"))
	first := f.notifier.tokens["alice"]
	require.NoError(t, f.svc.ForgotPassword(ctx, "alice"))
	second := f.notifier.tokens["alice"]
	assert.NotEqual(t, first, second)

	_, err = f.svc.ValidateResetToken(ctx, first)
	assert.ErrorIs(t, err, apperrors.ErrInvalidPasswordResetToken)
	_, err = f.svc.ValidateResetToken(ctx, second)
	assert.NoError(t, err)
}

func TestAuthService_ResetPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "alice", "secret1", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.svc.ForgotPassword(ctx, "alice"))
	token := f.notifier.tokens["alice"]

	// too short: token stays pending
	err = f.svc.ResetPassword(ctx, token, "123")
	assert.Equal(t, "Password must be at least 6 characters", apperrors.Message(err, ""))
	_, err = f.svc.ValidateResetToken(ctx, token)
	require.NoError(t, err)

	f.now = f.now.Add(30 * time.Minute)
	require.NoError(t, f.svc.ResetPassword(ctx, token, "newpass1"))

	stored, err := f.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ResetToken)
	assert.Nil(t, stored.ResetTokenExpiry)

	_, err = f.svc.Login(ctx, "alice", "newpass1")
	assert.NoError(t, err)
	_, err = f.svc.Login(ctx, "alice", "secret1")
	assert.Error(t, err)

	err = f.svc.ResetPassword(ctx, token, "another1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidPasswordResetToken)
}

func TestAuthService_ResetPasswordExpired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, "alice", "secret1", "secret1")
	require.NoError(t, err)
	before, err := f.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "alice"))
	token := f.notifier.tokens["alice"]

	f.now = f.now.Add(time.Hour + time.Second)
	err = f.svc.ResetPassword(ctx, token, "newpass1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidPasswordResetToken)
	assert.Equal(t, "Invalid or expired reset token", apperrors.Message(err, ""))

	after, err := f.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)
	// expired tokens are not purged
	assert.NotNil(t, after.ResetToken)
}

func TestAuthService_ValidateResetTokenEmpty(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.ValidateResetToken(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidPasswordResetToken)
}
