package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/roster/internal/app/models"
	"github.com/yigit/roster/internal/app/repositories"
	"github.com/yigit/roster/internal/db"
	"github.com/yigit/roster/internal/pkg/apperrors"
	"github.com/yigit/roster/internal/pkg/auth"
	"github.com/yigit/roster/internal/pkg/email"
	"github.com/yigit/roster/internal/pkg/validation"
)

// Messages shown after an account operation
const (
	MsgRegistered        = "Registration successful. Please Login"
	MsgLoggedIn          = "Logged in successfully"
	MsgLoggedOut         = "Logged out successfully"
	MsgResetLinkSent     = "A password reset link has been sent to your email."
	MsgPasswordResetDone = "Your password has been reset, you can log in now"
)

// Account errors carrying the message shown to the user
var (
	ErrPasswordMismatch   = apperrors.NewValidationError("Passwords do not match")
	ErrCredentialsMissing = apperrors.NewValidationError("Username and password are required")
	ErrInvalidLogin       = apperrors.NewCustomError(apperrors.ErrInvalidCredentials, "Invalid username or password")
	ErrUsernameTaken      = apperrors.NewCustomError(apperrors.ErrValidationFailed, "Username already taken").WithCause(apperrors.ErrUsernameTaken)
	ErrUnknownUsername    = apperrors.NewCustomError(apperrors.ErrValidationFailed, "Username does not exist").WithCause(apperrors.ErrUserNotFound)
)

// TxRunner runs a function inside a database transaction
type TxRunner interface {
	WithTransaction(ctx context.Context, fn db.TransactionFn) error
}

// AuthServiceConfig holds the tunables of the account flows
type AuthServiceConfig struct {
	Rules         validation.AccountRules
	ResetTokenTTL time.Duration
}

// AuthService handles registration, login and password reset
type AuthService struct {
	tx       TxRunner
	userRepo repositories.IUserRepository
	hasher   *auth.PasswordHasher
	notifier email.ResetNotifier
	config   AuthServiceConfig
	logger   zerolog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService
func NewAuthService(
	tx TxRunner,
	userRepo repositories.IUserRepository,
	hasher *auth.PasswordHasher,
	notifier email.ResetNotifier,
	config AuthServiceConfig,
	logger zerolog.Logger,
) *AuthService {
	if config.ResetTokenTTL <= 0 {
		config.ResetTokenTTL = time.Hour
	}
	return &AuthService{
		tx:       tx,
		userRepo: userRepo,
		hasher:   hasher,
		notifier: notifier,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for reset token expiry
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}

// Register validates the form and creates an account with a hashed password
func (s *AuthService) Register(ctx context.Context, username, password, confirm string) (*models.User, error) {
	if err := s.config.Rules.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := s.config.Rules.ValidatePassword(password); err != nil {
		return nil, err
	}
	if password != confirm {
		return nil, ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: hash}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := s.userRepo.WithDB(tx)

		exists, err := repo.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if exists {
			return ErrUsernameTaken
		}
		return repo.Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.logger.Info().Int64("userID", user.ID).Str("username", username).Msg("Account registered")
	return user, nil
}

// Login verifies credentials. Unknown usernames and wrong passwords yield the
// same error, and both cost one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrCredentialsMissing
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, err
		}
		s.hasher.Check(s.dummyPasswordHash(), password)
		s.logger.Warn().Str("username", username).Msg("Login failed")
		return nil, ErrInvalidLogin
	}

	if !s.hasher.Check(user.PasswordHash, password) {
		s.logger.Warn().Str("username", username).Msg("Login failed")
		return nil, ErrInvalidLogin
	}

	s.logger.Info().Int64("userID", user.ID).Msg("Login succeeded")
	return user, nil
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to prepare dummy hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// ForgotPassword issues a fresh reset token for username, replacing any
// outstanding one, and hands the link to the notifier
func (s *AuthService) ForgotPassword(ctx context.Context, username string) error {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return ErrUnknownUsername
		}
		return err
	}

	token, err := auth.GenerateResetToken()
	if err != nil {
		return apperrors.NewCustomError(apperrors.ErrStorage, "Error creating reset token.").WithCause(err)
	}

	expiry := s.now().Add(s.config.ResetTokenTTL)
	if err := s.userRepo.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return err
	}

	if err := s.notifier.SendPasswordResetLink(user.Username, token); err != nil {
		s.logger.Error().Err(err).Int64("userID", user.ID).Msg("Failed to deliver password reset link")
	}

	s.logger.Info().Int64("userID", user.ID).Time("expiresAt", expiry).Msg("Password reset token issued")
	return nil
}

// CurrentUser loads the account a session points at
func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ValidateResetToken returns the account holding an unexpired token
func (s *AuthService) ValidateResetToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperrors.ErrInvalidPasswordResetToken
	}
	return s.userRepo.FindByValidResetToken(ctx, token, s.now())
}

// ResetPassword consumes token and sets a new password. The hash update and
// the token clear happen in one statement guarded by the token and expiry.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, err := s.ValidateResetToken(ctx, token)
	if err != nil {
		return err
	}

	if err := s.config.Rules.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.ResetPassword(ctx, user.ID, token, hash, s.now()); err != nil {
		return err
	}

	s.logger.Info().Int64("userID", user.ID).Msg("Password reset")
	return nil
}
