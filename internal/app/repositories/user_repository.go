package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/yigit/roster/internal/app/models"
	"github.com/yigit/roster/internal/db"
	"github.com/yigit/roster/internal/pkg/apperrors"
	"github.com/yigit/roster/internal/pkg/dberrors"
	"github.com/yigit/roster/internal/pkg/helpers"
)

// IUserRepository defines the account storage operations
type IUserRepository interface {
	// Registration and login
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// Password reset
	SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error
	FindByValidResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	ResetPassword(ctx context.Context, userID int64, token, passwordHash string, now time.Time) error

	// WithDB returns a copy bound to another handle, typically a transaction
	WithDB(conn db.DBTX) IUserRepository
}

// UserRepository handles database operations for accounts
type UserRepository struct {
	db      db.DBTX
	dialect db.Dialect
	builder sq.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(conn db.DBTX, dialect db.Dialect) *UserRepository {
	return &UserRepository{
		db:      conn,
		dialect: dialect,
		builder: db.StatementBuilder(dialect),
	}
}

// WithDB returns a repository that runs its statements on conn
func (r *UserRepository) WithDB(conn db.DBTX) IUserRepository {
	return NewUserRepository(conn, r.dialect)
}

var userColumns = []string{"id", "username", "password_hash", "reset_token", "reset_token_expiry"}

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var (
		u      models.User
		token  sql.NullString
		expiry helpers.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &token, &expiry); err != nil {
		return nil, err
	}
	u.ResetToken = helpers.StringPtr(token)
	u.ResetTokenExpiry = expiry.Ptr()
	return &u, nil
}

// ExistsByUsername checks if a username is already registered
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query, args, err := r.builder.Select("COUNT(*)").From("users").Where(sq.Eq{"username": username}).ToSql()
	if err != nil {
		return false, fmt.Errorf("error building query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, apperrors.NewStorageError("Failed to check username.", err)
	}

	return count > 0, nil
}

// Create inserts a new account and sets its ID
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query, args, err := r.builder.Insert("users").
		Columns("username", "password_hash").
		Values(user.Username, user.PasswordHash).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&user.ID); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrUsernameTaken
		}
		return apperrors.NewStorageError("Error during registration.", err)
	}

	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where sq.Sqlizer) (*models.User, error) {
	query, args, err := r.builder.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.NewStorageError("Failed to load account.", err)
	}
	return u, nil
}

// GetByUsername retrieves an account by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, sq.Eq{"username": username})
}

// GetByID retrieves an account by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// SetResetToken stores a fresh token and expiry, replacing any outstanding one
func (r *UserRepository) SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error {
	query, args, err := r.builder.Update("users").
		Set("reset_token", token).
		Set("reset_token_expiry", expiry.UTC()).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewStorageError("Error creating reset token.", err)
	}

	return requireAffected(result, apperrors.ErrUserNotFound)
}

// FindByValidResetToken returns the account holding token if it has not expired at now
func (r *UserRepository) FindByValidResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	u, err := r.getOne(ctx, sq.And{
		sq.Eq{"reset_token": token},
		sq.Gt{"reset_token_expiry": now.UTC()},
	})
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, apperrors.ErrInvalidPasswordResetToken
	}
	return u, err
}

// ResetPassword sets a new hash and clears the token pair in one statement.
// It only matches while token is still current, so a token is consumed once.
func (r *UserRepository) ResetPassword(ctx context.Context, userID int64, token, passwordHash string, now time.Time) error {
	query, args, err := r.builder.Update("users").
		Set("password_hash", passwordHash).
		Set("reset_token", nil).
		Set("reset_token_expiry", nil).
		Where(sq.And{
			sq.Eq{"id": userID},
			sq.Eq{"reset_token": token},
			sq.Gt{"reset_token_expiry": now.UTC()},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewStorageError("Error during password update.", err)
	}

	return requireAffected(result, apperrors.ErrInvalidPasswordResetToken)
}
